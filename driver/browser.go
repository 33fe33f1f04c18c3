// Package driver opens WebDriver sessions for the browsers the suite covers.
package driver

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/wanmail/spacegame-uitests/config"
)

var (
	// ErrUnknownBrowser is returned for browser names outside Browsers.
	ErrUnknownBrowser = errors.New("unknown browser")
	// ErrDriverUnavailable is returned when the driver binary cannot be found
	// or launched, or when the browser itself fails to start.
	ErrDriverUnavailable = errors.New("driver service not found")
)

// Browser identifies one of the browser engines under test.
type Browser int

// The browsers under test.
const (
	Chrome Browser = iota + 1
	Firefox
	Edge
)

// Browsers lists every supported browser in the order the suite runs them.
var Browsers = []Browser{Chrome, Firefox, Edge}

// ParseBrowser maps a fixture name such as "Chrome" to a Browser. Matching
// ignores case.
func ParseBrowser(name string) (Browser, error) {
	for _, b := range Browsers {
		if strings.EqualFold(name, b.String()) {
			return b, nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownBrowser, "%q", name)
}

func (b Browser) String() string {
	switch b {
	case Chrome:
		return "Chrome"
	case Firefox:
		return "Firefox"
	case Edge:
		return "Edge"
	}
	return "Browser(" + strconv.Itoa(int(b)) + ")"
}

// DriverEnv returns the environment variable naming this browser's driver.
func (b Browser) DriverEnv() string {
	switch b {
	case Chrome:
		return config.ChromeWebDriverEnv
	case Firefox:
		return config.GeckoWebDriverEnv
	case Edge:
		return config.EdgeWebDriverEnv
	}
	return ""
}

// DriverPath returns the configured driver location for this browser.
func (b Browser) DriverPath(c config.Config) string {
	switch b {
	case Chrome:
		return c.ChromeWebDriver
	case Firefox:
		return c.GeckoWebDriver
	case Edge:
		return c.EdgeWebDriver
	}
	return ""
}

// DriverBinary returns the file name of this browser's driver executable on
// the current platform.
func (b Browser) DriverBinary() string {
	var name string
	switch b {
	case Chrome:
		name = "chromedriver"
	case Firefox:
		name = "geckodriver"
	case Edge:
		name = "msedgedriver"
	}
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return name
}

// capabilityName is the W3C browserName for b.
func (b Browser) capabilityName() string {
	switch b {
	case Chrome:
		return "chrome"
	case Firefox:
		return "firefox"
	case Edge:
		return "MicrosoftEdge"
	}
	return ""
}

// ResolveBinary turns a configured driver location into the path of an
// executable. The location may name the binary or the directory containing
// it.
func (b Browser) ResolveBinary(location string) (string, error) {
	if location == "" {
		return "", errors.Wrapf(ErrDriverUnavailable, "%s is not set", b.DriverEnv())
	}
	fi, err := os.Stat(location)
	if err != nil {
		return "", errors.Wrapf(ErrDriverUnavailable, "%s=%q: %v", b.DriverEnv(), location, err)
	}
	path := location
	if fi.IsDir() {
		path = filepath.Join(location, b.DriverBinary())
		if fi, err = os.Stat(path); err != nil {
			return "", errors.Wrapf(ErrDriverUnavailable, "%s=%q: %v", b.DriverEnv(), location, err)
		}
	}
	if !fi.Mode().IsRegular() {
		return "", errors.Wrapf(ErrDriverUnavailable, "%q is not a regular file", path)
	}
	if runtime.GOOS != "windows" && fi.Mode().Perm()&0111 == 0 {
		return "", errors.Wrapf(ErrDriverUnavailable, "%q is not executable", path)
	}
	return path, nil
}
