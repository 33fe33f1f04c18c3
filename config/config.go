// Package config reads the environment bindings that drive the UI tests.
package config

import (
	"net"
	"net/url"
	"os"
	"time"

	"github.com/blang/semver"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// LocalProxy is the value of UITEST_SOCKS_PROXY that starts an in-process
// SOCKS5 proxy instead of using an existing one.
const LocalProxy = "local"

// Config holds every environment binding consumed by the suite. It is read
// once, before any fixture is set up, and not modified afterwards.
type Config struct {
	// Paths to the driver binaries, or to the directories holding them. The
	// variable names are mixed case, which envconfig cannot look up, so
	// FromEnv reads them itself.
	ChromeWebDriver string `ignored:"true"`
	GeckoWebDriver  string `ignored:"true"`
	EdgeWebDriver   string `ignored:"true"`

	// SiteURL is the base URL of the site under test. The home page is
	// SiteURL + "/".
	SiteURL string `envconfig:"SITE_URL"`

	ImplicitWait  time.Duration `envconfig:"UITEST_IMPLICIT_WAIT" default:"20s"`
	ReadyTimeout  time.Duration `envconfig:"UITEST_READY_TIMEOUT" default:"10s"`
	LookupTimeout time.Duration `envconfig:"UITEST_LOOKUP_TIMEOUT" default:"10s"`
	PollInterval  time.Duration `envconfig:"UITEST_POLL_INTERVAL" default:"500ms"`

	Headless    bool `envconfig:"UITEST_HEADLESS"`
	FrameBuffer bool `envconfig:"UITEST_FRAME_BUFFER"`
	Debug       bool `envconfig:"UITEST_DEBUG"`

	// NoSandbox turns off the Chromium sandbox, for containers that cannot
	// provide it.
	NoSandbox bool `envconfig:"UITEST_NO_SANDBOX"`

	// ArtifactsDir receives screenshots and browser logs of failed cases.
	// Nothing is written when it is empty.
	ArtifactsDir string `envconfig:"UITEST_ARTIFACTS_DIR"`

	// MinDriverVersion rejects local driver binaries older than this version.
	MinDriverVersion string `envconfig:"UITEST_MIN_DRIVER_VERSION"`

	// RemoteURL points at an already running WebDriver executor (a Selenium
	// grid, for example). No local driver service is started when set.
	RemoteURL string `envconfig:"SELENIUM_REMOTE_URL"`

	SauceUsername  string `envconfig:"SAUCE_USERNAME"`
	SauceAccessKey string `envconfig:"SAUCE_ACCESS_KEY"`
	SaucePlatform  string `envconfig:"SAUCE_PLATFORM" default:"Windows 10"`

	// SOCKSProxy is either LocalProxy or the host:port of a SOCKS5 proxy the
	// browser should use.
	SOCKSProxy string `envconfig:"UITEST_SOCKS_PROXY"`
	// SOCKSPin is a host:port the local proxy sends every connection to,
	// whatever host the browser asked for. It lets SiteURL use a name that
	// does not resolve, such as https://example.test.
	SOCKSPin string `envconfig:"UITEST_SOCKS_PIN"`
}

// Environment variables holding the driver locations.
const (
	ChromeWebDriverEnv = "ChromeWebDriver"
	GeckoWebDriverEnv  = "GeckoWebDriver"
	EdgeWebDriverEnv   = "EdgeWebDriver"
)

// FromEnv processes the environment into a validated Config.
func FromEnv() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, errors.Wrap(err, "reading environment")
	}
	// envconfig upper-cases every key.
	c.ChromeWebDriver = os.Getenv(ChromeWebDriverEnv)
	c.GeckoWebDriver = os.Getenv(GeckoWebDriverEnv)
	c.EdgeWebDriver = os.Getenv(EdgeWebDriverEnv)
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports configuration that can never produce a usable run.
func (c Config) Validate() error {
	for name, d := range map[string]time.Duration{
		"UITEST_IMPLICIT_WAIT":  c.ImplicitWait,
		"UITEST_READY_TIMEOUT":  c.ReadyTimeout,
		"UITEST_LOOKUP_TIMEOUT": c.LookupTimeout,
		"UITEST_POLL_INTERVAL":  c.PollInterval,
	} {
		if d < 0 {
			return errors.Errorf("%s must not be negative, got %v", name, d)
		}
	}
	if c.PollInterval == 0 {
		return errors.New("UITEST_POLL_INTERVAL must be positive")
	}
	if c.SiteURL != "" {
		if _, err := url.Parse(c.SiteURL); err != nil {
			return errors.Wrapf(err, "invalid SITE_URL %q", c.SiteURL)
		}
	}
	if c.RemoteURL != "" {
		u, err := url.Parse(c.RemoteURL)
		if err != nil {
			return errors.Wrapf(err, "invalid SELENIUM_REMOTE_URL %q", c.RemoteURL)
		}
		if u.Scheme == "" || u.Host == "" {
			return errors.Errorf("SELENIUM_REMOTE_URL %q must include a scheme and a host", c.RemoteURL)
		}
	}
	if (c.SauceUsername == "") != (c.SauceAccessKey == "") {
		return errors.New("SAUCE_USERNAME and SAUCE_ACCESS_KEY must be set together")
	}
	if c.MinDriverVersion != "" {
		if _, err := semver.ParseTolerant(c.MinDriverVersion); err != nil {
			return errors.Wrapf(err, "invalid UITEST_MIN_DRIVER_VERSION %q", c.MinDriverVersion)
		}
	}
	if c.SOCKSProxy != "" && c.SOCKSProxy != LocalProxy {
		if _, _, err := net.SplitHostPort(c.SOCKSProxy); err != nil {
			return errors.Wrapf(err, "UITEST_SOCKS_PROXY %q must be %q or host:port", c.SOCKSProxy, LocalProxy)
		}
	}
	if c.SOCKSPin != "" {
		if c.SOCKSProxy != LocalProxy {
			return errors.Errorf("UITEST_SOCKS_PIN requires UITEST_SOCKS_PROXY=%s", LocalProxy)
		}
		if _, _, err := net.SplitHostPort(c.SOCKSPin); err != nil {
			return errors.Wrapf(err, "UITEST_SOCKS_PIN %q must be host:port", c.SOCKSPin)
		}
	}
	return nil
}

// MinVersion returns the parsed MinDriverVersion and whether one is set.
func (c Config) MinVersion() (semver.Version, bool) {
	if c.MinDriverVersion == "" {
		return semver.Version{}, false
	}
	v, err := semver.ParseTolerant(c.MinDriverVersion)
	if err != nil {
		return semver.Version{}, false
	}
	return v, true
}

// Remote reports whether sessions are created on a remote executor rather
// than on a locally launched driver service.
func (c Config) Remote() bool {
	return c.RemoteURL != "" || c.SauceUsername != ""
}

// Sauce reports whether Sauce Labs credentials are configured.
func (c Config) Sauce() bool {
	return c.SauceUsername != "" && c.SauceAccessKey != ""
}
