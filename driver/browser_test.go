package driver

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/blang/semver"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"
	"github.com/tebeka/selenium/log"

	"github.com/wanmail/spacegame-uitests/config"
)

func TestParseBrowser(t *testing.T) {
	for _, tc := range []struct {
		name string
		want Browser
	}{
		{"Chrome", Chrome},
		{"chrome", Chrome},
		{"Firefox", Firefox},
		{"FIREFOX", Firefox},
		{"Edge", Edge},
	} {
		got, err := ParseBrowser(tc.name)
		if err != nil {
			t.Fatalf("ParseBrowser(%q) returned error: %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("ParseBrowser(%q) = %s, want %s", tc.name, got, tc.want)
		}
	}

	for _, name := range []string{"", "Safari", "InternetExplorer"} {
		if _, err := ParseBrowser(name); !errors.Is(err, ErrUnknownBrowser) {
			t.Errorf("ParseBrowser(%q) returned error %v, want ErrUnknownBrowser", name, err)
		}
	}
}

func TestBrowserString(t *testing.T) {
	got := []string{Chrome.String(), Firefox.String(), Edge.String(), Browser(7).String()}
	want := []string{"Chrome", "Firefox", "Edge", "Browser(7)"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("String() returned diff (-want/+got):\n%s", diff)
	}
}

func TestDriverPath(t *testing.T) {
	c := config.Config{
		ChromeWebDriver: "/opt/chromedriver",
		GeckoWebDriver:  "/opt/geckodriver",
		EdgeWebDriver:   "/opt/msedgedriver",
	}
	for _, tc := range []struct {
		b        Browser
		env      string
		location string
	}{
		{Chrome, "ChromeWebDriver", c.ChromeWebDriver},
		{Firefox, "GeckoWebDriver", c.GeckoWebDriver},
		{Edge, "EdgeWebDriver", c.EdgeWebDriver},
	} {
		if got := tc.b.DriverEnv(); got != tc.env {
			t.Errorf("%s.DriverEnv() = %q, want %q", tc.b, got, tc.env)
		}
		if got := tc.b.DriverPath(c); got != tc.location {
			t.Errorf("%s.DriverPath() = %q, want %q", tc.b, got, tc.location)
		}
	}
}

// writeExecutable creates an executable file named name in dir.
func writeExecutable(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatalf("os.WriteFile(%q) returned error: %v", path, err)
	}
	return path
}

func TestResolveBinary(t *testing.T) {
	dir := t.TempDir()
	bin := writeExecutable(t, dir, Chrome.DriverBinary())

	t.Run("Directory", func(t *testing.T) {
		got, err := Chrome.ResolveBinary(dir)
		if err != nil {
			t.Fatalf("ResolveBinary(%q) returned error: %v", dir, err)
		}
		if got != bin {
			t.Fatalf("ResolveBinary(%q) = %q, want %q", dir, got, bin)
		}
	})

	t.Run("Binary", func(t *testing.T) {
		got, err := Chrome.ResolveBinary(bin)
		if err != nil {
			t.Fatalf("ResolveBinary(%q) returned error: %v", bin, err)
		}
		if got != bin {
			t.Fatalf("ResolveBinary(%q) = %q, want %q", bin, got, bin)
		}
	})

	t.Run("Unavailable", func(t *testing.T) {
		notExec := filepath.Join(dir, "not-executable")
		if err := os.WriteFile(notExec, nil, 0644); err != nil {
			t.Fatalf("os.WriteFile(%q) returned error: %v", notExec, err)
		}
		locations := []string{
			"",
			filepath.Join(dir, "missing"),
			// The directory holds chromedriver, not geckodriver.
			dir,
		}
		browsers := []Browser{Chrome, Chrome, Firefox}
		if runtime.GOOS != "windows" {
			locations = append(locations, notExec)
			browsers = append(browsers, Chrome)
		}
		for i, loc := range locations {
			if _, err := browsers[i].ResolveBinary(loc); !errors.Is(err, ErrDriverUnavailable) {
				t.Errorf("%s.ResolveBinary(%q) returned error %v, want ErrDriverUnavailable", browsers[i], loc, err)
			}
		}
	})
}

func TestSameBuild(t *testing.T) {
	for _, tc := range []struct {
		a, b string
		want bool
	}{
		{"120.0.6099.109", "120.0.6099.109", true},
		{"120.0.6099.109", "120.0.6099.129", false},
		{"120.0.6099.109", "120.0.6099", false},
		{"0.34.0", "0.34.0", true},
		{"0.34.0", "0.33.0", false},
	} {
		a, err := ParseVersion(tc.a)
		if err != nil {
			t.Fatalf("ParseVersion(%q) returned error: %v", tc.a, err)
		}
		b, err := ParseVersion(tc.b)
		if err != nil {
			t.Fatalf("ParseVersion(%q) returned error: %v", tc.b, err)
		}
		if got := SameBuild(a, b); got != tc.want {
			t.Errorf("SameBuild(%s, %s) = %t, want %t", a, b, got, tc.want)
		}
	}
}

func TestParseVersion(t *testing.T) {
	for _, tc := range []struct {
		output string
		want   string
	}{
		{"ChromeDriver 120.0.6099.109 (3419140ab665596f21b385ce136419fde0924272-refs/branch-heads/6099@{#1483})\n", "120.0.6099+109"},
		{"geckodriver 0.34.0 (c44f0d09630a 2024-01-02 15:36 +0000)\n\nThe source code of this program is available from\n", "0.34.0"},
		{"Microsoft Edge WebDriver 114.0.1823.43 (0d5b7b5d2fb06e0b1a1b0a4bd3b9b9c7e0d4e6c5)\n", "114.0.1823+43"},
		{"chromedriver 2.46", "2.46.0"},
	} {
		got, err := ParseVersion(tc.output)
		if err != nil {
			t.Fatalf("ParseVersion(%q) returned error: %v", tc.output, err)
		}
		if diff := cmp.Diff(semver.MustParse(tc.want), got); diff != "" {
			t.Errorf("ParseVersion(%q) returned diff (-want/+got):\n%s", tc.output, diff)
		}
	}

	if _, err := ParseVersion("command not found"); err == nil {
		t.Fatalf("ParseVersion returned nil error for output without a version")
	}
}

// fakeExecCommand re-runs the test binary as TestHelperProcess, which prints
// a canned --version banner.
func fakeExecCommand(command string, args ...string) *exec.Cmd {
	cs := []string{"-test.run=TestHelperProcess", "--", command}
	cs = append(cs, args...)
	cmd := exec.Command(os.Args[0], cs...)
	cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1"}
	return cmd
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	fmt.Fprintln(os.Stdout, "geckodriver 0.34.0 (c44f0d09630a 2024-01-02 15:36 +0000)")
	os.Exit(0)
}

func TestBinaryVersion(t *testing.T) {
	newExecCommand = fakeExecCommand
	defer func() { newExecCommand = exec.Command }()

	got, err := BinaryVersion("/usr/local/bin/geckodriver")
	if err != nil {
		t.Fatalf("BinaryVersion() returned error: %v", err)
	}
	if diff := cmp.Diff(semver.MustParse("0.34.0"), got); diff != "" {
		t.Fatalf("BinaryVersion() returned diff (-want/+got):\n%s", diff)
	}
}

func TestCapabilities(t *testing.T) {
	t.Run("Chrome", func(t *testing.T) {
		caps, err := Capabilities(Chrome, config.Config{Headless: true}, "")
		if err != nil {
			t.Fatalf("Capabilities(Chrome) returned error: %v", err)
		}
		if got := caps["browserName"]; got != "chrome" {
			t.Errorf("browserName = %v, want chrome", got)
		}
		opts, ok := caps[chrome.CapabilitiesKey].(chrome.Capabilities)
		if !ok {
			t.Fatalf("caps[%q] = %#v, want chrome.Capabilities", chrome.CapabilitiesKey, caps[chrome.CapabilitiesKey])
		}
		if !opts.W3C {
			t.Errorf("chrome.Capabilities.W3C = false, want true")
		}
		if !contains(opts.Args, "--headless") {
			t.Errorf("chrome.Capabilities.Args = %q, want --headless", opts.Args)
		}
		if contains(opts.Args, "--no-sandbox") {
			t.Errorf("chrome.Capabilities.Args = %q, want the sandbox kept", opts.Args)
		}
		logs, ok := caps[log.CapabilitiesKey].(log.Capabilities)
		if !ok || logs[log.Browser] != log.All {
			t.Errorf("caps[%q] = %#v, want browser logging at ALL", log.CapabilitiesKey, caps[log.CapabilitiesKey])
		}
		if _, ok := caps["proxy"]; ok {
			t.Errorf("caps has a proxy entry without a proxy address")
		}
	})

	t.Run("NoSandbox", func(t *testing.T) {
		caps, err := Capabilities(Chrome, config.Config{NoSandbox: true}, "")
		if err != nil {
			t.Fatalf("Capabilities(Chrome) returned error: %v", err)
		}
		opts := caps[chrome.CapabilitiesKey].(chrome.Capabilities)
		if !contains(opts.Args, "--no-sandbox") {
			t.Errorf("chrome.Capabilities.Args = %q, want --no-sandbox", opts.Args)
		}
	})

	t.Run("Edge", func(t *testing.T) {
		caps, err := Capabilities(Edge, config.Config{}, "127.0.0.1:1080")
		if err != nil {
			t.Fatalf("Capabilities(Edge) returned error: %v", err)
		}
		if got := caps["browserName"]; got != "MicrosoftEdge" {
			t.Errorf("browserName = %v, want MicrosoftEdge", got)
		}
		if _, ok := caps[chrome.CapabilitiesKey]; ok {
			t.Errorf("Edge capabilities carry %q", chrome.CapabilitiesKey)
		}
		opts, ok := caps[EdgeCapabilitiesKey].(chrome.Capabilities)
		if !ok {
			t.Fatalf("caps[%q] = %#v, want chrome.Capabilities", EdgeCapabilitiesKey, caps[EdgeCapabilitiesKey])
		}
		if contains(opts.Args, "--headless") {
			t.Errorf("Args = %q, want no --headless", opts.Args)
		}
		if !contains(opts.Args, "--proxy-bypass-list=<-loopback>") {
			t.Errorf("Args = %q, want the loopback bypass override", opts.Args)
		}
		want := selenium.Proxy{Type: selenium.Manual, SOCKS: "127.0.0.1:1080", SOCKSVersion: 5}
		if diff := cmp.Diff(want, caps["proxy"]); diff != "" {
			t.Errorf("proxy returned diff (-want/+got):\n%s", diff)
		}
	})

	t.Run("Firefox", func(t *testing.T) {
		caps, err := Capabilities(Firefox, config.Config{Headless: true, Debug: true}, "127.0.0.1:1080")
		if err != nil {
			t.Fatalf("Capabilities(Firefox) returned error: %v", err)
		}
		opts, ok := caps[firefox.CapabilitiesKey].(firefox.Capabilities)
		if !ok {
			t.Fatalf("caps[%q] = %#v, want firefox.Capabilities", firefox.CapabilitiesKey, caps[firefox.CapabilitiesKey])
		}
		if diff := cmp.Diff([]string{"-headless"}, opts.Args); diff != "" {
			t.Errorf("Args returned diff (-want/+got):\n%s", diff)
		}
		if opts.Log == nil || opts.Log.Level != firefox.Trace {
			t.Errorf("Log = %#v, want trace level", opts.Log)
		}
		for _, pref := range []string{"network.proxy.allow_hijacking_localhost", "network.proxy.socks_remote_dns"} {
			if got := opts.Prefs[pref]; got != true {
				t.Errorf("%s = %v, want true", pref, got)
			}
		}
		if _, ok := caps[log.CapabilitiesKey]; ok {
			t.Errorf("Firefox capabilities carry %q", log.CapabilitiesKey)
		}
	})

	t.Run("Sauce", func(t *testing.T) {
		c := config.Config{SauceUsername: "user", SauceAccessKey: "key", SaucePlatform: "Windows 10"}
		caps, err := Capabilities(Firefox, c, "")
		if err != nil {
			t.Fatalf("Capabilities(Firefox) returned error: %v", err)
		}
		if got := caps["platform"]; got != "Windows 10" {
			t.Errorf("platform = %v, want Windows 10", got)
		}
		if got := caps["name"]; got != "Space Game home page (Firefox)" {
			t.Errorf("name = %v", got)
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		if _, err := Capabilities(Browser(0), config.Config{}, ""); !errors.Is(err, ErrUnknownBrowser) {
			t.Fatalf("Capabilities(Browser(0)) returned error %v, want ErrUnknownBrowser", err)
		}
	})
}

func contains(s []string, v string) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}
