package driver

import (
	"github.com/pkg/errors"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"
	"github.com/tebeka/selenium/log"
	"github.com/tebeka/selenium/sauce"

	"github.com/wanmail/spacegame-uitests/config"
)

// EdgeCapabilitiesKey is the key under which msedgedriver expects its
// Chromium options. The option schema is the same as ChromeDriver's.
const EdgeCapabilitiesKey = "ms:edgeOptions"

// Capabilities returns the desired capabilities for a session on b. When
// proxyAddr is not empty, the browser sends all traffic, including traffic to
// loopback addresses, through the SOCKS5 proxy at that address.
func Capabilities(b Browser, c config.Config, proxyAddr string) (selenium.Capabilities, error) {
	caps := selenium.Capabilities{"browserName": b.capabilityName()}

	switch b {
	case Chrome, Edge:
		opts := chrome.Capabilities{W3C: true}
		if c.NoSandbox {
			// The sandbox requires a setuid helper or user namespaces, which
			// CI containers rarely have.
			opts.Args = append(opts.Args, "--no-sandbox")
		}
		if c.Headless {
			opts.Args = append(opts.Args, "--headless", "--disable-gpu", "--window-size=1920,1080")
		}
		if proxyAddr != "" {
			// https://crbug.com/899126
			opts.Args = append(opts.Args, "--proxy-bypass-list=<-loopback>")
		}
		if b == Chrome {
			caps.AddChrome(opts)
		} else {
			caps[EdgeCapabilitiesKey] = opts
		}
		caps.SetLogLevel(log.Browser, log.All)

	case Firefox:
		var opts firefox.Capabilities
		if c.Headless {
			opts.Args = append(opts.Args, "-headless")
		}
		if c.Debug {
			opts.Log = &firefox.Log{Level: firefox.Trace}
		}
		if proxyAddr != "" {
			// Firefox never proxies localhost unless told to, and resolves
			// names itself before talking to a SOCKS proxy.
			opts.Prefs = map[string]interface{}{
				"network.proxy.no_proxies_on":            "",
				"network.proxy.allow_hijacking_localhost": true,
				"network.proxy.socks_remote_dns":          true,
			}
		}
		caps.AddFirefox(opts)

	default:
		return nil, errors.Wrapf(ErrUnknownBrowser, "%v", b)
	}

	if proxyAddr != "" {
		caps.AddProxy(selenium.Proxy{
			Type:         selenium.Manual,
			SOCKS:        proxyAddr,
			SOCKSVersion: 5,
		})
	}

	if c.Sauce() {
		sc := sauce.Capabilities{
			Browser:  b.capabilityName(),
			Platform: c.SaucePlatform,
			TestName: "Space Game home page (" + b.String() + ")",
		}
		m, err := sc.ToMap()
		if err != nil {
			return nil, errors.Wrap(err, "building Sauce Labs capabilities")
		}
		for k, v := range m {
			caps[k] = v
		}
	}
	return caps, nil
}
