package uitests

import (
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/tebeka/selenium"

	"github.com/wanmail/spacegame-uitests/config"
	"github.com/wanmail/spacegame-uitests/driver"
	"github.com/wanmail/spacegame-uitests/proxy"
)

// Opener starts browser sessions. *driver.Factory is the implementation used
// outside of tests.
type Opener interface {
	Open(b driver.Browser) (*driver.Session, error)
}

// Option configures a Fixture.
type Option func(*Fixture)

// WithOpener makes the fixture start its session with o instead of a
// driver.Factory built from the configuration. A proxy started by the
// fixture is then not passed on to the browser.
func WithOpener(o Opener) Option {
	return func(f *Fixture) {
		f.opener = o
	}
}

// Fixture runs the home page cases in one browser. It holds at most one
// session, opened by Setup and released by Teardown.
type Fixture struct {
	name   string
	cfg    config.Config
	opener Opener

	browser    driver.Browser
	session    *driver.Session
	proxy      *proxy.Server
	skipReason string

	setUp    bool
	tornDown bool
}

// NewFixture returns a fixture for the browser called name ("Chrome",
// "Firefox" or "Edge"). Nothing is started until Setup.
func NewFixture(name string, c config.Config, opts ...Option) *Fixture {
	f := &Fixture{name: name, cfg: c}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name returns the browser name the fixture was created with.
func (f *Fixture) Name() string { return f.name }

// Browser returns the parsed browser. It is only valid after Setup.
func (f *Fixture) Browser() driver.Browser { return f.browser }

// Session returns the live session, or nil.
func (f *Fixture) Session() *driver.Session { return f.session }

// Available reports whether the fixture has a usable browser session.
func (f *Fixture) Available() bool { return f.session != nil }

// SkipReason explains why the fixture has no session.
func (f *Fixture) SkipReason() string {
	if f.session != nil {
		return ""
	}
	if f.skipReason == "" {
		return f.name + ": no browser session"
	}
	return f.skipReason
}

// Setup starts the browser and loads the home page.
//
// Only an unknown browser name is returned as an error. A driver that cannot
// be found or started, or a browser that fails while loading the page, is
// logged, everything started so far is released, and Setup returns nil with
// the fixture left without a session.
func (f *Fixture) Setup() error {
	if f.setUp {
		return errors.Errorf("%s: fixture already set up", f.name)
	}
	f.setUp = true

	b, err := driver.ParseBrowser(f.name)
	if err != nil {
		return err
	}
	f.browser = b

	proxyAddr, err := f.startProxy()
	if err != nil {
		f.abandon(causeProxyFailed, err)
		return nil
	}

	opener := f.opener
	if opener == nil {
		var opts []driver.FactoryOption
		if proxyAddr != "" {
			opts = append(opts, driver.WithProxy(proxyAddr))
		}
		opener = driver.NewFactory(f.cfg, opts...)
	}
	s, err := opener.Open(b)
	if err != nil {
		cause := causeBrowserFailed
		if errors.Is(err, driver.ErrDriverUnavailable) {
			cause = causeDriverUnavailable
		}
		f.abandon(cause, err)
		return nil
	}
	f.session = s

	if err := f.loadHomePage(); err != nil {
		f.abandon(causePageFailed, err)
		return nil
	}
	glog.Infof("%s: home page loaded", f.name)
	return nil
}

// startProxy starts the local SOCKS5 proxy when configured and returns the
// address the browser should use, if any.
func (f *Fixture) startProxy() (string, error) {
	switch f.cfg.SOCKSProxy {
	case "":
		return "", nil
	case config.LocalProxy:
		var opts []proxy.Option
		if f.cfg.SOCKSPin != "" {
			opts = append(opts, proxy.PinTo(f.cfg.SOCKSPin))
		}
		srv, err := proxy.Start("127.0.0.1:0", opts...)
		if err != nil {
			return "", err
		}
		f.proxy = srv
		return srv.Addr(), nil
	default:
		return f.cfg.SOCKSProxy, nil
	}
}

func (f *Fixture) loadHomePage() error {
	if err := f.session.SetImplicitWaitTimeout(f.cfg.ImplicitWait); err != nil {
		return errors.Wrap(err, "setting the implicit wait")
	}
	u := f.cfg.SiteURL + "/"
	if err := f.session.Get(u); err != nil {
		return errors.Wrapf(err, "navigating to %q", u)
	}
	if err := f.session.WaitWithTimeoutAndInterval(documentComplete, f.cfg.ReadyTimeout, f.cfg.PollInterval); err != nil {
		return errors.Wrapf(err, "waiting for %q to load", u)
	}
	return nil
}

// documentComplete is satisfied once the page and all its resources have
// loaded.
func documentComplete(wd selenium.WebDriver) (bool, error) {
	state, err := wd.ExecuteScript("return document.readyState", nil)
	if err != nil {
		return false, err
	}
	return state == "complete", nil
}

// abandon records why the fixture has no session and releases whatever Setup
// started.
// Why a fixture was left without a session.
const (
	causeProxyFailed       = "local proxy failed"
	causeDriverUnavailable = "driver service not found"
	causeBrowserFailed     = "browser failed to start"
	causePageFailed        = "home page did not load"
)

func (f *Fixture) abandon(cause string, err error) {
	glog.Warningf("%s: %s, cases will be skipped: %v", f.name, cause, err)
	f.skipReason = f.name + ": " + cause + ": " + err.Error()
	f.Teardown()
}

// Teardown quits the browser and stops the driver service and proxy. Only the
// first call has any effect.
func (f *Fixture) Teardown() error {
	if f.tornDown {
		return nil
	}
	f.tornDown = true

	var first error
	if f.session != nil {
		first = f.session.Quit()
		f.session = nil
	}
	if f.proxy != nil {
		if err := f.proxy.Close(); err != nil {
			glog.Warningf("%s: stopping the SOCKS5 proxy: %v", f.name, err)
			if first == nil {
				first = err
			}
		}
		f.proxy = nil
	}
	return first
}
