package driver

import (
	"fmt"
	"io"
	"net"
	"net/url"
	"os"

	"github.com/blang/semver"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/tebeka/selenium"

	"github.com/wanmail/spacegame-uitests/config"
)

// sauceHost is the Sauce Labs WebDriver endpoint.
const sauceHost = "ondemand.saucelabs.com:443"

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithProxy routes browser traffic through the SOCKS5 proxy at addr.
func WithProxy(addr string) FactoryOption {
	return func(f *Factory) {
		f.proxyAddr = addr
	}
}

// WithOutput sends the driver service's stdout and stderr to w.
func WithOutput(w io.Writer) FactoryOption {
	return func(f *Factory) {
		f.output = w
	}
}

// Factory opens sessions, either on a locally launched driver service or on
// a remote executor, as the configuration dictates.
type Factory struct {
	cfg       config.Config
	proxyAddr string
	output    io.Writer

	startService   func(b Browser, path string, port int, opts ...selenium.ServiceOption) (Stopper, error)
	newRemote      func(caps selenium.Capabilities, addr string) (selenium.WebDriver, error)
	newFrameBuffer func() (*selenium.FrameBuffer, error)
	binaryVersion  func(path string) (semver.Version, error)
}

// NewFactory returns a Factory for c.
func NewFactory(c config.Config, opts ...FactoryOption) *Factory {
	f := &Factory{
		cfg:            c,
		startService:   startService,
		newRemote:      selenium.NewRemote,
		newFrameBuffer: selenium.NewFrameBuffer,
		binaryVersion:  BinaryVersion,
	}
	if c.Debug {
		selenium.SetDebug(true)
		f.output = os.Stderr
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Open starts a session on b. Failures to find or launch the driver or the
// browser are reported as ErrDriverUnavailable; everything started before the
// failure is released.
func (f *Factory) Open(b Browser) (*Session, error) {
	caps, err := Capabilities(b, f.cfg, f.proxyAddr)
	if err != nil {
		return nil, err
	}
	if f.cfg.Remote() {
		return f.openRemote(b, caps)
	}
	return f.openLocal(b, caps)
}

func (f *Factory) executor() string {
	if f.cfg.RemoteURL != "" {
		return f.cfg.RemoteURL
	}
	u := url.URL{
		Scheme: "https",
		User:   url.UserPassword(f.cfg.SauceUsername, f.cfg.SauceAccessKey),
		Host:   sauceHost,
		Path:   "/wd/hub",
	}
	return u.String()
}

func (f *Factory) openRemote(b Browser, caps selenium.Capabilities) (*Session, error) {
	addr := f.executor()
	wd, err := f.newRemote(caps, addr)
	if err != nil {
		return nil, errors.Wrapf(ErrDriverUnavailable, "starting %s on remote executor: %v", b, err)
	}
	glog.Infof("Started a %s session %s on a remote executor", b, wd.SessionID())
	return NewSession(b, wd), nil
}

func (f *Factory) openLocal(b Browser, caps selenium.Capabilities) (*Session, error) {
	path, err := b.ResolveBinary(b.DriverPath(f.cfg))
	if err != nil {
		return nil, err
	}

	var version semver.Version
	if v, err := f.binaryVersion(path); err != nil {
		glog.Warningf("Unable to determine the version of %q: %v", path, err)
	} else {
		version = v
		glog.Infof("Using %s driver %s at %q", b, v, path)
	}
	if want, ok := f.cfg.MinVersion(); ok && version.LT(want) {
		return nil, errors.Wrapf(ErrDriverUnavailable, "%s driver %q has version %s, want at least %s", b, path, version, want)
	}

	var (
		owned   []Stopper
		opts    []selenium.ServiceOption
		display string
	)
	release := func() {
		NewSession(b, nil, owned...).Quit()
	}

	if f.cfg.FrameBuffer {
		fb, err := f.newFrameBuffer()
		if err != nil {
			return nil, errors.Wrapf(ErrDriverUnavailable, "starting a frame buffer: %v", err)
		}
		owned = append(owned, fb)
		opts = append(opts, selenium.Display(fb.Display, fb.AuthPath))
		display = fb.Display
	}
	if f.output != nil {
		opts = append(opts, selenium.Output(f.output))
	}

	port, err := pickUnusedPort()
	if err != nil {
		release()
		return nil, errors.Wrapf(ErrDriverUnavailable, "picking a port for %q: %v", path, err)
	}
	svc, err := f.startService(b, path, port, opts...)
	if err != nil {
		release()
		return nil, errors.Wrapf(ErrDriverUnavailable, "starting %q: %v", path, err)
	}
	owned = append(owned, svc)

	wd, err := f.newRemote(caps, serviceAddr(b, port))
	if err != nil {
		release()
		return nil, errors.Wrapf(ErrDriverUnavailable, "starting %s through %q: %v", b, path, err)
	}

	s := NewSession(b, wd, owned...)
	s.DriverVersion = version
	s.display = display
	return s, nil
}

func startService(b Browser, path string, port int, opts ...selenium.ServiceOption) (Stopper, error) {
	var (
		s   *selenium.Service
		err error
	)
	switch b {
	case Firefox:
		s, err = selenium.NewGeckoDriverService(path, port, opts...)
	default:
		// msedgedriver accepts the same flags as ChromeDriver.
		s, err = selenium.NewChromeDriverService(path, port, opts...)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// serviceAddr is the WebDriver endpoint of a local service started by
// startService.
func serviceAddr(b Browser, port int) string {
	if b == Firefox {
		return fmt.Sprintf("http://127.0.0.1:%d", port)
	}
	return fmt.Sprintf("http://127.0.0.1:%d/wd/hub", port)
}

func pickUnusedPort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	port := l.Addr().(*net.TCPAddr).Port
	if err := l.Close(); err != nil {
		return 0, err
	}
	return port, nil
}
