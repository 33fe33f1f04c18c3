package driver

import (
	"github.com/blang/semver"
	"github.com/golang/glog"
	"github.com/tebeka/selenium"
)

// Stopper is a background resource owned by a session, such as a driver
// service or an X frame buffer.
type Stopper interface {
	Stop() error
}

// Session is a WebDriver session together with the local processes that
// back it. Quit releases all of them.
type Session struct {
	selenium.WebDriver

	// Browser is the browser the session drives.
	Browser Browser
	// DriverVersion is the version reported by the local driver binary. It is
	// the zero version for remote sessions or when the probe failed.
	DriverVersion semver.Version

	owned   []Stopper
	display string
	done    bool
}

// NewSession wraps wd. The owned resources are stopped, in reverse order,
// after the session quits.
func NewSession(b Browser, wd selenium.WebDriver, owned ...Stopper) *Session {
	return &Session{
		WebDriver: wd,
		Browser:   b,
		owned:     owned,
	}
}

// Display returns the X display the browser renders to, or "" when the
// session did not start its own frame buffer.
func (s *Session) Display() string {
	return s.display
}

// Quit ends the browser session and stops the resources backing it. Calls
// after the first are no-ops. The first error encountered is returned, but
// every resource is still released.
func (s *Session) Quit() error {
	if s == nil || s.done {
		return nil
	}
	s.done = true

	var first error
	if s.WebDriver != nil {
		if err := s.WebDriver.Quit(); err != nil {
			glog.Warningf("Error quitting the %s session: %v", s.Browser, err)
			first = err
		}
	}
	for i := len(s.owned) - 1; i >= 0; i-- {
		if err := s.owned[i].Stop(); err != nil {
			glog.Warningf("Error stopping %T for %s: %v", s.owned[i], s.Browser, err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}
