package uitests

import (
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/tebeka/selenium"
)

// Locator identifies elements on the page.
type Locator struct {
	By    string
	Value string
}

// ByID locates the element whose id attribute is id.
func ByID(id string) Locator { return Locator{By: selenium.ByID, Value: id} }

// ByClassName locates elements carrying the CSS class name.
func ByClassName(name string) Locator { return Locator{By: selenium.ByClassName, Value: name} }

// ByTagName locates elements by tag, such as "body".
func ByTagName(tag string) Locator { return Locator{By: selenium.ByTagName, Value: tag} }

func (l Locator) String() string {
	return fmt.Sprintf("%s=%q", l.By, l.Value)
}

// SearchContext is anything elements can be looked up in. Both
// selenium.WebDriver and selenium.WebElement satisfy it.
type SearchContext interface {
	FindElement(by, value string) (selenium.WebElement, error)
}

type lookup struct {
	within  SearchContext
	timeout time.Duration
}

// LookupOption adjusts a single FindElement call.
type LookupOption func(*lookup)

// Within restricts the search to the descendants of parent.
func Within(parent SearchContext) LookupOption {
	return func(l *lookup) {
		l.within = parent
	}
}

// WithTimeout overrides the configured lookup timeout.
func WithTimeout(d time.Duration) LookupOption {
	return func(l *lookup) {
		l.timeout = d
	}
}

// FindElement polls until an element matching loc exists, is displayed and
// is enabled, and returns it. Hidden and disabled elements are never
// returned: if none becomes interactable before the timeout, the error wraps
// ErrLookupTimeout. Driver errors other than a missing or stale element end
// the wait early.
func (f *Fixture) FindElement(loc Locator, opts ...LookupOption) (selenium.WebElement, error) {
	if f.session == nil {
		return nil, ErrNoSession
	}
	l := lookup{within: f.session, timeout: f.cfg.LookupTimeout}
	for _, opt := range opts {
		opt(&l)
	}

	var (
		found   selenium.WebElement
		lastErr error
		fatal   error
	)
	cond := func(selenium.WebDriver) (bool, error) {
		e, err := interactable(l.within, loc)
		switch {
		case err == nil:
			found = e
			return e != nil, nil
		case retryable(err):
			lastErr = err
			return false, nil
		default:
			fatal = errors.Wrapf(err, "looking up %s", loc)
			return false, fatal
		}
	}

	if err := f.session.WaitWithTimeoutAndInterval(cond, l.timeout, f.cfg.PollInterval); err != nil {
		if fatal != nil {
			return nil, fatal
		}
		if lastErr != nil {
			return nil, errors.Wrapf(ErrLookupTimeout, "%s after %v: %v", loc, l.timeout, lastErr)
		}
		return nil, errors.Wrapf(ErrLookupTimeout, "%s after %v: not displayed or not enabled", loc, l.timeout)
	}
	glog.V(2).Infof("%s: found %s", f.name, loc)
	return found, nil
}

// interactable returns the element for loc if it is displayed and enabled,
// or nil if it exists but is not (yet) usable.
func interactable(sc SearchContext, loc Locator) (selenium.WebElement, error) {
	e, err := sc.FindElement(loc.By, loc.Value)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, nil
	}
	if ok, err := e.IsDisplayed(); err != nil || !ok {
		return nil, err
	}
	if ok, err := e.IsEnabled(); err != nil || !ok {
		return nil, err
	}
	return e, nil
}

const clickScript = "arguments[0].click();"

// Click clicks e from script rather than with a pointer event, so overlays
// and animations on the page cannot intercept it.
func (f *Fixture) Click(e selenium.WebElement) error {
	if f.session == nil {
		return ErrNoSession
	}
	if _, err := f.session.ExecuteScript(clickScript, []interface{}{e}); err != nil {
		if unsupported(err) {
			return errors.Wrapf(ErrUnsupportedOperation, "%s: %v", f.name, err)
		}
		return errors.Wrap(err, "clicking element")
	}
	return nil
}
