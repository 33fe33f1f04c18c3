package uitests

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/tebeka/selenium"
)

var (
	// ErrNoSession is returned by helpers called on a fixture whose browser
	// could not be started.
	ErrNoSession = errors.New("no browser session")
	// ErrLookupTimeout is returned when no element matching a locator became
	// visible and enabled in time.
	ErrLookupTimeout = errors.New("element lookup timed out")
	// ErrUnsupportedOperation is returned when the driver cannot execute
	// scripts.
	ErrUnsupportedOperation = errors.New("driver does not support script execution")
)

// W3C WebDriver error codes that the helpers treat specially. Legacy JSON
// wire protocol drivers use the same phrases in their messages.
const (
	codeNoSuchElement  = "no such element"
	codeStaleElement   = "stale element reference"
	codeUnknownCommand = "unknown command"
	codeUnsupported    = "unsupported operation"
	codeUnknownMethod  = "unknown method"
)

// hasCode reports whether err carries one of the given WebDriver error codes.
func hasCode(err error, codes ...string) bool {
	if err == nil {
		return false
	}
	var se *selenium.Error
	if errors.As(err, &se) {
		for _, c := range codes {
			if se.Err == c {
				return true
			}
		}
	}
	msg := strings.ToLower(err.Error())
	for _, c := range codes {
		if strings.Contains(msg, c) {
			return true
		}
	}
	return false
}

// retryable reports whether a lookup that failed with err may succeed later.
func retryable(err error) bool {
	return hasCode(err, codeNoSuchElement, codeStaleElement)
}

func unsupported(err error) bool {
	return hasCode(err, codeUnknownCommand, codeUnsupported, codeUnknownMethod)
}
