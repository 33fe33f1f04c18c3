package uitests

import (
	"strconv"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Case is a link on the home page and the modal clicking it should open.
type Case struct {
	LinkID  string
	ModalID string
}

func (c Case) String() string {
	return c.LinkID + "->" + c.ModalID
}

// HomePageCases are the links the home page suite clicks.
var HomePageCases = []Case{
	// Download game
	{LinkID: "download-btn", ModalID: "pretend-modal"},
	// Screen image
	{LinkID: "screen-01", ModalID: "screen-modal"},
	// Top player on the leaderboard
	{LinkID: "profile-1", ModalID: "profile-modal-1"},
}

// State is how far a case got.
type State int

// The states a case moves through, in order. Skipped and Asserted are
// terminal.
const (
	Pending State = iota
	Skipped
	LinkLocated
	LinkClicked
	ModalChecked
	ModalClosed
	Asserted
)

var stateNames = [...]string{
	Pending:      "Pending",
	Skipped:      "Skipped",
	LinkLocated:  "LinkLocated",
	LinkClicked:  "LinkClicked",
	ModalChecked: "ModalChecked",
	ModalClosed:  "ModalClosed",
	Asserted:     "Asserted",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// Result reports the outcome of one case.
type Result struct {
	Case  Case
	State State
	// ModalDisplayed is whether the modal was visible after the click. A
	// modal missing from the page counts as not displayed.
	ModalDisplayed bool
	// Err is set when the case could not run to the end, for example
	// because the link never became clickable.
	Err error
}

// Skipped reports whether the case did not run for lack of a browser.
func (r Result) Skipped() bool { return r.State == Skipped }

// Passed reports whether the case ran to the end and saw its modal.
func (r Result) Passed() bool {
	return r.State == Asserted && r.Err == nil && r.ModalDisplayed
}

func (f *Fixture) advance(r *Result, s State) {
	glog.V(1).Infof("%s: %s: %s -> %s", f.name, r.Case, r.State, s)
	r.State = s
}

// ClickLinkShowsModal clicks the link of c and records whether its modal
// appeared. A displayed modal is closed again, and the case waits until the
// page body is usable before returning, so cases can run back to back.
//
// Errors locating or clicking the link or the close button end the case
// early and are returned in Result.Err. The modal lookup itself never fails
// the case: a modal that is absent or stays hidden leaves ModalDisplayed
// false.
func (f *Fixture) ClickLinkShowsModal(c Case) Result {
	r := Result{Case: c}
	if f.session == nil {
		f.advance(&r, Skipped)
		return r
	}

	link, err := f.FindElement(ByID(c.LinkID))
	if err != nil {
		r.Err = errors.Wrapf(err, "locating link %q", c.LinkID)
		return r
	}
	f.advance(&r, LinkLocated)

	if err := f.Click(link); err != nil {
		r.Err = errors.Wrapf(err, "clicking link %q", c.LinkID)
		return r
	}
	f.advance(&r, LinkClicked)

	modal, err := f.FindElement(ByID(c.ModalID))
	if err != nil {
		glog.Warningf("%s: modal %q not displayed: %v", f.name, c.ModalID, err)
	} else if r.ModalDisplayed, err = modal.IsDisplayed(); err != nil {
		glog.Warningf("%s: checking modal %q: %v", f.name, c.ModalID, err)
		r.ModalDisplayed = false
	}
	f.advance(&r, ModalChecked)

	if r.ModalDisplayed {
		closeBtn, err := f.FindElement(ByClassName("close"), Within(modal))
		if err != nil {
			r.Err = errors.Wrapf(err, "locating the close button of %q", c.ModalID)
			return r
		}
		if err := f.Click(closeBtn); err != nil {
			r.Err = errors.Wrapf(err, "closing %q", c.ModalID)
			return r
		}
		if _, err := f.FindElement(ByTagName("body")); err != nil {
			r.Err = errors.Wrapf(err, "waiting for the page after closing %q", c.ModalID)
			return r
		}
	}
	f.advance(&r, ModalClosed)
	f.advance(&r, Asserted)
	return r
}
