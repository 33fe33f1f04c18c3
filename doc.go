/*
Package uitests drives the Space Game home page in Chrome, Firefox and Edge
and checks that each promotional link opens its modal.

A Fixture owns one browser session. Setup opens it from the environment
(see package config), navigates to SITE_URL and waits for the document to
finish loading; Teardown releases it. When the browser or its driver cannot
be started, Setup logs the problem and leaves the fixture without a session:
every case run on it is then reported as Skipped, never as failed.

	f := uitests.NewFixture("Chrome", cfg)
	if err := f.Setup(); err != nil {
		// Only an unknown browser name ends up here.
	}
	defer f.Teardown()

	for _, c := range uitests.HomePageCases {
		r := f.ClickLinkShowsModal(c)
		switch {
		case r.Skipped():
			// No browser.
		case !r.Passed():
			f.CaptureFailure(c.LinkID)
		}
	}

The suites in this package run the cases against SITE_URL (TestHomePage) and
against a local copy of the page (TestLocalSite). Both skip when no driver is
configured.
*/
package uitests
