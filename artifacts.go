package uitests

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/golang/glog"
	"github.com/tebeka/selenium/log"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// CaptureFailure saves a screenshot and the browser console of the current
// page to UITEST_ARTIFACTS_DIR as <browser>-<name>.png and .log, and returns
// the paths written. Nothing is saved without a session or a directory.
// Errors are logged; a failed capture never fails a case.
func (f *Fixture) CaptureFailure(name string) []string {
	if f.session == nil || f.cfg.ArtifactsDir == "" {
		return nil
	}
	if err := os.MkdirAll(f.cfg.ArtifactsDir, 0755); err != nil {
		glog.Errorf("%s: creating artifacts directory: %v", f.name, err)
		return nil
	}
	base := filepath.Join(f.cfg.ArtifactsDir, unsafeFileChars.ReplaceAllString(f.name+"-"+name, "_"))

	var written []string
	if png, err := f.session.Screenshot(); err != nil {
		glog.Warningf("%s: taking a screenshot: %v", f.name, err)
	} else if err := os.WriteFile(base+".png", png, 0644); err != nil {
		glog.Errorf("%s: writing screenshot: %v", f.name, err)
	} else {
		written = append(written, base+".png")
	}

	// geckodriver does not implement the log endpoint.
	msgs, err := f.session.Log(log.Browser)
	if err != nil {
		glog.V(1).Infof("%s: browser log unavailable: %v", f.name, err)
		return written
	}
	var buf bytes.Buffer
	for _, m := range msgs {
		fmt.Fprintf(&buf, "%s %s %s\n", m.Timestamp.Format(time.RFC3339Nano), m.Level, m.Message)
	}
	if err := os.WriteFile(base+".log", buf.Bytes(), 0644); err != nil {
		glog.Errorf("%s: writing browser log: %v", f.name, err)
		return written
	}
	return append(written, base+".log")
}
