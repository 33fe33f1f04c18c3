package driver

import (
	"os/exec"
	"regexp"
	"strings"

	"github.com/blang/semver"
	"github.com/pkg/errors"
)

// newExecCommand is replaced in tests.
var newExecCommand = exec.Command

// versionRE matches the first dotted version number in driver output, e.g.
// "ChromeDriver 120.0.6099.109 (3419140ab665...)" or "geckodriver 0.34.0".
var versionRE = regexp.MustCompile(`\d+(?:\.\d+){0,3}`)

// ParseVersion extracts a semantic version from the output of a driver's
// --version flag. The fourth component of a Chromium build is kept as build
// metadata, so 120.0.6099.109 parses as 120.0.6099+109. Ordering ignores it;
// use SameBuild to tell two builds apart.
func ParseVersion(output string) (semver.Version, error) {
	m := versionRE.FindString(output)
	if m == "" {
		return semver.Version{}, errors.Errorf("no version number in %q", strings.TrimSpace(output))
	}
	parts := strings.SplitN(m, ".", 4)
	var build string
	if len(parts) == 4 {
		parts, build = parts[:3], parts[3]
	}
	v, err := semver.ParseTolerant(strings.Join(parts, "."))
	if err != nil {
		return semver.Version{}, err
	}
	if build != "" {
		v.Build = []string{build}
	}
	return v, nil
}

// SameBuild reports whether a and b are the same version, build metadata
// included.
func SameBuild(a, b semver.Version) bool {
	if !a.Equals(b) || len(a.Build) != len(b.Build) {
		return false
	}
	for i := range a.Build {
		if a.Build[i] != b.Build[i] {
			return false
		}
	}
	return true
}

// BinaryVersion runs the driver binary at path with --version and parses
// the result.
func BinaryVersion(path string) (semver.Version, error) {
	out, err := newExecCommand(path, "--version").Output()
	if err != nil {
		return semver.Version{}, errors.Wrapf(err, "%s --version", path)
	}
	return ParseVersion(string(out))
}
