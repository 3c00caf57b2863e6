// Package update implements the release version comparison and the periodic
// update check against a published release manifest.
package update

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrInvalidVersion is returned when a version string does not parse as a
// semantic version.
var ErrInvalidVersion = errors.New("invalid semantic version")

// canonical normalizes a version string for comparison: surrounding
// whitespace is dropped and a missing "v" prefix is added.
func canonical(v string) string {
	v = strings.TrimSpace(v)
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// Compare compares two semantic version strings, tolerating a leading "v" on
// either. It returns -1 if a < b, 0 if equal, +1 if a > b. Numeric component
// ordering applies, so 2.10.0 > 2.9.0.
func Compare(a, b string) (int, error) {
	ca := canonical(a)
	if !semver.IsValid(ca) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidVersion, a)
	}
	cb := canonical(b)
	if !semver.IsValid(cb) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidVersion, b)
	}
	return semver.Compare(ca, cb), nil
}

// HasUpdate reports whether latest is strictly newer than current. Unparsable
// versions never report an update.
func HasUpdate(current, latest string) bool {
	cmp, err := Compare(latest, current)
	return err == nil && cmp == 1
}
