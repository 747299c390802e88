package engine

import (
	"fmt"

	"golang.org/x/mod/semver"
)

// DefaultMinVersion is the oldest engine client API this package is tested
// against.
const DefaultMinVersion = "v2.0"

// clientAPIVersionString renders the packed client API version the engine
// reports (major in the high 16 bits, minor in the low) as a semver tag.
func clientAPIVersionString(v uint32) string {
	return fmt.Sprintf("v%d.%d", v>>16, v&0xffff)
}

// CheckVersion returns ErrVersionTooOld when version sorts before min.
// Both accept "2.1" and "v2.1" forms; an unparsable version is rejected.
func CheckVersion(version, min string) error {
	if min == "" {
		min = DefaultMinVersion
	}
	v, m := canonical(version), canonical(min)
	if !semver.IsValid(v) {
		return fmt.Errorf("engine: invalid engine version %q", version)
	}
	if !semver.IsValid(m) {
		return fmt.Errorf("engine: invalid minimum version %q", min)
	}
	if semver.Compare(v, m) < 0 {
		return fmt.Errorf("%w: have %s, need >= %s", ErrVersionTooOld, v, m)
	}
	return nil
}

func canonical(v string) string {
	if v != "" && v[0] != 'v' {
		v = "v" + v
	}
	return v
}
