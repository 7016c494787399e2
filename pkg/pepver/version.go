// Package pepver implements the minimal PEP 440 version handling needed to
// order package releases.
//
// A Version keeps the raw string exactly as the registry reported it, plus the
// leading dot-separated run of integers (the release components) that drives
// ordering. Pre-release, post-release, and local segments are preserved in Raw
// for display but ignored when comparing. Two versions with equal release
// vectors therefore compare equal even when their raw strings differ
// ("1.2" == "1.2.0"); this coarsening is deliberate.
package pepver

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidVersion is returned when a string has no recognizable release
// component run.
var ErrInvalidVersion = errors.New("invalid version")

var (
	// releaseRE captures the leading release run. An optional "v" prefix and
	// an optional epoch ("1!2.0") are accepted and skipped; only the
	// dot-separated integers are captured.
	releaseRE = regexp.MustCompile(`^v?(?:[0-9]+!)?([0-9]+(?:\.[0-9]+)*)`)

	// prereleaseRE matches the PEP 440 pre-release markers that may directly
	// follow the release run (1.0a1, 1.0.rc2, 1.0-beta, 1.0.dev3). The
	// trailing class keeps identifiers like "build" from matching "b".
	prereleaseRE = regexp.MustCompile(`(?i)^[._-]?(?:alpha|beta|preview|pre|rc|a|b|c|dev)(?:[0-9._-]|$)`)

	// devRE catches trailing dev segments that sit behind a post segment
	// ("1.0.post1.dev2"); PEP 440 classifies those as pre-releases too.
	devRE = regexp.MustCompile(`(?i)[._-]dev[0-9]*$`)
)

// Version is an immutable value wrapping a raw version string and its parsed
// release component vector.
type Version struct {
	Raw     string
	Release []int
}

// Parse extracts the release components from raw.
// It fails with ErrInvalidVersion when raw has no leading dot-separated
// integer run.
func Parse(raw string) (Version, error) {
	s := strings.TrimSpace(raw)
	m := releaseRE.FindStringSubmatch(s)
	if m == nil {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, raw)
	}

	parts := strings.Split(m[1], ".")
	release := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, raw)
		}
		release[i] = n
	}
	return Version{Raw: raw, Release: release}, nil
}

// MustParse parses raw and panics on failure. For tests and constants.
func MustParse(raw string) Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the raw version string. Raw is preserved verbatim because
// normalizing loses information ("0.04.21" must not become "0.4.21").
func (v Version) String() string { return v.Raw }

// Len returns the number of release components.
func (v Version) Len() int { return len(v.Release) }

// Component returns the i-th release component.
func (v Version) Component(i int) (int, error) {
	if i < 0 || i >= len(v.Release) {
		return 0, fmt.Errorf("%w: component %d of %q", ErrInvalidVersion, i, v.Raw)
	}
	return v.Release[i], nil
}

// Prefix returns a copy of the first n release components, or all of them
// when n exceeds the vector length.
func (v Version) Prefix(n int) []int {
	if n > len(v.Release) {
		n = len(v.Release)
	}
	out := make([]int, n)
	copy(out, v.Release[:n])
	return out
}

// Compare orders two versions by their release vectors, component-wise, with
// a missing trailing component treated as zero. It returns -1, 0, or +1.
func (v Version) Compare(other Version) int {
	n := len(v.Release)
	if len(other.Release) > n {
		n = len(other.Release)
	}
	for i := 0; i < n; i++ {
		a, b := 0, 0
		if i < len(v.Release) {
			a = v.Release[i]
		}
		if i < len(other.Release) {
			b = other.Release[i]
		}
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
	}
	return 0
}

// IsPrerelease reports whether the raw string carries a pre-release marker:
// alpha/beta/rc and friends directly after the release run, or a dev segment
// anywhere before the local part ("1.0.post1.dev2" is a pre-release).
// Plain post-releases ("1.0.post1") and local versions ("1.0+local") are not.
func (v Version) IsPrerelease() bool {
	s := strings.TrimSpace(v.Raw)
	m := releaseRE.FindString(s)
	if m == "" {
		return false
	}
	rest := s[len(m):]
	// The local segment never affects release status.
	if i := strings.IndexByte(rest, '+'); i >= 0 {
		rest = rest[:i]
	}
	return prereleaseRE.MatchString(rest) || devRE.MatchString(rest)
}
