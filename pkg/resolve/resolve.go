// Package resolve selects the best next version for a package from the set
// of versions a registry knows about, constrained by a semver ceiling.
//
// The ceiling is asymmetric on purpose: asking for a "minor" update of 2.5.3
// keeps every candidate below 3.0.0, so minor and patch bumps within major 2
// are eligible while a new major is not. Asking for "major" imposes no upper
// bound at all.
package resolve

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nixtools/pypiup/pkg/pepver"
)

// Target names the semver position a resolution must not exceed.
type Target string

// Supported targets, ordered by release component position.
const (
	TargetMajor Target = "major"
	TargetMinor Target = "minor"
	TargetPatch Target = "patch"
)

// ErrNoEligibleVersion is returned when no known version besides the current
// one falls below the ceiling. Callers treat this as "already current", not
// as a hard failure.
var ErrNoEligibleVersion = errors.New("no eligible version")

// ErrInvalidTarget is returned for an unrecognized target name.
var ErrInvalidTarget = errors.New("invalid target")

// ParseTarget validates a target name from the command line or config.
func ParseTarget(s string) (Target, error) {
	switch t := Target(s); t {
	case TargetMajor, TargetMinor, TargetPatch:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q (want major, minor, or patch)", ErrInvalidTarget, s)
	}
}

// index is the target's position in the release vector: the ceiling is built
// from the components above it.
func (t Target) index() int {
	switch t {
	case TargetMinor:
		return 1
	case TargetPatch:
		return 2
	default:
		return 0
	}
}

// Ceiling derives the exclusive upper bound for current at the given target.
// The bound is the release prefix above the target position with its last
// component incremented: current 2.5.3 at target minor gives ceiling 3.
// For target major the prefix is empty and there is no bound; ok is false.
func Ceiling(current pepver.Version, target Target) (pepver.Version, bool) {
	prefix := current.Prefix(target.index())
	if len(prefix) == 0 {
		return pepver.Version{}, false
	}
	prefix[len(prefix)-1]++

	parts := make([]string, len(prefix))
	for i, n := range prefix {
		parts[i] = strconv.Itoa(n)
	}
	return pepver.Version{Raw: strings.Join(parts, "."), Release: prefix}, true
}

// Resolve returns the maximum known version below the target's ceiling.
// Unparsable entries in known are dropped silently; pre-releases are dropped
// unless prereleases is set; the current version itself is never a candidate.
// A candidate set holding only older versions still resolves to its maximum,
// so the caller can recognize the downgrade and report it. It fails with
// ErrNoEligibleVersion when nothing qualifies, including when the only known
// version is the current one.
func Resolve(current pepver.Version, target Target, known []string, prereleases bool) (pepver.Version, error) {
	ceiling, bounded := Ceiling(current, target)

	var best pepver.Version
	found := false
	for _, raw := range known {
		v, err := pepver.Parse(raw)
		if err != nil {
			continue // malformed tags are not candidates
		}
		if !prereleases && v.IsPrerelease() {
			continue
		}
		if bounded && v.Compare(ceiling) >= 0 {
			continue
		}
		if v.Compare(current) == 0 {
			continue
		}
		if !found || v.Compare(best) > 0 {
			best = v
			found = true
		}
	}

	if !found {
		return pepver.Version{}, fmt.Errorf("%w: %s at target %s", ErrNoEligibleVersion, current.Raw, target)
	}
	return best, nil
}
