// Package semver implements the version parsing and constraint matching
// used by shared-scope negotiation. Constraints support the operators
// =, ^, ~, >, >=, < and <=, and two constraints can be tested for range
// overlap to detect disjoint shared dependency requirements.
package semver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Version represents a parsed semantic version.
type Version struct {
	Major      int
	Minor      int
	Patch      int
	Prerelease string
	Original   string
}

// Constraint represents a version constraint.
type Constraint struct {
	// Op is the comparison operator (=, ^, ~, >, >=, <, <=).
	Op string
	// Version is the version to compare against.
	Version *Version
	// Original is the original constraint string.
	Original string
}

// versionRegex matches semantic version strings.
var versionRegex = regexp.MustCompile(`^v?(\d+)(?:\.(\d+))?(?:\.(\d+))?(?:-([0-9A-Za-z\-\.]+))?(?:\+([0-9A-Za-z\-\.]+))?$`)

// constraintRegex matches version constraint strings.
var constraintRegex = regexp.MustCompile(`^([~^]|>=|<=|>|<|=)?v?(\d+(?:\.\d+)?(?:\.\d+)?(?:-[0-9A-Za-z\-\.]+)?)$`)

// Parse parses a version string into a Version.
func Parse(s string) (*Version, error) {
	matches := versionRegex.FindStringSubmatch(strings.TrimSpace(s))
	if matches == nil {
		return nil, fmt.Errorf("invalid version format: %s", s)
	}

	v := &Version{Original: s}

	var err error
	v.Major, err = strconv.Atoi(matches[1])
	if err != nil {
		return nil, fmt.Errorf("invalid major version: %w", err)
	}

	if matches[2] != "" {
		v.Minor, err = strconv.Atoi(matches[2])
		if err != nil {
			return nil, fmt.Errorf("invalid minor version: %w", err)
		}
	}

	if matches[3] != "" {
		v.Patch, err = strconv.Atoi(matches[3])
		if err != nil {
			return nil, fmt.Errorf("invalid patch version: %w", err)
		}
	}

	if matches[4] != "" {
		v.Prerelease = matches[4]
	}

	return v, nil
}

// String returns the version as a string.
func (v *Version) String() string {
	return v.Original
}

// Compare compares two versions.
// Returns -1 if v < other, 0 if v == other, 1 if v > other.
func (v *Version) Compare(other *Version) int {
	if v.Major != other.Major {
		if v.Major < other.Major {
			return -1
		}
		return 1
	}

	if v.Minor != other.Minor {
		if v.Minor < other.Minor {
			return -1
		}
		return 1
	}

	if v.Patch != other.Patch {
		if v.Patch < other.Patch {
			return -1
		}
		return 1
	}

	// Prerelease versions have lower precedence
	if v.Prerelease == "" && other.Prerelease != "" {
		return 1
	}
	if v.Prerelease != "" && other.Prerelease == "" {
		return -1
	}
	if v.Prerelease != other.Prerelease {
		if v.Prerelease < other.Prerelease {
			return -1
		}
		return 1
	}

	return 0
}

// ParseConstraint parses a version constraint string.
func ParseConstraint(s string) (*Constraint, error) {
	s = strings.TrimSpace(s)

	matches := constraintRegex.FindStringSubmatch(s)
	if matches == nil {
		return nil, fmt.Errorf("invalid constraint format: %s", s)
	}

	op := matches[1]
	if op == "" {
		op = "="
	}

	version, err := Parse(matches[2])
	if err != nil {
		return nil, fmt.Errorf("invalid version in constraint: %w", err)
	}

	return &Constraint{
		Op:       op,
		Version:  version,
		Original: s,
	}, nil
}

// Matches checks if a version satisfies the constraint.
func (c *Constraint) Matches(v *Version) bool {
	switch c.Op {
	case "=":
		return v.Compare(c.Version) == 0

	case "^":
		// Caret: allows changes that do not modify the left-most non-zero digit
		// ^1.2.3 := >=1.2.3 <2.0.0
		// ^0.2.3 := >=0.2.3 <0.3.0
		// ^0.0.3 := >=0.0.3 <0.0.4
		if v.Compare(c.Version) < 0 {
			return false
		}
		if c.Version.Major != 0 {
			return v.Major == c.Version.Major
		}
		if c.Version.Minor != 0 {
			return v.Major == 0 && v.Minor == c.Version.Minor
		}
		return v.Major == 0 && v.Minor == 0 && v.Patch == c.Version.Patch

	case "~":
		// Tilde: allows patch-level changes
		// ~1.2.3 := >=1.2.3 <1.3.0
		if v.Compare(c.Version) < 0 {
			return false
		}
		return v.Major == c.Version.Major && v.Minor == c.Version.Minor

	case ">":
		return v.Compare(c.Version) > 0

	case ">=":
		return v.Compare(c.Version) >= 0

	case "<":
		return v.Compare(c.Version) < 0

	case "<=":
		return v.Compare(c.Version) <= 0

	default:
		return false
	}
}

// String returns the original constraint string.
func (c *Constraint) String() string {
	return c.Original
}

// bound is one end of a constraint's version interval. A nil version
// means the interval is unbounded on that side.
type bound struct {
	v         *Version
	inclusive bool
}

// bounds returns the interval [lo, hi] covered by the constraint.
func (c *Constraint) bounds() (lo, hi bound) {
	v := c.Version

	switch c.Op {
	case "=":
		return bound{v, true}, bound{v, true}

	case "^":
		if v.Major != 0 {
			return bound{v, true}, bound{&Version{Major: v.Major + 1}, false}
		}
		if v.Minor != 0 {
			return bound{v, true}, bound{&Version{Minor: v.Minor + 1}, false}
		}
		return bound{v, true}, bound{&Version{Patch: v.Patch + 1}, false}

	case "~":
		return bound{v, true}, bound{&Version{Major: v.Major, Minor: v.Minor + 1}, false}

	case ">":
		return bound{v, false}, bound{nil, false}

	case ">=":
		return bound{v, true}, bound{nil, false}

	case "<":
		return bound{nil, false}, bound{v, false}

	case "<=":
		return bound{nil, false}, bound{v, true}

	default:
		return bound{nil, false}, bound{nil, false}
	}
}

// Overlaps reports whether two constraints admit at least one common
// version. Disjoint ranges are how shared-scope version conflicts are
// detected.
func Overlaps(a, b *Constraint) bool {
	aLo, aHi := a.bounds()
	bLo, bHi := b.bounds()

	// Take the higher lower bound and the lower upper bound.
	lo := maxBound(aLo, bLo)
	hi := minBound(aHi, bHi)

	if lo.v == nil || hi.v == nil {
		return true
	}

	switch lo.v.Compare(hi.v) {
	case -1:
		return true
	case 0:
		return lo.inclusive && hi.inclusive
	default:
		return false
	}
}

// maxBound returns the more restrictive of two lower bounds.
func maxBound(a, b bound) bound {
	if a.v == nil {
		return b
	}
	if b.v == nil {
		return a
	}
	switch a.v.Compare(b.v) {
	case 1:
		return a
	case -1:
		return b
	default:
		// Same version; exclusive is more restrictive for a lower bound.
		if !a.inclusive {
			return a
		}
		return b
	}
}

// minBound returns the more restrictive of two upper bounds.
func minBound(a, b bound) bound {
	if a.v == nil {
		return b
	}
	if b.v == nil {
		return a
	}
	switch a.v.Compare(b.v) {
	case -1:
		return a
	case 1:
		return b
	default:
		if !a.inclusive {
			return a
		}
		return b
	}
}

// Valid reports whether s parses as a semantic version.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// ValidConstraint reports whether s parses as a version constraint.
func ValidConstraint(s string) bool {
	_, err := ParseConstraint(s)
	return err == nil
}
