// Package version implements the (major, minor, patch) version primitive
// and the VersionRange predicate used by VersionInRange targeting leaves.
//
// Version parsing and comparison are built on github.com/blang/semver/v4
// rather than a hand-rolled triple-compare: semver's grammar already
// rejects negative/missing components, and its Compare gives a total
// order for free.
package version

import (
	"fmt"
	"strings"

	"github.com/blang/semver/v4"

	"github.com/flagforge/core/pkg/ffcerr"
)

// Version is a non-negative (major, minor, patch) triple with a total,
// lexicographic order.
type Version struct {
	sv semver.Version
}

// New builds a Version directly from non-negative components.
func New(major, minor, patch uint64) Version {
	return Version{sv: semver.Version{Major: major, Minor: minor, Patch: patch}}
}

// Parse parses "M.m.p". Fails if any component is negative, missing, or
// non-numeric. Pre-release/build metadata suffixes (e.g. "1.2.0-rc1") are
// rejected — this version triple has no such concept.
func Parse(s string) (Version, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Version{}, ffcerr.New(ffcerr.ErrInvalidVersion, "version string must not be empty")
	}
	parts := strings.Split(trimmed, ".")
	if len(parts) != 3 {
		return Version{}, ffcerr.New(ffcerr.ErrInvalidVersion, fmt.Sprintf("version %q must have exactly 3 components", s))
	}
	sv, err := semver.Parse(trimmed)
	if err != nil {
		return Version{}, ffcerr.Wrap(ffcerr.ErrInvalidVersion, fmt.Sprintf("cannot parse version %q", s), err)
	}
	if len(sv.Pre) > 0 || len(sv.Build) > 0 {
		return Version{}, ffcerr.New(ffcerr.ErrInvalidVersion, fmt.Sprintf("version %q must not carry pre-release or build metadata", s))
	}
	return Version{sv: sv}, nil
}

// Major, Minor, Patch expose the triple's components.
func (v Version) Major() uint64 { return v.sv.Major }
func (v Version) Minor() uint64 { return v.sv.Minor }
func (v Version) Patch() uint64 { return v.sv.Patch }

// String renders "M.m.p".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.sv.Major, v.sv.Minor, v.sv.Patch)
}

// Compare returns -1, 0, or 1 per the total lexicographic order.
func (v Version) Compare(other Version) int {
	return v.sv.Compare(other.sv)
}

// Equal reports whether the two versions compare equal.
func (v Version) Equal(other Version) bool { return v.Compare(other) == 0 }

// LessThan reports v < other.
func (v Version) LessThan(other Version) bool { return v.Compare(other) < 0 }

// GreaterThan reports v > other.
func (v Version) GreaterThan(other Version) bool { return v.Compare(other) > 0 }

// Kind tags which variant a Range is.
type Kind int

const (
	Unbounded Kind = iota
	LeftBound
	RightBound
	FullyBound
)

// Range is a tagged union over {Unbounded, LeftBound(min), RightBound(max),
// FullyBound(min, max)}. Bounds are inclusive on both ends when present.
type Range struct {
	kind Kind
	min  Version
	max  Version
}

// NewUnbounded builds the variant that matches every version.
func NewUnbounded() Range { return Range{kind: Unbounded} }

// NewLeftBound builds {v: v >= min}.
func NewLeftBound(min Version) Range { return Range{kind: LeftBound, min: min} }

// NewRightBound builds {v: v <= max}.
func NewRightBound(max Version) Range { return Range{kind: RightBound, max: max} }

// NewFullyBound builds {v: min <= v <= max}.
func NewFullyBound(min, max Version) Range { return Range{kind: FullyBound, min: min, max: max} }

// Kind reports which variant this range is.
func (r Range) Kind() Kind { return r.kind }

// Min returns the lower bound; valid only when HasLowerBound is true.
func (r Range) Min() Version { return r.min }

// Max returns the upper bound; valid only when HasUpperBound is true.
func (r Range) Max() Version { return r.max }

// HasLowerBound reports whether this variant carries a minimum.
func (r Range) HasLowerBound() bool { return r.kind == LeftBound || r.kind == FullyBound }

// HasUpperBound reports whether this variant carries a maximum.
func (r Range) HasUpperBound() bool { return r.kind == RightBound || r.kind == FullyBound }

// HasBounds is true for every variant except Unbounded.
func (r Range) HasBounds() bool { return r.kind != Unbounded }

// Contains reports whether v falls within the range, inclusive on both
// ends when a bound is present.
func (r Range) Contains(v Version) bool {
	switch r.kind {
	case Unbounded:
		return true
	case LeftBound:
		return !v.LessThan(r.min)
	case RightBound:
		return !v.GreaterThan(r.max)
	case FullyBound:
		return !v.LessThan(r.min) && !v.GreaterThan(r.max)
	default:
		return false
	}
}
