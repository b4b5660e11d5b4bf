// Package targeting implements the recursive targeting predicate tree and
// the Rule it is wrapped in: leaves Locale, Platform, VersionInRange, Axis,
// Custom; composites All, Any.
//
// The tree is a tagged sum type with owned children held in a slice — it
// is built once by the snapshot codec (or a host's builder DSL, out of
// scope here) and never mutated afterwards, so no shared ownership or
// locking is needed.
package targeting

import (
	"fmt"
	"reflect"

	"github.com/flagforge/core/pkg/fctx"
	"github.com/flagforge/core/pkg/hooks"
	"github.com/flagforge/core/pkg/version"
)

// MatchOptions carries the cross-cutting concerns a Matches call needs to
// thread down to a nested Custom predicate: somewhere to log a recovered
// panic, and whether that panic should be logged at Error instead of Warn.
// The zero value is safe — a nil Logger is simply not called.
type MatchOptions struct {
	Logger                     hooks.Logger
	CustomPredicatePanicsFatal bool
}

// Predicate is the sealed interface every targeting tree node implements.
// The unexported marker method prevents external packages from adding new
// variants — the variant set is closed.
type Predicate interface {
	// Matches reports whether ctx satisfies this predicate. Capability
	// mismatches (e.g. a Locale predicate against a context with no
	// locale) are non-matches, never errors.
	Matches(ctx fctx.Context, opts MatchOptions) bool
	// Specificity returns this node's contribution to a rule's total
	// specificity score.
	Specificity() int
	// Equal reports structural equality with other, used by
	// ConfigurationView's round-trip comparison. Custom predicates compare
	// equal by name and weight only — the wrapped closure is never
	// compared.
	Equal(other Predicate) bool

	sealed()
}

// Locale matches when the context's locale id is in the set.
type Locale struct {
	IDs map[string]struct{}
}

// NewLocale builds a Locale predicate over the given locale ids.
func NewLocale(ids ...string) Locale {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return Locale{IDs: set}
}

func (l Locale) Matches(ctx fctx.Context, opts MatchOptions) bool {
	loc, ok := ctx.Locale()
	if !ok {
		return false
	}
	_, match := l.IDs[loc.ID]
	return match
}
func (l Locale) Specificity() int { return 1 }
func (l Locale) Equal(other Predicate) bool {
	o, ok := other.(Locale)
	return ok && reflect.DeepEqual(l.IDs, o.IDs)
}
func (Locale) sealed() {}

// Platform matches when the context's platform id is in the set.
type Platform struct {
	IDs map[string]struct{}
}

// NewPlatform builds a Platform predicate over the given platform ids.
func NewPlatform(ids ...string) Platform {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return Platform{IDs: set}
}

func (p Platform) Matches(ctx fctx.Context, opts MatchOptions) bool {
	plat, ok := ctx.Platform()
	if !ok {
		return false
	}
	_, match := p.IDs[plat.ID]
	return match
}
func (p Platform) Specificity() int { return 1 }
func (p Platform) Equal(other Predicate) bool {
	o, ok := other.(Platform)
	return ok && reflect.DeepEqual(p.IDs, o.IDs)
}
func (Platform) sealed() {}

// VersionInRange matches when the context's app version falls within the
// range, inclusive on both ends when a bound is present.
type VersionInRange struct {
	Range version.Range
}

// NewVersionInRange builds a VersionInRange predicate over r.
func NewVersionInRange(r version.Range) VersionInRange {
	return VersionInRange{Range: r}
}

func (v VersionInRange) Matches(ctx fctx.Context, opts MatchOptions) bool {
	appVersion, ok := ctx.AppVersion()
	if !ok {
		return false
	}
	return v.Range.Contains(appVersion)
}
func (v VersionInRange) Specificity() int { return 1 }
func (v VersionInRange) Equal(other Predicate) bool {
	o, ok := other.(VersionInRange)
	if !ok || v.Range.Kind() != o.Range.Kind() {
		return false
	}
	switch v.Range.Kind() {
	case version.Unbounded:
		return true
	case version.LeftBound:
		return v.Range.Min().Equal(o.Range.Min())
	case version.RightBound:
		return v.Range.Max().Equal(o.Range.Max())
	case version.FullyBound:
		return v.Range.Min().Equal(o.Range.Min()) && v.Range.Max().Equal(o.Range.Max())
	default:
		return false
	}
}
func (VersionInRange) sealed() {}

// Axis matches when the context's tag set for axisID intersects the set.
type Axis struct {
	AxisID string
	Tags   map[string]struct{}
}

// NewAxis builds an Axis predicate.
func NewAxis(axisID string, tags ...string) Axis {
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		set[tag] = struct{}{}
	}
	return Axis{AxisID: axisID, Tags: set}
}

func (a Axis) Matches(ctx fctx.Context, opts MatchOptions) bool {
	ctxTags, ok := ctx.AxisValues(a.AxisID)
	if !ok {
		return false
	}
	for tag := range a.Tags {
		if _, present := ctxTags[tag]; present {
			return true
		}
	}
	return false
}
func (a Axis) Specificity() int { return 1 }
func (a Axis) Equal(other Predicate) bool {
	o, ok := other.(Axis)
	return ok && a.AxisID == o.AxisID && reflect.DeepEqual(a.Tags, o.Tags)
}
func (Axis) sealed() {}

// CustomFunc is a host-supplied predicate closure. It must be pure for
// reproducibility; the engine makes no attempt to detect impurity. A
// CustomFunc that panics is treated as a non-match and logged through the
// MatchOptions.Logger passed to Matches — it never aborts evaluation.
type CustomFunc func(ctx fctx.Context) bool

// Custom wraps a host-supplied predicate closure with a stable identifier
// (so decision traces can name the predicate class without capturing the
// closure itself) and a declared specificity weight.
type Custom struct {
	Name   string
	Weight int
	Fn     CustomFunc
}

// NewCustom builds a Custom predicate. weight must be >= 1; NewCustom
// clamps a non-positive weight to 1, since every leaf contributes at least
// 1. Specificity() returns Weight as stored.
func NewCustom(name string, weight int, fn CustomFunc) Custom {
	if weight < 1 {
		weight = 1
	}
	return Custom{Name: name, Weight: weight, Fn: fn}
}

func (c Custom) Matches(ctx fctx.Context, opts MatchOptions) (matched bool) {
	if c.Fn == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			matched = false
			if opts.Logger == nil {
				return
			}
			msg := func() string { return fmt.Sprintf("custom predicate %q panicked: %v", c.Name, r) }
			if opts.CustomPredicatePanicsFatal {
				opts.Logger.Error(msg, fmt.Errorf("custom predicate %q panicked: %v", c.Name, r))
			} else {
				opts.Logger.Warn(msg, fmt.Errorf("custom predicate %q panicked: %v", c.Name, r))
			}
		}
	}()
	return c.Fn(ctx)
}
func (c Custom) Specificity() int { return c.Weight }
func (c Custom) Equal(other Predicate) bool {
	o, ok := other.(Custom)
	return ok && c.Name == o.Name && c.Weight == o.Weight
}
func (Custom) sealed() {}

// All is a composite that matches when every child matches. The root of
// every Rule is always an All, even when it wraps a single child or none
// (an empty All matches unconditionally).
type All struct {
	Children []Predicate
}

// NewAll builds an All composite.
func NewAll(children ...Predicate) All {
	return All{Children: children}
}

func (a All) Matches(ctx fctx.Context, opts MatchOptions) bool {
	for _, child := range a.Children {
		if !child.Matches(ctx, opts) {
			return false
		}
	}
	return true
}
func (a All) Specificity() int {
	total := 0
	for _, child := range a.Children {
		total += child.Specificity()
	}
	return total
}
func (a All) Equal(other Predicate) bool {
	o, ok := other.(All)
	if !ok || len(a.Children) != len(o.Children) {
		return false
	}
	for i, child := range a.Children {
		if !child.Equal(o.Children[i]) {
			return false
		}
	}
	return true
}
func (All) sealed() {}

// Any is a composite that matches when at least one child matches. An
// empty Any matches nothing.
type Any struct {
	Children []Predicate
}

// NewAny builds an Any composite.
func NewAny(children ...Predicate) Any {
	return Any{Children: children}
}

func (a Any) Matches(ctx fctx.Context, opts MatchOptions) bool {
	for _, child := range a.Children {
		if child.Matches(ctx, opts) {
			return true
		}
	}
	return false
}
func (a Any) Specificity() int {
	max := 0
	for i, child := range a.Children {
		s := child.Specificity()
		if i == 0 || s > max {
			max = s
		}
	}
	return max
}
func (a Any) Equal(other Predicate) bool {
	o, ok := other.(Any)
	if !ok || len(a.Children) != len(o.Children) {
		return false
	}
	for i, child := range a.Children {
		if !child.Equal(o.Children[i]) {
			return false
		}
	}
	return true
}
func (Any) sealed() {}
