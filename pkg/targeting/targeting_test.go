package targeting

import (
	"testing"

	"github.com/flagforge/core/pkg/bucketing"
	"github.com/flagforge/core/pkg/fctx"
	"github.com/flagforge/core/pkg/stableid"
	"github.com/flagforge/core/pkg/version"
)

func TestLeafSpecificityIsOne(t *testing.T) {
	if NewLocale("en_US").Specificity() != 1 {
		t.Fatal("Locale should contribute 1")
	}
	if NewPlatform("ios").Specificity() != 1 {
		t.Fatal("Platform should contribute 1")
	}
	if NewAxis("cohort", "beta").Specificity() != 1 {
		t.Fatal("Axis should contribute 1")
	}
	if NewVersionInRange(version.NewUnbounded()).Specificity() != 1 {
		t.Fatal("VersionInRange should contribute 1")
	}
}

func TestCustomSpecificityIsWeight(t *testing.T) {
	c := NewCustom("always-true", 5, func(fctx.Context) bool { return true })
	if c.Specificity() != 5 {
		t.Fatalf("expected weight 5, got %d", c.Specificity())
	}
	zero := NewCustom("x", 0, func(fctx.Context) bool { return true })
	if zero.Specificity() != 1 {
		t.Fatal("non-positive weight should clamp to 1")
	}
}

func TestAllSumsAnyMaxes(t *testing.T) {
	all := NewAll(NewLocale("en_US"), NewPlatform("ios"))
	if all.Specificity() != 2 {
		t.Fatalf("expected All to sum to 2, got %d", all.Specificity())
	}
	any := NewAny(NewLocale("en_US"), NewCustom("w3", 3, nil))
	if any.Specificity() != 3 {
		t.Fatalf("expected Any to take max 3, got %d", any.Specificity())
	}
}

func TestMatchesCapabilityMismatchIsNonMatch(t *testing.T) {
	ctx := fctx.New() // no locale at all
	loc := NewLocale("en_US")
	if loc.Matches(ctx, MatchOptions{}) {
		t.Fatal("expected non-match when context has no locale")
	}
}

func TestCustomPanicIsNonMatch(t *testing.T) {
	c := NewCustom("panics", 1, func(fctx.Context) bool {
		panic("boom")
	})
	if c.Matches(fctx.New(), MatchOptions{}) {
		t.Fatal("panicking custom predicate must be treated as non-match")
	}
}

func TestAllIsConjunctionAnyIsDisjunction(t *testing.T) {
	ctx := fctx.New().WithLocale(fctx.Locale{ID: "en_US"}).WithPlatform(fctx.Platform{ID: "ios"})

	all := NewAll(NewLocale("en_US"), NewPlatform("android"))
	if all.Matches(ctx, MatchOptions{}) {
		t.Fatal("All must require every child to match")
	}

	any := NewAny(NewLocale("fr_FR"), NewPlatform("ios"))
	if !any.Matches(ctx, MatchOptions{}) {
		t.Fatal("Any must match when at least one child matches")
	}
}

func TestVersionInRangeMatching(t *testing.T) {
	r := version.NewFullyBound(version.New(1, 2, 0), version.New(2, 0, 0))
	pred := NewVersionInRange(r)

	matchCtx := fctx.New().WithAppVersion(version.New(1, 5, 3))
	if !pred.Matches(matchCtx, MatchOptions{}) {
		t.Fatal("expected 1.5.3 to match [1.2.0, 2.0.0]")
	}
	noMatchCtx := fctx.New().WithAppVersion(version.New(2, 0, 1))
	if pred.Matches(noMatchCtx, MatchOptions{}) {
		t.Fatal("expected 2.0.1 not to match")
	}
	noVersionCtx := fctx.New()
	if pred.Matches(noVersionCtx, MatchOptions{}) {
		t.Fatal("expected context without app version to be a non-match")
	}
}

func TestExprRegistryNamedPredicate(t *testing.T) {
	reg := NewExprRegistry()
	if err := reg.Register("is-ios", `platform == "ios"`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pred := reg.Predicate("is-ios", 1)

	ctx := fctx.New().WithPlatform(fctx.Platform{ID: "ios"})
	if !pred.Matches(ctx, MatchOptions{}) {
		t.Fatal("expected expression to match ios platform")
	}
	other := fctx.New().WithPlatform(fctx.Platform{ID: "android"})
	if pred.Matches(other, MatchOptions{}) {
		t.Fatal("expected expression not to match android platform")
	}
}

func TestExprRegistryUnregisteredNameIsNonMatch(t *testing.T) {
	reg := NewExprRegistry()
	pred := reg.Predicate("missing", 1)
	if pred.Matches(fctx.New(), MatchOptions{}) {
		t.Fatal("unregistered expression name must be a non-match")
	}
}

func mustHex(t *testing.T, s string) stableid.HexId {
	t.Helper()
	h, err := stableid.ParseHexId(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return h
}

func TestRuleSpecificityIncludesRampUpAndAllowlist(t *testing.T) {
	full, _ := bucketing.NewRampUp(100)
	partial, _ := bucketing.NewRampUp(50)

	bare := NewRule(NewAll(NewLocale("en_US")), full, nil, "")
	if bare.Specificity() != 1 {
		t.Fatalf("expected specificity 1, got %d", bare.Specificity())
	}

	withRampUp := NewRule(NewAll(NewLocale("en_US")), partial, nil, "")
	if withRampUp.Specificity() != 2 {
		t.Fatalf("expected specificity 2 (targeting + rampup), got %d", withRampUp.Specificity())
	}

	withAllowlist := NewRule(NewAll(NewLocale("en_US")), full, []stableid.HexId{mustHex(t, "ab")}, "")
	if withAllowlist.Specificity() != 2 {
		t.Fatalf("expected specificity 2 (targeting + allowlist), got %d", withAllowlist.Specificity())
	}

	withBoth := NewRule(NewAll(NewLocale("en_US")), partial, []stableid.HexId{mustHex(t, "ab")}, "")
	if withBoth.Specificity() != 3 {
		t.Fatalf("expected specificity 3, got %d", withBoth.Specificity())
	}
}

func TestSelectTieBrokenByDeclarationIndex(t *testing.T) {
	full, _ := bucketing.NewRampUp(100)
	ctx := fctx.New().WithLocale(fctx.Locale{ID: "en_US"})

	ruleA := NewRule(NewAll(NewLocale("en_US")), full, nil, "A")
	ruleB := NewRule(NewAll(NewLocale("en_US")), full, nil, "B")

	outcome := Select([]Rule{ruleA, ruleB}, ctx, "feature.x", MatchOptions{})
	if outcome.Winner == nil {
		t.Fatal("expected a winner")
	}
	if outcome.Winner.Rule.Note != "A" {
		t.Fatalf("expected earliest-declared rule A to win ties, got %q", outcome.Winner.Rule.Note)
	}
}

func TestSelectSkippedByRolloutFallsThroughToDefault(t *testing.T) {
	zero, _ := bucketing.NewRampUp(0)
	ctx := fctx.New().WithLocale(fctx.Locale{ID: "en_US"})
	id, _ := stableid.NewStableId("someone")
	ctx = ctx.WithStableId(id)

	rule := NewRule(NewAll(NewLocale("en_US")), zero, nil, "never")
	outcome := Select([]Rule{rule}, ctx, "feature.y", MatchOptions{})

	if outcome.Winner != nil {
		t.Fatal("expected no winner at 0% ramp-up without allowlist")
	}
	if outcome.SkippedByRollout == nil {
		t.Fatal("expected the matched-but-gated rule to be recorded as skipped")
	}
}

func TestSelectAllowlistBypassesRampUp(t *testing.T) {
	zero, _ := bucketing.NewRampUp(0)
	allowedHex := mustHex(t, "abcdef")
	id, _ := stableid.ParseStableIdHex("abcdef")
	ctx := fctx.New().WithLocale(fctx.Locale{ID: "en_US"}).WithStableId(id)

	rule := NewRule(NewAll(NewLocale("en_US")), zero, []stableid.HexId{allowedHex}, "allow")
	outcome := Select([]Rule{rule}, ctx, "feature.z", MatchOptions{})

	if outcome.Winner == nil {
		t.Fatal("expected allowlisted id to win despite 0% ramp-up")
	}

	other, _ := stableid.NewStableId("not-allowed")
	ctx2 := fctx.New().WithLocale(fctx.Locale{ID: "en_US"}).WithStableId(other)
	outcome2 := Select([]Rule{rule}, ctx2, "feature.z", MatchOptions{})
	if outcome2.Winner != nil {
		t.Fatal("expected non-allowlisted id not to bypass 0% ramp-up")
	}
}
