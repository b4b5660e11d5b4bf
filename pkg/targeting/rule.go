package targeting

import (
	"github.com/flagforge/core/pkg/bucketing"
	"github.com/flagforge/core/pkg/fctx"
	"github.com/flagforge/core/pkg/stableid"
)

// Rule wraps a targeting tree with a ramp-up percentage, an optional
// allowlist, and a free-form note. The root targeting tree is always
// conjunction (All) — a bare list of leaves is implicitly AND-ed.
type Rule struct {
	Targeting All
	RampUp    bucketing.RampUp
	Allowlist map[stableid.HexId]struct{}
	Note      string
}

// NewRule builds a Rule. An empty allowlist is represented as a nil/empty
// map — both read the same as "no allowlist" for specificity purposes.
func NewRule(targeting All, rampUp bucketing.RampUp, allowlist []stableid.HexId, note string) Rule {
	var set map[stableid.HexId]struct{}
	if len(allowlist) > 0 {
		set = make(map[stableid.HexId]struct{}, len(allowlist))
		for _, id := range allowlist {
			set[id] = struct{}{}
		}
	}
	return Rule{Targeting: targeting, RampUp: rampUp, Allowlist: set, Note: note}
}

// MatchesTargeting reports whether ctx satisfies this rule's targeting
// tree, independent of ramp-up/allowlist gating.
func (r Rule) MatchesTargeting(ctx fctx.Context, opts MatchOptions) bool {
	return r.Targeting.Matches(ctx, opts)
}

// Specificity is the rule's total specificity: targeting specificity plus
// a ramp-up contribution (0 at 100%, else 1) plus an allowlist
// contribution (0 if empty, else 1).
func (r Rule) Specificity() int {
	total := r.Targeting.Specificity()
	if r.RampUp.Value() != 100 {
		total++
	}
	if len(r.Allowlist) > 0 {
		total++
	}
	return total
}

// InAllowlist reports whether id is present in this rule's allowlist.
func (r Rule) InAllowlist(id stableid.HexId) bool {
	if len(r.Allowlist) == 0 {
		return false
	}
	_, ok := r.Allowlist[id]
	return ok
}

// Equal reports structural equality with other: same targeting tree, same
// ramp-up percentage, same allowlist, same note.
func (r Rule) Equal(other Rule) bool {
	if !r.Targeting.Equal(other.Targeting) {
		return false
	}
	if r.RampUp.Value() != other.RampUp.Value() {
		return false
	}
	if r.Note != other.Note {
		return false
	}
	if len(r.Allowlist) != len(other.Allowlist) {
		return false
	}
	for id := range r.Allowlist {
		if _, ok := other.Allowlist[id]; !ok {
			return false
		}
	}
	return true
}

// Candidate is a rule together with its declaration index, used while
// selecting the winning rule.
type Candidate struct {
	Rule  Rule
	Index int
}

// SelectionOutcome is the result of running rule selection: the winning
// rule (if any) and, if none of the matching candidates survived
// ramp-up/allowlist gating, the last one that was skipped for that reason.
type SelectionOutcome struct {
	Winner           *Candidate
	SkippedByRollout *Candidate
	// Considered holds every targeting-matched candidate in the order they
	// were evaluated, specificity-sorted — used for the EXPLAIN decision
	// trace.
	Considered []Candidate
}

// Select runs the full rule-selection algorithm: filter to
// targeting-matched rules, sort by specificity descending (ties broken by
// declaration index ascending), then walk in that order testing
// allowlist/ramp-up until one passes. opts is threaded down to any Custom
// predicate so a panicking host closure can be logged instead of silently
// swallowed.
func Select(rules []Rule, ctx fctx.Context, featureKey string, opts MatchOptions) SelectionOutcome {
	matched := make([]Candidate, 0, len(rules))
	for i, r := range rules {
		if r.MatchesTargeting(ctx, opts) {
			matched = append(matched, Candidate{Rule: r, Index: i})
		}
	}

	sortBySpecificityThenIndex(matched)

	outcome := SelectionOutcome{Considered: matched}

	stableID, hasIdentity := ctx.StableId()

	for i := range matched {
		cand := matched[i]
		if hasIdentity && cand.Rule.InAllowlist(stableID.Hex()) {
			winner := cand
			outcome.Winner = &winner
			return outcome
		}
		bucket := bucketing.Bucket(stableID, featureKey, featureKey)
		if cand.Rule.RampUp.IsInRampUp(bucket) {
			winner := cand
			outcome.Winner = &winner
			return outcome
		}
		skipped := cand
		outcome.SkippedByRollout = &skipped
	}

	return outcome
}

// sortBySpecificityThenIndex sorts descending by specificity, ascending by
// declaration index on ties — a small insertion sort is used since rule
// lists are expected to be short (tens, not thousands).
func sortBySpecificityThenIndex(candidates []Candidate) {
	for i := 1; i < len(candidates); i++ {
		j := i
		for j > 0 && less(candidates[j], candidates[j-1]) {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
			j--
		}
	}
}

func less(a, b Candidate) bool {
	sa, sb := a.Rule.Specificity(), b.Rule.Specificity()
	if sa != sb {
		return sa > sb
	}
	return a.Index < b.Index
}
