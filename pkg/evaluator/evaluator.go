// Package evaluator implements the top-level entry point: given a feature
// and a context, produce a typed EvaluationResult and emit a metrics
// event. This is the synchronous evaluation core — no network, cache, or
// offline fallback branches, since a registry is always in-process memory
// here.
package evaluator

import (
	"time"

	"github.com/flagforge/core/pkg/bucketing"
	"github.com/flagforge/core/pkg/fctx"
	"github.com/flagforge/core/pkg/flag"
	"github.com/flagforge/core/pkg/hooks"
	"github.com/flagforge/core/pkg/registry"
	"github.com/flagforge/core/pkg/targeting"
)

// EvaluationResult is the outcome of one evaluate call.
type EvaluationResult struct {
	Value                  interface{}
	Decision               hooks.DecisionKind
	DurationNanos          int64
	ConfigVersion          string
	HasConfigVersion       bool
	Bucket                 int
	HasBucket              bool
	MatchedRuleSpecificity int
	SkippedByRollout       bool
	Trace                  []targeting.Candidate
}

// Evaluator runs evaluate for a fixed namespace registry.
type Evaluator struct {
	Registry *registry.NamespaceRegistry
	// CustomPredicatePanicsFatal mirrors engineconfig.Config's field of the
	// same name: when true, a panicking targeting.Custom predicate is
	// logged at Error instead of Warn.
	CustomPredicatePanicsFatal bool
}

// New builds an Evaluator bound to reg. customPredicatePanicsFatal is
// normally a host's engineconfig.Config.CustomPredicatePanicsFatal, threaded
// through to every targeting.Select call this Evaluator makes.
func New(reg *registry.NamespaceRegistry, customPredicatePanicsFatal bool) *Evaluator {
	return &Evaluator{Registry: reg, CustomPredicatePanicsFatal: customPredicatePanicsFatal}
}

// Evaluate runs the full evaluation pipeline for (feature, ctx). mode
// controls whether the candidate trace is populated.
func (e *Evaluator) Evaluate(id flag.FeatureId, ctx fctx.Context, mode hooks.Mode) EvaluationResult {
	start := time.Now()

	if e.Registry.State() == registry.AllDisabled {
		feature, known := e.Registry.View().Flag(id)
		defaultValue := interface{}(nil)
		if known {
			defaultValue = feature.Default
		}
		result := EvaluationResult{Value: defaultValue, Decision: hooks.DecisionRegistryDisabled}
		e.stampAndEmit(&result, id, mode, start, "", false)
		return result
	}

	def, ok := e.Registry.FindFlag(id)
	if !ok {
		result := EvaluationResult{Value: nil, Decision: hooks.DecisionDefault}
		e.stampAndEmit(&result, id, mode, start, "", false)
		return result
	}

	if override, has := def.Override(); has {
		result := EvaluationResult{
			Value:                  override,
			Decision:               hooks.DecisionRule,
			MatchedRuleSpecificity: -1,
		}
		e.stampAndEmit(&result, id, mode, start, e.Registry.View().Metadata.Version, e.Registry.View().Metadata.HasVersion)
		return result
	}

	if !def.IsActive {
		result := EvaluationResult{Value: def.Default, Decision: hooks.DecisionInactive}
		e.stampAndEmit(&result, id, mode, start, e.Registry.View().Metadata.Version, e.Registry.View().Metadata.HasVersion)
		return result
	}

	rules := make([]targeting.Rule, 0, len(def.Rules))
	for _, rd := range def.Rules {
		rules = append(rules, rd.Rule)
	}
	matchOpts := targeting.MatchOptions{
		Logger:                     e.hooksSet().Logger,
		CustomPredicatePanicsFatal: e.CustomPredicatePanicsFatal,
	}
	outcome := targeting.Select(rules, ctx, id.Key, matchOpts)

	result := EvaluationResult{}
	if mode == hooks.ModeExplain {
		result.Trace = outcome.Considered
	}

	if outcome.Winner != nil {
		result.Value = def.Rules[outcome.Winner.Index].Value
		result.Decision = hooks.DecisionRule
		result.MatchedRuleSpecificity = outcome.Winner.Rule.Specificity()
	} else {
		result.Value = def.Default
		result.Decision = hooks.DecisionDefault
		result.SkippedByRollout = outcome.SkippedByRollout != nil
	}

	if stableID, has := ctx.StableId(); has {
		result.Bucket = bucketing.Bucket(stableID, id.Key, id.Key)
		result.HasBucket = true
	}

	e.stampAndEmit(&result, id, mode, start, e.Registry.View().Metadata.Version, e.Registry.View().Metadata.HasVersion)
	return result
}

func (e *Evaluator) stampAndEmit(result *EvaluationResult, id flag.FeatureId, mode hooks.Mode, start time.Time, configVersion string, hasConfigVersion bool) {
	result.DurationNanos = time.Since(start).Nanoseconds()
	result.ConfigVersion = configVersion
	result.HasConfigVersion = hasConfigVersion

	event := hooks.Evaluation{
		NamespaceId:               id.NamespaceId,
		FeatureKey:                id.Key,
		Mode:                      mode,
		DurationNanos:             result.DurationNanos,
		DecisionKind:              result.Decision,
		ConfigVersion:             result.ConfigVersion,
		HasConfigVersion:          result.HasConfigVersion,
		Bucket:                    result.Bucket,
		HasBucket:                 result.HasBucket,
		MatchedRuleSpecificity:    result.MatchedRuleSpecificity,
		HasMatchedRuleSpecificity: result.Decision == hooks.DecisionRule,
	}
	e.hooksSet().Metrics.RecordEvaluation(event)
}

func (e *Evaluator) hooksSet() hooks.Set {
	return e.Registry.HooksSnapshot()
}
