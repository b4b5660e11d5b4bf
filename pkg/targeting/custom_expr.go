package targeting

import (
	"fmt"
	"sync"

	"github.com/Knetic/govaluate"

	"github.com/flagforge/core/pkg/fctx"
)

// ExprRegistry lets a host register named boolean expressions that a
// snapshot can reference by name instead of requiring a pre-wired Go
// closure before every load. This is what makes a Custom predicate
// nameable/serializable end to end: the codec can round-trip a rule's
// "customPredicates" entry ({"name":"...","weight":N}) and resolve it
// against whatever this
// process has registered, rather than requiring the targeting tree to be
// rebuilt in code after every snapshot load.
//
// Expressions see the context's axis tag membership as boolean variables
// named "axis.<axisID>.<tag>", plus "locale", "platform", and
// "appVersion" as their string forms (empty string when absent).
type ExprRegistry struct {
	mu    sync.RWMutex
	exprs map[string]*govaluate.EvaluableExpression
}

// NewExprRegistry creates an empty expression registry.
func NewExprRegistry() *ExprRegistry {
	return &ExprRegistry{exprs: make(map[string]*govaluate.EvaluableExpression)}
}

// Register compiles and stores expr under name, overwriting any previous
// registration for the same name.
func (r *ExprRegistry) Register(name, expr string) error {
	compiled, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return fmt.Errorf("invalid expression for %q: %w", name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exprs[name] = compiled
	return nil
}

// Predicate returns a Custom predicate that evaluates the named,
// previously-registered expression. If name was never registered, the
// returned predicate always evaluates to false (a non-match), consistent
// with the engine's policy of treating predicate failures as non-matches
// rather than errors.
func (r *ExprRegistry) Predicate(name string, weight int) Custom {
	return NewCustom(name, weight, func(ctx fctx.Context) bool {
		r.mu.RLock()
		expr, ok := r.exprs[name]
		r.mu.RUnlock()
		if !ok {
			return false
		}
		result, err := expr.Evaluate(parameters(ctx))
		if err != nil {
			return false
		}
		matched, ok := result.(bool)
		return ok && matched
	})
}

func parameters(ctx fctx.Context) map[string]interface{} {
	params := make(map[string]interface{})
	if loc, ok := ctx.Locale(); ok {
		params["locale"] = loc.ID
	} else {
		params["locale"] = ""
	}
	if plat, ok := ctx.Platform(); ok {
		params["platform"] = plat.ID
	} else {
		params["platform"] = ""
	}
	if v, ok := ctx.AppVersion(); ok {
		params["appVersion"] = v.String()
	} else {
		params["appVersion"] = ""
	}
	for _, axisID := range ctx.AxisIDs() {
		tags, _ := ctx.AxisValues(axisID)
		for tag := range tags {
			params[fmt.Sprintf("axis.%s.%s", axisID, tag)] = true
		}
	}
	return params
}
