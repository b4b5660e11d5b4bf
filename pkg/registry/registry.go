// Package registry implements the namespace registry: the mutable owner
// of a namespace's current ConfigurationView, its rollback history, its
// per-feature overrides, and its global kill-switch.
//
// The hot read path (flag/findFlag, and the evaluator's lookups through
// it) is lock-free: the current view lives behind an atomic.Pointer, the
// override map is copy-on-write, and only load/rollback (and History
// reads) take the mutex guarding history; setHooks is an atomic swap.
package registry

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/flagforge/core/pkg/flag"
	"github.com/flagforge/core/pkg/hooks"
)

// State is the registry's kill-switch state.
type State int

const (
	Live State = iota
	AllDisabled
)

// ErrFlagNotFound is returned by Flag when the feature is not declared in
// this namespace.
var ErrFlagNotFound = errors.New("registry: flag not found")

// DefaultHistoryDepth is the minimum history depth: NewRegistry raises any
// lower depth (including 0) to it, so the ring always holds at least 8.
const DefaultHistoryDepth = 8

type overrideMap map[flag.FeatureId]interface{}

// NamespaceRegistry owns one namespace's live configuration.
type NamespaceRegistry struct {
	namespaceId  string
	historyDepth int

	current atomic.Pointer[flag.ConfigurationView]
	state   atomic.Int32

	overrides atomic.Pointer[overrideMap]

	mu      sync.Mutex
	history []flag.ConfigurationView

	hooksRef atomic.Pointer[hooks.Set]
}

// NewRegistry builds a registry for namespaceId, seeded with initial and
// an empty history. historyDepth is clamped up to DefaultHistoryDepth if
// lower.
func NewRegistry(namespaceId string, initial flag.ConfigurationView, historyDepth int) *NamespaceRegistry {
	if historyDepth < DefaultHistoryDepth {
		historyDepth = DefaultHistoryDepth
	}
	r := &NamespaceRegistry{namespaceId: namespaceId, historyDepth: historyDepth}
	r.current.Store(&initial)
	empty := make(overrideMap)
	r.overrides.Store(&empty)
	h := hooks.Default()
	r.hooksRef.Store(&h)
	return r
}

// NamespaceId returns the namespace this registry owns.
func (r *NamespaceRegistry) NamespaceId() string { return r.namespaceId }

// State reports whether the registry is Live or AllDisabled.
func (r *NamespaceRegistry) State() State { return State(r.state.Load()) }

// DisableAll flips the registry to AllDisabled: every evaluation returns
// the feature default with decision RegistryDisabled until EnableAll.
func (r *NamespaceRegistry) DisableAll() { r.state.Store(int32(AllDisabled)) }

// EnableAll flips the registry back to Live.
func (r *NamespaceRegistry) EnableAll() { r.state.Store(int32(Live)) }

// View returns the currently installed ConfigurationView.
func (r *NamespaceRegistry) View() flag.ConfigurationView {
	return *r.current.Load()
}

// Flag returns the current FlagDefinition for feature, override-applied.
// Fails with ErrFlagNotFound if the feature is not declared in this
// namespace's current view.
func (r *NamespaceRegistry) Flag(id flag.FeatureId) (flag.FlagDefinition, error) {
	def, ok := r.FindFlag(id)
	if !ok {
		return flag.FlagDefinition{}, ErrFlagNotFound
	}
	return def, nil
}

// FindFlag is Flag without the error: an absent feature reports ok=false.
func (r *NamespaceRegistry) FindFlag(id flag.FeatureId) (flag.FlagDefinition, bool) {
	def, ok := r.View().Flag(id)
	if !ok {
		return flag.FlagDefinition{}, false
	}
	if override, has := r.overrideFor(id); has {
		return def.WithOverride(override), true
	}
	return def, true
}

func (r *NamespaceRegistry) overrideFor(id flag.FeatureId) (interface{}, bool) {
	m := *r.overrides.Load()
	v, ok := m[id]
	return v, ok
}

// SetOverride installs a per-feature override, copy-on-write over the
// override map. Overrides survive Load and are cleared only by
// ClearOverride.
func (r *NamespaceRegistry) SetOverride(id flag.FeatureId, value interface{}) {
	for {
		old := r.overrides.Load()
		next := make(overrideMap, len(*old)+1)
		for k, v := range *old {
			next[k] = v
		}
		next[id] = value
		if r.overrides.CompareAndSwap(old, &next) {
			return
		}
	}
}

// ClearOverride removes a per-feature override, if any.
func (r *NamespaceRegistry) ClearOverride(id flag.FeatureId) {
	for {
		old := r.overrides.Load()
		if _, has := (*old)[id]; !has {
			return
		}
		next := make(overrideMap, len(*old))
		for k, v := range *old {
			if k != id {
				next[k] = v
			}
		}
		if r.overrides.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Load atomically installs config as the current view, pushing the prior
// view onto the bounded history. Overrides are preserved across the swap.
func (r *NamespaceRegistry) Load(config flag.ConfigurationView) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prior := *r.current.Load()
	r.history = append(r.history, prior)
	if len(r.history) > r.historyDepth {
		r.history = r.history[len(r.history)-r.historyDepth:]
	}
	r.current.Store(&config)

	h := r.hooks()
	h.Metrics.RecordConfigLoad(hooks.LoadMetric{
		NamespaceId: r.namespaceId,
		FlagCount:   len(config.Flags),
		Version:     config.Metadata.Version,
		HasVersion:  config.Metadata.HasVersion,
	})
	h.Logger.Info(func() string {
		return fmt.Sprintf("namespace %q loaded config version %q (%d flags)", r.namespaceId, config.Metadata.Version, len(config.Flags))
	})
}

// Rollback pops k entries from history and swaps in the resulting view.
// Returns false without mutating anything if k exceeds the history depth.
func (r *NamespaceRegistry) Rollback(k int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if k <= 0 || k > len(r.history) {
		h := r.hooks()
		h.Metrics.RecordConfigRollback(hooks.RollbackMetric{NamespaceId: r.namespaceId, Steps: k, Succeeded: false})
		h.Logger.Warn(func() string {
			return fmt.Sprintf("namespace %q rollback by %d steps rejected: only %d entries in history", r.namespaceId, k, len(r.history))
		}, fmt.Errorf("registry: rollback depth %d exceeds history length %d", k, len(r.history)))
		return false
	}

	target := r.history[len(r.history)-k]
	r.history = r.history[:len(r.history)-k]
	r.current.Store(&target)

	h := r.hooks()
	h.Metrics.RecordConfigRollback(hooks.RollbackMetric{NamespaceId: r.namespaceId, Steps: k, Succeeded: true})
	h.Logger.Info(func() string {
		return fmt.Sprintf("namespace %q rolled back %d steps to config version %q", r.namespaceId, k, target.Metadata.Version)
	})
	return true
}

// History returns a snapshot of the current rollback history, oldest
// first.
func (r *NamespaceRegistry) History() []flag.ConfigurationView {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]flag.ConfigurationView, len(r.history))
	copy(out, r.history)
	return out
}

// SetHooks replaces the observability hook set by atomic reference swap.
func (r *NamespaceRegistry) SetHooks(h hooks.Set) {
	r.hooksRef.Store(&h)
}

// HooksSnapshot returns the hook set currently installed, read once at the
// start of an evaluation per the atomic-reference-swap design.
func (r *NamespaceRegistry) HooksSnapshot() hooks.Set {
	return r.hooks()
}

func (r *NamespaceRegistry) hooks() hooks.Set {
	return *r.hooksRef.Load()
}
