// Package flag declares the namespace schema: typed features, their
// per-rule values, and the immutable configuration view a registry
// swaps in wholesale on every load.
package flag

import (
	"reflect"

	"github.com/flagforge/core/pkg/targeting"
)

// ValueKind enumerates the value types a Feature may declare.
type ValueKind int

const (
	KindBool ValueKind = iota
	// KindInt values are always represented as int64, both a host's
	// Feature.Default/RuleDefinition.Value and whatever codec.Load decodes
	// from a snapshot — the decoder never produces a plain int, so a host
	// comparing decoded values with reflect.DeepEqual must also supply
	// int64 to avoid a false mismatch against the native int default.
	KindInt
	KindDouble
	KindString
	KindEnum
	KindObject
)

func (k ValueKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindEnum:
		return "enum"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// FeatureId names a feature within a namespace.
type FeatureId struct {
	NamespaceId string
	Key         string
}

// Feature is a typed, stable identity for a flag — declared once in source
// and referenced by every snapshot that targets it.
type Feature struct {
	ID        FeatureId
	ValueKind ValueKind
	Default   interface{}
}

// RuleDefinition pairs a targeting rule with the value it produces on
// match.
type RuleDefinition struct {
	Rule  targeting.Rule
	Value interface{}
}

// FlagDefinition is a feature's default plus its ordered rule list, active
// flag, and optional pinned override.
type FlagDefinition struct {
	Feature  Feature
	Default  interface{}
	Rules    []RuleDefinition
	IsActive bool
	override *interface{}
}

// NewFlagDefinition builds an active FlagDefinition with no override.
func NewFlagDefinition(feature Feature, defaultValue interface{}, rules []RuleDefinition) FlagDefinition {
	return FlagDefinition{Feature: feature, Default: defaultValue, Rules: rules, IsActive: true}
}

// Override returns the pinned value, if any.
func (d FlagDefinition) Override() (interface{}, bool) {
	if d.override == nil {
		return nil, false
	}
	return *d.override, true
}

// WithOverride returns a copy of d with value pinned as its override.
func (d FlagDefinition) WithOverride(value interface{}) FlagDefinition {
	d2 := d
	d2.override = &value
	return d2
}

// WithoutOverride returns a copy of d with any override cleared.
func (d FlagDefinition) WithoutOverride() FlagDefinition {
	d2 := d
	d2.override = nil
	return d2
}

// WithActive returns a copy of d with IsActive set.
func (d FlagDefinition) WithActive(active bool) FlagDefinition {
	d2 := d
	d2.IsActive = active
	return d2
}

// Metadata is a snapshot's optional provenance information.
type Metadata struct {
	Version           string
	GeneratedAtMillis int64
	Source            string
	HasVersion        bool
	HasGeneratedAt    bool
	HasSource         bool
}

// ConfigurationView is an immutable snapshot of every flag in a namespace.
// It is never mutated after construction; a registry replaces it wholesale
// by atomic pointer swap.
type ConfigurationView struct {
	NamespaceId string
	Flags       map[FeatureId]FlagDefinition
	Metadata    Metadata
}

// NewConfigurationView builds a view from a flag map, copying it so the
// caller's map may be mutated afterwards without affecting the view.
func NewConfigurationView(namespaceId string, flags map[FeatureId]FlagDefinition, metadata Metadata) ConfigurationView {
	copied := make(map[FeatureId]FlagDefinition, len(flags))
	for k, v := range flags {
		copied[k] = v
	}
	return ConfigurationView{NamespaceId: namespaceId, Flags: copied, Metadata: metadata}
}

// Flag looks up a feature's definition within this view.
func (v ConfigurationView) Flag(id FeatureId) (FlagDefinition, bool) {
	d, ok := v.Flags[id]
	return d, ok
}

// Equal reports structural equality: same flags, same rules in the same
// order, same metadata (only compared when present on both sides).
func (v ConfigurationView) Equal(other ConfigurationView) bool {
	if v.NamespaceId != other.NamespaceId {
		return false
	}
	if len(v.Flags) != len(other.Flags) {
		return false
	}
	for id, def := range v.Flags {
		otherDef, ok := other.Flags[id]
		if !ok || !def.Equal(otherDef) {
			return false
		}
	}
	return v.Metadata.Equal(other.Metadata)
}

// Equal reports structural equality between two Metadata values.
func (m Metadata) Equal(other Metadata) bool {
	if m.HasVersion && other.HasVersion && m.Version != other.Version {
		return false
	}
	if m.HasGeneratedAt && other.HasGeneratedAt && m.GeneratedAtMillis != other.GeneratedAtMillis {
		return false
	}
	if m.HasSource && other.HasSource && m.Source != other.Source {
		return false
	}
	return true
}

// Equal reports structural equality between two FlagDefinitions.
func (d FlagDefinition) Equal(other FlagDefinition) bool {
	if d.Feature.ID != other.Feature.ID || d.Feature.ValueKind != other.Feature.ValueKind {
		return false
	}
	if !reflect.DeepEqual(d.Default, other.Default) {
		return false
	}
	if d.IsActive != other.IsActive {
		return false
	}
	dOverride, dHas := d.Override()
	oOverride, oHas := other.Override()
	if dHas != oHas || (dHas && !reflect.DeepEqual(dOverride, oOverride)) {
		return false
	}
	if len(d.Rules) != len(other.Rules) {
		return false
	}
	for i, rd := range d.Rules {
		od := other.Rules[i]
		if !reflect.DeepEqual(rd.Value, od.Value) {
			return false
		}
		if !rd.Rule.Equal(od.Rule) {
			return false
		}
	}
	return true
}
