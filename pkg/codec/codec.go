// Package codec implements the bidirectional JSON snapshot codec: parsing
// untrusted JSON into a validated flag.ConfigurationView, and serializing
// one back out in the same flat wire form (see Encode for which targeting
// trees that form can carry).
package codec

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/flagforge/core/pkg/bucketing"
	"github.com/flagforge/core/pkg/ffcerr"
	"github.com/flagforge/core/pkg/flag"
	"github.com/flagforge/core/pkg/targeting"
)

// UnknownKeyPolicy controls how Load reacts to a snapshot flag key that is
// not declared in the loading Schema.
type UnknownKeyPolicy int

const (
	// Fail aborts the entire load with InvalidSnapshot.
	Fail UnknownKeyPolicy = iota
	// SkipUnknownKeys drops the unrecognized flag and continues, batching
	// one SnapshotWarning per skipped key.
	SkipUnknownKeys
)

// SnapshotWarning is emitted once per flag key skipped under
// SkipUnknownKeys. Every warning from one Load call carries the same
// RequestId.
type SnapshotWarning struct {
	FeatureKey string
	Message    string
	RequestId  uuid.UUID
}

// LoadOptions configures a Load call.
type LoadOptions struct {
	UnknownKeyPolicy UnknownKeyPolicy
	OnWarning        func([]SnapshotWarning)
}

// Load parses data as a snapshot for namespaceId against schema, producing
// a validated ConfigurationView. Every parse failure is a *ffcerr.ParseError;
// a failed load never leaves a partially-built view behind.
func Load(namespaceId string, data []byte, schema *Schema, opts LoadOptions) (flag.ConfigurationView, error) {
	var wire wireSnapshot
	if err := json.Unmarshal(data, &wire); err != nil {
		return flag.ConfigurationView{}, ffcerr.Wrap(ffcerr.ErrInvalidJSON, "malformed snapshot JSON", err)
	}
	if wire.NamespaceId != namespaceId {
		return flag.ConfigurationView{}, ffcerr.New(ffcerr.ErrInvalidSnapshot,
			fmt.Sprintf("namespace mismatch: snapshot declares %q, loader is %q", wire.NamespaceId, namespaceId))
	}

	flags := make(map[flag.FeatureId]flag.FlagDefinition, len(wire.Flags))
	var warnings []SnapshotWarning
	requestId := uuid.New()

	for _, wf := range wire.Flags {
		featureId := flag.FeatureId{NamespaceId: wf.Key.Namespace, Key: wf.Key.Name}
		feature, known := schema.Feature(featureId)
		if !known {
			if opts.UnknownKeyPolicy == SkipUnknownKeys {
				warnings = append(warnings, SnapshotWarning{
					FeatureKey: featureId.Key,
					Message:    fmt.Sprintf("unknown feature key %q, skipped", featureId.Key),
					RequestId:  requestId,
				})
				continue
			}
			return flag.ConfigurationView{}, ffcerr.New(ffcerr.ErrInvalidSnapshot, fmt.Sprintf("unknown feature key %q", featureId.Key))
		}

		def, err := decodeFlag(feature, wf, schema)
		if err != nil {
			return flag.ConfigurationView{}, err
		}
		flags[featureId] = def
	}

	metadata := flag.Metadata{}
	if wire.Version != nil {
		metadata.Version = *wire.Version
		metadata.HasVersion = true
	}
	if wire.GeneratedAtEpochMillis != nil {
		metadata.GeneratedAtMillis = *wire.GeneratedAtEpochMillis
		metadata.HasGeneratedAt = true
	}
	if wire.Source != nil {
		metadata.Source = *wire.Source
		metadata.HasSource = true
	}

	if len(warnings) > 0 && opts.OnWarning != nil {
		opts.OnWarning(warnings)
	}

	return flag.NewConfigurationView(namespaceId, flags, metadata), nil
}

func decodeFlag(feature flag.Feature, wf wireFlag, schema *Schema) (flag.FlagDefinition, error) {
	defaultValue, err := decodeTypedValue(feature.ValueKind, wf.Default, feature.ID.Key, schema)
	if err != nil {
		return flag.FlagDefinition{}, err
	}

	rules := make([]flag.RuleDefinition, 0, len(wf.Rules))
	for _, wr := range wf.Rules {
		value, err := decodeTypedValue(feature.ValueKind, wr.Value, feature.ID.Key, schema)
		if err != nil {
			return flag.FlagDefinition{}, err
		}
		targetingTree, err := decodeTargeting(wr, schema)
		if err != nil {
			return flag.FlagDefinition{}, err
		}
		allowlist, err := decodeAllowlist(wr.RampUpAllowlist)
		if err != nil {
			return flag.FlagDefinition{}, err
		}
		rampUp := bucketing.Full
		if wr.RampUp != nil {
			rampUp, err = bucketing.NewRampUp(*wr.RampUp)
			if err != nil {
				return flag.FlagDefinition{}, err
			}
		}
		rule := targeting.Rule{Targeting: targetingTree, RampUp: rampUp, Note: wr.Note}
		if len(allowlist) > 0 {
			rule.Allowlist = allowlist
		}
		rules = append(rules, flag.RuleDefinition{Rule: rule, Value: value})
	}

	def := flag.NewFlagDefinition(feature, defaultValue, rules)
	return def.WithActive(wf.IsActive), nil
}

// Encode serializes view. Flags are emitted in namespace/key-sorted order
// so repeated encodes of an unchanged view are byte-for-byte stable.
//
// Only a rule's top-level Locale, Platform, VersionInRange, Axis and Custom
// leaves are written: nested All/Any composites and a VersionInRange over
// an unbounded range are not encoded, and leaves of the same kind (per axis
// id, for Axis) are merged into one. Views whose targeting trees have the
// flat shape Load produces round-trip structurally; other trees do not.
func Encode(view flag.ConfigurationView) ([]byte, error) {
	wire := wireSnapshot{NamespaceId: view.NamespaceId}
	if view.Metadata.HasVersion {
		v := view.Metadata.Version
		wire.Version = &v
	}
	if view.Metadata.HasGeneratedAt {
		g := view.Metadata.GeneratedAtMillis
		wire.GeneratedAtEpochMillis = &g
	}
	if view.Metadata.HasSource {
		s := view.Metadata.Source
		wire.Source = &s
	}

	ids := make([]flag.FeatureId, 0, len(view.Flags))
	for id := range view.Flags {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].NamespaceId != ids[j].NamespaceId {
			return ids[i].NamespaceId < ids[j].NamespaceId
		}
		return ids[i].Key < ids[j].Key
	})

	for _, id := range ids {
		def := view.Flags[id]
		wf, err := encodeFlag(id, def)
		if err != nil {
			return nil, err
		}
		wire.Flags = append(wire.Flags, wf)
	}

	out, err := json.Marshal(wire)
	if err != nil {
		return nil, ffcerr.Wrap(ffcerr.ErrInvalidSnapshot, "failed to encode snapshot", err)
	}
	return out, nil
}

func encodeFlag(id flag.FeatureId, def flag.FlagDefinition) (wireFlag, error) {
	defaultRaw, err := encodeTypedValue(def.Feature.ValueKind, def.Default)
	if err != nil {
		return wireFlag{}, err
	}

	wf := wireFlag{
		Key:      wireFeatureKey{Namespace: id.NamespaceId, Name: id.Key},
		IsActive: def.IsActive,
		Default:  defaultRaw,
	}

	for _, rd := range def.Rules {
		valueRaw, err := encodeTypedValue(def.Feature.ValueKind, rd.Value)
		if err != nil {
			return wireFlag{}, err
		}
		wr := encodeTargeting(rd.Rule.Targeting)
		wr.Value = valueRaw
		wr.Note = rd.Rule.Note
		rampUp := rd.Rule.RampUp.Value()
		wr.RampUp = &rampUp
		wr.RampUpAllowlist = encodeAllowlist(rd.Rule.Allowlist)
		wf.Rules = append(wf.Rules, wr)
	}

	return wf, nil
}
