package codec

import (
	"testing"

	"github.com/flagforge/core/pkg/bucketing"
	"github.com/flagforge/core/pkg/flag"
	"github.com/flagforge/core/pkg/targeting"
	"github.com/flagforge/core/pkg/version"
)

func namespaceFeatures() map[flag.FeatureId]flag.Feature {
	return map[flag.FeatureId]flag.Feature{
		{NamespaceId: "web", Key: "search.new_ranking"}: {
			ID: flag.FeatureId{NamespaceId: "web", Key: "search.new_ranking"}, ValueKind: flag.KindBool, Default: false,
		},
		{NamespaceId: "web", Key: "checkout.button_label"}: {
			ID: flag.FeatureId{NamespaceId: "web", Key: "checkout.button_label"}, ValueKind: flag.KindString, Default: "Buy now",
		},
		{NamespaceId: "web", Key: "checkout.theme"}: {
			ID: flag.FeatureId{NamespaceId: "web", Key: "checkout.theme"}, ValueKind: flag.KindEnum, Default: "LIGHT",
		},
	}
}

func sampleView(t *testing.T) flag.ConfigurationView {
	t.Helper()
	full, _ := bucketing.NewRampUp(100)
	rankingRule := targeting.NewRule(targeting.NewAll(targeting.NewLocale("en_US"), targeting.NewPlatform("ios")), full, nil, "ios rollout")

	flags := map[flag.FeatureId]flag.FlagDefinition{
		{NamespaceId: "web", Key: "search.new_ranking"}: flag.NewFlagDefinition(
			flag.Feature{ID: flag.FeatureId{NamespaceId: "web", Key: "search.new_ranking"}, ValueKind: flag.KindBool, Default: false},
			false,
			[]flag.RuleDefinition{{Rule: rankingRule, Value: true}},
		),
		{NamespaceId: "web", Key: "checkout.button_label"}: flag.NewFlagDefinition(
			flag.Feature{ID: flag.FeatureId{NamespaceId: "web", Key: "checkout.button_label"}, ValueKind: flag.KindString, Default: "Buy now"},
			"Buy now",
			nil,
		),
		{NamespaceId: "web", Key: "checkout.theme"}: flag.NewFlagDefinition(
			flag.Feature{ID: flag.FeatureId{NamespaceId: "web", Key: "checkout.theme"}, ValueKind: flag.KindEnum, Default: "LIGHT"},
			"LIGHT",
			nil,
		),
	}
	return flag.NewConfigurationView("web", flags, flag.Metadata{Version: "v1", HasVersion: true})
}

func TestRoundTripPreservesStructuralEquality(t *testing.T) {
	view := sampleView(t)
	encoded, err := Encode(view)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}

	schema := NewSchema(namespaceFeatures())
	decoded, err := Load("web", encoded, schema, LoadOptions{})
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}

	if !view.Equal(decoded) {
		t.Fatal("expected decode(encode(view)) to be structurally equal to view")
	}
}

func TestMutatingDecodedCopyDoesNotAffectOriginal(t *testing.T) {
	view := sampleView(t)
	encoded, err := Encode(view)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	schema := NewSchema(namespaceFeatures())
	decoded, err := Load("web", encoded, schema, LoadOptions{})
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}

	decoded.Flags[flag.FeatureId{NamespaceId: "web", Key: "search.new_ranking"}] = decoded.Flags[flag.FeatureId{NamespaceId: "web", Key: "search.new_ranking"}].WithActive(false)

	original, ok := view.Flag(flag.FeatureId{NamespaceId: "web", Key: "search.new_ranking"})
	if !ok || !original.IsActive {
		t.Fatal("mutating the decoded view's map must not affect the original")
	}
}

func TestNamespaceMismatchFails(t *testing.T) {
	view := sampleView(t)
	encoded, err := Encode(view)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	schema := NewSchema(namespaceFeatures())
	_, err = Load("mobile", encoded, schema, LoadOptions{})
	if err == nil {
		t.Fatal("expected namespace mismatch to fail the load")
	}
}

func TestUnknownKeyFailsByDefault(t *testing.T) {
	snapshot := []byte(`{
		"namespaceId": "web",
		"flags": [
			{"key": {"namespace":"web","name":"ghost.feature"}, "isActive": true, "default": false, "rules": []}
		]
	}`)
	schema := NewSchema(namespaceFeatures())
	_, err := Load("web", snapshot, schema, LoadOptions{UnknownKeyPolicy: Fail})
	if err == nil {
		t.Fatal("expected unknown feature key to fail under the default Fail policy")
	}
}

func TestUnknownKeySkippedEmitsOneWarningPerKey(t *testing.T) {
	snapshot := []byte(`{
		"namespaceId": "web",
		"flags": [
			{"key": {"namespace":"web","name":"ghost.feature"}, "isActive": true, "default": false, "rules": []},
			{"key": {"namespace":"web","name":"search.new_ranking"}, "isActive": true, "default": false, "rules": []}
		]
	}`)
	schema := NewSchema(namespaceFeatures())
	var captured []SnapshotWarning
	view, err := Load("web", snapshot, schema, LoadOptions{
		UnknownKeyPolicy: SkipUnknownKeys,
		OnWarning:        func(w []SnapshotWarning) { captured = w },
	})
	if err != nil {
		t.Fatalf("unexpected error under SkipUnknownKeys: %v", err)
	}
	if len(captured) != 1 {
		t.Fatalf("expected exactly one warning, got %d", len(captured))
	}
	if captured[0].FeatureKey != "ghost.feature" {
		t.Fatalf("expected warning for ghost.feature, got %q", captured[0].FeatureKey)
	}
	if _, ok := view.Flag(flag.FeatureId{NamespaceId: "web", Key: "search.new_ranking"}); !ok {
		t.Fatal("expected the known feature to still load")
	}
}

func TestBooleanFieldRejectsNonBooleanJSON(t *testing.T) {
	snapshot := []byte(`{
		"namespaceId": "web",
		"flags": [
			{"key": {"namespace":"web","name":"search.new_ranking"}, "isActive": true, "default": "not-a-bool", "rules": []}
		]
	}`)
	schema := NewSchema(namespaceFeatures())
	_, err := Load("web", snapshot, schema, LoadOptions{})
	if err == nil {
		t.Fatal("expected a string default for a bool feature to fail")
	}
}

// TestIntFeatureRoundTripsAsInt64 guards against KindInt decoding to a
// representation that would fail ConfigurationView.Equal's
// reflect.DeepEqual comparison: a host must supply int64 defaults/values
// for KindInt features, matching what Load always decodes.
func TestIntFeatureRoundTripsAsInt64(t *testing.T) {
	feature := flag.Feature{ID: flag.FeatureId{NamespaceId: "web", Key: "limits.max_items"}, ValueKind: flag.KindInt, Default: int64(10)}
	def := flag.NewFlagDefinition(feature, int64(10), nil)
	view := flag.NewConfigurationView("web", map[flag.FeatureId]flag.FlagDefinition{feature.ID: def}, flag.Metadata{})

	encoded, err := Encode(view)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	schema := NewSchema(map[flag.FeatureId]flag.Feature{feature.ID: feature})
	decoded, err := Load("web", encoded, schema, LoadOptions{})
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if !view.Equal(decoded) {
		t.Fatal("expected an int64-valued KindInt feature to round-trip structurally")
	}
}

func TestVersionRangeRoundTrip(t *testing.T) {
	full, _ := bucketing.NewRampUp(100)
	r := version.NewFullyBound(version.New(1, 2, 0), version.New(2, 0, 0))
	rule := targeting.NewRule(
		targeting.NewAll(targeting.NewVersionInRange(r)),
		full, nil, "",
	)
	feature := flag.Feature{ID: flag.FeatureId{NamespaceId: "web", Key: "search.new_ranking"}, ValueKind: flag.KindBool, Default: false}
	def := flag.NewFlagDefinition(feature, false, []flag.RuleDefinition{{Rule: rule, Value: true}})
	view := flag.NewConfigurationView("web", map[flag.FeatureId]flag.FlagDefinition{feature.ID: def}, flag.Metadata{})

	encoded, err := Encode(view)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	schema := NewSchema(map[flag.FeatureId]flag.Feature{feature.ID: feature})
	decoded, err := Load("web", encoded, schema, LoadOptions{})
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if !view.Equal(decoded) {
		t.Fatal("expected version range to round-trip structurally")
	}
}
