package flag

import (
	"testing"

	"github.com/flagforge/core/pkg/bucketing"
	"github.com/flagforge/core/pkg/targeting"
)

func sampleFeature() Feature {
	return Feature{ID: FeatureId{NamespaceId: "web", Key: "search.new_ranking"}, ValueKind: KindBool, Default: false}
}

func sampleRule(note string) targeting.Rule {
	full, _ := bucketing.NewRampUp(100)
	return targeting.NewRule(targeting.NewAll(targeting.NewLocale("en_US")), full, nil, note)
}

func TestFlagDefinitionOverridePrecedence(t *testing.T) {
	def := NewFlagDefinition(sampleFeature(), false, nil)
	if _, ok := def.Override(); ok {
		t.Fatal("fresh definition should have no override")
	}
	withOverride := def.WithOverride(true)
	v, ok := withOverride.Override()
	if !ok || v != true {
		t.Fatal("expected override to be set to true")
	}
	cleared := withOverride.WithoutOverride()
	if _, ok := cleared.Override(); ok {
		t.Fatal("expected override to be cleared")
	}
}

func TestFlagDefinitionEqualityRoundTrip(t *testing.T) {
	feature := sampleFeature()
	rules := []RuleDefinition{{Rule: sampleRule("r1"), Value: true}}
	a := NewFlagDefinition(feature, false, rules)
	b := NewFlagDefinition(feature, false, rules)
	if !a.Equal(b) {
		t.Fatal("expected structurally identical definitions to be equal")
	}
	if !a.WithActive(false).Equal(a.WithActive(false)) {
		t.Fatal("expected inactive copies to compare equal")
	}
	if a.WithActive(false).Equal(a) {
		t.Fatal("expected active/inactive definitions to differ")
	}
}

func TestConfigurationViewEqualityAndIsolation(t *testing.T) {
	feature := sampleFeature()
	rules := []RuleDefinition{{Rule: sampleRule("r1"), Value: true}}
	def := NewFlagDefinition(feature, false, rules)

	flags := map[FeatureId]FlagDefinition{feature.ID: def}
	view := NewConfigurationView("web", flags, Metadata{Version: "v1", HasVersion: true})

	flags[feature.ID] = def.WithActive(false)
	stillActive, ok := view.Flag(feature.ID)
	if !ok || !stillActive.IsActive {
		t.Fatal("mutating the caller's map after construction must not affect the view")
	}

	otherView := NewConfigurationView("web", map[FeatureId]FlagDefinition{feature.ID: def}, Metadata{Version: "v1", HasVersion: true})
	if !view.Equal(otherView) {
		t.Fatal("expected two views built from equal flag sets to compare equal")
	}
}

func TestMetadataEqualityIgnoresAbsentFields(t *testing.T) {
	a := Metadata{}
	b := Metadata{Version: "ignored-because-absent"}
	if !a.Equal(b) {
		t.Fatal("absent metadata fields should not participate in equality")
	}
	c := Metadata{Version: "v1", HasVersion: true}
	d := Metadata{Version: "v2", HasVersion: true}
	if c.Equal(d) {
		t.Fatal("present, differing metadata fields must break equality")
	}
}
