package fctx

import (
	"testing"

	"github.com/flagforge/core/pkg/stableid"
	"github.com/flagforge/core/pkg/version"
)

func TestContextAbsentFieldsDoNotPanic(t *testing.T) {
	c := New()
	if _, ok := c.StableId(); ok {
		t.Fatal("expected no stable id on empty context")
	}
	if _, ok := c.Locale(); ok {
		t.Fatal("expected no locale on empty context")
	}
	if _, ok := c.Platform(); ok {
		t.Fatal("expected no platform on empty context")
	}
	if _, ok := c.AppVersion(); ok {
		t.Fatal("expected no app version on empty context")
	}
	if _, ok := c.AxisValues("beta"); ok {
		t.Fatal("expected no axis values on empty context")
	}
}

func TestContextImmutableBuilders(t *testing.T) {
	base := New()
	id, _ := stableid.NewStableId("u1")
	withID := base.WithStableId(id)

	if _, ok := base.StableId(); ok {
		t.Fatal("base context must remain unmodified")
	}
	got, ok := withID.StableId()
	if !ok || got.Raw() != "u1" {
		t.Fatal("expected derived context to carry the stable id")
	}

	withLocale := withID.WithLocale(Locale{ID: "en_US"})
	if _, ok := withID.Locale(); ok {
		t.Fatal("intermediate context must not see later mutation")
	}
	loc, ok := withLocale.Locale()
	if !ok || loc.ID != "en_US" {
		t.Fatal("expected locale to be set on the new context")
	}
	// stable id should still be carried forward
	if id2, ok := withLocale.StableId(); !ok || id2.Raw() != "u1" {
		t.Fatal("expected stable id to survive WithLocale")
	}
}

func TestContextAxisValues(t *testing.T) {
	c := New().WithAxisValues("cohort", "beta", "internal")
	set, ok := c.AxisValues("cohort")
	if !ok {
		t.Fatal("expected cohort axis to be present")
	}
	if _, has := set["beta"]; !has {
		t.Fatal("expected beta tag in set")
	}
	if _, has := set["missing"]; has {
		t.Fatal("unexpected tag in set")
	}
}

func TestContextAppVersion(t *testing.T) {
	v := version.New(1, 2, 3)
	c := New().WithAppVersion(v)
	got, ok := c.AppVersion()
	if !ok || !got.Equal(v) {
		t.Fatal("expected app version to round trip")
	}
}

func TestCatalogRegistration(t *testing.T) {
	cat := NewCatalog()
	if err := cat.Register("cohort", ValueTypeString); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// idempotent re-registration with the same type
	if err := cat.Register("cohort", ValueTypeString); err != nil {
		t.Fatalf("expected idempotent re-registration, got error: %v", err)
	}
	// conflicting registration is fatal
	if err := cat.Register("cohort", ValueTypeInt); err == nil {
		t.Fatal("expected conflicting registration to fail")
	}
	axis, ok := cat.Lookup("cohort")
	if !ok || axis.ValueType != ValueTypeString {
		t.Fatal("expected cohort axis to remain string-typed")
	}
	if _, ok := cat.Lookup("unknown"); ok {
		t.Fatal("expected unknown axis to be absent")
	}
}
