// Package fctx holds the polymorphic evaluation context: stable identity,
// locale, platform, app version, and an open set of axis tag values.
// Polymorphism is by capability — a targeting predicate that needs a
// locale simply does not match a context that carries none; there is no
// exception thrown for a capability mismatch.
package fctx

import (
	"github.com/flagforge/core/pkg/stableid"
	"github.com/flagforge/core/pkg/version"
)

// Locale is a locale handle, e.g. "en_US".
type Locale struct {
	ID string
}

// Platform is a platform handle, e.g. "ios", "android", "web".
type Platform struct {
	ID string
}

// Context is the record a host supplies per evaluation. Every field is
// optional; predicates over an absent field simply do not match.
type Context struct {
	stableID   *stableid.StableId
	locale     *Locale
	platform   *Platform
	appVersion *version.Version
	axisValues map[string]map[string]struct{}
}

// New builds an empty context; use the With* methods to populate it.
func New() Context {
	return Context{axisValues: make(map[string]map[string]struct{})}
}

// WithStableId returns a copy of c with the stable id set.
func (c Context) WithStableId(id stableid.StableId) Context {
	c2 := c.clone()
	c2.stableID = &id
	return c2
}

// WithLocale returns a copy of c with the locale set.
func (c Context) WithLocale(l Locale) Context {
	c2 := c.clone()
	c2.locale = &l
	return c2
}

// WithPlatform returns a copy of c with the platform set.
func (c Context) WithPlatform(p Platform) Context {
	c2 := c.clone()
	c2.platform = &p
	return c2
}

// WithAppVersion returns a copy of c with the app version set.
func (c Context) WithAppVersion(v version.Version) Context {
	c2 := c.clone()
	c2.appVersion = &v
	return c2
}

// WithAxisValues returns a copy of c with the given axis's tag set
// replaced (not merged).
func (c Context) WithAxisValues(axisID string, tags ...string) Context {
	c2 := c.clone()
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		set[tag] = struct{}{}
	}
	c2.axisValues[axisID] = set
	return c2
}

func (c Context) clone() Context {
	c2 := Context{
		stableID:   c.stableID,
		locale:     c.locale,
		platform:   c.platform,
		appVersion: c.appVersion,
		axisValues: make(map[string]map[string]struct{}, len(c.axisValues)),
	}
	for k, v := range c.axisValues {
		c2.axisValues[k] = v
	}
	return c2
}

// StableId returns the context's stable id and whether one was set.
func (c Context) StableId() (stableid.StableId, bool) {
	if c.stableID == nil {
		return stableid.StableId{}, false
	}
	return *c.stableID, true
}

// Locale returns the context's locale and whether one was set.
func (c Context) Locale() (Locale, bool) {
	if c.locale == nil {
		return Locale{}, false
	}
	return *c.locale, true
}

// Platform returns the context's platform and whether one was set.
func (c Context) Platform() (Platform, bool) {
	if c.platform == nil {
		return Platform{}, false
	}
	return *c.platform, true
}

// AppVersion returns the context's app version and whether one was set.
func (c Context) AppVersion() (version.Version, bool) {
	if c.appVersion == nil {
		return version.Version{}, false
	}
	return *c.appVersion, true
}

// AxisValues returns the tag set registered for axisID, and whether any
// was set at all (an empty-but-present set is distinguished from absent).
func (c Context) AxisValues(axisID string) (map[string]struct{}, bool) {
	set, ok := c.axisValues[axisID]
	return set, ok
}

// AxisIDs returns every axis id this context carries a tag set for.
func (c Context) AxisIDs() []string {
	ids := make([]string, 0, len(c.axisValues))
	for id := range c.axisValues {
		ids = append(ids, id)
	}
	return ids
}
