package codec

import (
	"fmt"
	"sort"

	"github.com/flagforge/core/pkg/ffcerr"
	"github.com/flagforge/core/pkg/stableid"
	"github.com/flagforge/core/pkg/targeting"
	"github.com/flagforge/core/pkg/version"
)

func decodeVersionRange(wire *wireVersionRange) (version.Range, error) {
	if wire == nil {
		return version.NewUnbounded(), nil
	}
	switch wire.Type {
	case "UNBOUNDED":
		return version.NewUnbounded(), nil
	case "LEFT_BOUND":
		if wire.Min == nil {
			return version.Range{}, ffcerr.New(ffcerr.ErrInvalidSnapshot, "LEFT_BOUND versionRange requires min")
		}
		min, err := version.Parse(*wire.Min)
		if err != nil {
			return version.Range{}, err
		}
		return version.NewLeftBound(min), nil
	case "RIGHT_BOUND":
		if wire.Max == nil {
			return version.Range{}, ffcerr.New(ffcerr.ErrInvalidSnapshot, "RIGHT_BOUND versionRange requires max")
		}
		max, err := version.Parse(*wire.Max)
		if err != nil {
			return version.Range{}, err
		}
		return version.NewRightBound(max), nil
	case "FULLY_BOUND":
		if wire.Min == nil || wire.Max == nil {
			return version.Range{}, ffcerr.New(ffcerr.ErrInvalidSnapshot, "FULLY_BOUND versionRange requires min and max")
		}
		min, err := version.Parse(*wire.Min)
		if err != nil {
			return version.Range{}, err
		}
		max, err := version.Parse(*wire.Max)
		if err != nil {
			return version.Range{}, err
		}
		return version.NewFullyBound(min, max), nil
	default:
		return version.Range{}, ffcerr.New(ffcerr.ErrInvalidSnapshot, fmt.Sprintf("unrecognized versionRange type %q", wire.Type))
	}
}

func encodeVersionRange(r version.Range) *wireVersionRange {
	switch r.Kind() {
	case version.Unbounded:
		return nil
	case version.LeftBound:
		min := r.Min().String()
		return &wireVersionRange{Type: "LEFT_BOUND", Min: &min}
	case version.RightBound:
		max := r.Max().String()
		return &wireVersionRange{Type: "RIGHT_BOUND", Max: &max}
	case version.FullyBound:
		min := r.Min().String()
		max := r.Max().String()
		return &wireVersionRange{Type: "FULLY_BOUND", Min: &min, Max: &max}
	default:
		return nil
	}
}

func decodeTargeting(wr wireRule, schema *Schema) (targeting.All, error) {
	var children []targeting.Predicate

	if len(wr.Locales) > 0 {
		children = append(children, targeting.NewLocale(wr.Locales...))
	}
	if len(wr.Platforms) > 0 {
		children = append(children, targeting.NewPlatform(wr.Platforms...))
	}
	vr, err := decodeVersionRange(wr.VersionRange)
	if err != nil {
		return targeting.All{}, err
	}
	if vr.HasBounds() {
		children = append(children, targeting.NewVersionInRange(vr))
	}
	axisIDs := make([]string, 0, len(wr.Axes))
	for axisID := range wr.Axes {
		axisIDs = append(axisIDs, axisID)
	}
	sort.Strings(axisIDs)
	for _, axisID := range axisIDs {
		children = append(children, targeting.NewAxis(axisID, wr.Axes[axisID]...))
	}
	for _, cp := range wr.CustomPredicates {
		if schema.CustomPredicates == nil {
			return targeting.All{}, ffcerr.New(ffcerr.ErrInvalidSnapshot, fmt.Sprintf("custom predicate %q referenced but no expression registry was supplied", cp.Name))
		}
		children = append(children, schema.CustomPredicates.Predicate(cp.Name, cp.Weight))
	}

	return targeting.NewAll(children...), nil
}

func decodeAllowlist(hexIds []string) (map[stableid.HexId]struct{}, error) {
	if len(hexIds) == 0 {
		return nil, nil
	}
	set := make(map[stableid.HexId]struct{}, len(hexIds))
	for _, raw := range hexIds {
		h, err := stableid.ParseHexId(raw)
		if err != nil {
			return nil, err
		}
		set[h] = struct{}{}
	}
	return set, nil
}

func encodeTargeting(all targeting.All) wireRule {
	var wr wireRule
	localeIDs := make(map[string]struct{})
	platformIDs := make(map[string]struct{})
	axes := make(map[string]map[string]struct{})
	var versionRange *version.Range

	for _, child := range all.Children {
		switch p := child.(type) {
		case targeting.Locale:
			for id := range p.IDs {
				localeIDs[id] = struct{}{}
			}
		case targeting.Platform:
			for id := range p.IDs {
				platformIDs[id] = struct{}{}
			}
		case targeting.VersionInRange:
			r := p.Range
			versionRange = &r
		case targeting.Axis:
			tags, ok := axes[p.AxisID]
			if !ok {
				tags = make(map[string]struct{})
				axes[p.AxisID] = tags
			}
			for tag := range p.Tags {
				tags[tag] = struct{}{}
			}
		case targeting.Custom:
			wr.CustomPredicates = append(wr.CustomPredicates, wireCustomPredicate{Name: p.Name, Weight: p.Weight})
		}
	}

	for id := range localeIDs {
		wr.Locales = append(wr.Locales, id)
	}
	sort.Strings(wr.Locales)
	for id := range platformIDs {
		wr.Platforms = append(wr.Platforms, id)
	}
	sort.Strings(wr.Platforms)
	if versionRange != nil {
		wr.VersionRange = encodeVersionRange(*versionRange)
	}
	if len(axes) > 0 {
		wr.Axes = make(map[string][]string, len(axes))
		for axisID, tags := range axes {
			for tag := range tags {
				wr.Axes[axisID] = append(wr.Axes[axisID], tag)
			}
			sort.Strings(wr.Axes[axisID])
		}
	}
	sort.Slice(wr.CustomPredicates, func(i, j int) bool { return wr.CustomPredicates[i].Name < wr.CustomPredicates[j].Name })
	return wr
}

func encodeAllowlist(set map[stableid.HexId]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id.String())
	}
	sort.Strings(out)
	return out
}
