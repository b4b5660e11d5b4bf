package codec

import "encoding/json"

type wireSnapshot struct {
	NamespaceId            string     `json:"namespaceId"`
	Version                *string    `json:"version,omitempty"`
	GeneratedAtEpochMillis *int64     `json:"generatedAtEpochMillis,omitempty"`
	Source                 *string    `json:"source,omitempty"`
	Flags                  []wireFlag `json:"flags"`
}

type wireFeatureKey struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

type wireFlag struct {
	Key      wireFeatureKey  `json:"key"`
	IsActive bool            `json:"isActive"`
	Default  json.RawMessage `json:"default"`
	Rules    []wireRule      `json:"rules"`
}

type wireCustomPredicate struct {
	Name   string `json:"name"`
	Weight int    `json:"weight"`
}

type wireRule struct {
	Value            json.RawMessage       `json:"value"`
	RampUp           *float64              `json:"rampUp,omitempty"`
	RampUpAllowlist  []string              `json:"rampUpAllowlist,omitempty"`
	Locales          []string              `json:"locales,omitempty"`
	Platforms        []string              `json:"platforms,omitempty"`
	VersionRange     *wireVersionRange     `json:"versionRange,omitempty"`
	Axes             map[string][]string   `json:"axes,omitempty"`
	CustomPredicates []wireCustomPredicate `json:"customPredicates,omitempty"`
	Note             string                `json:"note,omitempty"`
}

type wireVersionRange struct {
	Type string  `json:"type"`
	Min  *string `json:"min,omitempty"`
	Max  *string `json:"max,omitempty"`
}
