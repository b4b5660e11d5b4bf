// Package engineconfig resolves process-wide evaluation tunables from
// environment variables and an optional YAML file, mirroring the
// platform's own viper-based config loader but scoped to the handful of
// knobs a library, rather than a service, actually needs. No snapshot
// data is ever sourced here — snapshots stay host-owned and reach the
// engine through pkg/codec.
package engineconfig

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/flagforge/core/pkg/codec"
	"github.com/flagforge/core/pkg/evaluator"
	"github.com/flagforge/core/pkg/flag"
	"github.com/flagforge/core/pkg/registry"
)

// Config is the engine's process-wide tunable set.
type Config struct {
	// HistoryDepth is how many prior ConfigurationViews a NamespaceRegistry
	// retains for Rollback. Values below registry.DefaultHistoryDepth are
	// raised to it by registry.NewRegistry.
	HistoryDepth int `mapstructure:"history_depth"`

	// UnknownKeyPolicy names the codec.UnknownKeyPolicy ("fail" or "skip")
	// that ResolvedUnknownKeyPolicy returns for a host to put on its
	// codec.LoadOptions. codec.Load does not read this field itself.
	UnknownKeyPolicy string `mapstructure:"unknown_key_policy"`

	// CustomPredicatePanicsFatal, when true, tells NewEvaluator's Evaluator
	// to log a recovered targeting.Custom panic at Error instead of Warn.
	// The engine itself always recovers the panic either way — this flag
	// only governs which level a host's Logger receives the call at.
	CustomPredicatePanicsFatal bool `mapstructure:"custom_predicate_panics_fatal"`
}

// NewRegistry builds a registry.NamespaceRegistry seeded with initial,
// passing HistoryDepth through (subject to the registry's
// DefaultHistoryDepth floor).
func (c Config) NewRegistry(namespaceId string, initial flag.ConfigurationView) *registry.NamespaceRegistry {
	return registry.NewRegistry(namespaceId, initial, c.HistoryDepth)
}

// NewEvaluator builds an evaluator.Evaluator bound to reg, honoring
// CustomPredicatePanicsFatal.
func (c Config) NewEvaluator(reg *registry.NamespaceRegistry) *evaluator.Evaluator {
	return evaluator.New(reg, c.CustomPredicatePanicsFatal)
}

// ResolvedUnknownKeyPolicy parses UnknownKeyPolicy ("fail" or "skip") into
// a codec.UnknownKeyPolicy. Any other value (including empty) resolves to
// codec.Fail, the conservative default.
func (c Config) ResolvedUnknownKeyPolicy() codec.UnknownKeyPolicy {
	if strings.EqualFold(c.UnknownKeyPolicy, "skip") {
		return codec.SkipUnknownKeys
	}
	return codec.Fail
}

// Load resolves a Config from environment variables (prefix FLAGCORE_,
// with "." replaced by "_") and an optional config.yaml in the current
// directory or ./config, falling back to defaults when neither is set.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FLAGCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read engine config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal engine config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("history_depth", 8)
	v.SetDefault("unknown_key_policy", "fail")
	v.SetDefault("custom_predicate_panics_fatal", false)
}

// Validate rejects configurations that would leave the registry or codec
// in an unusable state.
func (c Config) Validate() error {
	if c.HistoryDepth < 1 {
		return fmt.Errorf("history_depth must be at least 1, got %d", c.HistoryDepth)
	}
	switch strings.ToLower(c.UnknownKeyPolicy) {
	case "fail", "skip":
	default:
		return fmt.Errorf("unknown_key_policy must be %q or %q, got %q", "fail", "skip", c.UnknownKeyPolicy)
	}
	return nil
}
