package config

import (
	"fmt"
	"strings"
)

// Validator checks a resolved SessionConfig against its option
// table. Unlike the fail-fast ValidateAll this package's predecessor used
// for agent/chain/MCP/LLM registries, Validate accumulates every violation
// before returning, reporting all violations as a list of human-readable
// strings at session creation — a caller fixing
// one typo at a time against a fail-fast validator would need one
// round-trip per mistake.
type Validator struct {
	cfg SessionConfig
}

// NewValidator builds a Validator for cfg.
func NewValidator(cfg SessionConfig) *Validator {
	return &Validator{cfg: cfg}
}

// Validate returns every violation found, or nil if cfg is valid. On
// failure the returned error is a *ValidationErrors wrapping
// ErrValidationFailed.
func (v *Validator) Validate() error {
	var messages []string
	add := func(format string, args ...any) {
		messages = append(messages, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(v.cfg.SeedClaim) == "" {
		add("seed_claim must be non-empty")
	}
	if v.cfg.MaxCycles <= 0 {
		add("max_cycles must be a positive int, got %d", v.cfg.MaxCycles)
	}
	if v.cfg.CycleMode != CycleModeTimeBased && v.cfg.CycleMode != CycleModeEventDriven {
		add("cycle_mode must be 'time_based' or 'event_driven', got %q", v.cfg.CycleMode)
	}
	if v.cfg.CycleTimeoutMS <= 0 {
		add("cycle_timeout_ms must be a positive int, got %d", v.cfg.CycleTimeoutMS)
	}
	if v.cfg.CycleDurationMS <= 0 {
		add("cycle_duration_ms must be a positive int, got %d", v.cfg.CycleDurationMS)
	}
	if len(v.cfg.ModelPool) == 0 {
		add("model_pool must be a non-empty list")
	} else {
		for i, m := range v.cfg.ModelPool {
			if strings.TrimSpace(m) == "" {
				add("model_pool[%d] must be non-empty", i)
			}
		}
	}
	if v.cfg.DecayRate <= 0 {
		add("decay_rate must be a positive real, got %v", v.cfg.DecayRate)
	}
	if v.cfg.CostLimitUSD != nil && *v.cfg.CostLimitUSD <= 0 {
		add("cost_limit_usd must be a positive real when set, got %v", *v.cfg.CostLimitUSD)
	}

	if len(messages) == 0 {
		return nil
	}
	return &ValidationErrors{Messages: messages}
}
