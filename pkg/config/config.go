package config

// CycleMode selects the session's scheduling discipline.
type CycleMode string

const (
	CycleModeTimeBased   CycleMode = "time_based"
	CycleModeEventDriven CycleMode = "event_driven"
)

// DefaultModelPool is the preset pool of opaque model identifiers used when
// a session does not override model_pool.
var DefaultModelPool = []string{
	"claude-opus", "claude-sonnet", "claude-haiku",
	"gpt-5", "gpt-5-mini", "gemini-pro", "gemini-flash",
}

// SessionConfig is the full, resolved set of recognized session-creation
// options after defaults have been applied.
type SessionConfig struct {
	SeedClaim           string
	MaxCycles           int
	CycleMode           CycleMode
	CycleTimeoutMS      int
	CycleDurationMS     int
	ModelPool           []string
	NoveltyBonusEnabled bool
	DecayRate           float64
	CostLimitUSD        *float64
	AgentOverrides      map[string]any
}

// Defaults returns a SessionConfig populated with every documented
// default. SeedClaim is left blank — it has no default, it's required.
func Defaults() SessionConfig {
	pool := make([]string, len(DefaultModelPool))
	copy(pool, DefaultModelPool)
	return SessionConfig{
		MaxCycles:           50,
		CycleMode:           CycleModeEventDriven,
		CycleTimeoutMS:      300_000,
		CycleDurationMS:     300_000,
		ModelPool:           pool,
		NoveltyBonusEnabled: true,
		DecayRate:           0.02,
	}
}

// Input is the wire shape of a session configuration document (YAML/JSON):
// every field is a pointer (or nil slice/map) so the loader can distinguish
// "not specified, use the default" from an explicit zero value.
type Input struct {
	SeedClaim           *string        `yaml:"seed_claim" json:"seed_claim"`
	MaxCycles           *int           `yaml:"max_cycles" json:"max_cycles"`
	CycleMode           *string        `yaml:"cycle_mode" json:"cycle_mode"`
	CycleTimeoutMS      *int           `yaml:"cycle_timeout_ms" json:"cycle_timeout_ms"`
	CycleDurationMS     *int           `yaml:"cycle_duration_ms" json:"cycle_duration_ms"`
	ModelPool           []string       `yaml:"model_pool" json:"model_pool"`
	NoveltyBonusEnabled *bool          `yaml:"novelty_bonus_enabled" json:"novelty_bonus_enabled"`
	DecayRate           *float64       `yaml:"decay_rate" json:"decay_rate"`
	CostLimitUSD        *float64       `yaml:"cost_limit_usd" json:"cost_limit_usd"`
	AgentOverrides      map[string]any `yaml:"agent_overrides" json:"agent_overrides"`
}

// Resolve merges in onto Defaults(), returning the fully-populated
// SessionConfig the rest of the system operates on.
func Resolve(in Input) SessionConfig {
	cfg := Defaults()
	if in.SeedClaim != nil {
		cfg.SeedClaim = *in.SeedClaim
	}
	if in.MaxCycles != nil {
		cfg.MaxCycles = *in.MaxCycles
	}
	if in.CycleMode != nil {
		cfg.CycleMode = CycleMode(*in.CycleMode)
	}
	if in.CycleTimeoutMS != nil {
		cfg.CycleTimeoutMS = *in.CycleTimeoutMS
	}
	if in.CycleDurationMS != nil {
		cfg.CycleDurationMS = *in.CycleDurationMS
	}
	if len(in.ModelPool) > 0 {
		cfg.ModelPool = in.ModelPool
	}
	if in.NoveltyBonusEnabled != nil {
		cfg.NoveltyBonusEnabled = *in.NoveltyBonusEnabled
	}
	if in.DecayRate != nil {
		cfg.DecayRate = *in.DecayRate
	}
	if in.CostLimitUSD != nil {
		cfg.CostLimitUSD = in.CostLimitUSD
	}
	if in.AgentOverrides != nil {
		cfg.AgentOverrides = in.AgentOverrides
	}
	return cfg
}
