// Package agentapi defines the contract between the cycle engine and the
// agent implementations it dispatches. Agents themselves — the language
// model calls that actually produce proposals — are external collaborators;
// this package only fixes their *shape*.
package agentapi

import (
	"context"

	"github.com/codeready-toolchain/dialectica/pkg/blackboard"
)

// Role identifies one of the closed set of agent variants the scheduler can
// select and the arbiter knows how to interpret.
type Role string

const (
	RoleExplorer         Role = "explorer"
	RoleCritic           Role = "critic"
	RoleConnector        Role = "connector"
	RoleSteelman         Role = "steelman"
	RoleOperationalizer  Role = "operationalizer"
	RoleQuantifier       Role = "quantifier"
	RoleReducer          Role = "reducer"
	RoleBoundaryHunter   Role = "boundary_hunter"
	RoleTranslator       Role = "translator"
	RoleHistorian        Role = "historian"
	RoleGraveKeeper      Role = "gravekeeper"
	RoleCartographer     Role = "cartographer"
	RolePerturber        Role = "perturber"
)

// AllRoles lists every known role, in a stable order used for deterministic
// iteration (e.g. scheduler test fixtures and dispatch ordering tie-breaks
// when no randomness is involved).
var AllRoles = []Role{
	RoleExplorer, RoleCritic, RoleConnector, RoleSteelman, RoleOperationalizer,
	RoleQuantifier, RoleReducer, RoleBoundaryHunter, RoleTranslator,
	RoleHistorian, RoleGraveKeeper, RoleCartographer, RolePerturber,
}

// TransitionalPrefixes are the hedging/conclusion-indicator prefixes that
// must be stripped from an Explorer's new_claim before acceptance, and
// that mark a Critic's target_premise as a conclusion indicator. Matching
// is case-insensitive on the leading words.
var TransitionalPrefixes = []string{
	"Therefore",
	"Thus",
	"Consequently",
	"Hence",
	"So",
	"It follows that",
	"As a result",
}

// ExplorerOutput is the Explorer's proposal payload.
type ExplorerOutput struct {
	NewClaim string `json:"new_claim"`
}

// CriticOutput is the Critic's proposal payload.
type CriticOutput struct {
	Objection      string `json:"objection"`
	TargetPremise  string `json:"target_premise"`
}

// ConnectorOutput is the Connector's proposal payload. Valid is set false by
// the Connector itself when it judges its own analogy vague — the
// vagueness rule lives upstream of the arbiter, which only honors the flag.
type ConnectorOutput struct {
	Analogy            string `json:"analogy"`
	SourceDomain       string `json:"source_domain"`
	MappingExplanation string `json:"mapping_explanation"`
	Valid              bool   `json:"valid"`
}

// GenericOutput covers every role whose payload is "opaque content plus a
// validity marker": Steelman, Operationalizer, Quantifier, Reducer,
// BoundaryHunter, Translator, Historian, GraveKeeper, Cartographer,
// Perturber. The core never inspects Content; only Valid participates in
// arbitration.
type GenericOutput struct {
	Valid   bool           `json:"valid"`
	Content map[string]any `json:"content,omitempty"`
}

// Proposal is an agent's raw output before arbitration, carried from the
// Dispatcher into the Arbiter.
type Proposal struct {
	Role            Role
	ModelUsed       string
	Output          any // one of *ExplorerOutput, *CriticOutput, *ConnectorOutput, *GenericOutput
	ConfidenceDelta float64
	CostUSD         float64
}

// Func is the shape every agent implementation must satisfy: given a
// read-only snapshot, produce a Proposal or fail. The context carries the
// cycle's single deadline; implementations must select on
// ctx.Done() for any blocking I/O.
type Func func(ctx context.Context, snapshot blackboard.Snapshot) (Proposal, error)
