// Package scheduler implements the agent scheduler: given a
// cycle count and a blackboard snapshot, it returns the de-duplicated set
// of agent roles that should run this cycle.
package scheduler

import (
	"errors"
	"math/rand/v2"

	"github.com/codeready-toolchain/dialectica/pkg/agentapi"
	"github.com/codeready-toolchain/dialectica/pkg/blackboard"
	"github.com/codeready-toolchain/dialectica/pkg/novelty"
	"github.com/codeready-toolchain/dialectica/pkg/trajectory"
)

// ErrInvalidCycle is returned for cycle_count == 0; the first cycle is
// numbered 1.
var ErrInvalidCycle = errors.New("scheduler: cycle_count must be >= 1")

// PerturberProbability is the independent draw probability for the
// Perturber role.
const PerturberProbability = 0.2

// StagnationWindow and StagnationThreshold parameterize the Cartographer
// condition.
const (
	StagnationWindow    = 10
	StagnationThreshold = 0.01
	CartographerMinCycle = 5
	GraveKeeperSupportCeiling = 0.4
)

// TrajectoryVectors extracts the embedding vectors from a session's
// trajectory points, newest-last, for use by stagnation analysis.
func TrajectoryVectors(points []trajectory.Point) [][]float64 {
	out := make([][]float64, len(points))
	for i, p := range points {
		out[i] = p.EmbeddingVector
	}
	return out
}

// Source supplies the randomness the scheduler needs for the Perturber
// draw. Accepting an interface (rather than calling math/rand/v2 package
// functions directly) keeps scheduling reproducible in tests.
type Source interface {
	Float64() float64
}

// defaultSource draws from the top-level math/rand/v2 generator.
type defaultSource struct{}

func (defaultSource) Float64() float64 { return rand.Float64() }

// DefaultSource is the scheduler's randomness source when none is supplied.
var DefaultSource Source = defaultSource{}

// Schedule computes the agent roles to dispatch this cycle.
// trajectoryPoints is the session's trajectory so far (possibly nil); rng
// may be nil to use DefaultSource.
func Schedule(cycleCount int, snap blackboard.Snapshot, trajectoryPoints []trajectory.Point, rng Source) ([]agentapi.Role, error) {
	if cycleCount == 0 {
		return nil, ErrInvalidCycle
	}
	if rng == nil {
		rng = DefaultSource
	}

	roles := make(map[agentapi.Role]struct{})
	add := func(rs ...agentapi.Role) {
		for _, r := range rs {
			roles[r] = struct{}{}
		}
	}

	// Base schedule: every independently-evaluated rule.
	add(agentapi.RoleExplorer, agentapi.RoleCritic)
	if cycleCount%3 == 0 {
		add(agentapi.RoleConnector, agentapi.RoleSteelman, agentapi.RoleOperationalizer, agentapi.RoleQuantifier)
	}
	if cycleCount%5 == 0 {
		add(agentapi.RoleReducer, agentapi.RoleBoundaryHunter, agentapi.RoleTranslator, agentapi.RoleHistorian)
	}

	// Conditional additions.
	if snap.SupportStrength < GraveKeeperSupportCeiling {
		add(agentapi.RoleGraveKeeper)
	}

	if cycleCount >= CartographerMinCycle && len(trajectoryPoints) > 0 {
		window := trajectoryPoints
		if len(window) > StagnationWindow {
			window = window[len(window)-StagnationWindow:]
		}
		result := novelty.Stagnation(TrajectoryVectors(window), StagnationThreshold)
		if result.IsStagnant {
			add(agentapi.RoleCartographer)
		}
	}

	if rng.Float64() < PerturberProbability {
		add(agentapi.RolePerturber)
	}

	out := make([]agentapi.Role, 0, len(roles))
	for _, r := range agentapi.AllRoles {
		if _, ok := roles[r]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}
