package arbiter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/dialectica/pkg/agentapi"
	"github.com/codeready-toolchain/dialectica/pkg/blackboard"
	"github.com/codeready-toolchain/dialectica/pkg/dispatcher"
)

func ok(role agentapi.Role, output any, delta float64) dispatcher.AgentResult {
	return dispatcher.AgentResult{
		Role: role,
		Kind: dispatcher.KindOK,
		Proposal: agentapi.Proposal{
			Role:            role,
			Output:          output,
			ConfidenceDelta: delta,
		},
	}
}

func TestArbitrateDropsNonOKResults(t *testing.T) {
	results := []dispatcher.AgentResult{
		{Role: agentapi.RoleExplorer, Kind: dispatcher.KindTimeout},
		{Role: agentapi.RoleCritic, Kind: dispatcher.KindCrashed},
	}
	accepted := Arbitrate(results, blackboard.Snapshot{})
	assert.Empty(t, accepted)
}

func TestArbitrateDropsInvalidGenericOutput(t *testing.T) {
	results := []dispatcher.AgentResult{
		ok(agentapi.RoleSteelman, &agentapi.GenericOutput{Valid: false}, 0.1),
	}
	accepted := Arbitrate(results, blackboard.Snapshot{})
	assert.Empty(t, accepted)
}

func TestArbitrateAcceptsValidGenericOutput(t *testing.T) {
	results := []dispatcher.AgentResult{
		ok(agentapi.RoleSteelman, &agentapi.GenericOutput{Valid: true}, 0.1),
	}
	accepted := Arbitrate(results, blackboard.Snapshot{})
	require.Len(t, accepted, 1)
	assert.Equal(t, agentapi.RoleSteelman, accepted[0].Role)
	assert.Equal(t, 0.1, accepted[0].ConfidenceDelta)
}

func TestArbitrateExplorerCriticInterlockDropsMatchingCritic(t *testing.T) {
	results := []dispatcher.AgentResult{
		ok(agentapi.RoleExplorer, &agentapi.ExplorerOutput{NewClaim: "Markets clear efficiently"}, 0.1),
		ok(agentapi.RoleCritic, &agentapi.CriticOutput{
			Objection:     "too strong",
			TargetPremise: "  Markets clear efficiently  ",
		}, 0.1),
	}
	accepted := Arbitrate(results, blackboard.Snapshot{})
	require.Len(t, accepted, 1)
	assert.Equal(t, agentapi.RoleExplorer, accepted[0].Role)
}

func TestArbitrateCriticTargetingOtherPremiseSurvives(t *testing.T) {
	results := []dispatcher.AgentResult{
		ok(agentapi.RoleExplorer, &agentapi.ExplorerOutput{NewClaim: "Markets clear efficiently"}, 0.1),
		ok(agentapi.RoleCritic, &agentapi.CriticOutput{
			Objection:     "unrelated",
			TargetPremise: "Information is free",
		}, 0.1),
	}
	accepted := Arbitrate(results, blackboard.Snapshot{})
	require.Len(t, accepted, 2)
}

func TestArbitrateDropsConclusionIndicatorCritic(t *testing.T) {
	results := []dispatcher.AgentResult{
		ok(agentapi.RoleCritic, &agentapi.CriticOutput{
			Objection:     "circular",
			TargetPremise: "Therefore the market is efficient",
		}, 0.1),
	}
	accepted := Arbitrate(results, blackboard.Snapshot{})
	assert.Empty(t, accepted)
}

func TestArbitrateConnectorRequiresAllThreeFields(t *testing.T) {
	incomplete := []dispatcher.AgentResult{
		ok(agentapi.RoleConnector, &agentapi.ConnectorOutput{
			Analogy: "like a thermostat", Valid: true,
		}, 0.1),
	}
	assert.Empty(t, Arbitrate(incomplete, blackboard.Snapshot{}))

	complete := []dispatcher.AgentResult{
		ok(agentapi.RoleConnector, &agentapi.ConnectorOutput{
			Analogy:            "like a thermostat",
			SourceDomain:       "engineering",
			MappingExplanation: "negative feedback maps to price correction",
			Valid:              true,
		}, 0.1),
	}
	accepted := Arbitrate(complete, blackboard.Snapshot{})
	require.Len(t, accepted, 1)
}

func TestArbitrateConnectorMarkedInvalidIsDropped(t *testing.T) {
	results := []dispatcher.AgentResult{
		ok(agentapi.RoleConnector, &agentapi.ConnectorOutput{
			Analogy: "vague", SourceDomain: "x", MappingExplanation: "y", Valid: false,
		}, 0.1),
	}
	assert.Empty(t, Arbitrate(results, blackboard.Snapshot{}))
}

func TestArbitrateStripsTransitionalPrefixFromExplorerClaim(t *testing.T) {
	results := []dispatcher.AgentResult{
		ok(agentapi.RoleExplorer, &agentapi.ExplorerOutput{NewClaim: "Therefore, markets are efficient"}, 0.1),
	}
	accepted := Arbitrate(results, blackboard.Snapshot{})
	require.Len(t, accepted, 1)
	out, ok := accepted[0].Output.(*agentapi.ExplorerOutput)
	require.True(t, ok)
	assert.Equal(t, "markets are efficient", out.NewClaim)
}
