// Package arbiter implements the pure acceptance function:
// given a dispatch round's results and the snapshot they were produced
// from, decide which proposals survive into the blackboard. The Arbiter
// never mutates state; it only judges.
package arbiter

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/codeready-toolchain/dialectica/pkg/agentapi"
	"github.com/codeready-toolchain/dialectica/pkg/blackboard"
	"github.com/codeready-toolchain/dialectica/pkg/dispatcher"
)

// Accepted is one proposal that survived arbitration, ready for the Cycle
// Runner to apply to the blackboard.
type Accepted struct {
	Role            agentapi.Role
	Output          any
	ConfidenceDelta float64
}

// Arbitrate applies the six acceptance rules, in order, to results and
// returns the survivors. snapshot is unused by the current rule set but is
// accepted for parity with the expected function signature and to let
// future rules reason about blackboard state without an API change.
func Arbitrate(results []dispatcher.AgentResult, _ blackboard.Snapshot) []Accepted {
	var explorerClaim string
	var explorerPresent bool
	for _, r := range results {
		if r.Role != agentapi.RoleExplorer || r.Kind != dispatcher.KindOK {
			continue
		}
		out, ok := r.Proposal.Output.(*agentapi.ExplorerOutput)
		if !ok || out == nil {
			continue
		}
		explorerClaim = normalize(out.NewClaim)
		explorerPresent = true
	}

	accepted := make([]Accepted, 0, len(results))
	for _, r := range results {
		// Rule 1: drop anything that isn't a usable AgentResult.
		if r.Kind != dispatcher.KindOK {
			continue
		}

		switch out := r.Proposal.Output.(type) {
		case *agentapi.ExplorerOutput:
			if out == nil {
				continue
			}
			claim := stripTransitionalPrefix(out.NewClaim)
			accepted = append(accepted, Accepted{
				Role:            r.Role,
				Output:          &agentapi.ExplorerOutput{NewClaim: claim},
				ConfidenceDelta: r.Proposal.ConfidenceDelta,
			})

		case *agentapi.CriticOutput:
			if out == nil {
				continue
			}
			target := normalize(out.TargetPremise)

			// Rule 3: Explorer/Critic interlock.
			if explorerPresent && target == explorerClaim && target != "" {
				continue
			}
			// Rule 4: drop conclusion-indicator targets.
			if isConclusionIndicator(out.TargetPremise) {
				continue
			}
			accepted = append(accepted, Accepted{
				Role:            r.Role,
				Output:          out,
				ConfidenceDelta: r.Proposal.ConfidenceDelta,
			})

		case *agentapi.ConnectorOutput:
			if out == nil {
				continue
			}
			// Rule 2: explicit invalid marker.
			if !out.Valid {
				continue
			}
			// Rule 5: completeness check.
			if strings.TrimSpace(out.Analogy) == "" ||
				strings.TrimSpace(out.SourceDomain) == "" ||
				strings.TrimSpace(out.MappingExplanation) == "" {
				continue
			}
			accepted = append(accepted, Accepted{
				Role:            r.Role,
				Output:          out,
				ConfidenceDelta: r.Proposal.ConfidenceDelta,
			})

		case *agentapi.GenericOutput:
			if out == nil {
				continue
			}
			// Rule 2: drop invalid.
			if !out.Valid {
				continue
			}
			accepted = append(accepted, Accepted{
				Role:            r.Role,
				Output:          out,
				ConfidenceDelta: r.Proposal.ConfidenceDelta,
			})

		default:
			// Not a recognized AgentResult shape.
			continue
		}
	}
	return accepted
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// isConclusionIndicator reports whether text begins with one of the
// transitional prefixes that mark a conclusion rather than a premise.
func isConclusionIndicator(text string) bool {
	trimmed := strings.TrimSpace(text)
	for _, prefix := range agentapi.TransitionalPrefixes {
		if hasLeadingWord(trimmed, prefix) {
			return true
		}
	}
	return false
}

// hasLeadingWord reports whether text starts with prefix (case-insensitive)
// as whole words: the prefix must be followed by the end of text or a
// non-letter, so "So" matches "So, ..." but not "Some ...".
func hasLeadingWord(text, prefix string) bool {
	if len(text) < len(prefix) || !strings.EqualFold(text[:len(prefix)], prefix) {
		return false
	}
	next, _ := utf8.DecodeRuneInString(text[len(prefix):])
	return len(text) == len(prefix) || !unicode.IsLetter(next)
}

// stripTransitionalPrefix removes a leading transitional/hedging prefix (and
// any immediately following comma/whitespace) from an Explorer's new_claim
// before acceptance.
func stripTransitionalPrefix(claim string) string {
	trimmed := strings.TrimSpace(claim)
	for _, prefix := range agentapi.TransitionalPrefixes {
		if hasLeadingWord(trimmed, prefix) {
			rest := strings.TrimSpace(trimmed[len(prefix):])
			rest = strings.TrimPrefix(rest, ",")
			return strings.TrimSpace(rest)
		}
	}
	return trimmed
}
