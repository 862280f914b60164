// Package dispatcher implements the agent dispatcher: fan out
// the scheduled agent roles in parallel, enforce one shared deadline, and
// isolate any single agent's crash or timeout from the rest.
package dispatcher

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/codeready-toolchain/dialectica/pkg/agentapi"
	"github.com/codeready-toolchain/dialectica/pkg/blackboard"
)

// Outcome kinds for an AgentResult that did not produce a usable proposal.
const (
	KindOK           = "ok"
	KindTimeout      = "timeout"
	KindCrashed      = "crashed"
	KindError        = "error"
	KindInvalidAgent = "invalid_agent"
)

// AgentResult is one role's outcome from a dispatch round. Only Kind == KindOK results carry a usable Proposal; all other
// kinds are dropped by the Arbiter's rule 1.
type AgentResult struct {
	Role     agentapi.Role
	Kind     string
	Proposal agentapi.Proposal
	Reason   string
}

// indexedResult pairs a result with its launch index, so the dispatcher can
// restore the caller's supplied role order after the inherently unordered
// parallel collection.
type indexedResult struct {
	index  int
	result AgentResult
}

// Registry resolves a Role to its agent implementation. An unknown role
// yields KindInvalidAgent without ever calling into agent code.
type Registry interface {
	Lookup(role agentapi.Role) (agentapi.Func, bool)
}

// Summary aggregates dispatch-round bookkeeping alongside the individual
// results (its `(results, timeouts, errors)` return shape).
type Summary struct {
	Results  []AgentResult
	Timeouts int
	Errors   int
}

// Dispatch runs every role in agents concurrently against snapshot, each on
// its own goroutine, sharing a single deadline derived from timeout.
// Results come back in the order agents was given, regardless of
// completion order.
func Dispatch(ctx context.Context, registry Registry, agents []agentapi.Role, snapshot blackboard.Snapshot, timeout time.Duration) Summary {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan indexedResult, len(agents))
	var wg sync.WaitGroup

	for i, role := range agents {
		fn, ok := registry.Lookup(role)
		if !ok {
			ch <- indexedResult{index: i, result: AgentResult{Role: role, Kind: KindInvalidAgent, Reason: "unknown role"}}
			continue
		}

		wg.Add(1)
		go func(idx int, role agentapi.Role, fn agentapi.Func) {
			defer wg.Done()
			ch <- indexedResult{index: idx, result: runOne(ctx, role, fn, snapshot)}
		}(i, role, fn)
	}

	wg.Wait()
	close(ch)

	return collectAndSummarize(ch)
}

// runOne invokes a single agent on its own goroutine, sharing fn's stack
// with the panic recovery so a crashing agent cannot take down the process,
// grounded on the async.Go/Recover pattern used for background goroutine
// isolation. The call runs behind a one-shot result channel rather than
// shared variables so runOne's own select can still race it against ctx's
// deadline without a data race on the agent's return values.
func runOne(ctx context.Context, role agentapi.Role, fn agentapi.Func, snapshot blackboard.Snapshot) AgentResult {
	resultCh := make(chan AgentResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- AgentResult{
					Role:   role,
					Kind:   KindCrashed,
					Reason: fmt.Sprintf("panic: %v\n%s", r, debug.Stack()),
				}
			}
		}()

		proposal, err := fn(ctx, snapshot)
		if err != nil {
			resultCh <- AgentResult{Role: role, Kind: KindError, Reason: err.Error()}
			return
		}
		resultCh <- AgentResult{Role: role, Kind: KindOK, Proposal: proposal}
	}()

	select {
	case <-ctx.Done():
		return AgentResult{Role: role, Kind: KindTimeout, Reason: ctx.Err().Error()}
	case result := <-resultCh:
		return result
	}
}

func collectAndSummarize(ch <-chan indexedResult) Summary {
	indexed := make([]indexedResult, 0, len(ch))
	for ir := range ch {
		indexed = append(indexed, ir)
	}
	sort.Slice(indexed, func(i, j int) bool { return indexed[i].index < indexed[j].index })

	summary := Summary{Results: make([]AgentResult, 0, len(indexed))}
	for _, ir := range indexed {
		summary.Results = append(summary.Results, ir.result)
		switch ir.result.Kind {
		case KindTimeout:
			summary.Timeouts++
		case KindCrashed, KindError, KindInvalidAgent:
			summary.Errors++
		}
	}
	return summary
}

// MapRegistry is the simplest Registry: a fixed map of role to function.
type MapRegistry map[agentapi.Role]agentapi.Func

func (m MapRegistry) Lookup(role agentapi.Role) (agentapi.Func, bool) {
	fn, ok := m[role]
	return fn, ok
}
