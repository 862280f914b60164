package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/dialectica/pkg/agentapi"
	"github.com/codeready-toolchain/dialectica/pkg/blackboard"
	"github.com/codeready-toolchain/dialectica/pkg/config"
	"github.com/codeready-toolchain/dialectica/pkg/cycle"
	"github.com/codeready-toolchain/dialectica/pkg/events"
	"github.com/codeready-toolchain/dialectica/pkg/registry"
	"github.com/codeready-toolchain/dialectica/pkg/services"
	"github.com/codeready-toolchain/dialectica/pkg/trajectory"
)

// fakeAgentRegistry answers every role with a valid, inert proposal, mirroring
// pkg/registry's own test factory so a Runner started through the HTTP API
// runs its full pipeline without any external agent.
type fakeAgentRegistry struct{}

func (fakeAgentRegistry) Lookup(role agentapi.Role) (agentapi.Func, bool) {
	return func(_ context.Context, _ blackboard.Snapshot) (agentapi.Proposal, error) {
		return agentapi.Proposal{Role: role, Output: &agentapi.GenericOutput{Valid: true}}, nil
	}, true
}

func newTestServer(t *testing.T) (*Server, *events.Bus) {
	t.Helper()
	bus := events.NewBus(16)
	factory := func(id string, cfg config.SessionConfig) (*blackboard.Blackboard, *cycle.Runner) {
		bb := blackboard.New(id, cfg.SeedClaim, cfg.CostLimitUSD, bus)
		deps := cycle.Deps{
			Registry:   fakeAgentRegistry{},
			Trajectory: trajectory.NewStore(nil),
			Embedder:   trajectory.NewStubEmbedder(4),
			Publisher:  bus,
		}
		r := cycle.New(id, cfg, bb, deps)
		return bb, r
	}
	reg := registry.New(bus, factory)
	warnings := services.NewSystemWarningsService()
	return NewServer(reg, bus, nil, warnings), bus
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func TestHealthHandler_ReturnsHealthy(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, healthStatusHealthy, body.Status)
}

func TestStartSession_AssignsIDAndReportsRunning(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/api/v1/sessions", `{"seed_claim":"Markets are efficient","max_cycles":1}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "session_000001", resp.SessionID)
	assert.Equal(t, "running", resp.Status)
}

func TestGetSession_UnknownIDReturns404(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/api/v1/sessions/session_999999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPauseSession_AlreadyPausedReturns409(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/api/v1/sessions", `{"seed_claim":"claim","max_cycles":5}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var started SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))

	rec = doRequest(s, http.MethodPost, "/api/v1/sessions/"+started.SessionID+"/pause", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodPost, "/api/v1/sessions/"+started.SessionID+"/pause", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListSessions_ReturnsStartedSessions(t *testing.T) {
	s, _ := newTestServer(t)
	doRequest(s, http.MethodPost, "/api/v1/sessions", `{"seed_claim":"claim","max_cycles":1}`)

	rec := doRequest(s, http.MethodGet, "/api/v1/sessions", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var items []SessionListItemResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "session_000001", items[0].SessionID)
}

func TestActiveSession_NoneStartedReturns404(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/api/v1/sessions/active", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionEvents_RejectsInvalidSessionID(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/api/v1/sessions/..%2F..%2Fetc/events", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionEvents_StreamsConnectedEvent(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/api/v1/sessions", `{"seed_claim":"claim","max_cycles":1}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var started SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+started.SessionID+"/events", nil)
	ctx, cancel := context.WithTimeout(req.Context(), 200*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)
	streamRec := httptest.NewRecorder()
	s.Engine().ServeHTTP(streamRec, req)

	assert.Equal(t, "text/event-stream", streamRec.Header().Get("Content-Type"))
	assert.Contains(t, streamRec.Body.String(), "event: connected")
}

func TestSystemWarnings_EmptyByDefault(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/api/v1/system/warnings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}
