// Package api provides the HTTP surface for the Session Registry:
// start/pause/resume/stop/status/list/get_info, health, and an SSE
// bridge onto the process-wide event bus.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/dialectica/pkg/database"
	"github.com/codeready-toolchain/dialectica/pkg/events"
	"github.com/codeready-toolchain/dialectica/pkg/registry"
	"github.com/codeready-toolchain/dialectica/pkg/services"
)

// Server is the HTTP API server: a thin wrapper holding the framework
// engine plus every collaborator needed to answer a request, with
// Start/StartWithListener/Shutdown lifecycle methods.
type Server struct {
	engine         *gin.Engine
	httpServer     *http.Server
	registry       *registry.Registry
	bus            *events.Bus
	dbClient       *database.Client
	warningService *services.SystemWarningsService
}

// NewServer creates a new API server wired to its collaborators and
// registers every route up front.
func NewServer(reg *registry.Registry, bus *events.Bus, dbClient *database.Client, warnings *services.SystemWarningsService) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	// Route on the raw (still-escaped) path so an escaped "/" stays inside
	// one path parameter and reaches the handler's own id validation.
	engine.UseRawPath = true
	engine.Use(gin.Recovery(), securityHeaders())

	s := &Server{
		engine:         engine,
		registry:       reg,
		bus:            bus,
		dbClient:       dbClient,
		warningService: warnings,
	}
	s.setupRoutes()
	return s
}

// Engine exposes the underlying gin.Engine for tests that want to drive
// requests with httptest without a real listener.
func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.healthHandler)

	v1 := s.engine.Group("/api/v1")
	v1.POST("/sessions", s.startSessionHandler)
	v1.GET("/sessions", s.listSessionsHandler)
	v1.GET("/sessions/active", s.activeSessionHandler)
	v1.GET("/sessions/:id", s.getSessionHandler)
	v1.POST("/sessions/:id/pause", s.pauseSessionHandler)
	v1.POST("/sessions/:id/resume", s.resumeSessionHandler)
	v1.POST("/sessions/:id/stop", s.stopSessionHandler)
	v1.GET("/sessions/:id/events", s.sessionEventsHandler)
	v1.GET("/system/warnings", s.systemWarningsHandler)
}

// Start starts the HTTP server on the given address (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.engine}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener, used
// by tests that need a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.engine}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := healthStatusHealthy
	checks := map[string]HealthCheck{}

	if s.dbClient != nil {
		if _, err := database.Health(reqCtx, s.dbClient.DB()); err != nil {
			status = healthStatusUnhealthy
			checks["database"] = HealthCheck{Status: healthStatusUnhealthy, Message: err.Error()}
		} else {
			checks["database"] = HealthCheck{Status: healthStatusHealthy}
		}
	}

	if s.warningService != nil {
		if warnings := s.warningService.GetWarnings(); len(warnings) > 0 {
			if status == healthStatusHealthy {
				status = healthStatusDegraded
			}
		}
	}

	httpStatus := http.StatusOK
	if status == healthStatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, HealthResponse{Status: status, Checks: checks})
}
