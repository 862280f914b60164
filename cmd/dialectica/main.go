// dialectica is the process that serves the Session Registry over HTTP:
// it owns the database connection, the event bus, and every session's
// Cycle Runner.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/dialectica/pkg/agentapi"
	"github.com/codeready-toolchain/dialectica/pkg/api"
	"github.com/codeready-toolchain/dialectica/pkg/blackboard"
	"github.com/codeready-toolchain/dialectica/pkg/config"
	"github.com/codeready-toolchain/dialectica/pkg/cycle"
	"github.com/codeready-toolchain/dialectica/pkg/database"
	"github.com/codeready-toolchain/dialectica/pkg/dispatcher"
	"github.com/codeready-toolchain/dialectica/pkg/events"
	"github.com/codeready-toolchain/dialectica/pkg/metrics"
	"github.com/codeready-toolchain/dialectica/pkg/registry"
	"github.com/codeready-toolchain/dialectica/pkg/services"
	"github.com/codeready-toolchain/dialectica/pkg/trajectory"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// defaultAgentRegistry answers every role with an inert, always-valid
// proposal. Real LLM-backed agent implementations are external
// collaborators by design (pkg/agentapi only fixes their shape); a
// production deployment replaces this with a Registry that calls out to
// whatever agent service it operates, keyed the same way by
// agentapi.Role.
func defaultAgentRegistry() dispatcher.MapRegistry {
	reg := make(dispatcher.MapRegistry, len(agentapi.AllRoles))
	for _, role := range agentapi.AllRoles {
		role := role
		reg[role] = func(_ context.Context, _ blackboard.Snapshot) (agentapi.Proposal, error) {
			return agentapi.Proposal{Role: role, Output: &agentapi.GenericOutput{Valid: true}}, nil
		}
	}
	return reg
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v (continuing with existing environment)", envPath, err)
	} else {
		log.Printf("loaded environment from %s", envPath)
	}

	srvCfg := config.ServerConfigFromEnv()
	gin.SetMode(srvCfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("failed to load database config: %v", err)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Printf("error closing database client: %v", err)
		}
	}()
	slog.Info("connected to database", "database", dbConfig.Database)

	bus := events.NewBus(256)
	warnings := services.NewSystemWarningsService()

	blackboardStore := services.NewBlackboardStore(dbClient.DB())
	trajectoryStore := services.NewTrajectoryStore(dbClient.DB())
	contributionStore := services.NewContributionStore(dbClient.DB())
	costStore := services.NewCostStore(dbClient.DB())
	summaryService := services.NewSummaryService(dbClient.DB())
	transitionService := services.NewTransitionService(dbClient.DB())

	agentRegistry := defaultAgentRegistry()

	factory := func(id string, cfg config.SessionConfig) (*blackboard.Blackboard, *cycle.Runner) {
		bb := blackboard.New(id, cfg.SeedClaim, cfg.CostLimitUSD, bus)
		deps := cycle.Deps{
			Registry:      agentRegistry,
			Trajectory:    trajectory.NewStore(trajectoryStore),
			Embedder:      trajectory.NewStubEmbedder(16),
			Records:       blackboardStore,
			Contributions: contributionStore,
			Costs:         costStore,
			Summarizer:    summaryService,
			Notifier:      transitionService,
			Publisher:     bus,
		}
		r := cycle.New(id, cfg, bb, deps)
		return bb, r
	}

	reg := registry.New(bus, factory)

	m := metrics.New()
	metrics.NewRecorder(m, bus).Run()
	go func() {
		if err := m.Serve(ctx, ":"+srvCfg.MetricsPort); err != nil {
			slog.Error("metrics server exited", "error", err)
		}
	}()

	server := api.NewServer(reg, bus, dbClient, warnings)

	go func() {
		slog.Info("http server listening", "port", srvCfg.HTTPPort)
		if err := server.Start(":" + srvCfg.HTTPPort); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}
}
