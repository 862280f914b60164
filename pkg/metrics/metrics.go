// Package metrics provides the process's Prometheus instrumentation:
// cycle duration/outcome counters, agent dispatch timeout/error counters,
// and a current-support gauge per active session (ADDED, grounded on
// octoreflex's internal/observability/metrics.go dedicated-registry
// pattern).
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every metric descriptor this process exposes, registered on
// a dedicated prometheus.Registry rather than the global default so this
// package never collides with metrics an embedding binary registers itself.
type Metrics struct {
	registry *prometheus.Registry

	CyclesCompletedTotal  *prometheus.CounterVec
	CyclesFailedTotal     *prometheus.CounterVec
	CycleDurationSeconds  prometheus.Histogram
	AgentTimeoutsTotal    *prometheus.CounterVec
	AgentErrorsTotal      *prometheus.CounterVec
	CurrentSupport        *prometheus.GaugeVec
	ActiveSessions        prometheus.Gauge
	ClaimsDiedTotal       prometheus.Counter
	ClaimsGraduatedTotal  prometheus.Counter
	SessionCostUSD        *prometheus.GaugeVec
}

// New creates and registers every metric with a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		CyclesCompletedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dialectica",
			Subsystem: "cycle",
			Name:      "completed_total",
			Help:      "Total cycles completed, by session_id.",
		}, []string{"session_id"}),

		CyclesFailedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dialectica",
			Subsystem: "cycle",
			Name:      "failed_total",
			Help:      "Total cycles that ended in a Runner failure, by session_id.",
		}, []string{"session_id"}),

		CycleDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dialectica",
			Subsystem: "cycle",
			Name:      "duration_seconds",
			Help:      "Distribution of cycle wall-clock duration.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}),

		AgentTimeoutsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dialectica",
			Subsystem: "agent",
			Name:      "timeouts_total",
			Help:      "Total agent dispatches that exceeded their deadline, by role.",
		}, []string{"role"}),

		AgentErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dialectica",
			Subsystem: "agent",
			Name:      "errors_total",
			Help:      "Total agent dispatches that returned an error, by role.",
		}, []string{"role"}),

		CurrentSupport: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dialectica",
			Subsystem: "session",
			Name:      "current_support",
			Help:      "Current support_strength, by session_id.",
		}, []string{"session_id"}),

		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dialectica",
			Subsystem: "session",
			Name:      "active",
			Help:      "Number of sessions currently running or paused.",
		}),

		ClaimsDiedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dialectica",
			Subsystem: "claim",
			Name:      "died_total",
			Help:      "Total claims moved to the cemetery across all sessions.",
		}),

		ClaimsGraduatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dialectica",
			Subsystem: "claim",
			Name:      "graduated_total",
			Help:      "Total claims that crossed the graduation threshold across all sessions.",
		}),

		SessionCostUSD: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dialectica",
			Subsystem: "session",
			Name:      "cost_usd",
			Help:      "Cumulative LLM cost recorded for a session, by session_id.",
		}, []string{"session_id"}),
	}

	reg.MustRegister(
		m.CyclesCompletedTotal,
		m.CyclesFailedTotal,
		m.CycleDurationSeconds,
		m.AgentTimeoutsTotal,
		m.AgentErrorsTotal,
		m.CurrentSupport,
		m.ActiveSessions,
		m.ClaimsDiedTotal,
		m.ClaimsGraduatedTotal,
		m.SessionCostUSD,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return m
}

// Serve starts the Prometheus metrics HTTP server on addr, blocking until
// ctx is cancelled or the server fails.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	}))

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server on %s: %w", addr, err)
	}
	return nil
}
