// Package metrics exposes ranking session activity as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pashagolub/escelo/pkg/elo"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Manager owns the session metrics and the registry they are exposed from.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	sessionsLoaded     *prometheus.CounterVec
	loadFailures       *prometheus.CounterVec
	comparisons        *prometheus.CounterVec
	comparisonDuration prometheus.Histogram
	ratingDelta        prometheus.Histogram
	sessionsCompleted  *prometheus.CounterVec
	sessionResets      *prometheus.CounterVec
	sessionEntries     *prometheus.GaugeVec
	sessionBudget      *prometheus.GaugeVec
	sessionProgress    *prometheus.GaugeVec
}

// NewManager creates a metrics manager. Without WithRegistry a fresh registry is used.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "escelo",
		subsystem:        "session",
		histogramBuckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
	}

	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	m.initializeMetrics()
	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)
	datasetLabel := []string{"dataset"}

	m.sessionsLoaded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "loaded_total",
		Help:      "Total number of ranking sessions started",
	}, datasetLabel)

	m.loadFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "load_failures_total",
		Help:      "Total number of datasets that could not be loaded",
	}, datasetLabel)

	m.comparisons = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "comparisons_total",
		Help:      "Total number of recorded pairwise choices",
	}, datasetLabel)

	m.comparisonDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rating_update_duration_seconds",
		Help:      "Time spent applying a rating update",
		Buckets:   m.histogramBuckets,
	})

	m.ratingDelta = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rating_delta_points",
		Help:      "Absolute rating change applied to the winner of a comparison",
		Buckets:   []float64{1, 2, 4, 8, 12, 16, 24, 32},
	})

	m.sessionsCompleted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "completed_total",
		Help:      "Total number of sessions that reached a final ranking",
	}, datasetLabel)

	m.sessionResets = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "resets_total",
		Help:      "Total number of session resets",
	}, datasetLabel)

	m.sessionEntries = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "entries",
		Help:      "Number of entries in the active session",
	}, datasetLabel)

	m.sessionBudget = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "comparison_budget",
		Help:      "Comparison budget of the active session",
	}, datasetLabel)

	m.sessionProgress = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "progress_percent",
		Help:      "Progress of the active session towards its comparison budget",
	}, datasetLabel)
}

// SessionLoaded records a successfully loaded dataset.
func (m *Manager) SessionLoaded(dataset string, entries, budget int) {
	m.sessionsLoaded.WithLabelValues(dataset).Inc()
	m.sessionEntries.WithLabelValues(dataset).Set(float64(entries))
	m.sessionBudget.WithLabelValues(dataset).Set(float64(budget))
	m.sessionProgress.WithLabelValues(dataset).Set(0)
}

// LoadFailed records a dataset that could not be loaded.
func (m *Manager) LoadFailed(dataset string, _ error) {
	m.loadFailures.WithLabelValues(dataset).Inc()
}

// ComparisonRecorded records one applied choice.
func (m *Manager) ComparisonRecorded(dataset string, result elo.ComparisonResult, progress int) {
	m.comparisons.WithLabelValues(dataset).Inc()
	m.comparisonDuration.Observe(result.Duration.Seconds())
	if len(result.Updates) > 0 {
		m.ratingDelta.Observe(math.Abs(result.Updates[0].Delta))
	}
	m.sessionProgress.WithLabelValues(dataset).Set(float64(progress))
}

// SessionCompleted records a session reaching its final ranking.
func (m *Manager) SessionCompleted(dataset string, _ int) {
	m.sessionsCompleted.WithLabelValues(dataset).Inc()
	m.sessionProgress.WithLabelValues(dataset).Set(100)
}

// SessionReset records a session reset.
func (m *Manager) SessionReset(dataset string) {
	m.sessionResets.WithLabelValues(dataset).Inc()
	m.sessionProgress.WithLabelValues(dataset).Set(0)
}

// GetRegistry returns the registry backing this manager.
func (m *Manager) GetRegistry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler exposing the registry.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Manager) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
