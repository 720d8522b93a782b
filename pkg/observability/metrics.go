package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds all Prometheus metrics for the sync engine. Each collector
// owns its registry so tests can build as many as they like.
//
// All record methods are safe on a nil *Collector.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Persistence metrics
	SaveBatches       *prometheus.CounterVec
	OperationsSaved   *prometheus.CounterVec
	SaveFailures      *prometheus.CounterVec
	SaveRetries       prometheus.Counter
	SaveCancellations prometheus.Counter
	SaveDuration      prometheus.Histogram
	PendingOperations *prometheus.GaugeVec

	// Editor metrics
	Mutations    *prometheus.CounterVec
	HistoryMoves *prometheus.CounterVec

	// Backend client metrics
	BackendRequests *prometheus.CounterVec
	BreakerState    *prometheus.GaugeVec
}

// NewCollector creates a collector with a private registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		SaveBatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "save_batches_total",
				Help:      "Save batches sent, by outcome",
			},
			[]string{"outcome"},
		),
		OperationsSaved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_saved_total",
				Help:      "Operations acknowledged by the backend, by type",
			},
			[]string{"type"},
		),
		SaveFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "save_failures_total",
				Help:      "Failed save attempts, by error code",
			},
			[]string{"code"},
		),
		SaveRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "save_retries_total",
				Help:      "Automatic save retries scheduled",
			},
		),
		SaveCancellations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "save_cancellations_total",
				Help:      "In-flight saves cancelled by a newer send",
			},
		),
		SaveDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "save_duration_seconds",
				Help:      "Save request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		PendingOperations: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pending_operations",
				Help:      "Operations waiting to be saved, per target",
			},
			[]string{"target"},
		),
		Mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mutations_total",
				Help:      "Graph mutations applied, by action",
			},
			[]string{"action"},
		),
		HistoryMoves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_moves_total",
				Help:      "Undo and redo steps taken",
			},
			[]string{"direction"},
		),
		BackendRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backend_requests_total",
				Help:      "Requests made to the sitemap backend",
			},
			[]string{"endpoint", "status"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "backend_breaker_state",
				Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{"breaker"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.SaveBatches,
		c.OperationsSaved,
		c.SaveFailures,
		c.SaveRetries,
		c.SaveCancellations,
		c.SaveDuration,
		c.PendingOperations,
		c.Mutations,
		c.HistoryMoves,
		c.BackendRequests,
		c.BreakerState,
	)

	return c
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordHTTPRequest records one served request
func (c *Collector) RecordHTTPRequest(method, route, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordSave records the outcome of one save request
func (c *Collector) RecordSave(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.SaveBatches.WithLabelValues(outcome).Inc()
	c.SaveDuration.Observe(d.Seconds())
}

// RecordOperationSaved counts one acknowledged operation
func (c *Collector) RecordOperationSaved(opType string) {
	if c == nil {
		return
	}
	c.OperationsSaved.WithLabelValues(opType).Inc()
}

// RecordSaveFailure counts a failed attempt by error code
func (c *Collector) RecordSaveFailure(code string) {
	if c == nil {
		return
	}
	c.SaveFailures.WithLabelValues(code).Inc()
}

// RecordRetry counts one scheduled automatic retry
func (c *Collector) RecordRetry() {
	if c == nil {
		return
	}
	c.SaveRetries.Inc()
}

// RecordCancellation counts one superseded in-flight save
func (c *Collector) RecordCancellation() {
	if c == nil {
		return
	}
	c.SaveCancellations.Inc()
}

// SetPending publishes the pending queue length of a target
func (c *Collector) SetPending(target string, n int) {
	if c == nil {
		return
	}
	c.PendingOperations.WithLabelValues(target).Set(float64(n))
}

// RecordMutation counts one applied graph mutation
func (c *Collector) RecordMutation(action string) {
	if c == nil {
		return
	}
	c.Mutations.WithLabelValues(action).Inc()
}

// RecordHistoryMove counts an undo or redo
func (c *Collector) RecordHistoryMove(direction string) {
	if c == nil {
		return
	}
	c.HistoryMoves.WithLabelValues(direction).Inc()
}

// RecordBackendRequest counts one request to the backend
func (c *Collector) RecordBackendRequest(endpoint, status string) {
	if c == nil {
		return
	}
	c.BackendRequests.WithLabelValues(endpoint, status).Inc()
}

// SetBreakerState publishes a circuit breaker state
func (c *Collector) SetBreakerState(name string, state float64) {
	if c == nil {
		return
	}
	c.BreakerState.WithLabelValues(name).Set(state)
}
