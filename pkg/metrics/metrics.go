// Package metrics exposes Prometheus collectors for the challenge engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Progress update results.
const (
	ResultUpdated   = "updated"
	ResultCompleted = "completed"
	ResultExpired   = "expired"
	ResultNotFound  = "not_found"
	ResultError     = "error"
)

// Collector holds the engine's counters. A nil *Collector is valid and records nothing.
type Collector struct {
	joins           prometheus.Counter
	progressUpdates *prometheus.CounterVec
	completions     prometheus.Counter
	rewardPoints    prometheus.Counter

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewCollector creates the collectors and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		joins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "challenge_joins_total",
			Help: "Total number of challenge enrollments created",
		}),
		progressUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "challenge_progress_updates_total",
				Help: "Total number of progress updates by result",
			},
			[]string{"result"},
		),
		completions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "challenge_completions_total",
			Help: "Total number of challenges completed",
		}),
		rewardPoints: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "challenge_reward_points_total",
			Help: "Total reward points credited for completed challenges",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"path", "method", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),
	}

	reg.MustRegister(
		c.joins,
		c.progressUpdates,
		c.completions,
		c.rewardPoints,
		c.httpRequestsTotal,
		c.httpRequestDuration,
	)
	return c
}

// Joined records a new enrollment.
func (c *Collector) Joined() {
	if c == nil {
		return
	}
	c.joins.Inc()
}

// ProgressUpdated records the outcome of a progress update.
func (c *Collector) ProgressUpdated(result string) {
	if c == nil {
		return
	}
	c.progressUpdates.WithLabelValues(result).Inc()
}

// Completed records a first-time completion and the points it credited.
func (c *Collector) Completed(points int) {
	if c == nil {
		return
	}
	c.completions.Inc()
	c.rewardPoints.Add(float64(points))
}

// ObserveHTTP records one served request. path should be a route template
// so IDs do not explode the label cardinality.
func (c *Collector) ObserveHTTP(path, method string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(path, method).Observe(elapsed.Seconds())
}

// StatusRecorder captures the status code written by a handler.
type StatusRecorder struct {
	http.ResponseWriter
	StatusCode int
}

// NewStatusRecorder wraps w, defaulting to 200 OK when WriteHeader is never called.
func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, StatusCode: http.StatusOK}
}

// WriteHeader records code and forwards it.
func (r *StatusRecorder) WriteHeader(code int) {
	r.StatusCode = code
	r.ResponseWriter.WriteHeader(code)
}
