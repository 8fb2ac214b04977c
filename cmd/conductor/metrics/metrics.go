// Package metrics exposes Prometheus instrumentation for the service:
// execution outcomes, node phases, deployment results, and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tidewave/conductor/common/models"
)

// Metrics holds every collector on a private registry
type Metrics struct {
	registry *prometheus.Registry

	executionsTotal   *prometheus.CounterVec
	executionDuration prometheus.Histogram
	nodesTotal        *prometheus.CounterVec
	nodeDuration      prometheus.Histogram
	deploysTotal      *prometheus.CounterVec
	triggersFired     *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		executionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "conductor_executions_total",
			Help: "Workflow executions by terminal status",
		}, []string{"status"}),
		executionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "conductor_execution_duration_seconds",
			Help:    "Wall time of finished workflow executions",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
		}),
		nodesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "conductor_node_runs_total",
			Help: "Node runs by terminal phase",
		}, []string{"phase"}),
		nodeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "conductor_node_run_duration_seconds",
			Help:    "Wall time of finished node runs",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		deploysTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "conductor_deployments_total",
			Help: "Deployment operations by action and outcome",
		}, []string{"action", "outcome"}),
		triggersFired: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "conductor_triggers_fired_total",
			Help: "Trigger events that started executions, by family",
		}, []string{"trigger_type"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "conductor_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "conductor_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Handler serves the scrape endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ExecutionFinished records one terminal execution
func (m *Metrics) ExecutionFinished(status models.ExecutionStatus, duration time.Duration) {
	m.executionsTotal.WithLabelValues(string(status)).Inc()
	m.executionDuration.Observe(duration.Seconds())
}

// NodeFinished records one terminal node run
func (m *Metrics) NodeFinished(phase models.NodePhase, duration time.Duration) {
	m.nodesTotal.WithLabelValues(string(phase)).Inc()
	m.nodeDuration.Observe(duration.Seconds())
}

// DeployFinished records one deployment operation
func (m *Metrics) DeployFinished(action string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.deploysTotal.WithLabelValues(action, outcome).Inc()
}

// TriggerFired records one routed trigger event
func (m *Metrics) TriggerFired(triggerType models.TriggerType) {
	m.triggersFired.WithLabelValues(string(triggerType)).Inc()
}

// ObserveHTTP records one handled HTTP request
func (m *Metrics) ObserveHTTP(method, route string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
