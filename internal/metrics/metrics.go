package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP Metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Agent Metrics
	AgentRunsTotal   *prometheus.CounterVec
	AgentRunDuration prometheus.Histogram

	// Tool Metrics
	ToolCallsTotal   *prometheus.CounterVec
	ToolCallDuration *prometheus.HistogramVec

	// Resolver Metrics (outbound IP / geolocation lookups)
	ResolverRequestsTotal   *prometheus.CounterVec
	ResolverRequestDuration *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		// HTTP Metrics
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint", "status"},
		),

		HTTPResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 7),
			},
			[]string{"method", "endpoint", "status"},
		),

		// Agent Metrics
		AgentRunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_runs_total",
				Help: "Total number of agent turns by result",
			},
			[]string{"result"},
		),

		AgentRunDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "agent_run_duration_seconds",
				Help:    "End-to-end latency of one agent turn in seconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
		),

		// Tool Metrics
		ToolCallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_calls_total",
				Help: "Total number of tool invocations by tool and status",
			},
			[]string{"tool", "status"},
		),

		ToolCallDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tool_call_duration_seconds",
				Help:    "Tool invocation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool"},
		),

		// Resolver Metrics
		ResolverRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resolver_requests_total",
				Help: "Total number of outbound lookup requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		ResolverRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "resolver_request_duration_seconds",
				Help:    "Outbound lookup latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
	}
}
