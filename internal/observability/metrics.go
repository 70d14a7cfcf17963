package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "travel_agent"

// Search outcomes recorded per category.
const (
	OutcomePrimary  = "primary"
	OutcomeFallback = "fallback"
	OutcomeFailed   = "failed"
)

// Metrics holds the Prometheus collectors of the service.
// Each instance owns its registry so tests can build as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	searchTotal          *prometheus.CounterVec
	searchBackendLatency *prometheus.HistogramVec
	searchBackendErrors  *prometheus.CounterVec

	agentRunsTotal    *prometheus.CounterVec
	agentRunDuration  prometheus.Histogram
	agentToolCalls    *prometheus.CounterVec
	llmRequestsTotal  *prometheus.CounterVec
	llmTokensUsed     *prometheus.CounterVec
	rateLimitRejected prometheus.Counter
}

// NewMetrics creates the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"method", "path"}),
		searchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "place_search_total",
			Help:      "Place searches by category and outcome",
		}, []string{"category", "outcome"}),
		searchBackendLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "place_search_backend_duration_seconds",
			Help:      "Search backend call duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}, []string{"backend"}),
		searchBackendErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "place_search_backend_errors_total",
			Help:      "Search backend failures",
		}, []string{"backend"}),
		agentRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_runs_total",
			Help:      "Agent runs by status",
		}, []string{"status"}),
		agentRunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_run_duration_seconds",
			Help:      "Agent run duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		agentToolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_tool_calls_total",
			Help:      "Tool invocations by tool and status",
		}, []string{"tool", "status"}),
		llmRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Chat completion requests by provider, model and status",
		}, []string{"provider", "model", "status"}),
		llmTokensUsed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Tokens used by type",
		}, []string{"provider", "model", "type"}),
		rateLimitRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejected_total",
			Help:      "Requests rejected by the rate limiter",
		}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordSearch records the outcome of one place search.
func (m *Metrics) RecordSearch(category, outcome string) {
	if m == nil {
		return
	}
	m.searchTotal.WithLabelValues(category, outcome).Inc()
}

// RecordBackendCall records a single backend call and whether it failed.
func (m *Metrics) RecordBackendCall(backend string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.searchBackendLatency.WithLabelValues(backend).Observe(duration.Seconds())
	if err != nil {
		m.searchBackendErrors.WithLabelValues(backend).Inc()
	}
}

// RecordAgentRun records a finished agent run.
func (m *Metrics) RecordAgentRun(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.agentRunsTotal.WithLabelValues(status).Inc()
	m.agentRunDuration.Observe(duration.Seconds())
}

// RecordToolCall records a tool invocation made by the agent.
func (m *Metrics) RecordToolCall(tool string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.agentToolCalls.WithLabelValues(tool, status).Inc()
}

// RecordLLMRequest records a chat completion call and its token usage.
func (m *Metrics) RecordLLMRequest(provider, model, status string, promptTokens, completionTokens int) {
	if m == nil {
		return
	}
	m.llmRequestsTotal.WithLabelValues(provider, model, status).Inc()
	if promptTokens > 0 {
		m.llmTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.llmTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
}

// RecordRateLimited records a rejected request.
func (m *Metrics) RecordRateLimited() {
	if m == nil {
		return
	}
	m.rateLimitRejected.Inc()
}
