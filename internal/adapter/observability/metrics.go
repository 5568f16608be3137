package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTPRequestsTotal counts HTTP requests by route/method/status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	// HTTPRequestDuration observes HTTP request latency.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	// AIRequestsTotal counts outbound completion calls by model and outcome.
	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI requests by model and outcome",
		},
		[]string{"model", "outcome"},
	)
	// AIRequestDuration observes outbound completion call latency.
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"model"},
	)
	// AICacheHitsTotal counts response-cache hits by task.
	AICacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_cache_hits_total",
			Help: "Total number of response cache hits",
		},
		[]string{"task"},
	)
	// AIFallbacksTotal counts degraded generations that returned static
	// fallback text, by task and reason.
	AIFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_fallbacks_total",
			Help: "Total number of fallback responses served",
		},
		[]string{"task", "reason"},
	)

	// ConversationTurnsTotal counts handled turns by conversation state.
	ConversationTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_turns_total",
			Help: "Total number of conversation turns handled",
		},
		[]string{"state"},
	)
	// SessionsActive gauges live in-process sessions.
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Number of active sessions",
		},
	)
)

// InitMetrics registers all collectors with the default registry. Call once
// per process.
func InitMetrics() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		AIRequestsTotal,
		AIRequestDuration,
		AICacheHitsTotal,
		AIFallbacksTotal,
		ConversationTurnsTotal,
		SessionsActive,
	)
}

// HTTPMetricsMiddleware records request counts and durations per chi route.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
