package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	GenerationRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_requests_total",
			Help: "Total number of generation attempts by provider and outcome",
		},
		[]string{"provider", "status"},
	)
	GenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generation_duration_seconds",
			Help:    "Generation call duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_submissions_total",
			Help: "Total number of assessment submissions by phase and outcome",
		},
		[]string{"phase", "status"},
	)
	NarrativeDegraded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "narrative_degraded_total",
			Help: "Submissions completed with placeholder narrative after generation failure",
		},
		[]string{"track"},
	)

	// Winning stream distribution for the fixed-stream track.
	StreamRecommendations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_recommendations_total",
			Help: "Distribution of recommended streams",
		},
		[]string{"stream"},
	)

	ChatStreamsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_streams_total",
			Help: "Total chat streaming sessions by terminal state",
		},
		[]string{"status"},
	)
)

func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(GenerationRequests)
	prometheus.MustRegister(GenerationDuration)
	prometheus.MustRegister(SubmissionsTotal)
	prometheus.MustRegister(NarrativeDegraded)
	prometheus.MustRegister(StreamRecommendations)
	prometheus.MustRegister(ChatStreamsTotal)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}
