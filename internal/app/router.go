// Package app wires configuration, adapters and usecases into the HTTP
// application.
package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/nextstep-labs/nextstep/internal/adapter/httpserver"
	"github.com/nextstep-labs/nextstep/internal/adapter/observability"
	"github.com/nextstep-labs/nextstep/internal/config"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{"*"}
	}
	if s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	// Security & instrumentation middleware
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	// CORS; credentials allowed because the session rides a cookie.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	rateLimit := httprate.LimitByIP(cfg.RateLimitPerMin, 1*time.Minute)

	// Quick endpoints get a short deadline.
	r.Group(func(qr chi.Router) {
		qr.Use(httpserver.TimeoutMiddleware(30 * time.Second))

		qr.Group(func(wr chi.Router) {
			wr.Use(rateLimit)
			wr.Post("/v1/auth/signup", srv.SignupHandler())
			wr.Post("/v1/auth/login", srv.LoginHandler())
			wr.Post("/v1/auth/logout", srv.LogoutHandler())
		})

		qr.Get("/v1/assessment/questions", srv.QuestionsHandler())
		qr.Get("/v1/assessment/scenarios", srv.ScenariosHandler())

		qr.Group(func(ar chi.Router) {
			ar.Use(srv.RequireAuth)
			ar.Get("/v1/assessment/result", srv.ResultHandler())
			ar.Get("/v1/chat/history", srv.ChatHistoryHandler())
			ar.Get("/v1/tickets", srv.TicketListHandler())
			ar.Group(func(wr chi.Router) {
				wr.Use(rateLimit)
				wr.Post("/v1/assessment/start", srv.StartHandler())
				wr.Post("/v1/feedback", srv.FeedbackHandler())
				wr.Post("/v1/tickets", srv.TicketCreateHandler())
			})
		})
	})

	// Submission endpoints call the generation providers, so their deadline
	// must exceed the per-attempt provider timeout.
	r.Group(func(sr chi.Router) {
		sr.Use(httpserver.TimeoutMiddleware(cfg.ProviderTimeout + 10*time.Second))
		sr.Use(srv.RequireAuth)
		sr.Use(rateLimit)
		sr.Post("/v1/assessment/submit", srv.SubmitArchetypeHandler())
		sr.Post("/v1/assessment/phase3/submit", srv.SubmitPhase3Handler())
		sr.Post("/v1/assessment/final/submit", srv.SubmitFinalHandler())
	})

	// The chat stream runs without http.TimeoutHandler: its buffering
	// wrapper hides http.Flusher and would break SSE. The server write
	// timeout still bounds the connection.
	r.Group(func(cr chi.Router) {
		cr.Use(srv.RequireAuth)
		cr.Use(rateLimit)
		cr.Post("/v1/chat", srv.ChatHandler())
	})

	// Health and metrics
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) { promhttp.Handler().ServeHTTP(w, r) })
	r.Get("/readyz", srv.ReadyzHandler())

	return httpserver.SecurityHeaders(r)
}
