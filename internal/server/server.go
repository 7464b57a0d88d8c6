package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/alfagnish/users-service/internal/config"
	"github.com/alfagnish/users-service/internal/handlers"
	"github.com/alfagnish/users-service/internal/logger"
	"github.com/alfagnish/users-service/internal/metrics"
)

// Store is what the HTTP layer needs from the database layer.
type Store interface {
	handlers.UserLister
	handlers.Pinger
}

// New creates a chi router with all routes and middleware wired together.
func New(cfg config.ServerConfig, store Store, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// ── Middleware ───────────────────────────────────────────
	if cfg.CORSEnabled {
		r.Use(corsHandler())
	}
	r.Use(requestID)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	// ── Handlers ────────────────────────────────────────────
	systemH := handlers.NewSystemHandler(store, log)
	usersH := handlers.NewUsersHandler(store, log)

	// ── Routes ──────────────────────────────────────────────
	systemH.Routes(r)
	r.Route("/users", usersH.Routes)

	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// corsHandler allows any origin, method and header, with credentials.
func corsHandler() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           600,
	})
}

// requestID reuses an incoming X-Request-ID or mints a new one, and
// echoes it on the response.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(logger.RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(logger.RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

// requestLogger logs each HTTP request with method, path, status code,
// and duration, and records it in the request duration histogram.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			metrics.RecordHTTPRequestDuration(r.Method, route, strconv.Itoa(status), duration)

			logger.WithRequest(r.Context(), log).Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("duration", duration.Round(time.Millisecond)),
			)
		})
	}
}
