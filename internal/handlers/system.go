package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/alfagnish/users-service/internal/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger checks that the database accepts connections.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler provides the service banner and health endpoints.
type SystemHandler struct {
	db     Pinger
	logger *zap.Logger
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(db Pinger, logger *zap.Logger) *SystemHandler {
	return &SystemHandler{db: db, logger: logger}
}

// Routes registers all system routes on the given chi router.
func (h *SystemHandler) Routes(r chi.Router) {
	r.Get("/", h.Root)
	r.Get("/healthz", h.Health)
	r.Head("/healthz", h.Health)
	r.Get("/readyz", h.Ready)
}

// Root reports that the service is up.
func (h *SystemHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, h.logger, http.StatusOK, map[string]string{"message": "Users Service is running"})
}

// Health is a liveness probe. It never touches the database.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready opens and closes one database connection.
func (h *SystemHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		logger.WithRequest(r.Context(), h.logger).Warn("database not ready", zap.Error(err))
		writeJSON(w, r, h.logger, http.StatusServiceUnavailable, map[string]string{"status": "db_not_ready"})
		return
	}

	writeJSON(w, r, h.logger, http.StatusOK, map[string]string{"status": "ready"})
}
