package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/alfagnish/users-service/internal/database"
)

// UserLister returns the full content of the user table.
type UserLister interface {
	List(ctx context.Context) ([]database.Record, error)
}

// UsersHandler serves the user listing.
type UsersHandler struct {
	users  UserLister
	logger *zap.Logger
}

// NewUsersHandler creates a new UsersHandler.
func NewUsersHandler(users UserLister, logger *zap.Logger) *UsersHandler {
	return &UsersHandler{users: users, logger: logger}
}

// Routes registers user routes on the given chi router.
func (h *UsersHandler) Routes(r chi.Router) {
	r.Get("/", h.ListUsers)
}

// ListUsers returns every user row as a JSON array of objects keyed by
// column name.
func (h *UsersHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	records, err := h.users.List(r.Context())
	if err != nil {
		writeServerError(w, r, h.logger, err)
		return
	}
	if records == nil {
		records = []database.Record{}
	}

	writeJSON(w, r, h.logger, http.StatusOK, records)
}
