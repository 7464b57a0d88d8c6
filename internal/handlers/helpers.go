package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/alfagnish/users-service/internal/logger"
)

// writeJSON serialises v as JSON and writes it to the response with the
// given HTTP status code. The body is encoded in full before the header
// goes out, so an encoding failure still produces a clean 500.
func writeJSON(w http.ResponseWriter, r *http.Request, log *zap.Logger, status int, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		writeServerError(w, r, log, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// writeServerError logs err and answers with a bare 500. Callers get no
// details about the failure.
func writeServerError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	logger.WithRequest(r.Context(), log).Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
