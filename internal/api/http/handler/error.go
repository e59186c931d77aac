package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avream/cardsnoop/internal/logger"
	"github.com/avream/cardsnoop/internal/model"
)

type errorResponse struct {
	Error string `json:"error"`
}

// handleError maps domain errors onto HTTP status codes. Anything not
// recognized becomes an opaque 500 so internals never leak to the client.
func handleError(w http.ResponseWriter, l *logger.Logger, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeJSON(w, l, http.StatusNotFound, errorResponse{Error: "card not found"})
	case errors.Is(err, model.ErrEmptyPassword):
		writeJSON(w, l, http.StatusBadRequest, errorResponse{Error: "password must not be empty"})
	case errors.Is(err, model.ErrDecryption):
		writeJSON(w, l, http.StatusUnprocessableEntity, errorResponse{Error: "decryption failed: wrong password or corrupted data"})
	case errors.Is(err, model.ErrSessionNotFound), errors.Is(err, model.ErrInvalidToken):
		writeJSON(w, l, http.StatusUnauthorized, errorResponse{Error: "vault is locked"})
	default:
		l.Error("internal error", "error", err)
		writeJSON(w, l, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, l *logger.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		l.Error("failed to write response", "error", err)
	}
}

func badRequest(w http.ResponseWriter, l *logger.Logger, message string) {
	writeJSON(w, l, http.StatusBadRequest, errorResponse{Error: message})
}

func unauthorized(w http.ResponseWriter, l *logger.Logger) {
	writeJSON(w, l, http.StatusUnauthorized, errorResponse{Error: "missing session"})
}
