package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/avream/cardsnoop/internal/api/http/middleware"
	"github.com/avream/cardsnoop/internal/logger"
)

// VaultService defines vault session operations.
type VaultService interface {
	Unlock(ctx context.Context, password string) (string, error)
	Lock(ctx context.Context, sessionID uuid.UUID) error
}

// Vault handles HTTP endpoints for vault sessions.
type Vault struct {
	vaultService VaultService
	logger       *logger.Logger
}

// NewVault creates a new Vault handler.
func NewVault(vaultService VaultService, logger *logger.Logger) *Vault {
	return &Vault{
		vaultService: vaultService,
		logger:       logger,
	}
}

type unlockRequest struct {
	Password string `json:"password"`
}

type unlockResponse struct {
	Token string `json:"token"`
}

// Unlock opens a vault session and returns its bearer token.
func (h *Vault) Unlock(w http.ResponseWriter, r *http.Request) {
	var req unlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, h.logger, "invalid request body")
		return
	}

	sessionToken, err := h.vaultService.Unlock(r.Context(), req.Password)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, unlockResponse{Token: sessionToken})
}

// Lock closes the caller's vault session.
func (h *Vault) Lock(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.SessionIDFromContext(r.Context())
	if !ok {
		unauthorized(w, h.logger)
		return
	}

	if err := h.vaultService.Lock(r.Context(), sessionID); err != nil {
		handleError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
