package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/avream/cardsnoop/internal/api/http/middleware"
	"github.com/avream/cardsnoop/internal/logger"
	"github.com/avream/cardsnoop/internal/model"
	"github.com/avream/cardsnoop/internal/service"
)

// CardService defines business operations for card management.
type CardService interface {
	Ingest(ctx context.Context, sessionID uuid.UUID, params model.IngestCardParams) (model.StoredCard, error)
	Classify(ctx context.Context, tracks map[int][]byte) (service.Classification, error)
	List(ctx context.Context) ([]model.StoredCard, error)
	Get(ctx context.Context, id uuid.UUID) (model.StoredCard, error)
	Reveal(ctx context.Context, sessionID uuid.UUID, id uuid.UUID) (model.CardRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Card handles HTTP endpoints for cards.
type Card struct {
	cardService CardService
	logger      *logger.Logger
}

// NewCard creates a new Card handler.
func NewCard(cardService CardService, logger *logger.Logger) *Card {
	return &Card{
		cardService: cardService,
		logger:      logger,
	}
}

type ingestRequest struct {
	Label string `json:"label"`
	// Raw track bytes, base64 encoded, keyed by track number.
	Tracks map[string]string `json:"tracks"`
}

type classifyRequest struct {
	Tracks map[string]string `json:"tracks"`
}

type cardResponse struct {
	ID        uuid.UUID `json:"id"`
	Label     string    `json:"label,omitempty"`
	Brand     string    `json:"brand,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toCardResponse(card model.StoredCard) cardResponse {
	return cardResponse{
		ID:        card.ID,
		Label:     card.Label,
		Brand:     card.Brand,
		CreatedAt: card.CreatedAt,
		UpdatedAt: card.UpdatedAt,
	}
}

func decodeTracks(in map[string]string) (map[int][]byte, error) {
	out := make(map[int][]byte, len(in))
	for key, value := range in {
		number, err := strconv.Atoi(key)
		if err != nil || number < 1 || number > 3 {
			return nil, fmt.Errorf("invalid track number %q", key)
		}
		data, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return nil, fmt.Errorf("invalid track %d data: %w", number, err)
		}
		out[number] = data
	}
	return out, nil
}

// Ingest decodes, classifies and stores a card read.
func (h *Card) Ingest(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.SessionIDFromContext(r.Context())
	if !ok {
		unauthorized(w, h.logger)
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, h.logger, "invalid request body")
		return
	}

	tracks, err := decodeTracks(req.Tracks)
	if err != nil {
		badRequest(w, h.logger, err.Error())
		return
	}
	if len(tracks) == 0 {
		badRequest(w, h.logger, "at least one track is required")
		return
	}

	card, err := h.cardService.Ingest(r.Context(), sessionID, model.IngestCardParams{
		Label:  req.Label,
		Tracks: tracks,
	})
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, toCardResponse(card))
}

// Classify decodes and brand-tests a card read without storing it.
func (h *Card) Classify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, h.logger, "invalid request body")
		return
	}

	tracks, err := decodeTracks(req.Tracks)
	if err != nil {
		badRequest(w, h.logger, err.Error())
		return
	}
	if len(tracks) == 0 {
		badRequest(w, h.logger, "at least one track is required")
		return
	}

	classification, err := h.cardService.Classify(r.Context(), tracks)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, classification)
}

// List returns metadata for all stored cards.
func (h *Card) List(w http.ResponseWriter, r *http.Request) {
	cards, err := h.cardService.List(r.Context())
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	out := make([]cardResponse, 0, len(cards))
	for _, card := range cards {
		out = append(out, toCardResponse(card))
	}

	writeJSON(w, h.logger, http.StatusOK, out)
}

// Get returns metadata for one stored card.
func (h *Card) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, h.logger, "invalid card id")
		return
	}

	card, err := h.cardService.Get(r.Context(), id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, toCardResponse(card))
}

// Reveal returns the decrypted record of one stored card.
func (h *Card) Reveal(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.SessionIDFromContext(r.Context())
	if !ok {
		unauthorized(w, h.logger)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, h.logger, "invalid card id")
		return
	}

	record, err := h.cardService.Reveal(r.Context(), sessionID, id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, record)
}

// Delete removes a stored card.
func (h *Card) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, h.logger, "invalid card id")
		return
	}

	if err := h.cardService.Delete(r.Context(), id); err != nil {
		handleError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
