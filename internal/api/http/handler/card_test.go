package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/avream/cardsnoop/internal/api/http/middleware"
	"github.com/avream/cardsnoop/internal/model"
	"github.com/avream/cardsnoop/internal/service"
	"github.com/avream/cardsnoop/internal/testutil"
)

// MockCardService mocks the CardService interface
type MockCardService struct {
	mock.Mock
}

func (m *MockCardService) Ingest(ctx context.Context, sessionID uuid.UUID, params model.IngestCardParams) (model.StoredCard, error) {
	args := m.Called(ctx, sessionID, params)
	return args.Get(0).(model.StoredCard), args.Error(1)
}

func (m *MockCardService) Classify(ctx context.Context, tracks map[int][]byte) (service.Classification, error) {
	args := m.Called(ctx, tracks)
	return args.Get(0).(service.Classification), args.Error(1)
}

func (m *MockCardService) List(ctx context.Context) ([]model.StoredCard, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.StoredCard), args.Error(1)
}

func (m *MockCardService) Get(ctx context.Context, id uuid.UUID) (model.StoredCard, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.StoredCard), args.Error(1)
}

func (m *MockCardService) Reveal(ctx context.Context, sessionID uuid.UUID, id uuid.UUID) (model.CardRecord, error) {
	args := m.Called(ctx, sessionID, id)
	return args.Get(0).(model.CardRecord), args.Error(1)
}

func (m *MockCardService) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func withSession(req *http.Request, sessionID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithSessionID(req.Context(), sessionID))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func encodedTracksBody(label string) string {
	track2 := base64.StdEncoding.EncodeToString([]byte(";4111111111111111=25121010000000000000?"))
	if label == "" {
		return fmt.Sprintf(`{"tracks":{"2":%q}}`, track2)
	}
	return fmt.Sprintf(`{"label":%q,"tracks":{"2":%q}}`, label, track2)
}

func TestCard_Ingest(t *testing.T) {
	sessionID := uuid.New()
	stored := model.StoredCard{ID: uuid.New(), Label: "wallet card", Brand: "Visa"}

	svc := &MockCardService{}
	svc.On("Ingest", mock.Anything, sessionID, mock.MatchedBy(func(params model.IngestCardParams) bool {
		return params.Label == "wallet card" && len(params.Tracks) == 1
	})).Return(stored, nil)

	h := NewCard(svc, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/cards", strings.NewReader(encodedTracksBody("wallet card")))
	req = withSession(req, sessionID)
	w := httptest.NewRecorder()

	h.Ingest(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp cardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, stored.ID, resp.ID)
	assert.Equal(t, "Visa", resp.Brand)
}

func TestCard_Ingest_NoSession(t *testing.T) {
	h := NewCard(&MockCardService{}, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/cards", strings.NewReader(encodedTracksBody("")))
	w := httptest.NewRecorder()

	h.Ingest(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCard_Ingest_BadTrackNumber(t *testing.T) {
	h := NewCard(&MockCardService{}, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/cards", strings.NewReader(`{"tracks":{"9":"QQ=="}}`))
	req = withSession(req, uuid.New())
	w := httptest.NewRecorder()

	h.Ingest(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid track number")
}

func TestCard_Ingest_BadBase64(t *testing.T) {
	h := NewCard(&MockCardService{}, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/cards", strings.NewReader(`{"tracks":{"2":"not base64!"}}`))
	req = withSession(req, uuid.New())
	w := httptest.NewRecorder()

	h.Ingest(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCard_Ingest_NoTracks(t *testing.T) {
	h := NewCard(&MockCardService{}, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/cards", strings.NewReader(`{"label":"x"}`))
	req = withSession(req, uuid.New())
	w := httptest.NewRecorder()

	h.Ingest(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "at least one track is required")
}

func TestCard_Classify(t *testing.T) {
	classification := service.Classification{
		Tracks: map[int]string{2: ";4111111111111111=25121010000000000000?"},
	}
	classification.Result.SetCardType("Visa")

	svc := &MockCardService{}
	svc.On("Classify", mock.Anything, mock.AnythingOfType("map[int][]uint8")).Return(classification, nil)

	h := NewCard(svc, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/cards/classify", strings.NewReader(encodedTracksBody("")))
	w := httptest.NewRecorder()

	h.Classify(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp service.Classification
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Visa", resp.Result.CardType)
	assert.True(t, resp.Result.Valid)
}

func TestCard_List(t *testing.T) {
	cards := []model.StoredCard{
		{ID: uuid.New(), Brand: "Visa"},
		{ID: uuid.New(), Brand: "Mastercard"},
	}

	svc := &MockCardService{}
	svc.On("List", mock.Anything).Return(cards, nil)

	h := NewCard(svc, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/cards", nil)
	w := httptest.NewRecorder()

	h.List(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp []cardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, cards[0].ID, resp[0].ID)
}

func TestCard_Get(t *testing.T) {
	card := model.StoredCard{ID: uuid.New(), Label: "wallet card"}

	svc := &MockCardService{}
	svc.On("Get", mock.Anything, card.ID).Return(card, nil)

	h := NewCard(svc, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/cards/"+card.ID.String(), nil)
	req = withURLParam(req, "id", card.ID.String())
	w := httptest.NewRecorder()

	h.Get(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestCard_Get_InvalidID(t *testing.T) {
	h := NewCard(&MockCardService{}, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/cards/abc", nil)
	req = withURLParam(req, "id", "abc")
	w := httptest.NewRecorder()

	h.Get(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCard_Get_NotFound(t *testing.T) {
	id := uuid.New()

	svc := &MockCardService{}
	svc.On("Get", mock.Anything, id).Return(model.StoredCard{}, model.ErrNotFound)

	h := NewCard(svc, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/cards/"+id.String(), nil)
	req = withURLParam(req, "id", id.String())
	w := httptest.NewRecorder()

	h.Get(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCard_Reveal(t *testing.T) {
	sessionID := uuid.New()
	id := uuid.New()
	record := model.CardRecord{Number: "4111111111111111", HolderName: "DOE/JOHN"}

	svc := &MockCardService{}
	svc.On("Reveal", mock.Anything, sessionID, id).Return(record, nil)

	h := NewCard(svc, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/cards/"+id.String()+"/reveal", nil)
	req = withSession(req, sessionID)
	req = withURLParam(req, "id", id.String())
	w := httptest.NewRecorder()

	h.Reveal(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp model.CardRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, record, resp)
}

func TestCard_Reveal_DecryptionFailure(t *testing.T) {
	sessionID := uuid.New()
	id := uuid.New()

	svc := &MockCardService{}
	svc.On("Reveal", mock.Anything, sessionID, id).Return(model.CardRecord{}, model.ErrDecryption)

	h := NewCard(svc, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/cards/"+id.String()+"/reveal", nil)
	req = withSession(req, sessionID)
	req = withURLParam(req, "id", id.String())
	w := httptest.NewRecorder()

	h.Reveal(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCard_Delete(t *testing.T) {
	id := uuid.New()

	svc := &MockCardService{}
	svc.On("Delete", mock.Anything, id).Return(nil)

	h := NewCard(svc, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodDelete, "/api/cards/"+id.String(), nil)
	req = withURLParam(req, "id", id.String())
	w := httptest.NewRecorder()

	h.Delete(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	svc.AssertExpectations(t)
}

func TestCard_Delete_NotFound(t *testing.T) {
	id := uuid.New()

	svc := &MockCardService{}
	svc.On("Delete", mock.Anything, id).Return(model.ErrNotFound)

	h := NewCard(svc, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodDelete, "/api/cards/"+id.String(), nil)
	req = withURLParam(req, "id", id.String())
	w := httptest.NewRecorder()

	h.Delete(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
