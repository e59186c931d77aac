package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/avream/cardsnoop/internal/api/http/middleware"
	"github.com/avream/cardsnoop/internal/model"
	"github.com/avream/cardsnoop/internal/testutil"
)

// MockVaultService mocks the VaultService interface
type MockVaultService struct {
	mock.Mock
}

func (m *MockVaultService) Unlock(ctx context.Context, password string) (string, error) {
	args := m.Called(ctx, password)
	return args.String(0), args.Error(1)
}

func (m *MockVaultService) Lock(ctx context.Context, sessionID uuid.UUID) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func TestVault_Unlock(t *testing.T) {
	svc := &MockVaultService{}
	svc.On("Unlock", mock.Anything, "master-password").Return("session-token", nil)

	h := NewVault(svc, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/vault/unlock", strings.NewReader(`{"password":"master-password"}`))
	w := httptest.NewRecorder()

	h.Unlock(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp unlockResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "session-token", resp.Token)
}

func TestVault_Unlock_InvalidBody(t *testing.T) {
	h := NewVault(&MockVaultService{}, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/vault/unlock", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	h.Unlock(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVault_Unlock_EmptyPassword(t *testing.T) {
	svc := &MockVaultService{}
	svc.On("Unlock", mock.Anything, "").Return("", model.ErrEmptyPassword)

	h := NewVault(svc, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/vault/unlock", strings.NewReader(`{"password":""}`))
	w := httptest.NewRecorder()

	h.Unlock(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "password must not be empty")
}

func TestVault_Unlock_ServiceError(t *testing.T) {
	svc := &MockVaultService{}
	svc.On("Unlock", mock.Anything, "master-password").Return("", errors.New("db down"))

	h := NewVault(svc, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/vault/unlock", strings.NewReader(`{"password":"master-password"}`))
	w := httptest.NewRecorder()

	h.Unlock(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}

func TestVault_Lock(t *testing.T) {
	sessionID := uuid.New()

	svc := &MockVaultService{}
	svc.On("Lock", mock.Anything, sessionID).Return(nil)

	h := NewVault(svc, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/vault/lock", nil)
	req = req.WithContext(middleware.WithSessionID(req.Context(), sessionID))
	w := httptest.NewRecorder()

	h.Lock(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	svc.AssertExpectations(t)
}

func TestVault_Lock_NoSession(t *testing.T) {
	h := NewVault(&MockVaultService{}, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/vault/lock", nil)
	w := httptest.NewRecorder()

	h.Lock(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVault_Lock_UnknownSession(t *testing.T) {
	sessionID := uuid.New()

	svc := &MockVaultService{}
	svc.On("Lock", mock.Anything, sessionID).Return(model.ErrSessionNotFound)

	h := NewVault(svc, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/vault/lock", nil)
	req = req.WithContext(middleware.WithSessionID(req.Context(), sessionID))
	w := httptest.NewRecorder()

	h.Lock(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
