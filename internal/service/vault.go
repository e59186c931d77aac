package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/avream/cardsnoop/internal/logger"
	"github.com/avream/cardsnoop/internal/model"
	"github.com/avream/cardsnoop/internal/securestore"
	"github.com/avream/cardsnoop/internal/token"
)

// Vault manages unlocked sessions. Each successful unlock derives the
// encryption key from the master password and keeps it in memory for the
// lifetime of the session only; nothing key-related is ever persisted
// besides the salt.
type Vault struct {
	vaultStore model.VaultStore
	jwt        *token.JWT
	iterations int
	logger     *logger.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*securestore.Storage
}

func NewVault(
	vaultStore model.VaultStore,
	jwt *token.JWT,
	iterations int,
	logger *logger.Logger,
) *Vault {
	return &Vault{
		vaultStore: vaultStore,
		jwt:        jwt,
		iterations: iterations,
		logger:     logger,
		sessions:   make(map[uuid.UUID]*securestore.Storage),
	}
}

// Unlock derives the vault key from the password and opens a new session,
// returning a bearer token for it. The very first unlock generates the salt
// and persists it; every later unlock reuses the stored salt so earlier
// ciphertexts stay decryptable.
func (s *Vault) Unlock(ctx context.Context, password string) (string, error) {
	salt, err := s.vaultStore.GetSalt(ctx)
	firstUnlock := false
	if errors.Is(err, model.ErrNotFound) {
		salt = nil
		firstUnlock = true
	} else if err != nil {
		return "", fmt.Errorf("failed to load vault salt: %w", err)
	}

	storage, err := securestore.NewWithIterations(password, salt, s.iterations)
	if err != nil {
		return "", fmt.Errorf("failed to derive vault key: %w", err)
	}

	if firstUnlock {
		if err := s.vaultStore.SaveSalt(ctx, storage.Salt()); err != nil {
			storage.Destroy()
			return "", fmt.Errorf("failed to persist vault salt: %w", err)
		}

		// Another instance may have won the insert. Re-read so the
		// session key always matches the persisted salt.
		stored, err := s.vaultStore.GetSalt(ctx)
		if err != nil {
			storage.Destroy()
			return "", fmt.Errorf("failed to reload vault salt: %w", err)
		}
		if !bytes.Equal(stored, storage.Salt()) {
			storage.Destroy()
			storage, err = securestore.NewWithIterations(password, stored, s.iterations)
			if err != nil {
				return "", fmt.Errorf("failed to derive vault key: %w", err)
			}
		}
	}

	sessionID := uuid.New()

	s.mu.Lock()
	s.sessions[sessionID] = storage
	s.mu.Unlock()

	sessionToken, err := s.jwt.GenerateSessionToken(sessionID)
	if err != nil {
		s.closeSession(sessionID)
		return "", fmt.Errorf("failed to issue session token: %w", err)
	}

	s.logger.Info("vault unlocked", "session_id", sessionID)

	return sessionToken, nil
}

// Lock closes a session and wipes its key material.
func (s *Vault) Lock(ctx context.Context, sessionID uuid.UUID) error {
	if !s.closeSession(sessionID) {
		return model.ErrSessionNotFound
	}

	s.logger.Info("vault locked", "session_id", sessionID)

	return nil
}

// Storage returns the secure storage bound to an unlocked session.
func (s *Vault) Storage(sessionID uuid.UUID) (*securestore.Storage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	storage, ok := s.sessions[sessionID]
	if !ok {
		return nil, model.ErrSessionNotFound
	}

	return storage, nil
}

func (s *Vault) closeSession(sessionID uuid.UUID) bool {
	s.mu.Lock()
	storage, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()

	if ok {
		storage.Destroy()
	}

	return ok
}
