package model

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// CardStore defines persistence operations for stored cards.
type CardStore interface {
	Create(ctx context.Context, card StoredCard) (StoredCard, error)
	GetByID(ctx context.Context, id uuid.UUID) (StoredCard, error)
	List(ctx context.Context) ([]StoredCard, error)
	GetByPANHash(ctx context.Context, panHash string) ([]StoredCard, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// VaultStore persists vault-level metadata, currently the key derivation
// salt. Losing the salt makes all prior ciphertexts unrecoverable, so it is
// written once on first unlock and reused afterwards.
type VaultStore interface {
	GetSalt(ctx context.Context) ([]byte, error)
	SaveSalt(ctx context.Context, salt []byte) error
}

// Storage is the object store holding raw capture dumps.
type Storage interface {
	Upload(ctx context.Context, key string, reader io.Reader) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
