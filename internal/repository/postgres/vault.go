package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/avream/cardsnoop/internal/model"
)

var _ model.VaultStore = (*VaultRepository)(nil)

// VaultRepository persists the single vault metadata row. The salt is
// written once on first unlock and must never be rotated while encrypted
// records exist.
type VaultRepository struct {
	db *Connection
}

func NewVaultRepository(db *Connection) *VaultRepository {
	return &VaultRepository{
		db: db,
	}
}

func (r *VaultRepository) GetSalt(ctx context.Context) ([]byte, error) {
	const query = `SELECT salt FROM vault_meta WHERE id = 1`

	var salt []byte
	err := r.db.QueryRow(ctx, query).Scan(&salt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}

	return salt, nil
}

func (r *VaultRepository) SaveSalt(ctx context.Context, salt []byte) error {
	const query = `
		INSERT INTO vault_meta (id, salt) VALUES (1, $1)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.db.Exec(ctx, query, salt)
	return err
}
