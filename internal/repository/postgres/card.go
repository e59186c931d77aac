package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/avream/cardsnoop/internal/model"
)

var _ model.CardStore = (*CardRepository)(nil)

type CardRepository struct {
	db *Connection
}

func NewCardRepository(db *Connection) *CardRepository {
	return &CardRepository{
		db: db,
	}
}

func (r *CardRepository) Create(ctx context.Context, card model.StoredCard) (model.StoredCard, error) {
	query := `
		INSERT INTO cards (id, label, brand, pan_hash, dump_key, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, label, brand, pan_hash, dump_key, payload, created_at, updated_at, deleted_at`

	var saved model.StoredCard
	err := r.db.QueryRow(ctx, query,
		card.ID, card.Label, card.Brand, card.PANHash, card.DumpKey, card.Payload,
	).Scan(
		&saved.ID, &saved.Label, &saved.Brand, &saved.PANHash, &saved.DumpKey,
		&saved.Payload, &saved.CreatedAt, &saved.UpdatedAt, &saved.DeletedAt,
	)
	if err != nil {
		return model.StoredCard{}, err
	}

	return saved, nil
}

func (r *CardRepository) GetByID(ctx context.Context, id uuid.UUID) (model.StoredCard, error) {
	query := `
		SELECT id, label, brand, pan_hash, dump_key, payload, created_at, updated_at, deleted_at
		FROM cards
		WHERE id = $1 AND deleted_at IS NULL`

	var card model.StoredCard
	err := r.db.QueryRow(ctx, query, id).Scan(
		&card.ID, &card.Label, &card.Brand, &card.PANHash, &card.DumpKey,
		&card.Payload, &card.CreatedAt, &card.UpdatedAt, &card.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.StoredCard{}, model.ErrNotFound
		}
		return model.StoredCard{}, err
	}

	return card, nil
}

func (r *CardRepository) List(ctx context.Context) ([]model.StoredCard, error) {
	query := `
		SELECT id, label, brand, pan_hash, dump_key, payload, created_at, updated_at, deleted_at
		FROM cards
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCards(rows)
}

func (r *CardRepository) GetByPANHash(ctx context.Context, panHash string) ([]model.StoredCard, error) {
	query := `
		SELECT id, label, brand, pan_hash, dump_key, payload, created_at, updated_at, deleted_at
		FROM cards
		WHERE pan_hash = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, panHash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCards(rows)
}

func (r *CardRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE cards SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	cmd, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func scanCards(rows pgx.Rows) ([]model.StoredCard, error) {
	var cards []model.StoredCard
	for rows.Next() {
		var card model.StoredCard
		err := rows.Scan(
			&card.ID, &card.Label, &card.Brand, &card.PANHash, &card.DumpKey,
			&card.Payload, &card.CreatedAt, &card.UpdatedAt, &card.DeletedAt,
		)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return cards, nil
}
