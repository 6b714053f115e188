package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vkoshelev/identityd/internal/model"
)

var _ model.ConfirmationTokenStore = (*ConfirmationTokenRepository)(nil)

type ConfirmationTokenRepository struct {
	db *Connection
}

func NewConfirmationTokenRepository(db *Connection) *ConfirmationTokenRepository {
	return &ConfirmationTokenRepository{
		db: db,
	}
}

func (r *ConfirmationTokenRepository) Create(ctx context.Context, token model.ConfirmationToken) error {
	query := `INSERT INTO confirmation_tokens (id, token, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query,
		token.ID, token.Token, token.UserID, token.CreatedAt, token.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create confirmation token: %w", err)
	}

	return nil
}

func (r *ConfirmationTokenRepository) GetByToken(ctx context.Context, token string) (model.ConfirmationToken, error) {
	query := `SELECT id, token, user_id, created_at, expires_at, confirmed_at
		FROM confirmation_tokens WHERE token = $1`

	var ct model.ConfirmationToken
	err := r.db.QueryRow(ctx, query, token).Scan(
		&ct.ID, &ct.Token, &ct.UserID, &ct.CreatedAt, &ct.ExpiresAt, &ct.ConfirmedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ConfirmationToken{}, model.ErrNotFound
		}
		return model.ConfirmationToken{}, fmt.Errorf("failed to get confirmation token: %w", err)
	}

	return ct, nil
}

func (r *ConfirmationTokenRepository) SetConfirmedAt(ctx context.Context, id uuid.UUID, when time.Time) error {
	query := `UPDATE confirmation_tokens SET confirmed_at = $2
		WHERE id = $1 AND confirmed_at IS NULL`

	tag, err := r.db.Exec(ctx, query, id, when)
	if err != nil {
		return fmt.Errorf("failed to set confirmation time: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}

// DeleteExpired removes tokens past their expiry that were never confirmed.
func (r *ConfirmationTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM confirmation_tokens WHERE expires_at < $1 AND confirmed_at IS NULL`

	tag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired confirmation tokens: %w", err)
	}

	return tag.RowsAffected(), nil
}
