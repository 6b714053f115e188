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

var _ model.RefreshTokenStore = (*RefreshTokenRepository)(nil)

type RefreshTokenRepository struct {
	db *Connection
}

func NewRefreshTokenRepository(db *Connection) *RefreshTokenRepository {
	return &RefreshTokenRepository{
		db: db,
	}
}

const refreshTokenColumns = `id, user_id, jti, token_hash, issued_at, expires_at,
	revoked, revoked_at, replaced_by, last_used_at, created_at, updated_at`

func scanRefreshToken(row pgx.Row) (model.RefreshToken, error) {
	var token model.RefreshToken
	err := row.Scan(
		&token.ID, &token.UserID, &token.JTI, &token.TokenHash,
		&token.IssuedAt, &token.ExpiresAt,
		&token.Revoked, &token.RevokedAt, &token.ReplacedBy, &token.LastUsedAt,
		&token.CreatedAt, &token.UpdatedAt,
	)
	return token, err
}

const insertRefreshTokenQuery = `INSERT INTO refresh_tokens
	(id, user_id, jti, token_hash, issued_at, expires_at, revoked, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7, $7)`

func (r *RefreshTokenRepository) Create(ctx context.Context, token model.RefreshToken) error {
	_, err := r.db.Exec(ctx, insertRefreshTokenQuery,
		token.ID, token.UserID, token.JTI, token.TokenHash,
		token.IssuedAt, token.ExpiresAt, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create refresh token: %w", err)
	}

	return nil
}

func (r *RefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (model.RefreshToken, error) {
	query := `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE token_hash = $1`

	token, err := scanRefreshToken(r.db.QueryRow(ctx, query, tokenHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.RefreshToken{}, model.ErrNotFound
		}
		return model.RefreshToken{}, fmt.Errorf("failed to get refresh token by hash: %w", err)
	}

	return token, nil
}

func (r *RefreshTokenRepository) GetActiveByUser(ctx context.Context, userID uuid.UUID) ([]model.RefreshToken, error) {
	query := `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens
		WHERE user_id = $1 AND revoked = FALSE AND expires_at > NOW()
		ORDER BY issued_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active refresh tokens: %w", err)
	}
	defer rows.Close()

	var tokens []model.RefreshToken
	for rows.Next() {
		token, err := scanRefreshToken(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan refresh token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read refresh token rows: %w", err)
	}

	return tokens, nil
}

// Rotate revokes the current record and inserts its successor atomically.
// The revoking UPDATE is guarded by revoked = FALSE so that of any number of
// concurrent rotations of the same record exactly one commits; the rest see
// zero affected rows and get ErrTokenRevoked.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, currentID uuid.UUID, next model.RefreshToken) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin rotation transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	revokeQuery := `UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = NOW(), replaced_by = $2, last_used_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND revoked = FALSE`

	tag, err := tx.Exec(ctx, revokeQuery, currentID, next.JTI)
	if err != nil {
		return fmt.Errorf("failed to revoke rotated refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTokenRevoked
	}

	_, err = tx.Exec(ctx, insertRefreshTokenQuery,
		next.ID, next.UserID, next.JTI, next.TokenHash,
		next.IssuedAt, next.ExpiresAt, next.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create successor refresh token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit rotation transaction: %w", err)
	}

	return nil
}

// Revoke marks a record revoked without a successor. Revoking an already
// revoked record is a no-op.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND revoked = FALSE`

	_, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	return nil
}

// DeleteExpired removes records whose expiry is in the past regardless of
// their revoked flag. Revoked but unexpired records are retained so rotation
// replays keep returning ErrTokenRevoked instead of ErrUnknownToken.
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM refresh_tokens WHERE expires_at < $1`

	tag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired refresh tokens: %w", err)
	}

	return tag.RowsAffected(), nil
}
