package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/marcelofv/oauth2-core/internal/domain"
	"github.com/marcelofv/oauth2-core/internal/repository"
)

type refreshTokenRepository struct {
	db *sqlx.DB
}

func NewRefreshTokenRepository(db *sqlx.DB) repository.RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

type refreshTokenRow struct {
	domain.RefreshToken
	ScopeArr  pq.StringArray `db:"scope"`
	ExpiresAt sql.NullTime   `db:"expires_at"`
}

func (row *refreshTokenRow) toToken() *domain.RefreshToken {
	token := row.RefreshToken
	token.Scope = row.ScopeArr
	if row.ExpiresAt.Valid {
		token.ExpiresAt = row.ExpiresAt.Time
	}
	return &token
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	token.CreatedAt = time.Now()

	query := `
		INSERT INTO refresh_tokens (
			id, value, client_id, user_id, scope, used, expires_at, revoked, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		token.ID, token.Value, token.ClientID, token.UserID,
		pq.StringArray(token.Scope), token.Used,
		nullTime(token.ExpiresAt), token.Revoked, token.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create refresh token: %w", err)
	}

	return nil
}

func (r *refreshTokenRepository) GetByValue(ctx context.Context, value string) (*domain.RefreshToken, error) {
	query := `
		SELECT id, value, client_id, user_id, scope, used, expires_at, revoked, created_at
		FROM refresh_tokens
		WHERE value = $1`

	var row refreshTokenRow
	if err := r.db.GetContext(ctx, &row, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	return row.toToken(), nil
}

func (r *refreshTokenRepository) MarkUsed(ctx context.Context, value string) error {
	query := `
		UPDATE refresh_tokens
		SET used = TRUE
		WHERE value = $1`

	result, err := r.db.ExecContext(ctx, query, value)
	if err != nil {
		return fmt.Errorf("failed to mark refresh token used: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *refreshTokenRepository) Revoke(ctx context.Context, value string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE, used = TRUE
		WHERE value = $1`

	if _, err := r.db.ExecContext(ctx, query, value); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	return nil
}

func (r *refreshTokenRepository) DeleteExpired(ctx context.Context) error {
	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at IS NOT NULL AND expires_at < NOW()`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to delete expired refresh tokens: %w", err)
	}

	return nil
}
