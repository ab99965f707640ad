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

type accessTokenRepository struct {
	db *sqlx.DB
}

func NewAccessTokenRepository(db *sqlx.DB) repository.AccessTokenRepository {
	return &accessTokenRepository{db: db}
}

type accessTokenRow struct {
	domain.AccessToken
	ScopeArr  pq.StringArray `db:"scope"`
	ExpiresAt sql.NullTime   `db:"expires_at"`
}

func (row *accessTokenRow) toToken() *domain.AccessToken {
	token := row.AccessToken
	token.Scope = row.ScopeArr
	if row.ExpiresAt.Valid {
		token.ExpiresAt = row.ExpiresAt.Time
	}
	return &token
}

func (r *accessTokenRepository) Create(ctx context.Context, token *domain.AccessToken) error {
	token.CreatedAt = time.Now()

	query := `
		INSERT INTO access_tokens (
			id, value, client_id, user_id, scope, token_type, refresh_token,
			expires_at, revoked, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		token.ID, token.Value, token.ClientID, token.UserID,
		pq.StringArray(token.Scope), token.TokenType, token.RefreshToken,
		nullTime(token.ExpiresAt), token.Revoked, token.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create access token: %w", err)
	}

	return nil
}

func (r *accessTokenRepository) GetByValue(ctx context.Context, value string) (*domain.AccessToken, error) {
	query := `
		SELECT id, value, client_id, user_id, scope, token_type, refresh_token,
		       expires_at, revoked, created_at
		FROM access_tokens
		WHERE value = $1`

	var row accessTokenRow
	if err := r.db.GetContext(ctx, &row, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	return row.toToken(), nil
}

func (r *accessTokenRepository) Revoke(ctx context.Context, value string) error {
	// Revoking an unknown token is not an error (RFC 7009 anti-enumeration).
	query := `
		UPDATE access_tokens
		SET revoked = TRUE
		WHERE value = $1`

	if _, err := r.db.ExecContext(ctx, query, value); err != nil {
		return fmt.Errorf("failed to revoke access token: %w", err)
	}

	return nil
}

func (r *accessTokenRepository) DeleteExpired(ctx context.Context) error {
	query := `
		DELETE FROM access_tokens
		WHERE expires_at IS NOT NULL AND expires_at < NOW()`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to delete expired access tokens: %w", err)
	}

	return nil
}

// nullTime maps the zero time (token never expires) to SQL NULL.
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
