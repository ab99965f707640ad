package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/marcelofv/oauth2-core/internal/domain"
	"github.com/marcelofv/oauth2-core/internal/repository"
)

type authorizationCodeRepository struct {
	db *sqlx.DB
}

func NewAuthorizationCodeRepository(db *sqlx.DB) repository.AuthorizationCodeRepository {
	return &authorizationCodeRepository{db: db}
}

type authorizationCodeRow struct {
	domain.AuthorizationCode
	ScopeArr  pq.StringArray `db:"scope"`
	ExpiresAt sql.NullTime   `db:"expires_at"`
	RawQuery  string         `db:"query"`
}

func (row *authorizationCodeRow) toCode() (*domain.AuthorizationCode, error) {
	code := row.AuthorizationCode
	code.Scope = row.ScopeArr
	if row.ExpiresAt.Valid {
		code.ExpiresAt = row.ExpiresAt.Time
	}

	query, err := url.ParseQuery(row.RawQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to decode stored query: %w", err)
	}
	code.Query = query

	return &code, nil
}

func (r *authorizationCodeRepository) Create(ctx context.Context, code *domain.AuthorizationCode) error {
	code.CreatedAt = time.Now()

	// Only the hash reaches the store; the raw code stays with the caller.
	query := `
		INSERT INTO authorization_codes (
			id, code_hash, client_id, user_id, scope, query, redirect_uri,
			issue_refresh_token, code_challenge, code_challenge_method,
			used, expires_at, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.ExecContext(ctx, query,
		code.ID, code.CodeHash, code.ClientID, code.UserID,
		pq.StringArray(code.Scope), code.Query.Encode(), code.RedirectURI,
		code.IssueRefreshToken, code.CodeChallenge, code.CodeChallengeMethod,
		code.Used, nullTime(code.ExpiresAt), code.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create authorization code: %w", err)
	}

	return nil
}

func (r *authorizationCodeRepository) GetByCodeHash(ctx context.Context, codeHash string) (*domain.AuthorizationCode, error) {
	query := `
		SELECT id, code_hash, client_id, user_id, scope, query, redirect_uri,
		       issue_refresh_token, code_challenge, code_challenge_method,
		       used, expires_at, created_at
		FROM authorization_codes
		WHERE code_hash = $1`

	var row authorizationCodeRow
	if err := r.db.GetContext(ctx, &row, query, codeHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get authorization code: %w", err)
	}

	return row.toCode()
}

// MarkUsed flips the used flag with a conditional update; the row count tells
// us whether this call won against concurrent exchanges of the same code.
func (r *authorizationCodeRepository) MarkUsed(ctx context.Context, codeHash string) (bool, error) {
	query := `
		UPDATE authorization_codes
		SET used = TRUE
		WHERE code_hash = $1 AND used = FALSE`

	result, err := r.db.ExecContext(ctx, query, codeHash)
	if err != nil {
		return false, fmt.Errorf("failed to mark authorization code used: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 1 {
		return true, nil
	}

	// Either the code never existed or another exchange got there first.
	var exists bool
	if err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM authorization_codes WHERE code_hash = $1)`, codeHash); err != nil {
		return false, fmt.Errorf("failed to check authorization code: %w", err)
	}
	if !exists {
		return false, repository.ErrNotFound
	}

	return false, nil
}

func (r *authorizationCodeRepository) DeleteExpired(ctx context.Context) error {
	query := `
		DELETE FROM authorization_codes
		WHERE expires_at IS NOT NULL AND expires_at < NOW()`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to delete expired authorization codes: %w", err)
	}

	return nil
}
