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

type clientRepository struct {
	db *sqlx.DB
}

func NewClientRepository(db *sqlx.DB) repository.ClientRepository {
	return &clientRepository{db: db}
}

// clientRow flattens the array-valued fields for sqlx scanning.
type clientRow struct {
	domain.Client
	PublicKeysArr    pq.StringArray `db:"public_keys"`
	SigningAlgsArr   pq.StringArray `db:"signing_algs"`
	GrantTypesArr    pq.StringArray `db:"grant_types"`
	ResponseTypesArr pq.StringArray `db:"response_types"`
	RedirectURIsArr  pq.StringArray `db:"redirect_uris"`
	ScopeArr         pq.StringArray `db:"scope"`
}

func (row *clientRow) toClient() *domain.Client {
	client := row.Client
	client.PublicKeys = row.PublicKeysArr
	client.SigningAlgs = row.SigningAlgsArr
	client.GrantTypes = row.GrantTypesArr
	client.ResponseTypes = row.ResponseTypesArr
	client.RedirectURIs = row.RedirectURIsArr
	client.Scope = row.ScopeArr
	return &client
}

func (r *clientRepository) Create(ctx context.Context, client *domain.Client) error {
	now := time.Now()
	client.CreatedAt = now
	client.UpdatedAt = now

	query := `
		INSERT INTO clients (
			id, client_id, name, type, secret_hash, public_keys, signing_algs,
			grant_types, response_types, redirect_uris, scope,
			access_token_lifetime, refresh_token_lifetime, auth_code_lifetime,
			id_token_lifetime, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := r.db.ExecContext(ctx, query,
		client.ID, client.ClientID, client.Name, client.Type, client.SecretHash,
		pq.StringArray(client.PublicKeys), pq.StringArray(client.SigningAlgs),
		pq.StringArray(client.GrantTypes), pq.StringArray(client.ResponseTypes),
		pq.StringArray(client.RedirectURIs), pq.StringArray(client.Scope),
		client.AccessTokenLifetime, client.RefreshTokenLifetime,
		client.AuthCodeLifetime, client.IDTokenLifetime,
		client.CreatedAt, client.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	return nil
}

func (r *clientRepository) GetByClientID(ctx context.Context, clientID string) (*domain.Client, error) {
	query := `
		SELECT id, client_id, name, type, secret_hash, public_keys, signing_algs,
		       grant_types, response_types, redirect_uris, scope,
		       access_token_lifetime, refresh_token_lifetime, auth_code_lifetime,
		       id_token_lifetime, created_at, updated_at
		FROM clients
		WHERE client_id = $1`

	var row clientRow
	if err := r.db.GetContext(ctx, &row, query, clientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	return row.toClient(), nil
}

func (r *clientRepository) Update(ctx context.Context, client *domain.Client) error {
	client.UpdatedAt = time.Now()

	query := `
		UPDATE clients
		SET name = $2, type = $3, secret_hash = $4, public_keys = $5,
		    signing_algs = $6, grant_types = $7, response_types = $8,
		    redirect_uris = $9, scope = $10, access_token_lifetime = $11,
		    refresh_token_lifetime = $12, auth_code_lifetime = $13,
		    id_token_lifetime = $14, updated_at = $15
		WHERE client_id = $1`

	result, err := r.db.ExecContext(ctx, query,
		client.ClientID, client.Name, client.Type, client.SecretHash,
		pq.StringArray(client.PublicKeys), pq.StringArray(client.SigningAlgs),
		pq.StringArray(client.GrantTypes), pq.StringArray(client.ResponseTypes),
		pq.StringArray(client.RedirectURIs), pq.StringArray(client.Scope),
		client.AccessTokenLifetime, client.RefreshTokenLifetime,
		client.AuthCodeLifetime, client.IDTokenLifetime, client.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
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

func (r *clientRepository) Delete(ctx context.Context, clientID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE client_id = $1`, clientID)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
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
