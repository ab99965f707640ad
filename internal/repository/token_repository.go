package repository

import (
	"context"

	"github.com/marcelofv/oauth2-core/internal/domain"
)

// AccessTokenRepository stores issued access tokens keyed by their opaque value.
type AccessTokenRepository interface {
	Create(ctx context.Context, token *domain.AccessToken) error
	GetByValue(ctx context.Context, value string) (*domain.AccessToken, error)

	// Revoke tombstones the token. Once revoked a token must never
	// validate again, and revoking an unknown token is not an error.
	Revoke(ctx context.Context, value string) error

	DeleteExpired(ctx context.Context) error
}

// RefreshTokenRepository stores issued refresh tokens keyed by their opaque value.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	GetByValue(ctx context.Context, value string) (*domain.RefreshToken, error)

	// MarkUsed flags the token as rotated out. Implementations must make the
	// flag immediately visible to concurrent readers.
	MarkUsed(ctx context.Context, value string) error

	Revoke(ctx context.Context, value string) error
	DeleteExpired(ctx context.Context) error
}

// AuthorizationCodeRepository stores authorization codes by the SHA-256 hash
// of the code string; the raw code never touches the store.
type AuthorizationCodeRepository interface {
	Create(ctx context.Context, code *domain.AuthorizationCode) error
	GetByCodeHash(ctx context.Context, codeHash string) (*domain.AuthorizationCode, error)

	// MarkUsed atomically flips the used flag and reports whether this call
	// won the flip. Two concurrent exchanges of the same code must see
	// exactly one true. Returns ErrNotFound when no such code exists.
	MarkUsed(ctx context.Context, codeHash string) (bool, error)

	DeleteExpired(ctx context.Context) error
}
