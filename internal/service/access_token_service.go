package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marcelofv/oauth2-core/internal/config"
	"github.com/marcelofv/oauth2-core/internal/domain"
	"github.com/marcelofv/oauth2-core/internal/repository"
	"github.com/marcelofv/oauth2-core/pkg/random"
)

// AccessTokenService owns the access-token lifecycle: creation, lookup,
// validity and revocation.
type AccessTokenService struct {
	repo        repository.AccessTokenRepository
	revocations repository.RevocationStore
	cfg         config.TokenConfig
}

func NewAccessTokenService(repo repository.AccessTokenRepository, revocations repository.RevocationStore, cfg config.TokenConfig) *AccessTokenService {
	return &AccessTokenService{repo: repo, revocations: revocations, cfg: cfg}
}

// Create issues a new access token bound to the client and resource owner.
// refreshToken may be empty when no refresh token accompanies it.
func (s *AccessTokenService) Create(ctx context.Context, client *domain.Client, userID string, scope []string, tokenType, refreshToken string) (*domain.AccessToken, error) {
	value, err := random.String(s.cfg.Charset, s.cfg.MinLength, s.cfg.MaxLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	lifetime := client.AccessTokenLifetime
	if lifetime == 0 {
		lifetime = s.cfg.AccessTokenLifetime
	}

	if tokenType == "" {
		tokenType = domain.TokenTypeBearer
	}

	token := &domain.AccessToken{
		Token: domain.Token{
			ID:        uuid.New(),
			Value:     value,
			ClientID:  client.ClientID,
			UserID:    userID,
			Scope:     scope,
			ExpiresAt: expiry(lifetime),
			CreatedAt: time.Now(),
		},
		TokenType:    tokenType,
		RefreshToken: refreshToken,
	}

	if err := s.repo.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to store access token: %w", err)
	}

	return token, nil
}

// Get looks up a token by its opaque value. Returns repository.ErrNotFound
// when no such token exists.
func (s *AccessTokenService) Get(ctx context.Context, value string) (*domain.AccessToken, error) {
	return s.repo.GetByValue(ctx, value)
}

// IsValid reports whether the token is neither expired nor revoked. The
// revocation store is consulted so a concurrent revocation is seen at once.
func (s *AccessTokenService) IsValid(ctx context.Context, token *domain.AccessToken) (bool, error) {
	if token.HasExpired() || token.Revoked {
		return false, nil
	}

	revoked, err := s.revocations.IsRevoked(ctx, domain.TokenTypeHintAccessToken, token.Value)
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}

	return !revoked, nil
}

// Revoke tombstones the token. Idempotent: revoking twice, or revoking a
// token the store no longer has, is not an error.
func (s *AccessTokenService) Revoke(ctx context.Context, token *domain.AccessToken) error {
	if err := s.repo.Revoke(ctx, token.Value); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to revoke access token: %w", err)
	}

	if err := s.revocations.Revoke(ctx, domain.TokenTypeHintAccessToken, token.Value, token.ExpiresAt); err != nil {
		return err
	}

	return nil
}

// expiry converts a lifetime into an absolute expiry; zero means "never".
func expiry(lifetime time.Duration) time.Time {
	if lifetime <= 0 {
		return time.Time{}
	}
	return time.Now().Add(lifetime)
}
