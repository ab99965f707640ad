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

// RefreshTokenService owns the refresh-token lifecycle, including the
// rotation rule: once an exchange marks a token used it never exchanges again.
type RefreshTokenService struct {
	repo        repository.RefreshTokenRepository
	revocations repository.RevocationStore
	cfg         config.TokenConfig
}

func NewRefreshTokenService(repo repository.RefreshTokenRepository, revocations repository.RevocationStore, cfg config.TokenConfig) *RefreshTokenService {
	return &RefreshTokenService{repo: repo, revocations: revocations, cfg: cfg}
}

// Create issues a new refresh token bound to the client and resource owner.
func (s *RefreshTokenService) Create(ctx context.Context, client *domain.Client, userID string, scope []string) (*domain.RefreshToken, error) {
	value, err := random.String(s.cfg.Charset, s.cfg.MinLength, s.cfg.MaxLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	lifetime := client.RefreshTokenLifetime
	if lifetime == 0 {
		lifetime = s.cfg.RefreshTokenLifetime
	}

	token := &domain.RefreshToken{
		Token: domain.Token{
			ID:        uuid.New(),
			Value:     value,
			ClientID:  client.ClientID,
			UserID:    userID,
			Scope:     scope,
			ExpiresAt: expiry(lifetime),
			CreatedAt: time.Now(),
		},
	}

	if err := s.repo.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return token, nil
}

// Get looks up a token by its opaque value.
func (s *RefreshTokenService) Get(ctx context.Context, value string) (*domain.RefreshToken, error) {
	return s.repo.GetByValue(ctx, value)
}

// IsValid reports whether the token can still be exchanged.
func (s *RefreshTokenService) IsValid(ctx context.Context, token *domain.RefreshToken) (bool, error) {
	if token.HasExpired() || token.Revoked || token.Used {
		return false, nil
	}

	revoked, err := s.revocations.IsRevoked(ctx, domain.TokenTypeHintRefreshToken, token.Value)
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}

	return !revoked, nil
}

// MarkUsed rotates the token out. The store must make the flag visible before
// the replacement token is returned to any caller.
func (s *RefreshTokenService) MarkUsed(ctx context.Context, token *domain.RefreshToken) error {
	if err := s.repo.MarkUsed(ctx, token.Value); err != nil {
		return fmt.Errorf("failed to mark refresh token used: %w", err)
	}
	return nil
}

// Revoke tombstones the token. Idempotent.
func (s *RefreshTokenService) Revoke(ctx context.Context, token *domain.RefreshToken) error {
	if err := s.repo.Revoke(ctx, token.Value); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	if err := s.revocations.Revoke(ctx, domain.TokenTypeHintRefreshToken, token.Value, token.ExpiresAt); err != nil {
		return err
	}

	return nil
}
