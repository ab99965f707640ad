package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/marcelofv/oauth2-core/internal/config"
	"github.com/marcelofv/oauth2-core/internal/domain"
	"github.com/marcelofv/oauth2-core/internal/repository"
	"github.com/marcelofv/oauth2-core/pkg/random"
)

// AuthorizationCodeService owns the authorization-code lifecycle. Codes are
// stored by SHA-256 hash, and consumption is a single atomic operation so a
// code can never be exchanged twice.
type AuthorizationCodeService struct {
	repo repository.AuthorizationCodeRepository
	cfg  config.TokenConfig
}

func NewAuthorizationCodeService(repo repository.AuthorizationCodeRepository, cfg config.TokenConfig) *AuthorizationCodeService {
	return &AuthorizationCodeService{repo: repo, cfg: cfg}
}

// Create issues a new code bound to the client, user and redirect URI. The
// returned code carries the raw value; only its hash reaches the store.
func (s *AuthorizationCodeService) Create(ctx context.Context, client *domain.Client, userID string, query url.Values, redirectURI string, scope []string, issueRefreshToken bool) (*domain.AuthorizationCode, error) {
	value, err := random.String(s.cfg.Charset, s.cfg.MinLength, s.cfg.MaxLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate authorization code: %w", err)
	}

	lifetime := client.AuthCodeLifetime
	if lifetime == 0 {
		lifetime = s.cfg.AuthCodeLifetime
	}

	code := &domain.AuthorizationCode{
		Token: domain.Token{
			ID:        uuid.New(),
			Value:     value,
			ClientID:  client.ClientID,
			UserID:    userID,
			Scope:     scope,
			ExpiresAt: expiry(lifetime),
			CreatedAt: time.Now(),
		},
		CodeHash:            HashCode(value),
		Query:               query,
		RedirectURI:         redirectURI,
		IssueRefreshToken:   issueRefreshToken,
		CodeChallenge:       query.Get("code_challenge"),
		CodeChallengeMethod: query.Get("code_challenge_method"),
	}

	if err := s.repo.Create(ctx, code); err != nil {
		return nil, fmt.Errorf("failed to store authorization code: %w", err)
	}

	return code, nil
}

// Get looks up a code by its raw value.
func (s *AuthorizationCodeService) Get(ctx context.Context, value string) (*domain.AuthorizationCode, error) {
	return s.repo.GetByCodeHash(ctx, HashCode(value))
}

// MarkUsed consumes the code. It reports true for exactly one caller per
// code, even under concurrent exchange attempts; the repository provides the
// atomicity. Returns repository.ErrNotFound for unknown codes.
func (s *AuthorizationCodeService) MarkUsed(ctx context.Context, value string) (bool, error) {
	return s.repo.MarkUsed(ctx, HashCode(value))
}

// VerifyPKCEChallenge checks a code_verifier against the challenge captured
// at authorize time (RFC 7636 Section 4.6). A code without a challenge
// accepts any verifier.
func VerifyPKCEChallenge(code *domain.AuthorizationCode, verifier string) bool {
	if code.CodeChallenge == "" {
		return true
	}
	if verifier == "" {
		return false
	}

	var computed string
	switch code.CodeChallengeMethod {
	case "S256":
		sum := sha256.Sum256([]byte(verifier))
		computed = base64.RawURLEncoding.EncodeToString(sum[:])
	case "", "plain":
		computed = verifier
	default:
		return false
	}

	return subtle.ConstantTimeCompare([]byte(computed), []byte(code.CodeChallenge)) == 1
}

// HashCode returns the SHA-256 hash of a code string in the form the
// repository stores it.
func HashCode(value string) string {
	sum := sha256.Sum256([]byte(value))
	return base64.URLEncoding.EncodeToString(sum[:])
}
