package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/marcelofv/oauth2-core/internal/config"
	"github.com/marcelofv/oauth2-core/internal/domain"
	pkgjwt "github.com/marcelofv/oauth2-core/pkg/jwt"
)

// IDTokenInput collects everything that goes into one ID token. AccessToken
// and Code, when present, are bound in via at_hash / c_hash.
type IDTokenInput struct {
	UserID      string
	Nonce       string
	AccessToken string
	Code        string
	AuthTime    time.Time
	ACR         string
	AMR         []string
}

// IDTokenService creates signed OpenID Connect ID tokens. Unlike the other
// managers it has no repository: an ID token is self-contained.
type IDTokenService struct {
	signer *pkgjwt.Signer
	issuer string
	cfg    config.TokenConfig
}

func NewIDTokenService(signer *pkgjwt.Signer, issuer string, cfg config.TokenConfig) *IDTokenService {
	return &IDTokenService{signer: signer, issuer: issuer, cfg: cfg}
}

// Create signs an ID token for the client. The companion-token hashes use the
// hash algorithm implied by the signature algorithm's bit strength.
func (s *IDTokenService) Create(ctx context.Context, client *domain.Client, in IDTokenInput) (string, error) {
	lifetime := client.IDTokenLifetime
	if lifetime == 0 {
		lifetime = s.cfg.IDTokenLifetime
	}

	now := time.Now()
	claims := domain.IDTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   in.UserID,
			Audience:  jwt.ClaimStrings{client.ClientID},
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		Nonce: in.Nonce,
		ACR:   in.ACR,
		AMR:   in.AMR,
	}

	if !in.AuthTime.IsZero() {
		claims.AuthTime = in.AuthTime.Unix()
	}

	if in.AccessToken != "" {
		atHash, err := pkgjwt.TokenHash(in.AccessToken, s.signer.Alg())
		if err != nil {
			return "", fmt.Errorf("failed to compute at_hash: %w", err)
		}
		claims.AtHash = atHash
	}

	if in.Code != "" {
		cHash, err := pkgjwt.TokenHash(in.Code, s.signer.Alg())
		if err != nil {
			return "", fmt.Errorf("failed to compute c_hash: %w", err)
		}
		claims.CHash = cHash
	}

	signed, err := s.signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign id token: %w", err)
	}

	return signed, nil
}
