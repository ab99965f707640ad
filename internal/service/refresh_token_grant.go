package service

import (
	"context"
	"errors"

	"github.com/marcelofv/oauth2-core/internal/domain"
	"github.com/marcelofv/oauth2-core/internal/repository"
)

// RefreshTokenGrant exchanges a refresh token for a fresh token pair,
// rotating the presented token out (RFC 6749 Section 6).
type RefreshTokenGrant struct {
	refreshTokens *RefreshTokenService
}

func NewRefreshTokenGrant(refreshTokens *RefreshTokenService) *RefreshTokenGrant {
	return &RefreshTokenGrant{refreshTokens: refreshTokens}
}

func (g *RefreshTokenGrant) Name() string { return GrantTypeRefreshToken }

func (g *RefreshTokenGrant) Prepare(_ context.Context, _ *domain.Request, res domain.GrantResult) (domain.GrantResult, error) {
	return res, nil
}

func (g *RefreshTokenGrant) Grant(ctx context.Context, req *domain.Request, client *domain.Client, res domain.GrantResult) (domain.GrantResult, error) {
	value := req.FormValue("refresh_token")
	if value == "" {
		return res, domain.NewOAuthError(domain.ErrInvalidRequest, "the refresh_token parameter is missing")
	}

	token, err := g.refreshTokens.Get(ctx, value)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return res, invalidRefreshToken()
		}
		return res, err
	}

	if token.ClientID != client.ClientID {
		return res, invalidRefreshToken()
	}

	valid, err := g.refreshTokens.IsValid(ctx, token)
	if err != nil {
		return res, err
	}
	if !valid {
		return res, invalidRefreshToken()
	}

	res.UserID = token.UserID
	res.AvailableScope = token.Scope
	res.IssueRefreshToken = true
	res.RefreshTokenScope = token.Scope
	res.RevokeRefreshToken = token

	// An empty scope parameter inherits the refresh token's scope; a
	// narrower request still goes through the containment check.
	if req.FormValue("scope") == "" {
		res.RequestedScope = token.Scope
	}

	return res, nil
}

func invalidRefreshToken() *domain.OAuthError {
	return domain.NewOAuthError(domain.ErrInvalidGrant, "the refresh token is invalid")
}
