package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/marcelofv/oauth2-core/internal/domain"
	"github.com/marcelofv/oauth2-core/internal/repository"
)

// AuthorizationCodeGrant exchanges a single-use authorization code for tokens
// (RFC 6749 Section 4.1.3).
type AuthorizationCodeGrant struct {
	codes *AuthorizationCodeService
}

func NewAuthorizationCodeGrant(codes *AuthorizationCodeService) *AuthorizationCodeGrant {
	return &AuthorizationCodeGrant{codes: codes}
}

func (g *AuthorizationCodeGrant) Name() string { return GrantTypeAuthorizationCode }

func (g *AuthorizationCodeGrant) Prepare(_ context.Context, _ *domain.Request, res domain.GrantResult) (domain.GrantResult, error) {
	return res, nil
}

func (g *AuthorizationCodeGrant) Grant(ctx context.Context, req *domain.Request, client *domain.Client, res domain.GrantResult) (domain.GrantResult, error) {
	value := req.FormValue("code")
	if value == "" {
		return res, domain.NewOAuthError(domain.ErrInvalidRequest, "the code parameter is missing")
	}

	code, err := g.codes.Get(ctx, value)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return res, invalidCode()
		}
		return res, err
	}

	// Never reveal whether the code exists to a client it doesn't belong to.
	if code.ClientID != client.ClientID {
		return res, invalidCode()
	}

	if code.HasExpired() {
		return res, invalidCode()
	}

	if code.RedirectURI != "" && req.FormValue("redirect_uri") != code.RedirectURI {
		return res, domain.NewOAuthError(domain.ErrInvalidRequest, "the redirect_uri parameter does not match the registered one")
	}

	// Public clients must additionally identify themselves in the body
	// (RFC 6749 Section 4.1.3).
	if !client.IsConfidential() && req.FormValue("client_id") != client.ClientID {
		return res, domain.NewOAuthError(domain.ErrInvalidRequest, "the client_id parameter is missing or does not match")
	}

	if !VerifyPKCEChallenge(code, req.FormValue("code_verifier")) {
		return res, domain.NewOAuthError(domain.ErrInvalidGrant, "the PKCE code verifier is invalid")
	}

	// Consume the code before any token exists so a concurrent replay can
	// never succeed twice.
	won, err := g.codes.MarkUsed(ctx, value)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return res, invalidCode()
		}
		return res, err
	}
	if !won {
		return res, invalidCode()
	}

	res.UserID = code.UserID
	res.IssueRefreshToken = code.IssueRefreshToken
	res.RefreshTokenScope = code.Scope
	if req.FormValue("scope") == "" {
		res.RequestedScope = code.Scope
	}

	if nonce := code.Nonce(); nonce != "" {
		res = res.WithExtra(extraNonce, nonce)
	}
	if !code.CreatedAt.IsZero() {
		res = res.WithExtra(extraAuthTime, strconv.FormatInt(code.CreatedAt.Unix(), 10))
	}

	return res, nil
}

func invalidCode() *domain.OAuthError {
	return domain.NewOAuthError(domain.ErrInvalidGrant, "the authorization code is invalid")
}
