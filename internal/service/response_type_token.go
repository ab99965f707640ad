package service

import (
	"context"
	"strconv"
	"time"

	"github.com/marcelofv/oauth2-core/internal/domain"
)

// TokenResponseType issues an access token directly from the authorization
// endpoint (the implicit flow, RFC 6749 Section 4.2.2).
type TokenResponseType struct {
	accessTokens *AccessTokenService

	// allowConfidential lets confidential clients use the implicit flow;
	// by default only public clients may.
	allowConfidential bool
}

func NewTokenResponseType(accessTokens *AccessTokenService, allowConfidential bool) *TokenResponseType {
	return &TokenResponseType{accessTokens: accessTokens, allowConfidential: allowConfidential}
}

func (t *TokenResponseType) Name() string { return ResponseTypeToken }

func (t *TokenResponseType) Mode() domain.ResponseMode { return domain.ResponseModeFragment }

func (t *TokenResponseType) Prepare(ctx context.Context, authz *domain.Authorization) (map[string]string, error) {
	if authz.Client.IsConfidential() && !t.allowConfidential {
		return nil, domain.NewOAuthError(domain.ErrUnauthorizedClient, "confidential clients are not allowed to use the implicit flow")
	}

	token, err := t.accessTokens.Create(ctx, authz.Client, authz.User.PublicID(), authz.Scope, authz.TokenType, "")
	if err != nil {
		return nil, err
	}

	authz.PutArtifact(artifactAccessToken, token)

	params := map[string]string{
		"access_token": token.Value,
		"token_type":   token.TokenType,
		"scope":        JoinScope(token.Scope),
	}
	if !token.ExpiresAt.IsZero() {
		expiresIn := int64(time.Until(token.ExpiresAt).Round(time.Second).Seconds())
		params["expires_in"] = strconv.FormatInt(expiresIn, 10)
	}

	return params, nil
}

func (t *TokenResponseType) Finalize(_ context.Context, _ *domain.Authorization, params map[string]string) (map[string]string, error) {
	return params, nil
}
