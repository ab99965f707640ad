package service

import (
	"context"
	"time"

	"github.com/marcelofv/oauth2-core/internal/domain"
)

// IDTokenResponseType issues an ID token from the authorization endpoint
// (OIDC Core Section 3.2). The token is built during Finalize so the at_hash
// and c_hash claims can cover artifacts the token and code response types
// produced during the first pass.
type IDTokenResponseType struct {
	idTokens *IDTokenService
}

func NewIDTokenResponseType(idTokens *IDTokenService) *IDTokenResponseType {
	return &IDTokenResponseType{idTokens: idTokens}
}

func (t *IDTokenResponseType) Name() string { return ResponseTypeIDToken }

func (t *IDTokenResponseType) Mode() domain.ResponseMode { return domain.ResponseModeFragment }

func (t *IDTokenResponseType) Prepare(_ context.Context, authz *domain.Authorization) (map[string]string, error) {
	if !containsScope(authz.Scope, "openid") {
		return nil, domain.NewOAuthError(domain.ErrInvalidRequest, "the openid scope is required for the id_token response type")
	}
	if authz.Nonce() == "" {
		return nil, domain.NewOAuthError(domain.ErrInvalidRequest, "the nonce parameter is mandatory for the id_token response type")
	}

	return nil, nil
}

func (t *IDTokenResponseType) Finalize(ctx context.Context, authz *domain.Authorization, params map[string]string) (map[string]string, error) {
	in := IDTokenInput{
		UserID:   authz.User.PublicID(),
		Nonce:    authz.Nonce(),
		AuthTime: time.Now(),
	}

	if token, ok := authz.Artifact(artifactAccessToken).(*domain.AccessToken); ok {
		in.AccessToken = token.Value
	}
	if code, ok := authz.Artifact(artifactAuthCode).(*domain.AuthorizationCode); ok {
		in.Code = code.Value
	}

	idToken, err := t.idTokens.Create(ctx, authz.Client, in)
	if err != nil {
		return nil, err
	}

	params = mergeParams(params, map[string]string{"id_token": idToken})
	return params, nil
}
