package service

import (
	"context"

	"github.com/marcelofv/oauth2-core/internal/domain"
)

// NoneResponseType creates an access token for the server's own bookkeeping
// but returns nothing visible to the client (OAuth 2.0 Multiple Response
// Type Encoding Practices, "none").
type NoneResponseType struct {
	accessTokens *AccessTokenService
}

func NewNoneResponseType(accessTokens *AccessTokenService) *NoneResponseType {
	return &NoneResponseType{accessTokens: accessTokens}
}

func (t *NoneResponseType) Name() string { return ResponseTypeNone }

func (t *NoneResponseType) Mode() domain.ResponseMode { return domain.ResponseModeQuery }

func (t *NoneResponseType) Prepare(ctx context.Context, authz *domain.Authorization) (map[string]string, error) {
	token, err := t.accessTokens.Create(ctx, authz.Client, authz.User.PublicID(), authz.Scope, authz.TokenType, "")
	if err != nil {
		return nil, err
	}

	authz.PutArtifact(artifactAccessToken, token)

	return nil, nil
}

func (t *NoneResponseType) Finalize(_ context.Context, _ *domain.Authorization, params map[string]string) (map[string]string, error) {
	return params, nil
}
