package service

import (
	"context"

	"github.com/marcelofv/oauth2-core/internal/domain"
)

// CodeResponseType issues an authorization code (RFC 6749 Section 4.1.2).
type CodeResponseType struct {
	codes *AuthorizationCodeService

	// issueRefreshToken controls whether the eventual code exchange also
	// issues a refresh token.
	issueRefreshToken bool
}

func NewCodeResponseType(codes *AuthorizationCodeService, issueRefreshToken bool) *CodeResponseType {
	return &CodeResponseType{codes: codes, issueRefreshToken: issueRefreshToken}
}

func (t *CodeResponseType) Name() string { return ResponseTypeCode }

func (t *CodeResponseType) Mode() domain.ResponseMode { return domain.ResponseModeQuery }

func (t *CodeResponseType) Prepare(ctx context.Context, authz *domain.Authorization) (map[string]string, error) {
	code, err := t.codes.Create(ctx, authz.Client, authz.User.PublicID(), authz.Query, authz.RedirectURI, authz.Scope, t.issueRefreshToken)
	if err != nil {
		return nil, err
	}

	authz.PutArtifact(artifactAuthCode, code)

	return map[string]string{"code": code.Value}, nil
}

func (t *CodeResponseType) Finalize(_ context.Context, _ *domain.Authorization, params map[string]string) (map[string]string, error) {
	return params, nil
}
