package service

import (
	"context"

	"github.com/marcelofv/oauth2-core/internal/domain"
	pkgjwt "github.com/marcelofv/oauth2-core/pkg/jwt"
)

// JWTBearerGrant authenticates a client through a signed JWT assertion
// (RFC 7523 Section 2.1). The assertion doubles as the authorization grant.
type JWTBearerGrant struct{}

func NewJWTBearerGrant() *JWTBearerGrant {
	return &JWTBearerGrant{}
}

func (g *JWTBearerGrant) Name() string { return GrantTypeJWTBearer }

// Prepare decodes the assertion without verifying it: the sub claim names
// the client whose keys the later verification must use.
func (g *JWTBearerGrant) Prepare(_ context.Context, req *domain.Request, res domain.GrantResult) (domain.GrantResult, error) {
	assertion := req.FormValue("assertion")
	if assertion == "" {
		return res, domain.NewOAuthError(domain.ErrInvalidRequest, "the assertion parameter is missing")
	}

	claims, err := pkgjwt.DecodeUnverified(assertion)
	if err != nil {
		return res, domain.NewOAuthError(domain.ErrInvalidRequest, "the assertion is malformed")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return res, domain.NewOAuthError(domain.ErrInvalidRequest, "the assertion is missing the sub claim")
	}

	res.ClientID = sub
	return res, nil
}

// Grant verifies the assertion against the now-resolved client's key set.
func (g *JWTBearerGrant) Grant(_ context.Context, req *domain.Request, client *domain.Client, res domain.GrantResult) (domain.GrantResult, error) {
	if !client.CanVerifySignatures() {
		return res, domain.NewOAuthError(domain.ErrInvalidClient, "the client is not configured for signature verification")
	}

	keys, err := pkgjwt.ParseRSAPublicKeys(client.PublicKeys)
	if err != nil {
		return res, domain.NewOAuthError(domain.ErrInvalidClient, "the client key set is invalid")
	}

	if _, err := pkgjwt.VerifyWithKeySet(req.FormValue("assertion"), keys, client.SigningAlgs); err != nil {
		return res, domain.NewOAuthError(domain.ErrInvalidGrant, "the assertion signature is invalid")
	}

	res.UserID = client.ClientID
	return res, nil
}
