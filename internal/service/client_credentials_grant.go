package service

import (
	"context"

	"github.com/marcelofv/oauth2-core/internal/config"
	"github.com/marcelofv/oauth2-core/internal/domain"
)

// ClientCredentialsGrant issues tokens to a client acting on its own behalf
// (RFC 6749 Section 4.4). Only confidential clients qualify.
type ClientCredentialsGrant struct {
	policy config.PolicyConfig
}

func NewClientCredentialsGrant(policy config.PolicyConfig) *ClientCredentialsGrant {
	return &ClientCredentialsGrant{policy: policy}
}

func (g *ClientCredentialsGrant) Name() string { return GrantTypeClientCredentials }

func (g *ClientCredentialsGrant) Prepare(_ context.Context, _ *domain.Request, res domain.GrantResult) (domain.GrantResult, error) {
	return res, nil
}

func (g *ClientCredentialsGrant) Grant(_ context.Context, _ *domain.Request, client *domain.Client, res domain.GrantResult) (domain.GrantResult, error) {
	if !client.IsConfidential() {
		return res, domain.NewOAuthError(domain.ErrInvalidClient, "the client is not confidential")
	}

	// The client is its own resource owner here.
	res.UserID = client.ClientID
	res.IssueRefreshToken = g.policy.IssueRefreshTokenClientCredentials

	return res, nil
}
