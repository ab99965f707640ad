package service

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelofv/oauth2-core/internal/domain"
)

func introspectionRequest(clientID, secret string, params url.Values) *domain.Request {
	return withBasicAuth(tokenRequest(params), clientID, secret)
}

func TestIntrospect_ActiveAccessToken(t *testing.T) {
	env := newTestEnv(t)
	client, secret := env.addConfidentialClient(t, "rs-client", []string{GrantTypeClientCredentials}, []string{"read", "write"})

	token, err := env.accessTokens.Create(context.Background(), client, "user-1", []string{"read"}, domain.TokenTypeBearer, "")
	require.NoError(t, err)

	res, err := env.introspection.Introspect(context.Background(), introspectionRequest(client.ClientID, secret, url.Values{
		"token":           {token.Value},
		"token_type_hint": {domain.TokenTypeHintAccessToken},
	}))
	require.NoError(t, err)

	assert.True(t, res.Active)
	assert.Equal(t, client.ClientID, res.ClientID)
	assert.Equal(t, domain.TokenTypeHintAccessToken, res.TokenType)
	assert.Equal(t, "read", res.Scope)
	assert.Equal(t, "user-1", res.Sub)
	assert.Equal(t, token.ID.String(), res.Jti)
	assert.Equal(t, client.ClientID, res.Aud)
	assert.Equal(t, "https://auth.example", res.Iss)
	assert.Equal(t, token.ExpiresAt.Unix(), res.Exp)
	assert.Equal(t, token.CreatedAt.Unix(), res.Iat)
}

func TestIntrospect_RevokedTokenIsInactiveNotError(t *testing.T) {
	env := newTestEnv(t)
	client, secret := env.addConfidentialClient(t, "rs-client", []string{GrantTypeClientCredentials}, []string{"read"})

	token, err := env.accessTokens.Create(context.Background(), client, "", []string{"read"}, domain.TokenTypeBearer, "")
	require.NoError(t, err)
	require.NoError(t, env.accessTokens.Revoke(context.Background(), token))

	res, err := env.introspection.Introspect(context.Background(), introspectionRequest(client.ClientID, secret, url.Values{
		"token":           {token.Value},
		"token_type_hint": {domain.TokenTypeHintAccessToken},
	}))
	require.NoError(t, err)

	assert.False(t, res.Active)
	assert.Empty(t, res.ClientID)
	assert.Empty(t, res.Scope)
}

func TestIntrospect_UnknownTokenWithHintIsInactive(t *testing.T) {
	env := newTestEnv(t)
	client, secret := env.addConfidentialClient(t, "rs-client", []string{GrantTypeClientCredentials}, []string{"read"})

	res, err := env.introspection.Introspect(context.Background(), introspectionRequest(client.ClientID, secret, url.Values{
		"token":           {"no-such-token"},
		"token_type_hint": {domain.TokenTypeHintAccessToken},
	}))
	require.NoError(t, err)

	assert.False(t, res.Active)
}

func TestIntrospect_ForeignTokenIsInactive(t *testing.T) {
	env := newTestEnv(t)
	owner, _ := env.addConfidentialClient(t, "owner", []string{GrantTypeClientCredentials}, []string{"read"})
	other, otherSecret := env.addConfidentialClient(t, "other", []string{GrantTypeClientCredentials}, []string{"read"})

	token, err := env.accessTokens.Create(context.Background(), owner, "", []string{"read"}, domain.TokenTypeBearer, "")
	require.NoError(t, err)

	res, err := env.introspection.Introspect(context.Background(), introspectionRequest(other.ClientID, otherSecret, url.Values{
		"token":           {token.Value},
		"token_type_hint": {domain.TokenTypeHintAccessToken},
	}))
	require.NoError(t, err)

	assert.False(t, res.Active)
}

func TestIntrospect_ResourceServerSeesForeignToken(t *testing.T) {
	env := newTestEnv(t)
	owner, _ := env.addConfidentialClient(t, "owner", []string{GrantTypeClientCredentials}, []string{"read"})
	rs, rsSecret := env.addConfidentialClient(t, "resource-server", []string{GrantTypeClientCredentials}, []string{"read"})
	rs.Metadata = map[string]string{"resource_server": "true"}

	token, err := env.accessTokens.Create(context.Background(), owner, "user-9", []string{"read"}, domain.TokenTypeBearer, "")
	require.NoError(t, err)

	res, err := env.introspection.Introspect(context.Background(), introspectionRequest(rs.ClientID, rsSecret, url.Values{
		"token": {token.Value},
	}))
	require.NoError(t, err)

	assert.True(t, res.Active)
	assert.Equal(t, owner.ClientID, res.ClientID)
	assert.Equal(t, "user-9", res.Sub)
}

func TestIntrospect_NoHintScansRefreshTokens(t *testing.T) {
	env := newTestEnv(t)
	client, secret := env.addConfidentialClient(t, "rs-client", []string{GrantTypeClientCredentials}, []string{"read"})

	token, err := env.refreshTokens.Create(context.Background(), client, "user-2", []string{"read"})
	require.NoError(t, err)

	res, err := env.introspection.Introspect(context.Background(), introspectionRequest(client.ClientID, secret, url.Values{
		"token": {token.Value},
	}))
	require.NoError(t, err)

	assert.True(t, res.Active)
	assert.Equal(t, domain.TokenTypeHintRefreshToken, res.TokenType)
}

func TestIntrospect_NoHintUnknownTokenIsError(t *testing.T) {
	env := newTestEnv(t)
	client, secret := env.addConfidentialClient(t, "rs-client", []string{GrantTypeClientCredentials}, []string{"read"})

	_, err := env.introspection.Introspect(context.Background(), introspectionRequest(client.ClientID, secret, url.Values{
		"token": {"no-such-token"},
	}))

	oauthErr := oauthError(t, err)
	assert.Equal(t, domain.ErrInvalidRequest, oauthErr.Code)
	assert.Contains(t, oauthErr.Description, "unable to find token")
}

func TestIntrospect_UnsupportedHint(t *testing.T) {
	env := newTestEnv(t)
	client, secret := env.addConfidentialClient(t, "rs-client", []string{GrantTypeClientCredentials}, []string{"read"})

	_, err := env.introspection.Introspect(context.Background(), introspectionRequest(client.ClientID, secret, url.Values{
		"token":           {"whatever"},
		"token_type_hint": {"saml"},
	}))

	oauthErr := oauthError(t, err)
	assert.Equal(t, domain.ErrInvalidRequest, oauthErr.Code)
	assert.Contains(t, oauthErr.Description, "saml")
}

func TestIntrospect_RequiresSecuredRequest(t *testing.T) {
	env := newTestEnv(t)
	client, secret := env.addConfidentialClient(t, "rs-client", []string{GrantTypeClientCredentials}, []string{"read"})

	req := introspectionRequest(client.ClientID, secret, url.Values{"token": {"whatever"}})
	req.Secured = false

	_, err := env.introspection.Introspect(context.Background(), req)

	oauthErr := oauthError(t, err)
	assert.Equal(t, domain.ErrInvalidRequest, oauthErr.Code)
}

func TestIntrospect_MissingToken(t *testing.T) {
	env := newTestEnv(t)
	client, secret := env.addConfidentialClient(t, "rs-client", []string{GrantTypeClientCredentials}, []string{"read"})

	_, err := env.introspection.Introspect(context.Background(), introspectionRequest(client.ClientID, secret, url.Values{}))

	oauthErr := oauthError(t, err)
	assert.Equal(t, domain.ErrInvalidRequest, oauthErr.Code)
	assert.Contains(t, oauthErr.Description, "token parameter")
}

func TestRevoke_AccessToken(t *testing.T) {
	env := newTestEnv(t)
	client, secret := env.addConfidentialClient(t, "rs-client", []string{GrantTypeClientCredentials}, []string{"read"})

	token, err := env.accessTokens.Create(context.Background(), client, "", []string{"read"}, domain.TokenTypeBearer, "")
	require.NoError(t, err)

	err = env.introspection.Revoke(context.Background(), introspectionRequest(client.ClientID, secret, url.Values{
		"token":           {token.Value},
		"token_type_hint": {domain.TokenTypeHintAccessToken},
	}))
	require.NoError(t, err)

	res, err := env.introspection.Introspect(context.Background(), introspectionRequest(client.ClientID, secret, url.Values{
		"token":           {token.Value},
		"token_type_hint": {domain.TokenTypeHintAccessToken},
	}))
	require.NoError(t, err)
	assert.False(t, res.Active)
}

func TestRevoke_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	client, secret := env.addConfidentialClient(t, "rs-client", []string{GrantTypeClientCredentials}, []string{"read"})

	token, err := env.accessTokens.Create(context.Background(), client, "", []string{"read"}, domain.TokenTypeBearer, "")
	require.NoError(t, err)

	params := url.Values{"token": {token.Value}}
	require.NoError(t, env.introspection.Revoke(context.Background(), introspectionRequest(client.ClientID, secret, params)))
	require.NoError(t, env.introspection.Revoke(context.Background(), introspectionRequest(client.ClientID, secret, params)))

	// Unknown values succeed silently as well.
	require.NoError(t, env.introspection.Revoke(context.Background(), introspectionRequest(client.ClientID, secret, url.Values{
		"token": {"no-such-token"},
	})))
}

func TestRevoke_ForeignTokenLeftUntouched(t *testing.T) {
	env := newTestEnv(t)
	owner, ownerSecret := env.addConfidentialClient(t, "owner", []string{GrantTypeClientCredentials}, []string{"read"})
	other, otherSecret := env.addConfidentialClient(t, "other", []string{GrantTypeClientCredentials}, []string{"read"})

	token, err := env.accessTokens.Create(context.Background(), owner, "", []string{"read"}, domain.TokenTypeBearer, "")
	require.NoError(t, err)

	err = env.introspection.Revoke(context.Background(), introspectionRequest(other.ClientID, otherSecret, url.Values{
		"token": {token.Value},
	}))
	require.NoError(t, err)

	res, err := env.introspection.Introspect(context.Background(), introspectionRequest(owner.ClientID, ownerSecret, url.Values{
		"token": {token.Value},
	}))
	require.NoError(t, err)
	assert.True(t, res.Active)
}

func TestRevoke_UnsupportedHint(t *testing.T) {
	env := newTestEnv(t)
	client, secret := env.addConfidentialClient(t, "rs-client", []string{GrantTypeClientCredentials}, []string{"read"})

	err := env.introspection.Revoke(context.Background(), introspectionRequest(client.ClientID, secret, url.Values{
		"token":           {"whatever"},
		"token_type_hint": {"saml"},
	}))

	oauthErr := oauthError(t, err)
	assert.Equal(t, domain.ErrUnsupportedTokenType, oauthErr.Code)
}

func TestRevoke_RefreshTokenWithoutHint(t *testing.T) {
	env := newTestEnv(t)
	client, secret := env.addConfidentialClient(t, "rs-client", []string{GrantTypeClientCredentials}, []string{"read"})

	token, err := env.refreshTokens.Create(context.Background(), client, "user-3", []string{"read"})
	require.NoError(t, err)

	err = env.introspection.Revoke(context.Background(), introspectionRequest(client.ClientID, secret, url.Values{
		"token": {token.Value},
	}))
	require.NoError(t, err)

	stored, err := env.refreshTokens.Get(context.Background(), token.Value)
	require.NoError(t, err)
	valid, err := env.refreshTokens.IsValid(context.Background(), stored)
	require.NoError(t, err)
	assert.False(t, valid)
}
