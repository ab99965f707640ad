package service

import (
	"context"
	"net/url"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelofv/oauth2-core/internal/domain"
)

func TestAuthenticate_Basic(t *testing.T) {
	env := newTestEnv(t)
	_, secret := env.addConfidentialClient(t, "client1", []string{GrantTypeClientCredentials}, []string{"read"})

	req := withBasicAuth(tokenRequest(url.Values{}), "client1", secret)

	client, err := env.authenticator.Authenticate(context.Background(), req, false)
	require.NoError(t, err)
	assert.Equal(t, "client1", client.ClientID)
}

func TestAuthenticate_Body(t *testing.T) {
	env := newTestEnv(t)
	_, secret := env.addConfidentialClient(t, "client1", []string{GrantTypeClientCredentials}, []string{"read"})

	req := tokenRequest(url.Values{
		"client_id":     {"client1"},
		"client_secret": {secret},
	})

	client, err := env.authenticator.Authenticate(context.Background(), req, false)
	require.NoError(t, err)
	assert.Equal(t, "client1", client.ClientID)
}

func TestAuthenticate_WrongSecretIsUniformFailure(t *testing.T) {
	env := newTestEnv(t)
	env.addConfidentialClient(t, "client1", []string{GrantTypeClientCredentials}, []string{"read"})

	wrongSecret := withBasicAuth(tokenRequest(url.Values{}), "client1", "wrong")
	_, err := env.authenticator.Authenticate(context.Background(), wrongSecret, false)
	wrongSecretErr := oauthError(t, err)

	unknownClient := withBasicAuth(tokenRequest(url.Values{}), "nobody", "wrong")
	_, err = env.authenticator.Authenticate(context.Background(), unknownClient, false)
	unknownClientErr := oauthError(t, err)

	// The description must not reveal which check failed.
	assert.Equal(t, domain.ErrInvalidClient, wrongSecretErr.Code)
	assert.Equal(t, wrongSecretErr.Description, unknownClientErr.Description)
	assert.Equal(t, "client authentication failed", wrongSecretErr.Description)
}

func TestAuthenticate_TwoCandidatesRejected(t *testing.T) {
	env := newTestEnv(t)
	_, secret := env.addConfidentialClient(t, "client1", []string{GrantTypeClientCredentials}, []string{"read"})

	req := withBasicAuth(tokenRequest(url.Values{
		"client_id":     {"client1"},
		"client_secret": {secret},
	}), "client1", secret)

	_, err := env.authenticator.Authenticate(context.Background(), req, false)
	oauthErr := oauthError(t, err)
	assert.Equal(t, domain.ErrInvalidRequest, oauthErr.Code)
	assert.Contains(t, oauthErr.Description, "one authentication method")
}

func TestAuthenticate_PublicClientByClientID(t *testing.T) {
	env := newTestEnv(t)
	env.addPublicClient(t, "spa", []string{GrantTypeAuthorizationCode}, []string{"read"})

	req := tokenRequest(url.Values{"client_id": {"spa"}})

	client, err := env.authenticator.Authenticate(context.Background(), req, true)
	require.NoError(t, err)
	assert.True(t, client.IsPublic())
}

func TestAuthenticate_ConfidentialClientCannotPassAsPublic(t *testing.T) {
	env := newTestEnv(t)
	env.addConfidentialClient(t, "client1", []string{GrantTypeClientCredentials}, []string{"read"})

	req := tokenRequest(url.Values{"client_id": {"client1"}})

	_, err := env.authenticator.Authenticate(context.Background(), req, true)
	oauthErr := oauthError(t, err)
	assert.Equal(t, domain.ErrInvalidClient, oauthErr.Code)
}

func TestAuthenticate_PublicClientPresentingSecretFails(t *testing.T) {
	env := newTestEnv(t)
	env.addPublicClient(t, "spa", []string{GrantTypeAuthorizationCode}, []string{"read"})

	req := tokenRequest(url.Values{
		"client_id":     {"spa"},
		"client_secret": {"anything"},
	})

	_, err := env.authenticator.Authenticate(context.Background(), req, true)
	oauthErr := oauthError(t, err)
	assert.Equal(t, domain.ErrInvalidClient, oauthErr.Code)
}

func TestAuthenticate_NoCredentialsWhenRequired(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.authenticator.Authenticate(context.Background(), tokenRequest(url.Values{}), false)
	oauthErr := oauthError(t, err)
	assert.Equal(t, domain.ErrInvalidClient, oauthErr.Code)
	assert.NotEmpty(t, oauthErr.Extra["schemes"])
}

func TestAuthenticate_JWTAssertion(t *testing.T) {
	env := newTestEnv(t)
	signer := testSigner(t)

	pubPEM := publicKeyPEM(t, signer)
	client := &domain.Client{
		ClientID:    "jwtclient",
		Type:        domain.ClientTypeConfidential,
		GrantTypes:  []string{GrantTypeClientCredentials},
		Scope:       []string{"read"},
		PublicKeys:  []string{pubPEM},
		SigningAlgs: []string{"RS256"},
	}
	require.NoError(t, env.clients.Create(context.Background(), client))

	assertion, err := signer.Sign(jwt.MapClaims{"sub": "jwtclient", "iss": "jwtclient"})
	require.NoError(t, err)

	req := tokenRequest(url.Values{
		"client_assertion":      {assertion},
		"client_assertion_type": {ClientAssertionTypeJWTBearer},
	})

	authenticated, err := env.authenticator.Authenticate(context.Background(), req, false)
	require.NoError(t, err)
	assert.Equal(t, "jwtclient", authenticated.ClientID)
}

func TestAuthenticate_JWTAssertionForeignKeyFails(t *testing.T) {
	env := newTestEnv(t)
	signer := testSigner(t)
	otherSigner := testSigner(t)

	client := &domain.Client{
		ClientID:    "jwtclient",
		Type:        domain.ClientTypeConfidential,
		GrantTypes:  []string{GrantTypeClientCredentials},
		PublicKeys:  []string{publicKeyPEM(t, signer)},
		SigningAlgs: []string{"RS256"},
	}
	require.NoError(t, env.clients.Create(context.Background(), client))

	assertion, err := otherSigner.Sign(jwt.MapClaims{"sub": "jwtclient"})
	require.NoError(t, err)

	req := tokenRequest(url.Values{
		"client_assertion":      {assertion},
		"client_assertion_type": {ClientAssertionTypeJWTBearer},
	})

	_, err = env.authenticator.Authenticate(context.Background(), req, false)
	oauthErr := oauthError(t, err)
	assert.Equal(t, domain.ErrInvalidClient, oauthErr.Code)
}

func TestAuthenticate_AssertionWithoutTypeRejected(t *testing.T) {
	env := newTestEnv(t)

	req := tokenRequest(url.Values{
		"client_assertion": {"some.jwt.value"},
	})

	_, err := env.authenticator.Authenticate(context.Background(), req, false)
	oauthErr := oauthError(t, err)
	assert.Equal(t, domain.ErrInvalidRequest, oauthErr.Code)
}
