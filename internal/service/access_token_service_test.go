package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelofv/oauth2-core/internal/domain"
)

func TestAccessToken_ValueShape(t *testing.T) {
	env := newTestEnv(t)
	client, _ := env.addConfidentialClient(t, "client1", []string{GrantTypeClientCredentials}, []string{"read"})

	token, err := env.accessTokens.Create(context.Background(), client, "", []string{"read"}, "", "")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(token.Value), 40)
	assert.LessOrEqual(t, len(token.Value), 50)
	assert.Equal(t, domain.TokenTypeBearer, token.TokenType)
	assert.Equal(t, client.ClientID, token.ClientID)
	assert.False(t, token.CreatedAt.IsZero())
}

func TestAccessToken_ClientLifetimeOverride(t *testing.T) {
	env := newTestEnv(t)
	client, _ := env.addConfidentialClient(t, "client1", []string{GrantTypeClientCredentials}, []string{"read"})
	client.AccessTokenLifetime = 5 * time.Minute

	token, err := env.accessTokens.Create(context.Background(), client, "", []string{"read"}, "", "")
	require.NoError(t, err)

	remaining := time.Until(token.ExpiresAt)
	assert.Greater(t, remaining, 4*time.Minute)
	assert.LessOrEqual(t, remaining, 5*time.Minute)
}

func TestAccessToken_NegativeLifetimeMeansNoExpiry(t *testing.T) {
	env := newTestEnv(t)
	client, _ := env.addConfidentialClient(t, "client1", []string{GrantTypeClientCredentials}, []string{"read"})
	client.AccessTokenLifetime = -1

	token, err := env.accessTokens.Create(context.Background(), client, "", []string{"read"}, "", "")
	require.NoError(t, err)

	assert.True(t, token.ExpiresAt.IsZero())

	valid, err := env.accessTokens.IsValid(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestAccessToken_RevocationVisibleThroughStore(t *testing.T) {
	env := newTestEnv(t)
	client, _ := env.addConfidentialClient(t, "client1", []string{GrantTypeClientCredentials}, []string{"read"})

	token, err := env.accessTokens.Create(context.Background(), client, "", []string{"read"}, "", "")
	require.NoError(t, err)

	// A stale copy fetched before the revocation must still be seen as
	// invalid afterwards; the revocation store is the source of truth.
	stale, err := env.accessTokens.Get(context.Background(), token.Value)
	require.NoError(t, err)

	require.NoError(t, env.accessTokens.Revoke(context.Background(), token))

	valid, err := env.accessTokens.IsValid(context.Background(), stale)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestAccessToken_RevokeTwice(t *testing.T) {
	env := newTestEnv(t)
	client, _ := env.addConfidentialClient(t, "client1", []string{GrantTypeClientCredentials}, []string{"read"})

	token, err := env.accessTokens.Create(context.Background(), client, "", []string{"read"}, "", "")
	require.NoError(t, err)

	require.NoError(t, env.accessTokens.Revoke(context.Background(), token))
	require.NoError(t, env.accessTokens.Revoke(context.Background(), token))
}
