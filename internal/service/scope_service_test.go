package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelofv/oauth2-core/internal/domain"
)

func TestCheckScopePolicy_DefaultsToClientScope(t *testing.T) {
	scopes := NewScopeService(nil)
	client := &domain.Client{Scope: []string{"read", "write"}}

	scope, err := scopes.CheckScopePolicy(nil, client)
	require.NoError(t, err)
	assert.Equal(t, []string{"read", "write"}, scope)
}

func TestCheckScopePolicy_PassesRequestedThrough(t *testing.T) {
	scopes := NewScopeService(ClientScopePolicy{})
	client := &domain.Client{Scope: []string{"read", "write"}}

	scope, err := scopes.CheckScopePolicy([]string{"read"}, client)
	require.NoError(t, err)
	assert.Equal(t, []string{"read"}, scope)
}

func TestCheckScopePolicy_RequiredPolicyRejectsEmpty(t *testing.T) {
	scopes := NewScopeService(RequiredScopePolicy{})

	_, err := scopes.CheckScopePolicy(nil, &domain.Client{})
	require.Error(t, err)

	var oauthErr *domain.OAuthError
	require.ErrorAs(t, err, &oauthErr)
	assert.Equal(t, domain.ErrInvalidScope, oauthErr.Code)
}

func TestCheckScopes(t *testing.T) {
	scopes := NewScopeService(nil)
	available := []string{"read", "write", "openid"}

	assert.True(t, scopes.CheckScopes(nil, available))
	assert.True(t, scopes.CheckScopes([]string{"read"}, available))
	assert.True(t, scopes.CheckScopes([]string{"read", "openid"}, available))
	assert.False(t, scopes.CheckScopes([]string{"admin"}, available))
	assert.False(t, scopes.CheckScopes([]string{"read", "admin"}, available))
	assert.False(t, scopes.CheckScopes([]string{"read"}, nil))
}

func TestParseScope(t *testing.T) {
	assert.Nil(t, ParseScope(""))
	assert.Equal(t, []string{"read"}, ParseScope("read"))
	assert.Equal(t, []string{"read", "write"}, ParseScope("read  write"))
}

func TestJoinScope(t *testing.T) {
	assert.Equal(t, "", JoinScope(nil))
	assert.Equal(t, "read write", JoinScope([]string{"read", "write"}))
}
