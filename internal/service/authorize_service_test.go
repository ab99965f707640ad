package service

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelofv/oauth2-core/internal/domain"
)

func baseAuthorizeQuery(clientID, responseType string) url.Values {
	return url.Values{
		"client_id":     {clientID},
		"response_type": {responseType},
		"redirect_uri":  {"https://cb.example/callback"},
		"scope":         {"read"},
		"state":         {"xyz"},
	}
}

func TestAuthorize_CodeFlow(t *testing.T) {
	env := newTestEnv(t)
	env.addConfidentialClient(t, "client1", []string{GrantTypeAuthorizationCode}, []string{"read"})
	user := env.addUser(t, "alice", "hunter2")

	authz, _, err := env.authorize.Validate(context.Background(), authorizeRequest(baseAuthorizeQuery("client1", "code")))
	require.NoError(t, err)
	assert.Equal(t, domain.ResponseModeQuery, authz.ResponseMode)

	result, err := env.authorize.Authorize(context.Background(), authz, user, true)
	require.NoError(t, err)
	assert.Equal(t, domain.ResponseModeQuery, result.Mode)

	redirect, err := url.Parse(result.RedirectURI)
	require.NoError(t, err)
	params := redirect.Query()
	assert.NotEmpty(t, params.Get("code"))
	assert.Equal(t, "xyz", params.Get("state"))
	assert.Empty(t, redirect.Fragment)

	// The delivered code is exchangeable.
	code, err := env.authCodes.Get(context.Background(), params.Get("code"))
	require.NoError(t, err)
	assert.Equal(t, "client1", code.ClientID)
	assert.Equal(t, user.PublicID(), code.UserID)
}

func TestAuthorize_ImplicitFlowUsesFragment(t *testing.T) {
	env := newTestEnv(t)
	env.addPublicClient(t, "spa", []string{GrantTypeAuthorizationCode}, []string{"read"})
	user := env.addUser(t, "alice", "hunter2")

	authz, _, err := env.authorize.Validate(context.Background(), authorizeRequest(baseAuthorizeQuery("spa", "token")))
	require.NoError(t, err)
	assert.Equal(t, domain.ResponseModeFragment, authz.ResponseMode)

	result, err := env.authorize.Authorize(context.Background(), authz, user, true)
	require.NoError(t, err)

	redirect, err := url.Parse(result.RedirectURI)
	require.NoError(t, err)
	fragment, err := url.ParseQuery(redirect.Fragment)
	require.NoError(t, err)
	assert.NotEmpty(t, fragment.Get("access_token"))
	assert.Equal(t, domain.TokenTypeBearer, fragment.Get("token_type"))
	assert.Equal(t, "xyz", fragment.Get("state"))
	assert.Empty(t, redirect.Query().Get("access_token"))
}

func TestAuthorize_HybridCodeTokenForcesFragment(t *testing.T) {
	env := newTestEnv(t)
	env.addPublicClient(t, "spa", []string{GrantTypeAuthorizationCode}, []string{"read"})
	user := env.addUser(t, "alice", "hunter2")

	query := baseAuthorizeQuery("spa", "code token")
	authz, _, err := env.authorize.Validate(context.Background(), authorizeRequest(query))
	require.NoError(t, err)
	assert.Equal(t, domain.ResponseModeFragment, authz.ResponseMode)

	result, err := env.authorize.Authorize(context.Background(), authz, user, true)
	require.NoError(t, err)

	redirect, err := url.Parse(result.RedirectURI)
	require.NoError(t, err)
	fragment, err := url.ParseQuery(redirect.Fragment)
	require.NoError(t, err)
	assert.NotEmpty(t, fragment.Get("code"))
	assert.NotEmpty(t, fragment.Get("access_token"))
}

func TestAuthorize_DuplicateResponseTypeRejected(t *testing.T) {
	env := newTestEnv(t)
	env.addConfidentialClient(t, "client1", []string{GrantTypeAuthorizationCode}, []string{"read"})

	query := baseAuthorizeQuery("client1", "code code")
	_, _, err := env.authorize.Validate(context.Background(), authorizeRequest(query))
	oauthErr := oauthError(t, err)
	assert.Equal(t, domain.ErrInvalidRequest, oauthErr.Code)
	assert.Contains(t, oauthErr.Description, "more than once")
}

func TestAuthorize_UnknownResponseTypeRejected(t *testing.T) {
	env := newTestEnv(t)
	env.addConfidentialClient(t, "client1", []string{GrantTypeAuthorizationCode}, []string{"read"})

	query := baseAuthorizeQuery("client1", "carrier_pigeon")
	_, _, err := env.authorize.Validate(context.Background(), authorizeRequest(query))
	assert.Equal(t, domain.ErrInvalidRequest, oauthError(t, err).Code)
}

func TestAuthorize_DisallowedResponseType(t *testing.T) {
	env := newTestEnv(t)
	// Confidential fixture clients do not register the token response type.
	env.addConfidentialClient(t, "client1", []string{GrantTypeAuthorizationCode}, []string{"read"})

	query := baseAuthorizeQuery("client1", "token")
	_, _, err := env.authorize.Validate(context.Background(), authorizeRequest(query))
	assert.Equal(t, domain.ErrUnauthorizedClient, oauthError(t, err).Code)
}

func TestAuthorize_RedirectURIExactMatch(t *testing.T) {
	env := newTestEnv(t)
	env.addConfidentialClient(t, "client1", []string{GrantTypeAuthorizationCode}, []string{"read"})

	for _, uri := range []string{
		"https://cb.example/callback/", // trailing slash
		"https://cb.example/callback?extra=1",
		"https://cb.example/other",
		"https://evil.example/callback",
	} {
		query := baseAuthorizeQuery("client1", "code")
		query.Set("redirect_uri", uri)

		_, _, err := env.authorize.Validate(context.Background(), authorizeRequest(query))
		assert.Equal(t, domain.ErrInvalidRequest, oauthError(t, err).Code, "uri %s must be rejected", uri)
	}
}

func TestAuthorize_RedirectURIFragmentForbidden(t *testing.T) {
	env := newTestEnv(t)
	env.addConfidentialClient(t, "client1", []string{GrantTypeAuthorizationCode}, []string{"read"})

	query := baseAuthorizeQuery("client1", "code")
	query.Set("redirect_uri", "https://cb.example/callback#frag")

	_, _, err := env.authorize.Validate(context.Background(), authorizeRequest(query))
	assert.Equal(t, domain.ErrInvalidRequest, oauthError(t, err).Code)
}

func TestAuthorize_InsecureRedirectURI(t *testing.T) {
	env := newTestEnv(t)
	client, _ := env.addConfidentialClient(t, "client1", []string{GrantTypeAuthorizationCode}, []string{"read"})
	client.RedirectURIs = append(client.RedirectURIs, "http://cb.example/callback", "http://127.0.0.1:8911/cb")

	query := baseAuthorizeQuery("client1", "code")
	query.Set("redirect_uri", "http://cb.example/callback")
	_, _, err := env.authorize.Validate(context.Background(), authorizeRequest(query))
	assert.Equal(t, domain.ErrInvalidRequest, oauthError(t, err).Code)

	// Loopback redirects stay allowed for native clients.
	query.Set("redirect_uri", "http://127.0.0.1:8911/cb")
	_, _, err = env.authorize.Validate(context.Background(), authorizeRequest(query))
	assert.NoError(t, err)
}

func TestAuthorize_LocalhostIsNotLoopback(t *testing.T) {
	env := newTestEnv(t)
	client, _ := env.addConfidentialClient(t, "client1", []string{GrantTypeAuthorizationCode}, []string{"read"})
	client.RedirectURIs = append(client.RedirectURIs, "http://localhost:8911/cb")

	// localhost can resolve anywhere; only literal loopback addresses escape
	// the https requirement.
	query := baseAuthorizeQuery("client1", "code")
	query.Set("redirect_uri", "http://localhost:8911/cb")
	_, _, err := env.authorize.Validate(context.Background(), authorizeRequest(query))
	assert.Equal(t, domain.ErrInvalidRequest, oauthError(t, err).Code)
}

func TestAuthorize_StateEnforcement(t *testing.T) {
	policy := testPolicyConfig()
	policy.RequireState = true
	env := newTestEnvWithPolicy(t, policy)
	env.addConfidentialClient(t, "client1", []string{GrantTypeAuthorizationCode}, []string{"read"})

	query := baseAuthorizeQuery("client1", "code")
	query.Del("state")

	// The redirect URI already validated, so the client hears about the
	// missing state through it rather than as a direct error.
	_, failure, err := env.authorize.Validate(context.Background(), authorizeRequest(query))
	require.NoError(t, err)
	require.NotNil(t, failure)

	redirect, err := url.Parse(failure.RedirectURI)
	require.NoError(t, err)
	params := redirect.Query()
	assert.True(t, strings.HasPrefix(failure.RedirectURI, "https://cb.example/callback"))
	assert.Equal(t, "invalid_request", params.Get("error"))
	assert.Contains(t, params.Get("error_description"), "state")
}

func TestAuthorize_ScopeOutsideAllowList(t *testing.T) {
	env := newTestEnv(t)
	env.addConfidentialClient(t, "client1", []string{GrantTypeAuthorizationCode}, []string{"read"})

	query := baseAuthorizeQuery("client1", "code")
	query.Set("scope", "read admin")

	_, failure, err := env.authorize.Validate(context.Background(), authorizeRequest(query))
	require.NoError(t, err)
	require.NotNil(t, failure)

	redirect, err := url.Parse(failure.RedirectURI)
	require.NoError(t, err)
	params := redirect.Query()
	assert.True(t, strings.HasPrefix(failure.RedirectURI, "https://cb.example/callback"))
	assert.Equal(t, "invalid_scope", params.Get("error"))
	assert.NotEmpty(t, params.Get("error_description"))
	assert.Equal(t, "xyz", params.Get("state"))
}

func TestAuthorize_DenialDeliveredThroughRedirect(t *testing.T) {
	env := newTestEnv(t)
	env.addConfidentialClient(t, "client1", []string{GrantTypeAuthorizationCode}, []string{"read"})
	user := env.addUser(t, "alice", "hunter2")

	authz, _, err := env.authorize.Validate(context.Background(), authorizeRequest(baseAuthorizeQuery("client1", "code")))
	require.NoError(t, err)

	result, err := env.authorize.Authorize(context.Background(), authz, user, false)
	require.NoError(t, err)

	redirect, err := url.Parse(result.RedirectURI)
	require.NoError(t, err)
	params := redirect.Query()
	assert.Equal(t, "access_denied", params.Get("error"))
	assert.Equal(t, "xyz", params.Get("state"))
	assert.Empty(t, params.Get("code"))
}

func TestAuthorize_IDTokenRequiresNonce(t *testing.T) {
	env := newTestEnv(t)
	env.addConfidentialClient(t, "client1", []string{GrantTypeAuthorizationCode}, []string{"openid", "read"})
	user := env.addUser(t, "alice", "hunter2")

	query := baseAuthorizeQuery("client1", "id_token")
	query.Set("scope", "openid")
	// No nonce.

	authz, _, err := env.authorize.Validate(context.Background(), authorizeRequest(query))
	require.NoError(t, err)
	assert.Equal(t, domain.ResponseModeFragment, authz.ResponseMode)

	result, err := env.authorize.Authorize(context.Background(), authz, user, true)
	require.NoError(t, err)

	redirect, err := url.Parse(result.RedirectURI)
	require.NoError(t, err)
	fragment, err := url.ParseQuery(redirect.Fragment)
	require.NoError(t, err)
	assert.Equal(t, "invalid_request", fragment.Get("error"))
}

func TestAuthorize_IDTokenFlow(t *testing.T) {
	env := newTestEnv(t)
	env.addConfidentialClient(t, "client1", []string{GrantTypeAuthorizationCode}, []string{"openid"})
	user := env.addUser(t, "alice", "hunter2")

	query := baseAuthorizeQuery("client1", "id_token")
	query.Set("scope", "openid")
	query.Set("nonce", "n-0S6_WzA2Mj")

	authz, _, err := env.authorize.Validate(context.Background(), authorizeRequest(query))
	require.NoError(t, err)

	result, err := env.authorize.Authorize(context.Background(), authz, user, true)
	require.NoError(t, err)

	redirect, err := url.Parse(result.RedirectURI)
	require.NoError(t, err)
	fragment, err := url.ParseQuery(redirect.Fragment)
	require.NoError(t, err)
	require.NotEmpty(t, fragment.Get("id_token"))

	claims, err := decodeIDToken(fragment.Get("id_token"))
	require.NoError(t, err)
	assert.Equal(t, user.PublicID(), claims["sub"])
	assert.Equal(t, "n-0S6_WzA2Mj", claims["nonce"])
}

func TestAuthorize_CodeIDTokenCarriesCHash(t *testing.T) {
	env := newTestEnv(t)
	env.addConfidentialClient(t, "client1", []string{GrantTypeAuthorizationCode}, []string{"openid"})
	user := env.addUser(t, "alice", "hunter2")

	query := baseAuthorizeQuery("client1", "code id_token")
	query.Set("scope", "openid")
	query.Set("nonce", "n-0S6_WzA2Mj")

	authz, _, err := env.authorize.Validate(context.Background(), authorizeRequest(query))
	require.NoError(t, err)
	assert.Equal(t, domain.ResponseModeFragment, authz.ResponseMode)

	result, err := env.authorize.Authorize(context.Background(), authz, user, true)
	require.NoError(t, err)

	redirect, err := url.Parse(result.RedirectURI)
	require.NoError(t, err)
	fragment, err := url.ParseQuery(redirect.Fragment)
	require.NoError(t, err)
	require.NotEmpty(t, fragment.Get("code"))
	require.NotEmpty(t, fragment.Get("id_token"))

	claims, err := decodeIDToken(fragment.Get("id_token"))
	require.NoError(t, err)
	assert.NotEmpty(t, claims["c_hash"])
}

func TestAuthorize_FormPostMode(t *testing.T) {
	env := newTestEnv(t)
	env.addConfidentialClient(t, "client1", []string{GrantTypeAuthorizationCode}, []string{"read"})
	user := env.addUser(t, "alice", "hunter2")

	query := baseAuthorizeQuery("client1", "code")
	query.Set("response_mode", "form_post")

	authz, _, err := env.authorize.Validate(context.Background(), authorizeRequest(query))
	require.NoError(t, err)
	assert.Equal(t, domain.ResponseModeFormPost, authz.ResponseMode)

	result, err := env.authorize.Authorize(context.Background(), authz, user, true)
	require.NoError(t, err)
	assert.Empty(t, result.RedirectURI)
	assert.Contains(t, result.FormPost, `action="https://cb.example/callback"`)
	assert.Contains(t, result.FormPost, `name="code"`)
	assert.Contains(t, result.FormPost, `name="state"`)
}

func TestAuthorize_UnknownResponseMode(t *testing.T) {
	env := newTestEnv(t)
	env.addConfidentialClient(t, "client1", []string{GrantTypeAuthorizationCode}, []string{"read"})

	query := baseAuthorizeQuery("client1", "code")
	query.Set("response_mode", "smoke_signal")

	// An unusable response_mode falls back to the intrinsic mode of the
	// response type, query for code, and delivers through the redirect.
	_, failure, err := env.authorize.Validate(context.Background(), authorizeRequest(query))
	require.NoError(t, err)
	require.NotNil(t, failure)

	redirect, err := url.Parse(failure.RedirectURI)
	require.NoError(t, err)
	params := redirect.Query()
	assert.Equal(t, "invalid_request", params.Get("error"))
	assert.Equal(t, "xyz", params.Get("state"))
}

func TestAuthorize_UnknownClient(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.authorize.Validate(context.Background(), authorizeRequest(baseAuthorizeQuery("ghost", "code")))
	assert.Equal(t, domain.ErrInvalidRequest, oauthError(t, err).Code)
}

func TestAuthorize_NoneResponseTypeHidesParams(t *testing.T) {
	env := newTestEnv(t)
	env.addConfidentialClient(t, "client1", []string{GrantTypeAuthorizationCode}, []string{"read"})
	user := env.addUser(t, "alice", "hunter2")

	authz, _, err := env.authorize.Validate(context.Background(), authorizeRequest(baseAuthorizeQuery("client1", "none")))
	require.NoError(t, err)

	result, err := env.authorize.Authorize(context.Background(), authz, user, true)
	require.NoError(t, err)

	redirect, err := url.Parse(result.RedirectURI)
	require.NoError(t, err)
	params := redirect.Query()
	assert.Empty(t, params.Get("code"))
	assert.Empty(t, params.Get("access_token"))
	assert.Equal(t, "xyz", params.Get("state"))
	assert.True(t, strings.HasPrefix(result.RedirectURI, "https://cb.example/callback"))
}

func TestAuthorize_RequestObjectNotSupported(t *testing.T) {
	env := newTestEnv(t)
	env.addConfidentialClient(t, "client1", []string{GrantTypeAuthorizationCode}, []string{"read"})

	query := baseAuthorizeQuery("client1", "code")
	query.Set("request", "eyJhbGciOiJSUzI1NiJ9.e30.sig")
	_, _, err := env.authorize.Validate(context.Background(), authorizeRequest(query))
	assert.Equal(t, domain.ErrRequestNotSupported, oauthError(t, err).Code)

	query = baseAuthorizeQuery("client1", "code")
	query.Set("request_uri", "https://client.example/request.jwt")
	_, _, err = env.authorize.Validate(context.Background(), authorizeRequest(query))
	assert.Equal(t, domain.ErrRequestURINotSupported, oauthError(t, err).Code)
}
