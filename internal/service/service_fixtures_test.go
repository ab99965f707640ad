package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/marcelofv/oauth2-core/internal/config"
	"github.com/marcelofv/oauth2-core/internal/domain"
	"github.com/marcelofv/oauth2-core/internal/repository/inmem"
	"github.com/marcelofv/oauth2-core/pkg/hash"
	pkgjwt "github.com/marcelofv/oauth2-core/pkg/jwt"
)

var testHashConfig = hash.Argon2Config{
	Memory:      8 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

func testTokenConfig() config.TokenConfig {
	return config.TokenConfig{
		AccessTokenLifetime:  30 * time.Minute,
		RefreshTokenLifetime: 14 * 24 * time.Hour,
		AuthCodeLifetime:     2 * time.Minute,
		IDTokenLifetime:      30 * time.Minute,
		Charset:              "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789",
		MinLength:            40,
		MaxLength:            50,
	}
}

func testPolicyConfig() config.PolicyConfig {
	return config.PolicyConfig{
		RequireSecureRedirectURI:   true,
		AllowResponseModeParameter: true,
		IssueRefreshTokenPassword:  true,
	}
}

// testEnv wires the whole engine over in-memory repositories.
type testEnv struct {
	clients     *inmem.ClientRepository
	users       *inmem.UserRepository
	revocations *inmem.RevocationStore
	accessRepo  *inmem.AccessTokenRepository
	refreshRepo *inmem.RefreshTokenRepository
	codeRepo    *inmem.AuthorizationCodeRepository

	accessTokens  *AccessTokenService
	refreshTokens *RefreshTokenService
	authCodes     *AuthorizationCodeService
	idTokens      *IDTokenService
	scopes        *ScopeService
	authenticator *ClientAuthenticator

	grants        *GrantService
	authorize     *AuthorizeService
	introspection *IntrospectionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	policy := testPolicyConfig()
	return newTestEnvWithPolicy(t, policy)
}

func newTestEnvWithPolicy(t *testing.T, policy config.PolicyConfig) *testEnv {
	t.Helper()

	cfg := testTokenConfig()

	env := &testEnv{
		clients:     inmem.NewClientRepository(),
		users:       inmem.NewUserRepository(),
		revocations: inmem.NewRevocationStore(),
		accessRepo:  inmem.NewAccessTokenRepository(),
		refreshRepo: inmem.NewRefreshTokenRepository(),
		codeRepo:    inmem.NewAuthorizationCodeRepository(),
	}

	env.accessTokens = NewAccessTokenService(env.accessRepo, env.revocations, cfg)
	env.refreshTokens = NewRefreshTokenService(env.refreshRepo, env.revocations, cfg)
	env.authCodes = NewAuthorizationCodeService(env.codeRepo, cfg)
	env.idTokens = NewIDTokenService(testSigner(t), "https://auth.example", cfg)
	env.scopes = NewScopeService(ClientScopePolicy{})
	env.authenticator = NewClientAuthenticator(env.clients)

	env.grants = NewGrantService(env.authenticator, env.clients, env.scopes, env.accessTokens, env.refreshTokens, env.idTokens, policy)
	env.grants.Register(NewAuthorizationCodeGrant(env.authCodes))
	env.grants.Register(NewClientCredentialsGrant(policy))
	env.grants.Register(NewPasswordGrant(env.users, policy))
	env.grants.Register(NewRefreshTokenGrant(env.refreshTokens))
	env.grants.Register(NewJWTBearerGrant())

	env.authorize = NewAuthorizeService(env.clients, env.scopes, NewResponseModeEncoder(), policy)
	env.authorize.Register(NewCodeResponseType(env.authCodes, true))
	env.authorize.Register(NewTokenResponseType(env.accessTokens, policy.AllowConfidentialImplicit))
	env.authorize.Register(NewIDTokenResponseType(env.idTokens))
	env.authorize.Register(NewNoneResponseType(env.accessTokens))

	env.introspection = NewIntrospectionService(env.authenticator, "https://auth.example")
	env.introspection.Register(NewAccessTokenKind(env.accessTokens))
	env.introspection.Register(NewRefreshTokenKind(env.refreshTokens))

	return env
}

func testSigner(t *testing.T) *pkgjwt.Signer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	signer, err := pkgjwt.NewSigner(keyPEM, "test-key", "RS256")
	require.NoError(t, err)
	return signer
}

func publicKeyPEM(t *testing.T, signer *pkgjwt.Signer) string {
	t.Helper()

	der, err := x509.MarshalPKIXPublicKey(signer.PublicKey())
	require.NoError(t, err)

	return string(pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: der,
	}))
}

// addConfidentialClient registers a confidential client and returns it with
// its raw secret.
func (e *testEnv) addConfidentialClient(t *testing.T, clientID string, grantTypes, scope []string) (*domain.Client, string) {
	t.Helper()

	const secret = "secret"
	secretHash, err := hash.HashSecretWithConfig(secret, testHashConfig)
	require.NoError(t, err)

	client := &domain.Client{
		ID:            uuid.New(),
		ClientID:      clientID,
		Name:          clientID,
		Type:          domain.ClientTypeConfidential,
		SecretHash:    secretHash,
		GrantTypes:    grantTypes,
		ResponseTypes: []string{ResponseTypeCode, ResponseTypeIDToken, ResponseTypeNone},
		RedirectURIs:  []string{"https://cb.example/callback"},
		Scope:         scope,
	}
	require.NoError(t, e.clients.Create(context.Background(), client))

	return client, secret
}

func (e *testEnv) addPublicClient(t *testing.T, clientID string, grantTypes, scope []string) *domain.Client {
	t.Helper()

	client := &domain.Client{
		ID:            uuid.New(),
		ClientID:      clientID,
		Name:          clientID,
		Type:          domain.ClientTypePublic,
		GrantTypes:    grantTypes,
		ResponseTypes: []string{ResponseTypeCode, ResponseTypeToken, ResponseTypeIDToken},
		RedirectURIs:  []string{"https://cb.example/callback"},
		Scope:         scope,
	}
	require.NoError(t, e.clients.Create(context.Background(), client))

	return client
}

func (e *testEnv) addUser(t *testing.T, username, password string) *domain.User {
	t.Helper()

	passwordHash, err := hash.HashSecretWithConfig(password, testHashConfig)
	require.NoError(t, err)

	user := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: passwordHash,
		Active:       true,
	}
	e.users.Add(user)

	return user
}

// tokenRequest builds a secured POST to the token endpoint.
func tokenRequest(form url.Values) *domain.Request {
	return &domain.Request{
		Method:  http.MethodPost,
		Secured: true,
		Form:    form,
	}
}

func withBasicAuth(req *domain.Request, clientID, secret string) *domain.Request {
	raw := url.QueryEscape(clientID) + ":" + url.QueryEscape(secret)
	req.Authorization = "Basic " + base64.StdEncoding.EncodeToString([]byte(raw))
	return req
}

// authorizeRequest builds a secured GET to the authorization endpoint.
func authorizeRequest(query url.Values) *domain.Request {
	return &domain.Request{
		Method:  http.MethodGet,
		Secured: true,
		Query:   query,
	}
}

func decodeIDToken(token string) (map[string]any, error) {
	return pkgjwt.DecodeUnverified(token)
}

func oauthError(t *testing.T, err error) *domain.OAuthError {
	t.Helper()

	var oauthErr *domain.OAuthError
	require.ErrorAs(t, err, &oauthErr)
	return oauthErr
}
