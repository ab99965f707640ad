package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/marcelofv/oauth2-core/internal/config"
	"github.com/marcelofv/oauth2-core/internal/domain"
	"github.com/marcelofv/oauth2-core/internal/repository"
)

// GrantService is the token-endpoint state machine. It authenticates the
// caller, dispatches to the requested grant type, enforces scope containment
// and issues the resulting tokens.
type GrantService struct {
	authenticator *ClientAuthenticator
	clients       repository.ClientRepository
	scopes        *ScopeService
	accessTokens  *AccessTokenService
	refreshTokens *RefreshTokenService
	idTokens      *IDTokenService
	policy        config.PolicyConfig

	grants map[string]GrantType
}

func NewGrantService(
	authenticator *ClientAuthenticator,
	clients repository.ClientRepository,
	scopes *ScopeService,
	accessTokens *AccessTokenService,
	refreshTokens *RefreshTokenService,
	idTokens *IDTokenService,
	policy config.PolicyConfig,
) *GrantService {
	return &GrantService{
		authenticator: authenticator,
		clients:       clients,
		scopes:        scopes,
		accessTokens:  accessTokens,
		refreshTokens: refreshTokens,
		idTokens:      idTokens,
		policy:        policy,
		grants:        make(map[string]GrantType),
	}
}

// Register adds a grant type to the dispatcher. Later registrations with the
// same name replace earlier ones.
func (s *GrantService) Register(grant GrantType) {
	s.grants[grant.Name()] = grant
}

// Grant processes one token request end to end and returns the token
// response. Protocol failures come back as *domain.OAuthError.
func (s *GrantService) Grant(ctx context.Context, req *domain.Request) (*domain.TokenResponse, error) {
	if !req.Secured {
		return nil, domain.NewOAuthError(domain.ErrInvalidRequest, "the request must be secured")
	}
	if req.Method != http.MethodPost {
		return nil, domain.NewOAuthError(domain.ErrInvalidRequest, "the request must use the POST method")
	}

	grantTypeName := req.FormValue("grant_type")
	if grantTypeName == "" {
		return nil, domain.NewOAuthError(domain.ErrInvalidRequest, "the grant_type parameter is missing")
	}

	grant, ok := s.grants[grantTypeName]
	if !ok {
		return nil, domain.NewOAuthError(domain.ErrUnsupportedGrantType, "unsupported grant type %q", grantTypeName)
	}

	res, err := grant.Prepare(ctx, req, domain.GrantResult{})
	if err != nil {
		return nil, err
	}

	client, err := s.resolveClient(ctx, req, &res)
	if err != nil {
		return nil, err
	}

	if !client.IsGrantTypeAllowed(grantTypeName) {
		return nil, domain.NewOAuthError(domain.ErrUnauthorizedClient, "the grant type %q is not allowed for this client", grantTypeName)
	}

	res, err = grant.Grant(ctx, req, client, res)
	if err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, req, client, res)
}

// resolveClient looks the client up directly when the grant's prepare hook
// identified it, and runs the client authenticator otherwise.
func (s *GrantService) resolveClient(ctx context.Context, req *domain.Request, res *domain.GrantResult) (*domain.Client, error) {
	if res.ClientID == "" {
		return s.authenticator.Authenticate(ctx, req, true)
	}

	client, err := s.clients.GetByClientID(ctx, res.ClientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.AuthenticationFailed(s.authenticator.Schemes())
		}
		return nil, fmt.Errorf("failed to look up client: %w", err)
	}

	return client, nil
}

func (s *GrantService) issueTokens(ctx context.Context, req *domain.Request, client *domain.Client, res domain.GrantResult) (*domain.TokenResponse, error) {
	requestedScope := res.RequestedScope
	if requestedScope == nil {
		requestedScope = ParseScope(req.FormValue("scope"))
	}

	requestedScope, err := s.scopes.CheckScopePolicy(requestedScope, client)
	if err != nil {
		return nil, err
	}

	availableScope := res.AvailableScope
	if availableScope == nil {
		availableScope = client.Scope
	}

	if !s.scopes.CheckScopes(requestedScope, availableScope) {
		return nil, domain.NewOAuthError(domain.ErrInvalidScope, "an unsupported scope was requested, available scopes are %s", JoinScope(availableScope))
	}

	tokenType := domain.TokenTypeBearer
	if s.policy.AllowTokenTypeParameter {
		if requested := req.FormValue("token_type"); requested != "" {
			tokenType = requested
		}
	}

	var refreshTokenValue string
	if res.IssueRefreshToken {
		refreshTokenScope := res.RefreshTokenScope
		if refreshTokenScope == nil {
			refreshTokenScope = requestedScope
		}

		refreshToken, err := s.refreshTokens.Create(ctx, client, res.UserID, refreshTokenScope)
		if err != nil {
			return nil, err
		}
		refreshTokenValue = refreshToken.Value

		// The old token must be unusable before the new one is handed out.
		if res.RevokeRefreshToken != nil {
			if err := s.refreshTokens.Revoke(ctx, res.RevokeRefreshToken); err != nil {
				return nil, err
			}
		}
	} else if res.RevokeRefreshToken != nil {
		if err := s.refreshTokens.Revoke(ctx, res.RevokeRefreshToken); err != nil {
			return nil, err
		}
	}

	accessToken, err := s.accessTokens.Create(ctx, client, res.UserID, requestedScope, tokenType, refreshTokenValue)
	if err != nil {
		return nil, err
	}

	response := &domain.TokenResponse{
		AccessToken:  accessToken.Value,
		TokenType:    accessToken.TokenType,
		Scope:        JoinScope(requestedScope),
		RefreshToken: refreshTokenValue,
	}
	if !accessToken.ExpiresAt.IsZero() {
		response.ExpiresIn = int64(time.Until(accessToken.ExpiresAt).Round(time.Second).Seconds())
	}

	// OIDC: an openid-scoped grant that carried a nonce through an auth code
	// also gets an ID token.
	if s.idTokens != nil && containsScope(requestedScope, "openid") {
		if nonce, ok := res.Extra[extraNonce]; ok && nonce != "" {
			in := IDTokenInput{
				UserID:      res.UserID,
				Nonce:       nonce,
				AccessToken: accessToken.Value,
			}
			if raw, ok := res.Extra[extraAuthTime]; ok {
				if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
					in.AuthTime = time.Unix(unix, 0)
				}
			}

			idToken, err := s.idTokens.Create(ctx, client, in)
			if err != nil {
				return nil, err
			}
			response.IDToken = idToken
		}
	}

	return response, nil
}

func containsScope(scope []string, name string) bool {
	for _, s := range scope {
		if s == name {
			return true
		}
	}
	return false
}
