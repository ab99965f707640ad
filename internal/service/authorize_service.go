package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/marcelofv/oauth2-core/internal/config"
	"github.com/marcelofv/oauth2-core/internal/domain"
	"github.com/marcelofv/oauth2-core/internal/repository"
)

// AuthorizeResult is the outcome of an authorization request once a redirect
// URI has been established: either a redirect location or, for the form_post
// mode, an HTML document to serve.
type AuthorizeResult struct {
	Mode        domain.ResponseMode
	RedirectURI string // full URI carrying the response parameters
	FormPost    string // set instead of RedirectURI when Mode is form_post
}

// AuthorizeService is the authorization-endpoint state machine: it validates
// the request, runs the two-pass response-type pipeline and encodes the
// outcome through the chosen response mode.
//
// Errors raised before a redirect URI is established are returned to the
// caller directly; every later failure (including denial by the resource
// owner) is delivered through the redirect so the client always hears back.
type AuthorizeService struct {
	clients repository.ClientRepository
	scopes  *ScopeService
	encoder *ResponseModeEncoder
	policy  config.PolicyConfig

	responseTypes map[string]ResponseType
}

func NewAuthorizeService(
	clients repository.ClientRepository,
	scopes *ScopeService,
	encoder *ResponseModeEncoder,
	policy config.PolicyConfig,
) *AuthorizeService {
	return &AuthorizeService{
		clients:       clients,
		scopes:        scopes,
		encoder:       encoder,
		policy:        policy,
		responseTypes: make(map[string]ResponseType),
	}
}

// Register adds a response type to the dispatcher.
func (s *AuthorizeService) Register(responseType ResponseType) {
	s.responseTypes[responseType.Name()] = responseType
}

// Validate performs every check that must pass before the resource owner is
// even asked: client resolution, response-type checks, redirect-URI rules,
// state enforcement, the scope policy and response-mode selection. The
// returned Authorization is ready for Authorize once the owner has decided.
//
// Failures detected once the redirect URI has been validated come back as a
// non-nil AuthorizeResult: the error is already encoded into the redirect
// (RFC 6749 Section 4.1.2.1) and the caller only has to deliver it.
func (s *AuthorizeService) Validate(ctx context.Context, req *domain.Request) (*domain.Authorization, *AuthorizeResult, error) {
	// Request objects (OIDC Core Section 6) are not served here.
	if req.QueryValue("request") != "" {
		return nil, nil, domain.NewOAuthError(domain.ErrRequestNotSupported, "the request parameter is not supported")
	}
	if req.QueryValue("request_uri") != "" {
		return nil, nil, domain.NewOAuthError(domain.ErrRequestURINotSupported, "the request_uri parameter is not supported")
	}

	client, err := s.resolveClient(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	responseTypes, err := s.parseResponseTypes(req, client)
	if err != nil {
		return nil, nil, err
	}

	redirectURI, err := s.validateRedirectURI(req, client, responseTypes)
	if err != nil {
		return nil, nil, err
	}

	// A redirect URI is established from here on: the client hears about
	// every later failure through it, with state attached.
	authz := &domain.Authorization{
		Query:         req.Query,
		Client:        client,
		ResponseTypes: responseTypes,
		RedirectURI:   redirectURI,
		TokenType:     domain.TokenTypeBearer,
	}

	mode, err := s.resolveResponseMode(req, responseTypes)
	if err != nil {
		// The requested mode is unusable; fall back to the intrinsic one.
		authz.ResponseMode = s.errorResponseMode(responseTypes)
		return s.deliverValidation(authz, err)
	}
	authz.ResponseMode = mode

	if s.policy.RequireState && req.QueryValue("state") == "" {
		return s.deliverValidation(authz, domain.NewOAuthError(domain.ErrInvalidRequest, "the state parameter is mandatory"))
	}

	scope, err := s.scopes.CheckScopePolicy(ParseScope(req.QueryValue("scope")), client)
	if err != nil {
		return s.deliverValidation(authz, err)
	}
	if !s.scopes.CheckScopes(scope, client.Scope) {
		return s.deliverValidation(authz, domain.NewOAuthError(domain.ErrInvalidScope, "an unsupported scope was requested, available scopes are %s", JoinScope(client.Scope)))
	}
	authz.Scope = scope

	return authz, nil, nil
}

// deliverValidation encodes a post-redirect-URI validation failure into the
// redirect. Non-protocol errors still surface to the caller directly.
func (s *AuthorizeService) deliverValidation(authz *domain.Authorization, err error) (*domain.Authorization, *AuthorizeResult, error) {
	var oauthErr *domain.OAuthError
	if !errors.As(err, &oauthErr) {
		return nil, nil, err
	}

	result, err := s.deliverError(authz, oauthErr)
	return nil, result, err
}

// errorResponseMode picks the mode for delivering an error when the request's
// own mode selection failed: the single type's intrinsic mode, fragment for
// the hybrid combinations, query for anything else.
func (s *AuthorizeService) errorResponseMode(responseTypes []string) domain.ResponseMode {
	if len(responseTypes) == 1 {
		return s.responseTypes[responseTypes[0]].Mode()
	}

	sorted := append([]string(nil), responseTypes...)
	sort.Strings(sorted)
	if multiTypeCombinations[strings.Join(sorted, " ")] {
		return domain.ResponseModeFragment
	}

	return domain.ResponseModeQuery
}

// Authorize completes a validated request. When approved is false the client
// receives access_denied through the response mode rather than a bare error.
func (s *AuthorizeService) Authorize(ctx context.Context, authz *domain.Authorization, user *domain.User, approved bool) (*AuthorizeResult, error) {
	authz.User = user
	authz.Approved = approved

	if !approved {
		return s.deliverError(authz, domain.NewOAuthError(domain.ErrAccessDenied, "the resource owner denied the request"))
	}

	params := make(map[string]string)

	// First pass: every response type prepares and contributes parameters.
	for _, name := range authz.ResponseTypes {
		prepared, err := s.responseTypes[name].Prepare(ctx, authz)
		if err != nil {
			return s.deliverFailure(authz, err)
		}
		params = mergeParams(params, prepared)
	}

	if state := authz.State(); state != "" {
		params["state"] = state
	}

	// Second pass, same order, so hashes over first-pass artifacts are
	// deterministic.
	for _, name := range authz.ResponseTypes {
		finalized, err := s.responseTypes[name].Finalize(ctx, authz, params)
		if err != nil {
			return s.deliverFailure(authz, err)
		}
		params = finalized
	}

	return s.encode(authz, params)
}

func (s *AuthorizeService) resolveClient(ctx context.Context, req *domain.Request) (*domain.Client, error) {
	clientID := req.QueryValue("client_id")
	if clientID == "" {
		return nil, domain.NewOAuthError(domain.ErrInvalidRequest, "the client_id parameter is missing")
	}

	client, err := s.clients.GetByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewOAuthError(domain.ErrInvalidRequest, "the client is unknown")
		}
		return nil, fmt.Errorf("failed to look up client: %w", err)
	}

	return client, nil
}

// parseResponseTypes splits the response_type parameter into a duplicate-free
// set of registered, client-allowed handler names, preserved in request order.
func (s *AuthorizeService) parseResponseTypes(req *domain.Request, client *domain.Client) ([]string, error) {
	raw := req.QueryValue("response_type")
	if raw == "" {
		return nil, domain.NewOAuthError(domain.ErrInvalidRequest, "the response_type parameter is missing")
	}

	names := strings.Fields(raw)
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, domain.NewOAuthError(domain.ErrInvalidRequest, "the response type %q appears more than once", name)
		}
		seen[name] = true

		if _, ok := s.responseTypes[name]; !ok {
			return nil, domain.NewOAuthError(domain.ErrInvalidRequest, "the response type %q is not supported by this server", name)
		}
		if !client.IsResponseTypeAllowed(name) {
			return nil, domain.NewOAuthError(domain.ErrUnauthorizedClient, "the response type %q is not allowed for this client", name)
		}
	}

	return names, nil
}

func (s *AuthorizeService) validateRedirectURI(req *domain.Request, client *domain.Client, responseTypes []string) (string, error) {
	redirectURI := req.QueryValue("redirect_uri")
	if redirectURI == "" {
		return "", domain.NewOAuthError(domain.ErrInvalidRequest, "the redirect_uri parameter is missing")
	}

	parsed, err := url.Parse(redirectURI)
	if err != nil {
		return "", domain.NewOAuthError(domain.ErrInvalidRequest, "the redirect_uri parameter is malformed")
	}
	if parsed.Fragment != "" || strings.Contains(redirectURI, "#") {
		return "", domain.NewOAuthError(domain.ErrInvalidRequest, "the redirect_uri parameter must not contain a fragment")
	}

	if s.policy.RequireSecureRedirectURI && parsed.Scheme != "https" && !isLoopback(parsed) {
		return "", domain.NewOAuthError(domain.ErrInvalidRequest, "the redirect_uri parameter must use the https scheme")
	}

	if len(client.RedirectURIs) > 0 {
		if !client.IsRedirectURIRegistered(redirectURI) {
			return "", domain.NewOAuthError(domain.ErrInvalidRequest, "the redirect_uri parameter is not registered for this client")
		}
		return redirectURI, nil
	}

	// No registered URIs: a public client must always register one; a
	// confidential client using the implicit flow must as well.
	if client.IsPublic() {
		return "", domain.NewOAuthError(domain.ErrInvalidClient, "public clients must register at least one redirect URI")
	}
	for _, name := range responseTypes {
		if name == ResponseTypeToken {
			return "", domain.NewOAuthError(domain.ErrInvalidClient, "clients using the token response type must register at least one redirect URI")
		}
	}

	return redirectURI, nil
}

func (s *AuthorizeService) resolveResponseMode(req *domain.Request, responseTypes []string) (domain.ResponseMode, error) {
	if s.policy.AllowResponseModeParameter {
		switch mode := req.QueryValue("response_mode"); mode {
		case "":
		case string(domain.ResponseModeQuery), string(domain.ResponseModeFragment), string(domain.ResponseModeFormPost):
			return domain.ResponseMode(mode), nil
		default:
			return "", domain.NewOAuthError(domain.ErrInvalidRequest, "the response mode %q is not supported", mode)
		}
	}

	if len(responseTypes) == 1 {
		return s.responseTypes[responseTypes[0]].Mode(), nil
	}

	sorted := append([]string(nil), responseTypes...)
	sort.Strings(sorted)
	if multiTypeCombinations[strings.Join(sorted, " ")] {
		return domain.ResponseModeFragment, nil
	}

	return "", domain.NewOAuthError(domain.ErrInvalidRequest, "the response type combination %q is not supported", strings.Join(responseTypes, " "))
}

// deliverFailure routes protocol errors through the redirect and lets
// everything else (storage, crypto) surface as a server failure: a broken
// collaborator must abort the grant, not mint half a response.
func (s *AuthorizeService) deliverFailure(authz *domain.Authorization, err error) (*AuthorizeResult, error) {
	var oauthErr *domain.OAuthError
	if errors.As(err, &oauthErr) {
		return s.deliverError(authz, oauthErr)
	}
	return nil, err
}

func (s *AuthorizeService) deliverError(authz *domain.Authorization, oauthErr *domain.OAuthError) (*AuthorizeResult, error) {
	params := map[string]string{
		"error":             string(oauthErr.Code),
		"error_description": oauthErr.Description,
	}
	if state := authz.State(); state != "" {
		params["state"] = state
	}

	return s.encode(authz, params)
}

func (s *AuthorizeService) encode(authz *domain.Authorization, params map[string]string) (*AuthorizeResult, error) {
	if authz.ResponseMode == domain.ResponseModeFormPost {
		return &AuthorizeResult{
			Mode:     domain.ResponseModeFormPost,
			FormPost: s.encoder.EncodeFormPost(authz.RedirectURI, params),
		}, nil
	}

	redirect, err := s.encoder.EncodeRedirect(authz.RedirectURI, authz.ResponseMode, params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}

	return &AuthorizeResult{Mode: authz.ResponseMode, RedirectURI: redirect}, nil
}

// isLoopback admits only the literal loopback addresses; "localhost" is
// excluded since it can resolve to a non-loopback address.
func isLoopback(u *url.URL) bool {
	if u.Scheme != "http" {
		return false
	}
	host := u.Hostname()
	return host == "127.0.0.1" || host == "::1"
}
