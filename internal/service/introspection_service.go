package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marcelofv/oauth2-core/internal/domain"
	"github.com/marcelofv/oauth2-core/internal/repository"
)

// TokenInfo is the kind-agnostic view of a stored token used by the
// introspection and revocation endpoints.
type TokenInfo struct {
	ID        string
	Kind      string
	ClientID  string
	UserID    string
	Scope     []string
	ExpiresAt time.Time
	CreatedAt time.Time
	Active    bool
}

// TokenKindManager adapts one token kind to the shared endpoint shape.
type TokenKindManager interface {
	Kind() string
	// Find returns repository.ErrNotFound when no token with this value is
	// stored under this kind.
	Find(ctx context.Context, value string) (*TokenInfo, error)
	// Revoke is idempotent; revoking an unknown value is not an error.
	Revoke(ctx context.Context, value string) error
}

type accessTokenKind struct {
	tokens *AccessTokenService
}

func NewAccessTokenKind(tokens *AccessTokenService) TokenKindManager {
	return &accessTokenKind{tokens: tokens}
}

func (k *accessTokenKind) Kind() string { return domain.TokenTypeHintAccessToken }

func (k *accessTokenKind) Find(ctx context.Context, value string) (*TokenInfo, error) {
	token, err := k.tokens.Get(ctx, value)
	if err != nil {
		return nil, err
	}

	active, err := k.tokens.IsValid(ctx, token)
	if err != nil {
		return nil, err
	}

	return &TokenInfo{
		ID:        token.ID.String(),
		Kind:      k.Kind(),
		ClientID:  token.ClientID,
		UserID:    token.UserID,
		Scope:     token.Scope,
		ExpiresAt: token.ExpiresAt,
		CreatedAt: token.CreatedAt,
		Active:    active,
	}, nil
}

func (k *accessTokenKind) Revoke(ctx context.Context, value string) error {
	token, err := k.tokens.Get(ctx, value)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	return k.tokens.Revoke(ctx, token)
}

type refreshTokenKind struct {
	tokens *RefreshTokenService
}

func NewRefreshTokenKind(tokens *RefreshTokenService) TokenKindManager {
	return &refreshTokenKind{tokens: tokens}
}

func (k *refreshTokenKind) Kind() string { return domain.TokenTypeHintRefreshToken }

func (k *refreshTokenKind) Find(ctx context.Context, value string) (*TokenInfo, error) {
	token, err := k.tokens.Get(ctx, value)
	if err != nil {
		return nil, err
	}

	active, err := k.tokens.IsValid(ctx, token)
	if err != nil {
		return nil, err
	}

	return &TokenInfo{
		ID:        token.ID.String(),
		Kind:      k.Kind(),
		ClientID:  token.ClientID,
		UserID:    token.UserID,
		Scope:     token.Scope,
		ExpiresAt: token.ExpiresAt,
		CreatedAt: token.CreatedAt,
		Active:    active,
	}, nil
}

func (k *refreshTokenKind) Revoke(ctx context.Context, value string) error {
	token, err := k.tokens.Get(ctx, value)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	return k.tokens.Revoke(ctx, token)
}

// IntrospectionService serves the introspection and revocation endpoints over
// a set of registered token kinds, dispatched by token_type_hint or, without
// a hint, by scanning the kinds in registration order.
type IntrospectionService struct {
	authenticator *ClientAuthenticator
	issuer        string

	kinds  []TokenKindManager
	byKind map[string]TokenKindManager
}

func NewIntrospectionService(authenticator *ClientAuthenticator, issuer string) *IntrospectionService {
	return &IntrospectionService{
		authenticator: authenticator,
		issuer:        issuer,
		byKind:        make(map[string]TokenKindManager),
	}
}

// Register adds a token kind. Registration order is the no-hint scan order.
func (s *IntrospectionService) Register(kind TokenKindManager) {
	s.kinds = append(s.kinds, kind)
	s.byKind[kind.Kind()] = kind
}

// Introspect implements RFC 7662. An absent, expired or foreign token yields
// active:false rather than an error, with one exception: when no hint was
// given and no kind matched at all, the caller gets invalid_request so a
// plain active:false never masks a malformed request.
func (s *IntrospectionService) Introspect(ctx context.Context, req *domain.Request) (*domain.IntrospectionResponse, error) {
	caller, value, hint, err := s.validate(ctx, req)
	if err != nil {
		return nil, err
	}

	if hint != "" {
		kind, ok := s.byKind[hint]
		if !ok {
			return nil, domain.NewOAuthError(domain.ErrInvalidRequest, "the token type hint %q is not supported", hint)
		}

		info, err := s.find(ctx, kind, value)
		if err != nil {
			return nil, err
		}
		return s.respond(caller, info), nil
	}

	for _, kind := range s.kinds {
		info, err := s.find(ctx, kind, value)
		if err != nil {
			return nil, err
		}
		if info != nil && s.ownedBy(info, caller) {
			return s.respond(caller, info), nil
		}
	}

	return nil, domain.NewOAuthError(domain.ErrInvalidRequest, "unable to find token or client not authenticated")
}

// Revoke implements RFC 7009. The outcome is identical whether or not a
// matching token existed; only an unsupported hint or a failing collaborator
// surfaces as an error.
func (s *IntrospectionService) Revoke(ctx context.Context, req *domain.Request) error {
	caller, value, hint, err := s.validate(ctx, req)
	if err != nil {
		return err
	}

	kinds := s.kinds
	if hint != "" {
		kind, ok := s.byKind[hint]
		if !ok {
			return domain.NewOAuthError(domain.ErrUnsupportedTokenType, "the token type hint %q is not supported", hint)
		}
		kinds = []TokenKindManager{kind}
	}

	for _, kind := range kinds {
		info, err := s.find(ctx, kind, value)
		if err != nil {
			return err
		}
		if info == nil || info.ClientID != caller.ClientID {
			continue
		}

		if err := kind.Revoke(ctx, value); err != nil {
			return fmt.Errorf("failed to revoke token: %w", err)
		}
		return nil
	}

	return nil
}

func (s *IntrospectionService) validate(ctx context.Context, req *domain.Request) (*domain.Client, string, string, error) {
	if !req.Secured {
		return nil, "", "", domain.NewOAuthError(domain.ErrInvalidRequest, "the request must be secured")
	}

	value := req.Param("token")
	if value == "" {
		return nil, "", "", domain.NewOAuthError(domain.ErrInvalidRequest, "the token parameter is missing")
	}

	caller, err := s.authenticator.Authenticate(ctx, req, true)
	if err != nil {
		return nil, "", "", err
	}

	return caller, value, req.Param("token_type_hint"), nil
}

func (s *IntrospectionService) find(ctx context.Context, kind TokenKindManager, value string) (*TokenInfo, error) {
	info, err := kind.Find(ctx, value)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}
	return info, nil
}

// ownedBy is the shared authorization rule: a client may only act on its own
// tokens, a resource server may introspect anyone's.
func (s *IntrospectionService) ownedBy(info *TokenInfo, caller *domain.Client) bool {
	return info.ClientID == caller.ClientID || caller.IsResourceServer()
}

func (s *IntrospectionService) respond(caller *domain.Client, info *TokenInfo) *domain.IntrospectionResponse {
	if info == nil || !info.Active || !s.ownedBy(info, caller) {
		return &domain.IntrospectionResponse{Active: false}
	}

	res := &domain.IntrospectionResponse{
		Active:    true,
		ClientID:  info.ClientID,
		TokenType: info.Kind,
		Scope:     JoinScope(info.Scope),
		Sub:       info.UserID,
		Iat:       info.CreatedAt.Unix(),
		Jti:       info.ID,
		Aud:       info.ClientID,
		Iss:       s.issuer,
	}
	if !info.ExpiresAt.IsZero() {
		res.Exp = info.ExpiresAt.Unix()
	}

	return res
}
