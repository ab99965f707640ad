package service

import (
	"context"

	"github.com/marcelofv/oauth2-core/internal/domain"
)

// Grant type names registered with the dispatcher.
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeClientCredentials = "client_credentials"
	GrantTypePassword          = "password"
	GrantTypeRefreshToken      = "refresh_token"
	GrantTypeJWTBearer         = "urn:ietf:params:oauth:grant-type:jwt-bearer"
)

// GrantType is a token-endpoint strategy. Each stage takes the accumulated
// result by value and returns an updated copy, so no stage sees another's
// in-flight state.
type GrantType interface {
	Name() string

	// Prepare runs before client resolution. Grant types that authenticate
	// through a non-standard credential (jwt-bearer) set the prospective
	// client id here.
	Prepare(ctx context.Context, req *domain.Request, res domain.GrantResult) (domain.GrantResult, error)

	// Grant performs grant-specific validation against the resolved client
	// and fills in the resource owner, scope bounds and refresh-token
	// directives.
	Grant(ctx context.Context, req *domain.Request, client *domain.Client, res domain.GrantResult) (domain.GrantResult, error)
}

// Keys under GrantResult.Extra shared between grants and the dispatcher.
const (
	extraNonce    = "nonce"
	extraAuthTime = "auth_time"
)
