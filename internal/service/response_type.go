package service

import (
	"context"

	"github.com/marcelofv/oauth2-core/internal/domain"
)

// Response type names registered with the authorize dispatcher.
const (
	ResponseTypeCode    = "code"
	ResponseTypeToken   = "token"
	ResponseTypeIDToken = "id_token"
	ResponseTypeNone    = "none"
)

// Artifact keys response types use to hand results to each other through the
// Authorization data bag.
const (
	artifactAccessToken = "access_token"
	artifactAuthCode    = "code"
)

// ResponseType is an authorization-endpoint strategy. Processing runs in two
// passes over the requested types, in request order both times: Prepare
// creates artifacts and returns its parameters, Finalize runs after every
// type has prepared so a type can hash artifacts produced by the others.
type ResponseType interface {
	Name() string

	// Mode is the type's intrinsic response mode, used when the request
	// names a single response type and no explicit response_mode.
	Mode() domain.ResponseMode

	Prepare(ctx context.Context, authz *domain.Authorization) (map[string]string, error)
	Finalize(ctx context.Context, authz *domain.Authorization, params map[string]string) (map[string]string, error)
}

// multiTypeCombinations are the hybrid-flow combinations from OIDC Core
// Section 3.3; all of them force the fragment response mode. Keys are the
// space-joined sorted type names.
var multiTypeCombinations = map[string]bool{
	"code token":          true,
	"code id_token":       true,
	"id_token token":      true,
	"code id_token token": true,
}

func mergeParams(dst, src map[string]string) map[string]string {
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
