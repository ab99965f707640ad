package service

import (
	"strings"

	"github.com/marcelofv/oauth2-core/internal/domain"
)

// ScopePolicy decides what scope applies when a request carries none.
type ScopePolicy interface {
	DefaultScope(client *domain.Client) ([]string, error)
}

// ClientScopePolicy grants the client's full scope allow-list when the request
// omits scope. This is the shipped default.
type ClientScopePolicy struct{}

func (ClientScopePolicy) DefaultScope(client *domain.Client) ([]string, error) {
	return client.Scope, nil
}

// RequiredScopePolicy rejects requests that omit scope.
type RequiredScopePolicy struct{}

func (RequiredScopePolicy) DefaultScope(*domain.Client) ([]string, error) {
	return nil, domain.NewOAuthError(domain.ErrInvalidScope, "scope parameter is required")
}

// ScopeService is the scope policy engine: it resolves a request's effective
// scope and performs the containment check every grant and response type
// relies on.
type ScopeService struct {
	policy ScopePolicy
}

func NewScopeService(policy ScopePolicy) *ScopeService {
	if policy == nil {
		policy = ClientScopePolicy{}
	}
	return &ScopeService{policy: policy}
}

// CheckScopePolicy applies the default policy when requested is empty and
// passes a non-empty request through unchanged. The containment check against
// the client's allow-list happens separately in CheckScopes.
func (s *ScopeService) CheckScopePolicy(requested []string, client *domain.Client) ([]string, error) {
	if len(requested) > 0 {
		return requested, nil
	}
	return s.policy.DefaultScope(client)
}

// CheckScopes reports whether every requested scope token is present in
// available. There are no partial grants: one stray token fails the request.
func (s *ScopeService) CheckScopes(requested, available []string) bool {
	for _, scope := range requested {
		found := false
		for _, avail := range available {
			if scope == avail {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ParseScope splits a space-delimited scope parameter into tokens,
// dropping empty entries.
func ParseScope(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Fields(raw)
}

// JoinScope renders a scope set back into its wire form.
func JoinScope(scope []string) string {
	return strings.Join(scope, " ")
}
