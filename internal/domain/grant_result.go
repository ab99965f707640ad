package domain

// GrantResult accumulates what a grant handler decided while processing a
// token request. Each pipeline stage receives the current value and returns
// an updated copy, so no stage observes another stage's in-flight mutations.
type GrantResult struct {
	// ClientID is set by prepare hooks of grant types that identify the
	// client through a non-standard credential (jwt-bearer). When set, the
	// dispatcher resolves the client directly instead of running the
	// client authenticator.
	ClientID string

	// UserID is the resource-owner public identifier. For client_credentials
	// this is the client itself.
	UserID string

	// RequestedScope is the scope the grant wants issued. Nil means "take it
	// from the request's scope parameter".
	RequestedScope []string

	// AvailableScope bounds what may be issued. Nil means "not yet
	// constrained"; the dispatcher then defaults it to the client's
	// scope allow-list.
	AvailableScope []string

	// IssueRefreshToken indicates a refresh token should be created.
	IssueRefreshToken bool

	// RefreshTokenScope is the scope bound to the new refresh token.
	RefreshTokenScope []string

	// RevokeRefreshToken holds the prior refresh token to rotate out, if any.
	RevokeRefreshToken *RefreshToken

	// Extra carries grant-specific artifacts (e.g. decoded assertion claims,
	// the auth code's nonce) forward to later stages.
	Extra map[string]string
}

// WithExtra returns a copy of the result with the given key set.
func (r GrantResult) WithExtra(key, value string) GrantResult {
	extra := make(map[string]string, len(r.Extra)+1)
	for k, v := range r.Extra {
		extra[k] = v
	}
	extra[key] = value
	r.Extra = extra
	return r
}
