package domain

import (
	"net/url"
)

// ResponseMode is the encoding of the authorization endpoint's output,
// per OAuth 2.0 Multiple Response Type Encoding Practices.
type ResponseMode string

const (
	ResponseModeQuery    ResponseMode = "query"
	ResponseModeFragment ResponseMode = "fragment"
	ResponseModeFormPost ResponseMode = "form_post"
)

// Authorization carries the per-request state of an authorization-endpoint
// request: the validated inputs plus a data bag response types use to hand
// artifacts (an access token, an auth code) to later-finalizing response
// types within the same request.
type Authorization struct {
	Query  url.Values
	Client *Client
	User   *User

	ResponseTypes []string
	ResponseMode  ResponseMode
	RedirectURI   string
	Scope         []string
	TokenType     string

	// Approved is false when the resource owner denied access; the denial is
	// still delivered through the response mode, not as a bare HTTP error.
	Approved bool

	// Artifacts lets e.g. the id_token response type compute at_hash/c_hash
	// over what the token/code response types produced during the first pass.
	Artifacts map[string]any
}

// State returns the request's state parameter, empty if absent.
func (a *Authorization) State() string {
	return a.Query.Get("state")
}

// Nonce returns the request's nonce parameter, empty if absent.
func (a *Authorization) Nonce() string {
	return a.Query.Get("nonce")
}

// PutArtifact stores a named artifact for later-finalizing response types.
func (a *Authorization) PutArtifact(name string, v any) {
	if a.Artifacts == nil {
		a.Artifacts = make(map[string]any)
	}
	a.Artifacts[name] = v
}

// Artifact returns a named artifact, or nil when absent.
func (a *Authorization) Artifact(name string) any {
	if a.Artifacts == nil {
		return nil
	}
	return a.Artifacts[name]
}
