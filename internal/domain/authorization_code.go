package domain

import (
	"net/url"
)

// AuthorizationCode is a single-use, short-lived credential issued by the
// authorization endpoint and exchanged for tokens at the token endpoint.
// Implements the Authorization Code flow from RFC 6749 Section 4.1.
//
// Only the SHA-256 hash of the code string is persisted; Value is populated
// with the raw code solely on the creation path so it can be handed back
// to the client.
type AuthorizationCode struct {
	Token
	CodeHash string `json:"-" db:"code_hash"`

	// Query holds the original authorization request parameters so the token
	// endpoint can recover nonce, state and friends at exchange time.
	Query url.Values `json:"-" db:"-"`

	// RedirectURI is the exact URI the authorization request used. The token
	// request must present the same value (RFC 6749 Section 4.1.3).
	RedirectURI string `json:"redirect_uri" db:"redirect_uri"`

	// IssueRefreshToken records whether the exchange should also issue a
	// refresh token.
	IssueRefreshToken bool `json:"issue_refresh_token" db:"issue_refresh_token"`

	// PKCE (RFC 7636). Empty when the authorization request carried no challenge.
	CodeChallenge       string `json:"-" db:"code_challenge"`
	CodeChallengeMethod string `json:"-" db:"code_challenge_method"`

	Used bool `json:"used" db:"used"`
}

// Nonce returns the OIDC nonce captured from the original authorization request.
func (c *AuthorizationCode) Nonce() string {
	return c.Query.Get("nonce")
}

// State returns the state parameter captured from the original authorization request.
func (c *AuthorizationCode) State() string {
	return c.Query.Get("state")
}
