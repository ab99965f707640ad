package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// IDTokenClaims is the OpenID Connect Core ID-token claim set. Unlike the
// other token kinds it is never persisted; it exists only as a signed
// (optionally encrypted) JWT.
type IDTokenClaims struct {
	jwt.RegisteredClaims

	Nonce string `json:"nonce,omitempty"`

	// AtHash and CHash bind the ID token to the access token / authorization
	// code issued in the same response (OIDC Core Section 3.2.2.9 / 3.3.2.11).
	AtHash string `json:"at_hash,omitempty"`
	CHash  string `json:"c_hash,omitempty"`

	AuthTime int64    `json:"auth_time,omitempty"`
	ACR      string   `json:"acr,omitempty"`
	AMR      []string `json:"amr,omitempty"`
}

// TokenResponse is the JSON body of a successful token-endpoint response
// (RFC 6749 Section 5.1).
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
}

// IntrospectionResponse is the JSON body of an introspection response
// (RFC 7662 Section 2.2). Active=false responses carry no other fields.
type IntrospectionResponse struct {
	Active    bool   `json:"active"`
	ClientID  string `json:"client_id,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	Scope     string `json:"scp,omitempty"`
	Sub       string `json:"sub,omitempty"`
	Exp       int64  `json:"exp,omitempty"`
	Iat       int64  `json:"iat,omitempty"`
	Nbf       int64  `json:"nbf,omitempty"`
	Aud       string `json:"aud,omitempty"`
	Iss       string `json:"iss,omitempty"`
	Jti       string `json:"jti,omitempty"`
}
