package domain

import (
	"time"

	"github.com/google/uuid"
)

// Token type identifiers used by introspection and revocation dispatch
// (RFC 7009 Section 2.1, RFC 7662 Section 2.1).
const (
	TokenTypeHintAccessToken  = "access_token"
	TokenTypeHintRefreshToken = "refresh_token"
)

// TokenTypeBearer is the default token_type issued by the token endpoint.
const TokenTypeBearer = "Bearer"

// Token is the shape shared by every issued token kind.
type Token struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Value     string    `json:"-" db:"value"` // the opaque token string
	ClientID  string    `json:"client_id" db:"client_id"`
	UserID    string    `json:"user_id" db:"user_id"` // resource-owner public id
	Scope     []string  `json:"scope" db:"-"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"` // zero value = never expires
	Revoked   bool      `json:"revoked" db:"revoked"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// Free-form metadata attached at creation time (e.g. decoded assertion claims).
	Metadata map[string]string `json:"metadata,omitempty" db:"-"`
}

// HasExpired reports whether the token's expiry has passed.
// A zero expiry means the token never expires.
func (t *Token) HasExpired() bool {
	return !t.ExpiresAt.IsZero() && time.Now().After(t.ExpiresAt)
}

// AccessToken is a bearer credential presented to resource servers.
type AccessToken struct {
	Token
	TokenType string `json:"token_type" db:"token_type"`
	// RefreshToken holds the value of the refresh token issued alongside
	// this access token, if any.
	RefreshToken string `json:"-" db:"refresh_token"`
}

// RefreshToken is a long-lived credential exchanged for fresh access tokens.
// Rotation marks the old token used atomically from the caller's point of view.
type RefreshToken struct {
	Token
	Used bool `json:"used" db:"used"`
}
