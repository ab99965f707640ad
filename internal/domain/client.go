package domain

import (
	"time"

	"github.com/google/uuid"
)

type ClientType string

const (
	ClientTypePublic       ClientType = "public"
	ClientTypeConfidential ClientType = "confidential"
)

// Client is a registered OAuth2 client. All registration data lives in typed
// fields; Metadata carries vendor-specific extension entries only.
type Client struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	ClientID   string     `db:"client_id" json:"client_id"`
	Name       string     `db:"name" json:"name"`
	Type       ClientType `db:"type" json:"type"`
	SecretHash string     `db:"secret_hash" json:"-"`

	// PublicKeys holds PEM-encoded RSA public keys for clients that
	// authenticate with signed JWT assertions.
	PublicKeys  []string `db:"-" json:"public_keys,omitempty"`
	SigningAlgs []string `db:"-" json:"signing_algs,omitempty"`

	GrantTypes    []string `db:"-" json:"grant_types"`
	ResponseTypes []string `db:"-" json:"response_types"`
	RedirectURIs  []string `db:"-" json:"redirect_uris"`
	Scope         []string `db:"-" json:"scope"`

	// Per-client lifetime overrides. Zero means the server default applies.
	AccessTokenLifetime  time.Duration `db:"access_token_lifetime" json:"access_token_lifetime,omitempty"`
	RefreshTokenLifetime time.Duration `db:"refresh_token_lifetime" json:"refresh_token_lifetime,omitempty"`
	AuthCodeLifetime     time.Duration `db:"auth_code_lifetime" json:"auth_code_lifetime,omitempty"`
	IDTokenLifetime      time.Duration `db:"id_token_lifetime" json:"id_token_lifetime,omitempty"`

	Metadata map[string]string `db:"-" json:"metadata,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (c *Client) IsPublic() bool {
	return c.Type == ClientTypePublic
}

func (c *Client) IsConfidential() bool {
	return c.Type == ClientTypeConfidential
}

func (c *Client) IsGrantTypeAllowed(grantType string) bool {
	for _, g := range c.GrantTypes {
		if g == grantType {
			return true
		}
	}
	return false
}

func (c *Client) IsResponseTypeAllowed(responseType string) bool {
	for _, r := range c.ResponseTypes {
		if r == responseType {
			return true
		}
	}
	return false
}

// IsRedirectURIRegistered requires an exact string match. A URI differing
// even by a trailing slash or query string is not registered.
func (c *Client) IsRedirectURIRegistered(uri string) bool {
	for _, registered := range c.RedirectURIs {
		if registered == uri {
			return true
		}
	}
	return false
}

// CanVerifySignatures reports whether the client registered at least one
// public key and one allowed signing algorithm.
func (c *Client) CanVerifySignatures() bool {
	return len(c.PublicKeys) > 0 && len(c.SigningAlgs) > 0
}

// IsResourceServer reports whether the client was registered as a resource
// server, which widens what it may introspect.
func (c *Client) IsResourceServer() bool {
	return c.Metadata["resource_server"] == "true"
}
