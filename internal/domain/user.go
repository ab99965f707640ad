package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is an end user (resource owner) known to the server. The engine only
// reads users through the end-user directory; account management lives
// elsewhere.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Active       bool      `json:"active" db:"active"`

	// LastLoginAt feeds the auth_time ID-token claim.
	LastLoginAt *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PublicID returns the identifier used as the token subject.
func (u *User) PublicID() string {
	return u.ID.String()
}
