package repository

import (
	"context"
	"time"
)

// RevocationStore records revoked tokens in fast shared storage so a
// revocation is visible to every validation and introspection call
// immediately, with no stale-read window. Entries expire on their own once
// the token would have expired anyway.
type RevocationStore interface {
	Revoke(ctx context.Context, kind, value string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, kind, value string) (bool, error)
}
