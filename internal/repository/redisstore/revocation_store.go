package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marcelofv/oauth2-core/internal/repository"
)

// RevocationStore keeps revocation marks in Redis so a revoked token stops
// validating everywhere the moment Revoke returns. Marks carry the token's
// remaining lifetime as TTL and fall out of the store on their own.
type RevocationStore struct {
	redis *redis.Client

	// defaultTTL applies to tokens with no expiry, which would otherwise
	// need a mark that lives forever.
	defaultTTL time.Duration
}

func NewRevocationStore(redisClient *redis.Client, defaultTTL time.Duration) *RevocationStore {
	if defaultTTL <= 0 {
		defaultTTL = 30 * 24 * time.Hour
	}
	return &RevocationStore{
		redis:      redisClient,
		defaultTTL: defaultTTL,
	}
}

var _ repository.RevocationStore = (*RevocationStore)(nil)

// Revoke marks a token revoked. Revoking a token that is already expired is
// a no-op; revoking one that is already marked is idempotent.
func (s *RevocationStore) Revoke(ctx context.Context, kind, value string, expiresAt time.Time) error {
	ttl := s.defaultTTL
	if !expiresAt.IsZero() {
		ttl = time.Until(expiresAt)
		if ttl <= 0 {
			return nil
		}
	}

	if err := s.redis.Set(ctx, revocationKey(kind, value), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to record revocation: %w", err)
	}

	return nil
}

// IsRevoked reports whether a revocation mark exists for the token.
func (s *RevocationStore) IsRevoked(ctx context.Context, kind, value string) (bool, error) {
	exists, err := s.redis.Exists(ctx, revocationKey(kind, value)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}

	return exists > 0, nil
}

func revocationKey(kind, value string) string {
	return fmt.Sprintf("revoked:%s:%s", kind, value)
}
