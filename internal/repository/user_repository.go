package repository

import (
	"context"

	"github.com/marcelofv/oauth2-core/internal/domain"
)

// UserRepository is the end-user directory consulted by the password grant.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}
