package repository

import (
	"context"

	"github.com/marcelofv/oauth2-core/internal/domain"
)

// ClientRepository is the client directory: it resolves a client's public
// identifier to its registered metadata. Registration and updates happen
// through an external process; the engine only reads.
type ClientRepository interface {
	Create(ctx context.Context, client *domain.Client) error
	GetByClientID(ctx context.Context, clientID string) (*domain.Client, error)
	Update(ctx context.Context, client *domain.Client) error
	Delete(ctx context.Context, clientID string) error
}
