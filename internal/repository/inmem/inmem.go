// Package inmem provides in-memory repository implementations. They back the
// engine tests and are usable as-is for single-node deployments; the
// concurrency guarantees the engine depends on (atomic code consumption,
// immediately visible revocation) are provided by a mutex per repository.
package inmem

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/marcelofv/oauth2-core/internal/domain"
	"github.com/marcelofv/oauth2-core/internal/repository"
)

// ClientRepository is a map-backed client directory keyed by client id.
type ClientRepository struct {
	mu      sync.RWMutex
	clients map[string]*domain.Client
}

func NewClientRepository() *ClientRepository {
	return &ClientRepository{clients: make(map[string]*domain.Client)}
}

var _ repository.ClientRepository = (*ClientRepository)(nil)

func (r *ClientRepository) Create(_ context.Context, client *domain.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[client.ClientID] = client
	return nil
}

func (r *ClientRepository) GetByClientID(_ context.Context, clientID string) (*domain.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[clientID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return client, nil
}

func (r *ClientRepository) Update(_ context.Context, client *domain.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[client.ClientID]; !ok {
		return repository.ErrNotFound
	}
	r.clients[client.ClientID] = client
	return nil
}

func (r *ClientRepository) Delete(_ context.Context, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[clientID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.clients, clientID)
	return nil
}

// UserRepository is a map-backed end-user directory.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User // by id
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*domain.User)}
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Add(user *domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID.String()] = user
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if strings.EqualFold(user.Username, username) {
			return user, nil
		}
	}
	return nil, repository.ErrNotFound
}

// RevocationStore keeps revocation marks in a map. Marks carry their expiry
// and are dropped lazily on read.
type RevocationStore struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
}

func NewRevocationStore() *RevocationStore {
	return &RevocationStore{revoked: make(map[string]time.Time)}
}

var _ repository.RevocationStore = (*RevocationStore)(nil)

func (s *RevocationStore) Revoke(_ context.Context, kind, value string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[kind+":"+value] = expiresAt
	return nil
}

func (s *RevocationStore) IsRevoked(_ context.Context, kind, value string) (bool, error) {
	s.mu.RLock()
	expiresAt, ok := s.revoked[kind+":"+value]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if !expiresAt.IsZero() && time.Now().After(expiresAt) {
		s.mu.Lock()
		delete(s.revoked, kind+":"+value)
		s.mu.Unlock()
		return false, nil
	}
	return true, nil
}
