package inmem

import (
	"context"
	"sync"

	"github.com/marcelofv/oauth2-core/internal/domain"
	"github.com/marcelofv/oauth2-core/internal/repository"
)

// AccessTokenRepository is a map-backed access-token store keyed by value.
type AccessTokenRepository struct {
	mu     sync.RWMutex
	tokens map[string]*domain.AccessToken
}

func NewAccessTokenRepository() *AccessTokenRepository {
	return &AccessTokenRepository{tokens: make(map[string]*domain.AccessToken)}
}

var _ repository.AccessTokenRepository = (*AccessTokenRepository)(nil)

func (r *AccessTokenRepository) Create(_ context.Context, token *domain.AccessToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *token
	r.tokens[token.Value] = &copied
	return nil
}

func (r *AccessTokenRepository) GetByValue(_ context.Context, value string) (*domain.AccessToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	token, ok := r.tokens[value]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *token
	return &copied, nil
}

func (r *AccessTokenRepository) Revoke(_ context.Context, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token, ok := r.tokens[value]; ok {
		token.Revoked = true
	}
	return nil
}

func (r *AccessTokenRepository) DeleteExpired(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for value, token := range r.tokens {
		if token.HasExpired() {
			delete(r.tokens, value)
		}
	}
	return nil
}

// RefreshTokenRepository is a map-backed refresh-token store keyed by value.
type RefreshTokenRepository struct {
	mu     sync.RWMutex
	tokens map[string]*domain.RefreshToken
}

func NewRefreshTokenRepository() *RefreshTokenRepository {
	return &RefreshTokenRepository{tokens: make(map[string]*domain.RefreshToken)}
}

var _ repository.RefreshTokenRepository = (*RefreshTokenRepository)(nil)

func (r *RefreshTokenRepository) Create(_ context.Context, token *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *token
	r.tokens[token.Value] = &copied
	return nil
}

func (r *RefreshTokenRepository) GetByValue(_ context.Context, value string) (*domain.RefreshToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	token, ok := r.tokens[value]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *token
	return &copied, nil
}

func (r *RefreshTokenRepository) MarkUsed(_ context.Context, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[value]
	if !ok {
		return repository.ErrNotFound
	}
	token.Used = true
	return nil
}

func (r *RefreshTokenRepository) Revoke(_ context.Context, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token, ok := r.tokens[value]; ok {
		token.Revoked = true
		token.Used = true
	}
	return nil
}

func (r *RefreshTokenRepository) DeleteExpired(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for value, token := range r.tokens {
		if token.HasExpired() {
			delete(r.tokens, value)
		}
	}
	return nil
}

// AuthorizationCodeRepository is a map-backed code store keyed by code hash.
type AuthorizationCodeRepository struct {
	mu    sync.Mutex
	codes map[string]*domain.AuthorizationCode
}

func NewAuthorizationCodeRepository() *AuthorizationCodeRepository {
	return &AuthorizationCodeRepository{codes: make(map[string]*domain.AuthorizationCode)}
}

var _ repository.AuthorizationCodeRepository = (*AuthorizationCodeRepository)(nil)

func (r *AuthorizationCodeRepository) Create(_ context.Context, code *domain.AuthorizationCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *code
	copied.Value = "" // raw code is never stored
	r.codes[code.CodeHash] = &copied
	return nil
}

func (r *AuthorizationCodeRepository) GetByCodeHash(_ context.Context, codeHash string) (*domain.AuthorizationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	code, ok := r.codes[codeHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *code
	return &copied, nil
}

// MarkUsed performs a compare-and-swap on the used flag under the repository
// lock: exactly one of any number of concurrent callers gets true.
func (r *AuthorizationCodeRepository) MarkUsed(_ context.Context, codeHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	code, ok := r.codes[codeHash]
	if !ok {
		return false, repository.ErrNotFound
	}
	if code.Used {
		return false, nil
	}
	code.Used = true
	return true, nil
}

func (r *AuthorizationCodeRepository) DeleteExpired(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for hash, code := range r.codes {
		if code.HasExpired() {
			delete(r.codes, hash)
		}
	}
	return nil
}
