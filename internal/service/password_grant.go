package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/marcelofv/oauth2-core/internal/config"
	"github.com/marcelofv/oauth2-core/internal/domain"
	"github.com/marcelofv/oauth2-core/internal/repository"
	"github.com/marcelofv/oauth2-core/pkg/hash"
)

// PasswordGrant authenticates a resource owner by username and password
// (RFC 6749 Section 4.3).
type PasswordGrant struct {
	users  repository.UserRepository
	policy config.PolicyConfig
}

func NewPasswordGrant(users repository.UserRepository, policy config.PolicyConfig) *PasswordGrant {
	return &PasswordGrant{users: users, policy: policy}
}

func (g *PasswordGrant) Name() string { return GrantTypePassword }

func (g *PasswordGrant) Prepare(_ context.Context, _ *domain.Request, res domain.GrantResult) (domain.GrantResult, error) {
	return res, nil
}

func (g *PasswordGrant) Grant(ctx context.Context, req *domain.Request, _ *domain.Client, res domain.GrantResult) (domain.GrantResult, error) {
	username := req.FormValue("username")
	password := req.FormValue("password")
	if username == "" || password == "" {
		return res, domain.NewOAuthError(domain.ErrInvalidRequest, "the username and password parameters are required")
	}

	user, err := g.authenticateUser(ctx, username, password)
	if err != nil {
		return res, err
	}

	res.UserID = user.PublicID()
	res.IssueRefreshToken = g.policy.IssueRefreshTokenPassword
	res = res.WithExtra(extraAuthTime, strconv.FormatInt(time.Now().Unix(), 10))

	return res, nil
}

// authenticateUser never distinguishes "unknown user" from "wrong password".
func (g *PasswordGrant) authenticateUser(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := g.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalidCredentials()
		}
		return nil, err
	}

	if !user.Active {
		return nil, invalidCredentials()
	}

	ok, err := hash.VerifySecret(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, invalidCredentials()
	}

	return user, nil
}

func invalidCredentials() *domain.OAuthError {
	return domain.NewOAuthError(domain.ErrInvalidGrant, "the resource owner credentials are invalid")
}
