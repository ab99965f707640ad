package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/marcelofv/oauth2-core/internal/domain"
	"github.com/marcelofv/oauth2-core/internal/repository"
	"github.com/marcelofv/oauth2-core/pkg/hash"
	pkgjwt "github.com/marcelofv/oauth2-core/pkg/jwt"
)

// ClientAssertionTypeJWTBearer is the client_assertion_type for JWT client
// authentication (RFC 7523 Section 2.2).
const ClientAssertionTypeJWTBearer = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"

// Credentials is one authentication candidate produced by an extractor.
type Credentials struct {
	Scheme    string // extractor name, for the WWW-Authenticate challenge
	ClientID  string
	Secret    string
	Assertion string // compact JWT, set only by the assertion extractor
}

// CredentialsExtractor pulls at most one authentication candidate out of a
// request. Returning (nil, nil) means the scheme is not in play.
type CredentialsExtractor interface {
	Name() string
	Extract(req *domain.Request) (*Credentials, error)
}

// BasicExtractor reads HTTP Basic credentials per RFC 6749 Section 2.3.1:
// client id and secret are form-urlencoded before being base64'd.
type BasicExtractor struct{}

func (BasicExtractor) Name() string { return "Basic" }

func (e BasicExtractor) Extract(req *domain.Request) (*Credentials, error) {
	header := req.Authorization
	if header == "" {
		return nil, nil
	}

	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil {
		return nil, domain.NewOAuthError(domain.ErrInvalidRequest, "malformed Authorization header")
	}

	id, secret, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return nil, domain.NewOAuthError(domain.ErrInvalidRequest, "malformed Authorization header")
	}

	clientID, err := url.QueryUnescape(id)
	if err != nil {
		return nil, domain.NewOAuthError(domain.ErrInvalidRequest, "malformed Authorization header")
	}
	clientSecret, err := url.QueryUnescape(secret)
	if err != nil {
		return nil, domain.NewOAuthError(domain.ErrInvalidRequest, "malformed Authorization header")
	}

	return &Credentials{Scheme: e.Name(), ClientID: clientID, Secret: clientSecret}, nil
}

// BodyExtractor reads client_id/client_secret body parameters. It only
// produces a candidate when a secret is present; a bare client_id is how
// public clients identify themselves and is not an authentication attempt.
type BodyExtractor struct{}

func (BodyExtractor) Name() string { return "Body" }

func (e BodyExtractor) Extract(req *domain.Request) (*Credentials, error) {
	secret := req.FormValue("client_secret")
	if secret == "" {
		return nil, nil
	}

	return &Credentials{
		Scheme:   e.Name(),
		ClientID: req.FormValue("client_id"),
		Secret:   secret,
	}, nil
}

// AssertionExtractor reads a JWT client assertion (RFC 7523). The client id
// comes from the assertion's sub claim; the signature is verified later,
// once the client's registered keys are known.
type AssertionExtractor struct{}

func (AssertionExtractor) Name() string { return "ClientAssertion" }

func (e AssertionExtractor) Extract(req *domain.Request) (*Credentials, error) {
	assertion := req.FormValue("client_assertion")
	if assertion == "" {
		return nil, nil
	}

	if req.FormValue("client_assertion_type") != ClientAssertionTypeJWTBearer {
		return nil, domain.NewOAuthError(domain.ErrInvalidRequest, "unsupported client_assertion_type")
	}

	claims, err := pkgjwt.DecodeUnverified(assertion)
	if err != nil {
		return nil, domain.NewOAuthError(domain.ErrInvalidRequest, "malformed client_assertion")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, domain.NewOAuthError(domain.ErrInvalidRequest, "client_assertion is missing the sub claim")
	}

	return &Credentials{Scheme: e.Name(), ClientID: sub, Assertion: assertion}, nil
}

// ClientAuthenticator resolves and authenticates the client behind a request
// by trying an ordered list of extractors. Any credential mismatch collapses
// into one uniform failure so callers cannot probe which check tripped.
type ClientAuthenticator struct {
	clients    repository.ClientRepository
	extractors []CredentialsExtractor
}

func NewClientAuthenticator(clients repository.ClientRepository, extractors ...CredentialsExtractor) *ClientAuthenticator {
	if len(extractors) == 0 {
		extractors = []CredentialsExtractor{BasicExtractor{}, BodyExtractor{}, AssertionExtractor{}}
	}
	return &ClientAuthenticator{clients: clients, extractors: extractors}
}

// Schemes lists the supported authentication schemes, space separated, for
// the WWW-Authenticate challenge on failure.
func (a *ClientAuthenticator) Schemes() string {
	names := make([]string, 0, len(a.extractors))
	for _, e := range a.extractors {
		names = append(names, e.Name())
	}
	return strings.Join(names, " ")
}

// Authenticate runs the extractors in order. Exactly zero or one candidate is
// allowed; more than one is an invalid_request. With zero candidates and
// allowPublic set, the client is resolved by the client_id parameter with no
// credential check — but only a public client passes that way.
func (a *ClientAuthenticator) Authenticate(ctx context.Context, req *domain.Request, allowPublic bool) (*domain.Client, error) {
	var candidate *Credentials
	for _, extractor := range a.extractors {
		creds, err := extractor.Extract(req)
		if err != nil {
			return nil, err
		}
		if creds == nil {
			continue
		}
		if candidate != nil {
			return nil, domain.NewOAuthError(domain.ErrInvalidRequest, "only one authentication method may be used")
		}
		candidate = creds
	}

	if candidate == nil {
		if !allowPublic {
			return nil, domain.AuthenticationFailed(a.Schemes())
		}
		return a.resolvePublic(ctx, req.FormValue("client_id"))
	}

	return a.verify(ctx, candidate)
}

func (a *ClientAuthenticator) resolvePublic(ctx context.Context, clientID string) (*domain.Client, error) {
	if clientID == "" {
		return nil, domain.AuthenticationFailed(a.Schemes())
	}

	client, err := a.clients.GetByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.AuthenticationFailed(a.Schemes())
		}
		return nil, fmt.Errorf("failed to look up client: %w", err)
	}

	if !client.IsPublic() {
		// A confidential client must present credentials.
		return nil, domain.AuthenticationFailed(a.Schemes())
	}

	return client, nil
}

func (a *ClientAuthenticator) verify(ctx context.Context, creds *Credentials) (*domain.Client, error) {
	client, err := a.clients.GetByClientID(ctx, creds.ClientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.AuthenticationFailed(a.Schemes())
		}
		return nil, fmt.Errorf("failed to look up client: %w", err)
	}

	switch {
	case creds.Assertion != "":
		if err := a.verifyAssertion(client, creds); err != nil {
			return nil, err
		}
	case creds.Secret != "":
		if err := a.verifySecret(client, creds); err != nil {
			return nil, err
		}
	default:
		return nil, domain.AuthenticationFailed(a.Schemes())
	}

	return client, nil
}

func (a *ClientAuthenticator) verifySecret(client *domain.Client, creds *Credentials) error {
	// A public client has no secret; presenting one never authenticates it.
	if client.IsPublic() || client.SecretHash == "" {
		return domain.AuthenticationFailed(a.Schemes())
	}

	ok, err := hash.VerifySecret(creds.Secret, client.SecretHash)
	if err != nil || !ok {
		return domain.AuthenticationFailed(a.Schemes())
	}

	return nil
}

func (a *ClientAuthenticator) verifyAssertion(client *domain.Client, creds *Credentials) error {
	if !client.CanVerifySignatures() {
		return domain.AuthenticationFailed(a.Schemes())
	}

	keys, err := pkgjwt.ParseRSAPublicKeys(client.PublicKeys)
	if err != nil {
		return domain.AuthenticationFailed(a.Schemes())
	}

	claims, err := pkgjwt.VerifyWithKeySet(creds.Assertion, keys, client.SigningAlgs)
	if err != nil {
		return domain.AuthenticationFailed(a.Schemes())
	}

	if sub, _ := claims["sub"].(string); sub != client.ClientID {
		return domain.AuthenticationFailed(a.Schemes())
	}

	return nil
}
