package handler

import (
	"errors"
	"html"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/marcelofv/oauth2-core/internal/domain"
	"github.com/marcelofv/oauth2-core/internal/repository"
	"github.com/marcelofv/oauth2-core/internal/service"
	"github.com/marcelofv/oauth2-core/pkg/hash"
)

// AuthorizeHandler serves the authorization endpoint. GET validates the
// request and renders the login/consent form; POST authenticates the resource
// owner and completes (or denies) the authorization.
type AuthorizeHandler struct {
	authorize *service.AuthorizeService
	users     repository.UserRepository
}

func NewAuthorizeHandler(authorize *service.AuthorizeService, users repository.UserRepository) *AuthorizeHandler {
	return &AuthorizeHandler{authorize: authorize, users: users}
}

// Authorize handles GET /oauth/authorize
func (h *AuthorizeHandler) Authorize(c *fiber.Ctx) error {
	req := buildRequest(c)

	authz, failure, err := h.authorize.Validate(c.Context(), req)
	if err != nil {
		return writeAuthorizeError(c, err)
	}
	if failure != nil {
		return deliver(c, failure)
	}

	c.Type("html", "utf-8")
	return c.SendString(consentForm(authz))
}

// Decide handles POST /oauth/authorize
func (h *AuthorizeHandler) Decide(c *fiber.Ctx) error {
	req := buildRequest(c)

	authz, failure, err := h.authorize.Validate(c.Context(), req)
	if err != nil {
		return writeAuthorizeError(c, err)
	}
	if failure != nil {
		return deliver(c, failure)
	}

	approved := c.FormValue("decision") == "approve"

	// A denial needs no resource-owner credentials; it is delivered through
	// the redirect either way.
	var user *domain.User
	if approved {
		user, err = h.authenticateUser(c)
		if err != nil {
			return writeAuthorizeError(c, err)
		}
	}

	result, err := h.authorize.Authorize(c.Context(), authz, user, approved)
	if err != nil {
		return writeAuthorizeError(c, err)
	}

	return deliver(c, result)
}

func (h *AuthorizeHandler) authenticateUser(c *fiber.Ctx) (*domain.User, error) {
	username := c.FormValue("username")
	password := c.FormValue("password")
	if username == "" || password == "" {
		return nil, domain.NewOAuthError(domain.ErrAccessDenied, "resource owner authentication is required")
	}

	user, err := h.users.GetByUsername(c.Context(), username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewOAuthError(domain.ErrAccessDenied, "resource owner authentication failed")
		}
		return nil, err
	}

	ok, err := hash.VerifySecret(password, user.PasswordHash)
	if err != nil || !ok || !user.Active {
		return nil, domain.NewOAuthError(domain.ErrAccessDenied, "resource owner authentication failed")
	}

	return user, nil
}

// deliver sends the authorization outcome: a redirect for the query and
// fragment modes, the auto-submitting document for form_post.
func deliver(c *fiber.Ctx, result *service.AuthorizeResult) error {
	if result.Mode == domain.ResponseModeFormPost {
		c.Set(fiber.HeaderCacheControl, "no-store, private")
		c.Type("html", "utf-8")
		return c.SendString(result.FormPost)
	}
	return c.Redirect(result.RedirectURI, fiber.StatusFound)
}

// writeAuthorizeError handles failures raised before a redirect URI was
// established; everything after that point is already redirect-delivered by
// the service.
func writeAuthorizeError(c *fiber.Ctx, err error) error {
	var oauthErr *domain.OAuthError
	if !errors.As(err, &oauthErr) {
		log.Printf("[AUTHORIZE] Internal error: %v", err)
		oauthErr = domain.NewOAuthError(domain.ErrServerError, "an unexpected error occurred")
	}
	return c.Status(oauthErr.HTTPStatus()).JSON(oauthErr)
}

// consentForm renders a minimal login and consent page that posts the
// decision back with the original query parameters intact.
func consentForm(authz *domain.Authorization) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head><title>Authorize ")
	b.WriteString(html.EscapeString(authz.Client.Name))
	b.WriteString("</title></head>\n<body>\n<h1>")
	b.WriteString(html.EscapeString(authz.Client.Name))
	b.WriteString(" is requesting access</h1>\n<ul>\n")
	for _, scope := range authz.Scope {
		b.WriteString("<li>")
		b.WriteString(html.EscapeString(scope))
		b.WriteString("</li>\n")
	}
	b.WriteString("</ul>\n<form method=\"post\" action=\"?")
	// Repost the validated query so the POST re-validates the same request.
	b.WriteString(html.EscapeString(authz.Query.Encode()))
	b.WriteString("\">\n")
	b.WriteString("<input type=\"text\" name=\"username\" placeholder=\"Username\">\n")
	b.WriteString("<input type=\"password\" name=\"password\" placeholder=\"Password\">\n")
	b.WriteString("<button type=\"submit\" name=\"decision\" value=\"approve\">Approve</button>\n")
	b.WriteString("<button type=\"submit\" name=\"decision\" value=\"deny\">Deny</button>\n")
	b.WriteString("</form>\n</body>\n</html>\n")

	return b.String()
}
