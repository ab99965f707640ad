package handler

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/marcelofv/oauth2-core/internal/domain"
	"github.com/marcelofv/oauth2-core/internal/service"
)

// TokenHandler serves the token endpoint (RFC 6749 Section 3.2).
type TokenHandler struct {
	grants *service.GrantService
}

func NewTokenHandler(grants *service.GrantService) *TokenHandler {
	return &TokenHandler{grants: grants}
}

// Token handles POST /oauth/token
func (h *TokenHandler) Token(c *fiber.Ctx) error {
	response, err := h.grants.Grant(c.Context(), buildRequest(c))
	if err != nil {
		return writeOAuthError(c, err, "TOKEN")
	}

	setTokenResponseHeaders(c)
	return c.JSON(response)
}

// setTokenResponseHeaders applies the caching rules of RFC 6749 Section 5.1;
// token responses must never land in a shared cache.
func setTokenResponseHeaders(c *fiber.Ctx) {
	c.Set(fiber.HeaderCacheControl, "no-store, private")
	c.Set(fiber.HeaderPragma, "no-cache")
}

// writeOAuthError renders a protocol error as its JSON body and status.
// Anything that is not an OAuthError is an internal failure and becomes a
// plain server_error so no collaborator detail leaks to the client.
func writeOAuthError(c *fiber.Ctx, err error, tag string) error {
	var oauthErr *domain.OAuthError
	if !errors.As(err, &oauthErr) {
		log.Printf("[%s] Internal error: %v", tag, err)
		oauthErr = domain.NewOAuthError(domain.ErrServerError, "an unexpected error occurred")
	}

	setTokenResponseHeaders(c)

	// RFC 6749 Section 5.2: a 401 for a failed client authentication carries
	// a challenge for the schemes the server understands.
	if oauthErr.Code == domain.ErrInvalidClient && oauthErr.Extra["schemes"] != "" {
		c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="oauth2", charset="UTF-8"`)
	}

	return c.Status(oauthErr.HTTPStatus()).JSON(oauthErr)
}
