package handler

import (
	"errors"
	"log"
	"regexp"

	"github.com/gofiber/fiber/v2"

	"github.com/marcelofv/oauth2-core/internal/domain"
	"github.com/marcelofv/oauth2-core/internal/service"
)

// jsonpCallback bounds what a callback parameter may look like so the JSONP
// wrapper cannot be abused for script injection.
var jsonpCallback = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$.]{0,127}$`)

// IntrospectionHandler serves the introspection (RFC 7662) and revocation
// (RFC 7009) endpoints.
type IntrospectionHandler struct {
	introspection *service.IntrospectionService
}

func NewIntrospectionHandler(introspection *service.IntrospectionService) *IntrospectionHandler {
	return &IntrospectionHandler{introspection: introspection}
}

// Introspect handles POST /oauth/introspect
func (h *IntrospectionHandler) Introspect(c *fiber.Ctx) error {
	response, err := h.introspection.Introspect(c.Context(), buildRequest(c))
	if err != nil {
		return writeOAuthError(c, err, "INTROSPECT")
	}

	setTokenResponseHeaders(c)
	return c.JSON(response)
}

// Revoke handles POST /oauth/revoke
//
// Per RFC 7009 the response is 200 with an empty body whether or not a token
// was revoked; only an unsupported hint is an error. The optional callback
// parameter wraps the empty body for JSONP consumers.
func (h *IntrospectionHandler) Revoke(c *fiber.Ctx) error {
	err := h.introspection.Revoke(c.Context(), buildRequest(c))
	if err != nil {
		var oauthErr *domain.OAuthError
		if !errors.As(err, &oauthErr) {
			log.Printf("[REVOKE] Internal error: %v", err)
			oauthErr = domain.NewOAuthError(domain.ErrServerError, "an unexpected error occurred")
		}
		return c.Status(oauthErr.HTTPStatus()).JSON(oauthErr)
	}

	setTokenResponseHeaders(c)

	if callback := c.FormValue("callback"); callback != "" && jsonpCallback.MatchString(callback) {
		c.Type("js", "utf-8")
		return c.SendString(callback + "()")
	}

	return c.SendStatus(fiber.StatusOK)
}
