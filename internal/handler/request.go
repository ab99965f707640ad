package handler

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/marcelofv/oauth2-core/internal/domain"
)

// buildRequest converts a fiber request into the engine's transport-agnostic
// request value.
func buildRequest(c *fiber.Ctx) *domain.Request {
	return &domain.Request{
		Method:        c.Method(),
		Secured:       isSecured(c),
		Authorization: c.Get(fiber.HeaderAuthorization),
		Query:         argsToValues(c.Context().QueryArgs()),
		Form:          argsToValues(c.Request().PostArgs()),
	}
}

// isSecured trusts a TLS connection or a reverse proxy asserting one.
func isSecured(c *fiber.Ctx) bool {
	if c.Secure() {
		return true
	}
	return c.Get("X-Forwarded-Proto") == "https"
}

func argsToValues(args *fasthttp.Args) url.Values {
	values := make(url.Values, args.Len())
	args.VisitAll(func(key, value []byte) {
		values.Add(string(key), string(value))
	})
	return values
}
