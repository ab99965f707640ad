package handler

import (
	"github.com/gofiber/fiber/v2"
)

// SetupRoutes registers the OAuth2 endpoints on the app.
func SetupRoutes(
	app *fiber.App,
	tokenHandler *TokenHandler,
	authorizeHandler *AuthorizeHandler,
	introspectionHandler *IntrospectionHandler,
	clientHandler *ClientHandler,
	jwksHandler *JWKSHandler,
	healthHandler *HealthHandler,
) {
	app.Get("/health", healthHandler.Health)
	app.Get("/.well-known/jwks.json", jwksHandler.JWKS)

	oauth := app.Group("/oauth")
	oauth.Post("/token", tokenHandler.Token)
	oauth.Get("/authorize", authorizeHandler.Authorize)
	oauth.Post("/authorize", authorizeHandler.Decide)
	oauth.Post("/introspect", introspectionHandler.Introspect)
	oauth.Post("/revoke", introspectionHandler.Revoke)

	// Operator endpoints; keep these off the public listener.
	admin := app.Group("/admin")
	admin.Post("/clients", clientHandler.Register)
	admin.Get("/clients/:client_id", clientHandler.Get)
	admin.Put("/clients/:client_id", clientHandler.Update)
	admin.Delete("/clients/:client_id", clientHandler.Delete)
}
