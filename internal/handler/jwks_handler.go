package handler

import (
	"crypto/rsa"
	"encoding/base64"
	"math/big"

	"github.com/gofiber/fiber/v2"
)

// JWKSHandler publishes the server's signing key so clients can verify ID
// tokens locally (RFC 7517).
type JWKSHandler struct {
	publicKey *rsa.PublicKey
	keyID     string
	alg       string
}

func NewJWKSHandler(publicKey *rsa.PublicKey, keyID, alg string) *JWKSHandler {
	return &JWKSHandler{publicKey: publicKey, keyID: keyID, alg: alg}
}

// JWKS handles GET /.well-known/jwks.json
func (h *JWKSHandler) JWKS(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "public, max-age=3600")

	return c.JSON(fiber.Map{
		"keys": []fiber.Map{
			{
				"kty": "RSA",
				"use": "sig",
				"kid": h.keyID,
				"alg": h.alg,
				"n":   base64.RawURLEncoding.EncodeToString(h.publicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(h.publicKey.E)).Bytes()),
			},
		},
	})
}
