package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/marcelofv/oauth2-core/internal/domain"
	"github.com/marcelofv/oauth2-core/internal/repository"
	"github.com/marcelofv/oauth2-core/pkg/hash"
	"github.com/marcelofv/oauth2-core/pkg/random"
	"github.com/marcelofv/oauth2-core/pkg/validator"
)

// ClientHandler manages client registrations. These endpoints are for
// operators and must be deployed behind an internal network boundary.
type ClientHandler struct {
	clients  repository.ClientRepository
	validate *validator.Validator
}

func NewClientHandler(clients repository.ClientRepository, validate *validator.Validator) *ClientHandler {
	return &ClientHandler{clients: clients, validate: validate}
}

type registerClientRequest struct {
	Name          string   `json:"name" validate:"required,min=1,max=255"`
	Type          string   `json:"type" validate:"required,oneof=public confidential"`
	GrantTypes    []string `json:"grant_types" validate:"required,min=1"`
	ResponseTypes []string `json:"response_types"`
	RedirectURIs  []string `json:"redirect_uris" validate:"dive,url"`
	Scope         []string `json:"scope"`
	PublicKeys    []string `json:"public_keys"`
	SigningAlgs   []string `json:"signing_algs" validate:"dive,oneof=RS256 RS384 RS512"`

	AccessTokenLifetime  time.Duration `json:"access_token_lifetime"`
	RefreshTokenLifetime time.Duration `json:"refresh_token_lifetime"`
	AuthCodeLifetime     time.Duration `json:"auth_code_lifetime"`
	IDTokenLifetime      time.Duration `json:"id_token_lifetime"`
}

// Register handles POST /admin/clients
//
// The generated client secret is returned exactly once; only its hash is
// stored.
func (h *ClientHandler) Register(c *fiber.Ctx) error {
	var req registerClientRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := h.validate.Validate(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if domain.ClientType(req.Type) == domain.ClientTypePublic && len(req.RedirectURIs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "public clients must register at least one redirect URI",
		})
	}

	client := &domain.Client{
		ID:            uuid.New(),
		ClientID:      uuid.NewString(),
		Name:          req.Name,
		Type:          domain.ClientType(req.Type),
		GrantTypes:    req.GrantTypes,
		ResponseTypes: req.ResponseTypes,
		RedirectURIs:  req.RedirectURIs,
		Scope:         req.Scope,
		PublicKeys:    req.PublicKeys,
		SigningAlgs:   req.SigningAlgs,

		AccessTokenLifetime:  req.AccessTokenLifetime,
		RefreshTokenLifetime: req.RefreshTokenLifetime,
		AuthCodeLifetime:     req.AuthCodeLifetime,
		IDTokenLifetime:      req.IDTokenLifetime,
	}

	var secret string
	if client.IsConfidential() {
		var err error
		secret, err = random.String(random.DefaultCharset, 40, 50)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to generate client secret",
			})
		}

		client.SecretHash, err = hash.HashSecret(secret)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to hash client secret",
			})
		}
	}

	if err := h.clients.Create(c.Context(), client); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to register client",
		})
	}

	response := fiber.Map{"client": client}
	if secret != "" {
		response["client_secret"] = secret
	}

	return c.Status(fiber.StatusCreated).JSON(response)
}

// Get handles GET /admin/clients/:client_id
func (h *ClientHandler) Get(c *fiber.Ctx) error {
	client, err := h.clients.GetByClientID(c.Context(), c.Params("client_id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "client not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to get client",
		})
	}

	return c.JSON(fiber.Map{"client": client})
}

// Update handles PUT /admin/clients/:client_id
func (h *ClientHandler) Update(c *fiber.Ctx) error {
	client, err := h.clients.GetByClientID(c.Context(), c.Params("client_id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "client not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to get client",
		})
	}

	var req registerClientRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := h.validate.Validate(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	client.Name = req.Name
	client.Type = domain.ClientType(req.Type)
	client.GrantTypes = req.GrantTypes
	client.ResponseTypes = req.ResponseTypes
	client.RedirectURIs = req.RedirectURIs
	client.Scope = req.Scope
	client.PublicKeys = req.PublicKeys
	client.SigningAlgs = req.SigningAlgs
	client.AccessTokenLifetime = req.AccessTokenLifetime
	client.RefreshTokenLifetime = req.RefreshTokenLifetime
	client.AuthCodeLifetime = req.AuthCodeLifetime
	client.IDTokenLifetime = req.IDTokenLifetime

	if err := h.clients.Update(c.Context(), client); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to update client",
		})
	}

	return c.JSON(fiber.Map{"client": client})
}

// Delete handles DELETE /admin/clients/:client_id
func (h *ClientHandler) Delete(c *fiber.Ctx) error {
	if err := h.clients.Delete(c.Context(), c.Params("client_id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "client not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to delete client",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
