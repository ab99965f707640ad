package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// HealthHandler reports liveness and the state of the backing stores.
type HealthHandler struct {
	db    *sqlx.DB
	redis *redis.Client
}

func NewHealthHandler(db *sqlx.DB, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	status := fiber.StatusOK
	checks := fiber.Map{}

	if h.db != nil {
		if err := h.db.PingContext(c.Context()); err != nil {
			checks["database"] = "unavailable"
			status = fiber.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	}

	if h.redis != nil {
		if err := h.redis.Ping(c.Context()).Err(); err != nil {
			checks["redis"] = "unavailable"
			status = fiber.StatusServiceUnavailable
		} else {
			checks["redis"] = "ok"
		}
	}

	return c.Status(status).JSON(fiber.Map{
		"status": statusWord(status),
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
	})
}

func statusWord(status int) string {
	if status == fiber.StatusOK {
		return "ok"
	}
	return "degraded"
}
