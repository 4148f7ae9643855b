package health

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	healthsvc "shares-backend/internal/application/health"
	"shares-backend/internal/pkg/response"
)

const serviceName = "shares-backend"

// Handlers holds dependencies for health endpoints.
type Handlers struct {
	Rdb            *redis.Client
	DB             healthsvc.DBPinger
	HealthAdminKey string
}

func (h *Handlers) authorized(c *fiber.Ctx) bool {
	key := c.Query("key")
	return h.HealthAdminKey != "" && subtle.ConstantTimeCompare([]byte(key), []byte(h.HealthAdminKey)) == 1
}

// Root GET / answers liveness probes without touching dependencies.
func (h *Handlers) Root(c *fiber.Ctx) error {
	return response.Success(c, "OK", fiber.Map{"service": serviceName}, nil)
}

// JSON GET /health. 503 when a dependency is down so load balancers can act on it.
func (h *Handlers) JSON(c *fiber.Ctx) error {
	report := healthsvc.Collect(c.UserContext(), h.Rdb, h.DB)
	status := fiber.StatusOK
	if report.Status != "ok" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{
		"service":      serviceName,
		"status":       report.Status,
		"runtime":      report.Runtime,
		"traffic":      report.Traffic,
		"dependencies": report.Dependencies,
	})
}

// Errors GET /health/errors?key=
func (h *Handlers) Errors(c *fiber.Ctx) error {
	if !h.authorized(c) {
		return response.Error(c, "Unauthorized", fiber.StatusForbidden, nil)
	}
	entries, err := healthsvc.RecentErrors(c.UserContext(), h.Rdb)
	if err != nil {
		log.Error().Err(err).Msg("health: read error log failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Recent errors fetched successfully", entries, nil)
}

// Reset POST /health/reset?key=
func (h *Handlers) Reset(c *fiber.Ctx) error {
	if !h.authorized(c) {
		return response.Error(c, "Unauthorized", fiber.StatusForbidden, nil)
	}
	if err := healthsvc.Reset(c.UserContext(), h.Rdb); err != nil {
		log.Error().Err(err).Msg("health: reset failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Stats reset successfully", fiber.Map{"success": true}, nil)
}
