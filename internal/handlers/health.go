package handlers

import "github.com/gofiber/fiber/v2"

// Health reports service liveness and database reachability.
func (h *Handler) Health(c *fiber.Ctx) error {
	status := "ok"
	dbStatus := "ok"
	if err := h.db.Pool.Ping(c.Context()); err != nil {
		status = "degraded"
		dbStatus = "unreachable"
	}

	return c.JSON(fiber.Map{
		"status":   status,
		"database": dbStatus,
	})
}
