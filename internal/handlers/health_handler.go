package handlers

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/department"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/dto"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	registry *department.Registry
	ping     func() error
}

func NewHealthHandler(registry *department.Registry, ping func() error) *HealthHandler {
	return &HealthHandler{registry: registry, ping: ping}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := h.ping(); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	return c.JSON(dto.HealthResponse{
		Status:          "ok",
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		DB:              dbStatus,
		DepartmentCount: len(h.registry.All()),
	})
}
