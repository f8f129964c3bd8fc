package handlers

import (
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/dto"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type EscalationHandler struct {
	escalation *services.EscalationService
}

func NewEscalationHandler(escalation *services.EscalationService) *EscalationHandler {
	return &EscalationHandler{escalation: escalation}
}

// Sweep runs one escalation sweep now, outside the schedule.
func (h *EscalationHandler) Sweep(c *fiber.Ctx) error {
	report, err := h.escalation.Sweep(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}

	failed := report.Failed
	if failed == nil {
		failed = []uuid.UUID{}
	}
	return c.JSON(dto.SweepResponse{
		Candidates: report.Candidates,
		Escalated:  report.Escalated,
		Skipped:    report.Skipped,
		Failed:     failed,
		StartedAt:  report.StartedAt,
		Duration:   report.Duration.String(),
	})
}
