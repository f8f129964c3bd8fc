package handlers

import (
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/dto"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/models"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/services"
	"github.com/gofiber/fiber/v2"
)

type DepartmentHandler struct {
	ledger *services.LedgerService
}

func NewDepartmentHandler(ledger *services.LedgerService) *DepartmentHandler {
	return &DepartmentHandler{ledger: ledger}
}

func (h *DepartmentHandler) List(c *fiber.Ctx) error {
	departments, err := h.ledger.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toDepartmentResponses(departments))
}

// Reconcile recomputes the ledger counters from the complaints.
func (h *DepartmentHandler) Reconcile(c *fiber.Ctx) error {
	departments, err := h.ledger.Reconcile(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	slog.InfoContext(c.UserContext(), "department ledger reconciled", "departments", len(departments))
	return c.JSON(toDepartmentResponses(departments))
}

func toDepartmentResponses(departments []models.Department) []dto.DepartmentResponse {
	resp := make([]dto.DepartmentResponse, len(departments))
	for i, d := range departments {
		resp[i] = dto.DepartmentResponse{
			Name:                   d.Name,
			Description:            d.Description,
			Email:                  d.Email,
			TotalComplaints:        d.TotalComplaints,
			PendingComplaints:      d.PendingComplaints,
			ResolvedComplaints:     d.ResolvedComplaints,
			AvgResolutionTimeHours: d.AvgResolutionTimeHours,
		}
	}
	return resp
}
