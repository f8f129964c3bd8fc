package handlers

import (
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/dto"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/identity"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AnalyticsHandler struct {
	analytics *services.AnalyticsService
}

func NewAnalyticsHandler(analytics *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

func (h *AnalyticsHandler) Dashboard(c *fiber.Ctx) error {
	caller, err := identity.FromContext(c)
	if err != nil {
		return unauthorized(c)
	}

	d, err := h.analytics.Dashboard(c.UserContext(), caller)
	if err != nil {
		return respondError(c, err)
	}

	resp := dto.DashboardResponse{
		Overview: dto.OverviewResponse{
			TotalComplaints:    d.Overview.TotalComplaints,
			TotalStudents:      d.Overview.TotalStudents,
			TotalDepartments:   d.Overview.TotalDepartments,
			AvgResolutionHours: d.Overview.AvgResolutionHours,
		},
		ByStatus:   d.ByStatus,
		ByPriority: d.ByPriority,
		Categories: make([]dto.CategoryStatsResponse, len(d.Categories)),
		Recent:     toComplaintResponses(d.Recent),
		Daily:      make([]dto.DailyCountResponse, len(d.Daily)),
	}
	for i, cs := range d.Categories {
		resp.Categories[i] = dto.CategoryStatsResponse{
			Category:   cs.Category,
			Count:      cs.Count,
			Resolved:   cs.Resolved,
			Pending:    cs.Pending,
			InProgress: cs.InProgress,
		}
	}
	for i, dc := range d.Daily {
		resp.Daily[i] = dto.DailyCountResponse{Day: dc.Day, Count: dc.Count}
	}
	return c.JSON(resp)
}

func (h *AnalyticsHandler) Department(c *fiber.Ctx) error {
	caller, err := identity.FromContext(c)
	if err != nil {
		return unauthorized(c)
	}

	a, err := h.analytics.Department(c.UserContext(), caller, c.Params("department"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.DepartmentAnalyticsResponse{
		Department: a.Department,
		Total:      a.Total,
		ByStatus:   a.ByStatus,
		Recent:     toComplaintResponses(a.Recent),
	})
}
