package handlers

import (
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/dto"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/identity"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/models"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ComplaintHandler struct {
	complaints  *services.ComplaintService
	transitions *services.TransitionService
}

func NewComplaintHandler(complaints *services.ComplaintService, transitions *services.TransitionService) *ComplaintHandler {
	return &ComplaintHandler{complaints: complaints, transitions: transitions}
}

func (h *ComplaintHandler) Create(c *fiber.Ctx) error {
	caller, err := identity.FromContext(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.CreateComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	view, err := h.complaints.Create(c.UserContext(), caller, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toComplaintResponse(view))
}

func (h *ComplaintHandler) List(c *fiber.Ctx) error {
	caller, err := identity.FromContext(c)
	if err != nil {
		return unauthorized(c)
	}

	var filter dto.ComplaintFilter
	if err := c.QueryParser(&filter); err != nil {
		return badRequest(c, "Invalid query parameters")
	}

	views, err := h.complaints.List(c.UserContext(), caller, filter)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(dto.ComplaintListResponse{
		Complaints: toComplaintResponses(views),
		Count:      len(views),
	})
}

func (h *ComplaintHandler) Stats(c *fiber.Ctx) error {
	caller, err := identity.FromContext(c)
	if err != nil {
		return unauthorized(c)
	}

	stats, err := h.complaints.Stats(c.UserContext(), caller)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.StatsResponse{
		Total:      stats.Total,
		ByStatus:   stats.ByStatus,
		ByCategory: stats.ByCategory,
		ByPriority: stats.ByPriority,
	})
}

func (h *ComplaintHandler) Get(c *fiber.Ctx) error {
	caller, err := identity.FromContext(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "Invalid complaint id")
	}

	view, err := h.complaints.Get(c.UserContext(), caller, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toComplaintResponse(view))
}

func (h *ComplaintHandler) UpdateStatus(c *fiber.Ctx) error {
	caller, err := identity.FromContext(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "Invalid complaint id")
	}

	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	complaint, err := h.transitions.Apply(c.UserContext(), caller, id, &req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(toComplaintResponse(h.complaints.View(c.UserContext(), caller, complaint)))
}

func (h *ComplaintHandler) SubmitFeedback(c *fiber.Ctx) error {
	caller, err := identity.FromContext(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "Invalid complaint id")
	}

	var req dto.FeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	view, err := h.complaints.SubmitFeedback(c.UserContext(), caller, id, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toComplaintResponse(view))
}

func toComplaintResponses(views []services.ComplaintView) []dto.ComplaintResponse {
	out := make([]dto.ComplaintResponse, len(views))
	for i := range views {
		out[i] = toComplaintResponse(&views[i])
	}
	return out
}

func toComplaintResponse(v *services.ComplaintView) dto.ComplaintResponse {
	c := v.Complaint
	resp := dto.ComplaintResponse{
		ID:        c.ID,
		DisplayID: c.DisplayID,
		Submitter: dto.SubmitterResponse{
			ID:        v.Submitter.ID,
			Name:      v.Submitter.Name,
			Email:     v.Submitter.Email,
			StudentID: v.Submitter.StudentID,
		},
		Category:           c.Category,
		Title:              c.Title,
		Description:        c.Description,
		Priority:           c.Priority,
		Status:             c.Status,
		AssignedDepartment: c.AssignedDepartment,
		Anonymous:          c.Anonymous,
		Attachments:        c.Attachments,
		ResolutionRemarks:  c.ResolutionRemarks,
		ResolvedAt:         c.ResolvedAt,
		EscalationDate:     c.EscalationDate,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
	if resp.Attachments == nil {
		resp.Attachments = []models.Attachment{}
	}
	if c.Feedback.Submitted() {
		feedback := c.Feedback
		resp.Feedback = &feedback
	}
	for _, h := range c.StatusHistory {
		resp.StatusHistory = append(resp.StatusHistory, dto.StatusChangeResponse{
			Seq:       h.Seq,
			Status:    h.Status,
			ChangedBy: h.ChangedBy,
			ChangedAt: h.ChangedAt,
			Remarks:   h.Remarks,
		})
	}
	return resp
}
