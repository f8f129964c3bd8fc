package handlers

import (
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/dto"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/identity"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/models"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/services"
	"github.com/gofiber/fiber/v2"
)

type NotificationHandler struct {
	notifier *services.NotificationService
}

func NewNotificationHandler(notifier *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifier: notifier}
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	caller, err := identity.FromContext(c)
	if err != nil {
		return unauthorized(c)
	}

	list, err := h.notifier.ListForUser(c.UserContext(), caller.ID)
	if err != nil {
		return respondError(c, err)
	}

	resp := dto.NotificationListResponse{
		Notifications: make([]dto.NotificationResponse, len(list.Notifications)),
		UnreadCount:   list.UnreadCount,
	}
	for i := range list.Notifications {
		resp.Notifications[i] = toNotificationResponse(&list.Notifications[i])
	}
	return c.JSON(resp)
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	caller, err := identity.FromContext(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, "Invalid notification id")
	}

	n, err := h.notifier.MarkRead(c.UserContext(), caller.ID, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toNotificationResponse(n))
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	caller, err := identity.FromContext(c)
	if err != nil {
		return unauthorized(c)
	}

	updated, err := h.notifier.MarkAllRead(c.UserContext(), caller.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.MarkAllReadResponse{Updated: updated})
}

func toNotificationResponse(n *models.Notification) dto.NotificationResponse {
	return dto.NotificationResponse{
		ID:          n.ID,
		ComplaintID: n.ComplaintID,
		Message:     n.Message,
		Kind:        n.Kind,
		Read:        n.Read,
		CreatedAt:   n.CreatedAt,
	}
}
