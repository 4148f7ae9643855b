package notifications

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	notificationsvc "shares-backend/internal/application/notifications"
	"shares-backend/internal/middleware"
	"shares-backend/internal/pkg/apperrors"
	"shares-backend/internal/pkg/pagination"
	"shares-backend/internal/pkg/request"
	"shares-backend/internal/pkg/response"
)

type Handlers struct {
	Service *notificationsvc.Service
}

// List GET /api/v1/notifications?isRead=
func (h *Handlers) List(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var isRead *bool
	if v := c.Query("isRead"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return response.FromError(c, apperrors.Validation("isRead", "isRead must be true or false"))
		}
		isRead = &b
	}
	page, err := h.Service.List(c.UserContext(), userID, isRead, pagination.FromQuery(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Paginated(c, "Notifications fetched successfully", page)
}

// MarkRead PATCH /api/v1/notifications/:id/read
func (h *Handlers) MarkRead(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := request.UUIDParam(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.Service.MarkRead(c.UserContext(), userID, id); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Notification marked as read", fiber.Map{"id": id}, nil)
}

// MarkAllRead PATCH /api/v1/notifications/read-all
func (h *Handlers) MarkAllRead(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	n, err := h.Service.MarkAllRead(c.UserContext(), userID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "All notifications marked as read", fiber.Map{"updated": n}, nil)
}
