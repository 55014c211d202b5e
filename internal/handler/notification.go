package handler

import (
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Al0olo/Cloud-Government/internal/repository"
)

// NotificationHandler serves the per-user notification feed.
type NotificationHandler struct {
	Notifications *repository.NotificationRepo
}

func NewNotificationHandler(notifications *repository.NotificationRepo) *NotificationHandler {
	if notifications == nil {
		panic("nil dependency passed to NewNotificationHandler")
	}
	return &NotificationHandler{Notifications: notifications}
}

// List handles GET /v1/notifications, newest first with the usual
// page/limit parameters.
func (h *NotificationHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	page, limit := paging(c)
	items, total, err := h.Notifications.ListByUser(c.Request().Context(), userID, page, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch notifications"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"notifications": items,
		"pagination":    paginate(page, limit, total),
	})
}

// MarkRead handles PATCH /v1/notifications/:id/read. Marking a
// notification read twice is fine; another user's notification is a
// 404.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid notification id"})
	}
	if err := h.Notifications.MarkRead(c.Request().Context(), id, userID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "notification not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update notification"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "notification marked as read"})
}
