package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Al0olo/Cloud-Government/internal/repository"
)

// AdminHandler exposes the back-office endpoints. Role checks live in
// the routing middleware; these handlers only read.
type AdminHandler struct {
	Users *repository.UserRepo
	Apps  *repository.ApplicationRepo
}

func NewAdminHandler(users *repository.UserRepo, apps *repository.ApplicationRepo) *AdminHandler {
	if users == nil || apps == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{Users: users, Apps: apps}
}

// ListUsers handles GET /v1/admin/users (admin only).
func (h *AdminHandler) ListUsers(c echo.Context) error {
	page, limit := paging(c)
	users, total, err := h.Users.List(c.Request().Context(), page, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch users"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"users":      users,
		"pagination": paginate(page, limit, total),
	})
}

// ListApplications handles GET /v1/admin/applications (staff and
// admin). Unlike the citizen listing this one spans every user, with
// the same status/type filters.
func (h *AdminHandler) ListApplications(c echo.Context) error {
	page, limit := paging(c)
	filter := repository.ListFilter{
		Status: c.QueryParam("status"),
		Type:   c.QueryParam("type"),
		Page:   page,
		Limit:  limit,
	}
	apps, total, err := h.Apps.ListAll(c.Request().Context(), filter)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch applications"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"applications": apps,
		"pagination":   paginate(page, limit, total),
	})
}

// Statistics handles GET /v1/admin/statistics (admin only): counts of
// applications by status and type plus the registered user total.
func (h *AdminHandler) Statistics(c echo.Context) error {
	ctx := c.Request().Context()
	byStatus, err := h.Apps.CountByStatus(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute statistics"})
	}
	byType, err := h.Apps.CountByType(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute statistics"})
	}
	userCount, err := h.Users.Count(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute statistics"})
	}
	totalApps := 0
	for _, n := range byStatus {
		totalApps += n
	}
	return c.JSON(http.StatusOK, echo.Map{
		"applications": echo.Map{
			"total":     totalApps,
			"by_status": byStatus,
			"by_type":   byType,
		},
		"users": echo.Map{"total": userCount},
	})
}
