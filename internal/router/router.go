package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/Al0olo/Cloud-Government/internal/handler"
	"github.com/Al0olo/Cloud-Government/internal/middleware"
)

// Handlers bundles every handler the router mounts.  main constructs
// one of these after wiring the repositories.
type Handlers struct {
	Auth          *handler.AuthHandler
	Users         *handler.UserHandler
	Applications  *handler.ApplicationHandler
	Documents     *handler.DocumentHandler
	Notifications *handler.NotificationHandler
	Admin         *handler.AdminHandler
}

// RegisterPublic registers endpoints that do not require a session:
// the health probe and the register/login pair.
func RegisterPublic(e *echo.Echo, h *Handlers) {
	e.GET("/healthz", handler.Health)
	g := e.Group("/v1/auth")
	g.POST("/register", h.Auth.Register)
	g.POST("/login", h.Auth.Login)
}

// RegisterCitizen registers the authenticated portal endpoints under
// /v1.  Every route requires a valid JWT; ownership checks happen in
// the handlers, so any signed-in role may use these.
func RegisterCitizen(e *echo.Echo, h *Handlers, jwtSecret string) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))

	// ---- Session ----
	g.GET("/auth/me", h.Auth.Me)

	// ---- Profile ----
	g.GET("/users/me", h.Users.GetProfile)
	g.PUT("/users/me", h.Users.UpdateProfile)
	g.POST("/users/me/password", h.Users.ChangePassword)

	// ---- Applications ----
	g.POST("/applications", h.Applications.Create)
	g.GET("/applications", h.Applications.List)
	g.GET("/applications/:id", h.Applications.Get)
	g.PUT("/applications/:id", h.Applications.Update)
	g.DELETE("/applications/:id", h.Applications.Delete)

	// ---- Documents ----
	g.POST("/applications/:id/documents", h.Documents.Upload)
	g.GET("/documents/:id", h.Documents.Get)
	g.GET("/documents/:id/url", h.Documents.SignedURL)
	g.DELETE("/documents/:id", h.Documents.Delete)

	// ---- Notifications ----
	g.GET("/notifications", h.Notifications.List)
	g.PATCH("/notifications/:id/read", h.Notifications.MarkRead)
}

// RegisterStaff registers review endpoints shared by staff and admin.
func RegisterStaff(e *echo.Echo, h *Handlers, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("staff", "admin"),
	)
	g.PATCH("/documents/:id/verify", h.Documents.Verify)
	g.GET("/admin/applications", h.Admin.ListApplications)
}

// RegisterAdmin registers endpoints restricted to administrators.
func RegisterAdmin(e *echo.Echo, h *Handlers, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("admin"),
	)
	g.GET("/users", h.Admin.ListUsers)
	g.GET("/statistics", h.Admin.Statistics)
}
