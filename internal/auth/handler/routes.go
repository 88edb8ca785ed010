package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/todocloud/auth-service/pkg/constant"
)

func RegisterRoutes(app *fiber.App, h *AuthHandler, oauth *OAuthHandler) {
	v1 := app.Group("/api/v1")

	v1.Post("/register", h.Register)
	v1.Post("/login", h.Login)
	v1.Post("/refresh", h.Refresh)
	v1.Delete("/session", h.Logout)
	v1.Delete("/sessions", h.RequireAuth, h.LogoutAll)
	v1.Get("/me", h.RequireAuth, h.Me)

	if oauth != nil {
		v1.Get("/oauth/google", oauth.GoogleLogin)
		v1.Get("/oauth/google/callback", oauth.GoogleCallback)
	}

	// Admin-only endpoints
	admin := v1.Group("/admin", h.RequireAuth, h.RequireRole(constant.RoleAdmin, constant.RoleSuperAdmin))
	admin.Delete("/user/:id/sessions", h.ForceLogout)
}
