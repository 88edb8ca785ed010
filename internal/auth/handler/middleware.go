package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/todocloud/auth-service/internal/auth/domain"
	"github.com/todocloud/auth-service/internal/auth/dto"
	"github.com/todocloud/auth-service/pkg/constant"
)

const userLocalKey = "auth.user"

// RequireAuth validates the access token from the Authorization header or
// the access cookie and stores the freshly fetched user in locals. Any
// validation failure is a 401; the reason is not leaked.
func (h *AuthHandler) RequireAuth(c *fiber.Ctx) error {
	token := bearerToken(c)
	if token == "" {
		token = c.Cookies(constant.AccessTokenCookie)
	}
	if token == "" {
		return h.sessionExpired(c)
	}

	user, err := h.sessions.ValidateAccessToken(c.Context(), token)
	if err != nil || user == nil {
		return h.sessionExpired(c)
	}

	c.Locals(userLocalKey, user)
	return c.Next()
}

// RequireRole allows only the named roles past. Must run after RequireAuth.
func (h *AuthHandler) RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		user, ok := c.Locals(userLocalKey).(*domain.User)
		if !ok {
			return h.sessionExpired(c)
		}
		if _, ok := allowed[user.Role]; !ok {
			return c.Status(fiber.StatusForbidden).JSON(dto.SessionResponse{
				Success: false,
				Message: "forbidden",
			})
		}
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	authz := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimPrefix(authz, "Bearer ")
	}
	return ""
}
