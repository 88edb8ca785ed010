package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/todocloud/auth-service/internal/auth/dto"
	"github.com/todocloud/auth-service/pkg/constant"
)

// setSessionCookies writes the token pair as HTTP-only cookies plus the
// JS-readable auth_status marker. The marker carries no credentials; it only
// tells client code "plausibly logged in" so it can keep its local cache.
func (h *AuthHandler) setSessionCookies(c *fiber.Ctx, pair *dto.TokenPair) {
	c.Cookie(&fiber.Cookie{
		Name:     constant.AccessTokenCookie,
		Value:    pair.AccessToken,
		Expires:  pair.AccessExpiresAt,
		HTTPOnly: true,
		Secure:   h.cfg.CookieSecure,
		Domain:   h.cfg.CookieDomain,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
	c.Cookie(&fiber.Cookie{
		Name:     constant.RefreshTokenCookie,
		Value:    pair.RefreshToken,
		Expires:  pair.RefreshExpiresAt,
		HTTPOnly: true,
		Secure:   h.cfg.CookieSecure,
		Domain:   h.cfg.CookieDomain,
		SameSite: fiber.CookieSameSiteStrictMode,
		Path:     "/api/v1",
	})
	c.Cookie(&fiber.Cookie{
		Name:     constant.AuthStatusCookie,
		Value:    constant.AuthStatusActive,
		Expires:  pair.RefreshExpiresAt,
		HTTPOnly: false,
		Secure:   h.cfg.CookieSecure,
		Domain:   h.cfg.CookieDomain,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
}

func (h *AuthHandler) clearSessionCookies(c *fiber.Ctx) {
	expired := time.Now().Add(-time.Hour)
	for _, name := range []string{constant.AccessTokenCookie, constant.AuthStatusCookie} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Expires:  expired,
			HTTPOnly: name != constant.AuthStatusCookie,
			Domain:   h.cfg.CookieDomain,
			Path:     "/",
		})
	}
	c.Cookie(&fiber.Cookie{
		Name:     constant.RefreshTokenCookie,
		Value:    "",
		Expires:  expired,
		HTTPOnly: true,
		Domain:   h.cfg.CookieDomain,
		Path:     "/api/v1",
	})
}
