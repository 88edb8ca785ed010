package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/todocloud/auth-service/config"
	"github.com/todocloud/auth-service/internal/auth/domain"
	"github.com/todocloud/auth-service/internal/auth/dto"
	"github.com/todocloud/auth-service/internal/auth/service"
	autherror "github.com/todocloud/auth-service/internal/errors"
	"github.com/todocloud/auth-service/pkg/constant"
)

type AuthHandler struct {
	sessions *service.SessionService
	cfg      *config.Config
	logger   *zap.Logger
}

func NewAuthHandler(sessions *service.SessionService, cfg *config.Config, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{sessions: sessions, cfg: cfg, logger: logger}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input dto.RegisterInput
	if err := c.BodyParser(&input); err != nil || input.Email == "" || input.Password == "" {
		return badRequest(c, "invalid input")
	}

	user, err := h.sessions.Register(c.Context(), input)
	if err != nil {
		if errors.Is(err, autherror.ErrEmailAlreadyInUse) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.SessionResponse{
				Success: false,
				Message: "email already in use",
				Errors:  map[string][]string{"email": {"already in use"}},
			})
		}
		return h.internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SessionResponse{
		Success: true,
		User:    dto.NewUserOutput(user),
		Message: "please verify your email",
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input dto.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "invalid input")
	}

	// Capture metadata
	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())
	input.Fingerprint = c.Get("X-Device-Fingerprint")

	pair, err := h.sessions.Login(c.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, autherror.ErrTooManyLoginAttempts):
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.SessionResponse{
				Success: false,
				Message: "too many failed login attempts",
			})
		case errors.Is(err, autherror.ErrInvalidCredentials):
			// Identical payload whether the email or the password was wrong.
			return c.Status(fiber.StatusUnauthorized).JSON(dto.SessionResponse{
				Success: false,
				Message: "invalid credentials",
			})
		case errors.Is(err, autherror.ErrEmailNotVerified):
			return c.Status(fiber.StatusForbidden).JSON(dto.SessionResponse{
				Success: false,
				Message: "please verify your email",
				Errors:  map[string][]string{"email": {input.Email}},
			})
		default:
			return h.internalError(c, err)
		}
	}

	h.setSessionCookies(c, pair)

	return c.Status(fiber.StatusOK).JSON(dto.SessionResponse{
		Success:   true,
		User:      dto.NewUserOutput(pair.User),
		ExpiresAt: &pair.AccessExpiresAt,
	})
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var input dto.RefreshInput
	// Body is optional; browsers carry the token in the HTTP-only cookie.
	_ = c.BodyParser(&input)
	if input.RefreshToken == "" {
		input.RefreshToken = c.Cookies(constant.RefreshTokenCookie)
	}
	if input.RefreshToken == "" {
		return h.sessionExpired(c)
	}

	input.Fingerprint = c.Get("X-Device-Fingerprint")
	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	pair, err := h.sessions.Refresh(c.Context(), input)
	if err != nil {
		if errors.Is(err, autherror.ErrInvalidOrExpiredToken) ||
			errors.Is(err, autherror.ErrFingerprintMismatch) {
			return h.sessionExpired(c)
		}
		return h.internalError(c, err)
	}

	h.setSessionCookies(c, pair)

	return c.Status(fiber.StatusOK).JSON(dto.SessionResponse{
		Success:   true,
		User:      dto.NewUserOutput(pair.User),
		ExpiresAt: &pair.AccessExpiresAt,
	})
}

// Logout revokes the presented refresh token and clears cookies. Revoking an
// absent or already-revoked token is not an error; the client must always
// end up logged out.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var input dto.RefreshInput
	_ = c.BodyParser(&input)
	if input.RefreshToken == "" {
		input.RefreshToken = c.Cookies(constant.RefreshTokenCookie)
	}

	if input.RefreshToken != "" {
		if err := h.sessions.RevokeRefreshToken(c.Context(), input.RefreshToken); err != nil {
			h.clearSessionCookies(c)
			return h.internalError(c, err)
		}
	}

	h.clearSessionCookies(c)
	return c.Status(fiber.StatusOK).JSON(dto.SessionResponse{Success: true})
}

// LogoutAll revokes every outstanding refresh token of the caller. Runs
// behind RequireAuth.
func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	user, ok := c.Locals(userLocalKey).(*domain.User)
	if !ok {
		return h.sessionExpired(c)
	}

	if err := h.sessions.RevokeAllUserRefreshTokens(c.Context(), user.ID); err != nil {
		return h.internalError(c, err)
	}

	h.clearSessionCookies(c)
	return c.Status(fiber.StatusOK).JSON(dto.SessionResponse{Success: true})
}

// ForceLogout lets an admin revoke every session of another user.
func (h *AuthHandler) ForceLogout(c *fiber.Ctx) error {
	userID := c.Params("id")
	if userID == "" {
		return badRequest(c, "missing user id")
	}

	if err := h.sessions.RevokeAllUserRefreshTokens(c.Context(), userID); err != nil {
		return h.internalError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(dto.SessionResponse{Success: true})
}

// Me returns the authenticated user. Runs behind RequireAuth.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, ok := c.Locals(userLocalKey).(*domain.User)
	if !ok {
		return h.sessionExpired(c)
	}

	return c.Status(fiber.StatusOK).JSON(dto.SessionResponse{
		Success: true,
		User:    dto.NewUserOutput(user),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.SessionResponse{
		Success: false,
		Message: msg,
	})
}

// sessionExpired clears cookies and answers 401. The body carries the
// indicator the web client uses to route to the login screen.
func (h *AuthHandler) sessionExpired(c *fiber.Ctx) error {
	h.clearSessionCookies(c)
	return c.Status(fiber.StatusUnauthorized).JSON(dto.SessionResponse{
		Success: false,
		Message: "sessionExpired",
	})
}

// internalError hides storage failures behind a generic body.
func (h *AuthHandler) internalError(c *fiber.Ctx, err error) error {
	h.logger.Error("auth handler failure",
		zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(dto.SessionResponse{
		Success: false,
		Message: "internal server error",
	})
}
