package handler

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/todocloud/auth-service/config"
	"github.com/todocloud/auth-service/internal/auth/domain"
	"github.com/todocloud/auth-service/internal/auth/dto"
)

const oauthStateCookie = "oauth_state"

type googleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

func NewGoogleOAuthConfig(cfg *config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// OAuthHandler drives the Google login flow. The callback establishes
// identity out-of-band and then reuses the regular minting path.
type OAuthHandler struct {
	auth        *AuthHandler
	oauthCfg    *oauth2.Config
	userinfoURL string
}

func NewOAuthHandler(auth *AuthHandler, oauthCfg *oauth2.Config) *OAuthHandler {
	return &OAuthHandler{
		auth:        auth,
		oauthCfg:    oauthCfg,
		userinfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
	}
}

// GoogleLogin redirects to the Google consent page. The random state lands
// in a short-lived cookie and is checked on callback.
func (h *OAuthHandler) GoogleLogin(c *fiber.Ctx) error {
	state := base64.RawURLEncoding.EncodeToString([]byte(uuid.NewString()))

	c.Cookie(&fiber.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Expires:  time.Now().Add(10 * time.Minute),
		HTTPOnly: true,
		Secure:   h.auth.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/api/v1/oauth",
	})

	return c.Redirect(h.oauthCfg.AuthCodeURL(state), fiber.StatusTemporaryRedirect)
}

func (h *OAuthHandler) GoogleCallback(c *fiber.Ctx) error {
	state := c.Query("state")
	if state == "" || state != c.Cookies(oauthStateCookie) {
		return badRequest(c, "invalid oauth state")
	}

	code := c.Query("code")
	if code == "" {
		return badRequest(c, "missing authorization code")
	}

	token, err := h.oauthCfg.Exchange(c.Context(), code)
	if err != nil {
		return badRequest(c, "failed to exchange authorization code")
	}

	gu, err := h.fetchGoogleUser(c, token)
	if err != nil {
		return h.auth.internalError(c, err)
	}
	if !gu.VerifiedEmail {
		return c.Status(fiber.StatusForbidden).JSON(dto.SessionResponse{
			Success: false,
			Message: "please verify your email",
			Errors:  map[string][]string{"email": {gu.Email}},
		})
	}

	user, err := h.findOrCreateUser(c, gu)
	if err != nil {
		return h.auth.internalError(c, err)
	}

	pair, err := h.auth.sessions.CreateTokensForUser(c.Context(), user, domain.TokenMetadata{
		Fingerprint: c.Get("X-Device-Fingerprint"),
		IPAddress:   c.IP(),
		UserAgent:   string(c.Request().Header.UserAgent()),
	})
	if err != nil {
		return h.auth.internalError(c, err)
	}

	h.auth.setSessionCookies(c, pair)

	return c.Status(fiber.StatusOK).JSON(dto.SessionResponse{
		Success:   true,
		User:      dto.NewUserOutput(pair.User),
		ExpiresAt: &pair.AccessExpiresAt,
	})
}

func (h *OAuthHandler) fetchGoogleUser(c *fiber.Ctx, token *oauth2.Token) (*googleUser, error) {
	client := h.oauthCfg.Client(c.Context(), token)
	resp, err := client.Get(h.userinfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var gu googleUser
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return nil, err
	}
	return &gu, nil
}

// findOrCreateUser provisions a first-time OAuth user. Google-verified
// emails skip the local verification step.
func (h *OAuthHandler) findOrCreateUser(c *fiber.Ctx, gu *googleUser) (*domain.User, error) {
	user, err := h.auth.sessions.FindUserByEmail(c.Context(), gu.Email)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}
	return h.auth.sessions.ProvisionOAuthUser(c.Context(), gu.Email, gu.GivenName, gu.FamilyName)
}
