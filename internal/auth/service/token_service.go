package service

//go:generate mockgen -destination=../../mocks/mock_token_generator.go -package=mocks github.com/todocloud/auth-service/internal/auth/service TokenGenerator

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/todocloud/auth-service/internal/auth/domain"
	autherror "github.com/todocloud/auth-service/internal/errors"
)

// TokenGenerator is the stateless signing/verification boundary of the
// session service. Verification failures come back as
// autherror.ErrInvalidOrExpiredToken, never as a panic.
type TokenGenerator interface {
	IssueAccessToken(user *domain.User, fingerprint string) (token string, expiresAt time.Time, jti string, err error)
	IssueRefreshToken(user *domain.User) (token string, expiresAt time.Time, jti string, err error)
	VerifyAccessToken(tokenString string) (*SessionClaims, error)
	VerifyRefreshToken(tokenString string) (*SessionClaims, error)
	AccessTokenTTL() time.Duration
	RefreshTokenTTL() time.Duration
}

type SessionClaims struct {
	jwt.RegisteredClaims
	Email       string `json:"email,omitempty"`
	Role        string `json:"role,omitempty"`
	Fingerprint string `json:"fpt,omitempty"`
}

// UserID is the token subject.
func (c *SessionClaims) UserID() string { return c.Subject }

type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	audience      string
	issuer        string
}

func NewTokenService(accessSecret, refreshSecret string, accessMinutes, refreshMinutes int, audience, issuer string) *TokenService {
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessExpiry:  time.Duration(accessMinutes) * time.Minute,
		refreshExpiry: time.Duration(refreshMinutes) * time.Minute,
		audience:      audience,
		issuer:        issuer,
	}
}

// IssueAccessToken signs a short-lived assertion carrying subject, email,
// role and an optional device fingerprint. The jti is fresh per call.
func (ts *TokenService) IssueAccessToken(user *domain.User, fingerprint string) (string, time.Time, string, error) {
	return ts.sign(user, fingerprint, ts.accessSecret, ts.accessExpiry)
}

// IssueRefreshToken signs the long-lived assertion. No fingerprint claim;
// the binding metadata lives on the persisted record instead.
func (ts *TokenService) IssueRefreshToken(user *domain.User) (string, time.Time, string, error) {
	return ts.sign(user, "", ts.refreshSecret, ts.refreshExpiry)
}

func (ts *TokenService) sign(user *domain.User, fingerprint string, secret []byte, expiry time.Duration) (string, time.Time, string, error) {
	now := time.Now()
	expiresAt := now.Add(expiry)
	jti := uuid.NewString()

	claims := SessionClaims{
		Email:       user.Email,
		Role:        user.Role,
		Fingerprint: fingerprint,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Audience:  jwt.ClaimStrings{ts.audience},
			Issuer:    ts.issuer,
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, "", fmt.Errorf("failed to sign token: %w", err)
	}

	return token, expiresAt, jti, nil
}

func (ts *TokenService) VerifyAccessToken(tokenString string) (*SessionClaims, error) {
	return ts.verify(tokenString, ts.accessSecret)
}

func (ts *TokenService) VerifyRefreshToken(tokenString string) (*SessionClaims, error) {
	return ts.verify(tokenString, ts.refreshSecret)
}

func (ts *TokenService) verify(tokenString string, secret []byte) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Ensure the token's signing method is HMAC.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithAudience(ts.audience),
		jwt.WithIssuer(ts.issuer),
		jwt.WithExpirationRequired(),
	)

	if err != nil || !token.Valid {
		// Tampered, expired, wrong audience/issuer: all one answer.
		return nil, errors.Join(autherror.ErrInvalidOrExpiredToken, err)
	}

	return claims, nil
}

func (ts *TokenService) AccessTokenTTL() time.Duration {
	return ts.accessExpiry
}

func (ts *TokenService) RefreshTokenTTL() time.Duration {
	return ts.refreshExpiry
}
