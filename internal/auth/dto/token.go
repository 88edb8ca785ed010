package dto

import (
	"time"

	"github.com/todocloud/auth-service/internal/auth/domain"
)

// TokenPair is the result of a successful mint (login, OAuth, refresh).
type TokenPair struct {
	User             *domain.User
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
