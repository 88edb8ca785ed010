package dto

import (
	"time"

	"github.com/todocloud/auth-service/internal/auth/domain"
)

type UserOutput struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Role       string `json:"role"`
	IsVerified bool   `json:"isVerified"`
}

func NewUserOutput(u *domain.User) *UserOutput {
	return &UserOutput{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Role:       u.Role,
		IsVerified: u.IsVerified,
	}
}

// SessionResponse is the wire shape shared by login/refresh/me endpoints.
// Exactly one of (User, ExpiresAt) or (Message, Errors) is populated,
// discriminated by Success.
type SessionResponse struct {
	Success   bool                `json:"success"`
	User      *UserOutput         `json:"user,omitempty"`
	ExpiresAt *time.Time          `json:"expiresAt,omitempty"`
	Message   string              `json:"message,omitempty"`
	Errors    map[string][]string `json:"errors,omitempty"`
}
