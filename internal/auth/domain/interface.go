package domain

//go:generate mockgen -destination=../../mocks/mock_user_repository.go -package=mocks github.com/todocloud/auth-service/internal/auth/domain UserRepository

import "context"

// UserRepository is the credential store. Lookup methods return (nil, nil)
// when no row matches; errors are reserved for storage failures.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, user *User) error
	MarkVerified(ctx context.Context, userID string) error

	StoreRefreshToken(ctx context.Context, rt *RefreshToken) error
	// GetActiveRefreshToken matches only non-revoked, non-expired rows.
	GetActiveRefreshToken(ctx context.Context, token string) (*RefreshToken, error)
	// GetRefreshToken matches regardless of revocation or expiry.
	GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error)
	// RevokeRefreshToken reports whether this call flipped the revoked flag.
	// Two concurrent rotations of the same token see exactly one true.
	RevokeRefreshToken(ctx context.Context, id string) (bool, error)
	RevokeAllByUser(ctx context.Context, userID string) error
	CountActiveByUser(ctx context.Context, userID string) (int, error)
	DeleteOldestByUser(ctx context.Context, userID string) error
}
