package domain

import "time"

type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         string
	IsVerified   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RefreshToken is one outstanding refresh-token grant. Token is unique across
// all rows; Revoked only ever flips false -> true. Rotation revokes the old
// row and inserts a new one, it never deletes.
type RefreshToken struct {
	ID                string
	UserID            string
	Token             string
	DeviceFingerprint string
	IPAddress         string
	UserAgent         string
	ExpiresAt         time.Time
	CreatedAt         time.Time
	Revoked           bool
}

// TokenMetadata is the request context bound to a grant at login/refresh.
type TokenMetadata struct {
	Fingerprint string
	IPAddress   string
	UserAgent   string
}
