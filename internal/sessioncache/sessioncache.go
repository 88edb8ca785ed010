// Package sessioncache keeps a client-local mirror of the server session in
// sync: it restores cached auth state for fast startup, refreshes tokens
// shortly before they expire, and guarantees the local view never outlives
// the server-side session. The cache is a hint for display purposes only;
// the auth_status marker cookie is the single source of truth for "plausibly
// logged in", because the real tokens live in HTTP-only cookies the client
// cannot read.
package sessioncache

import (
	"errors"
	"time"
)

var (
	// ErrSessionRejected means the server refused the refresh (revoked or
	// expired token). The local session must be cleared.
	ErrSessionRejected = errors.New("session rejected by server")
	// ErrUnavailable means the server could not be reached; the local
	// session stays and the refresh is retried later.
	ErrUnavailable = errors.New("server unavailable")
)

// Source records which layer last wrote the cached session.
type Source string

const (
	SourceServer Source = "server"
	SourceClient Source = "client"
	SourceAPI    Source = "api"
)

// State is the client session state machine. The Manager is its only
// writer; everything else observes.
type State int

const (
	StateAnonymous State = iota
	StateAuthenticated
	StateRefreshing
	StateLoggingOut
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	case StateLoggingOut:
		return "logging_out"
	default:
		return "unknown"
	}
}

// CachedUser is the displayable subset of the server user.
type CachedUser struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Role       string `json:"role"`
	IsVerified bool   `json:"isVerified"`
}

// CachedSession mirrors {user, expiresAt, source}. ExpiresAt refers to the
// access token and is a hint, never ground truth.
type CachedSession struct {
	User      CachedUser `json:"user"`
	ExpiresAt time.Time  `json:"expiresAt"`
	Source    Source     `json:"source"`
}

// Store persists the cached session across restarts. Load returns
// (nil, nil) when no session is cached.
type Store interface {
	Load() (*CachedSession, error)
	Save(s *CachedSession) error
	Clear() error
}
