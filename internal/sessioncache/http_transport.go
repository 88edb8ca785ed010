package sessioncache

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/todocloud/auth-service/pkg/constant"
)

// sessionEnvelope matches the server's SessionResponse wire shape.
type sessionEnvelope struct {
	Success   bool        `json:"success"`
	User      *CachedUser `json:"user,omitempty"`
	ExpiresAt *time.Time  `json:"expiresAt,omitempty"`
	Message   string      `json:"message,omitempty"`
}

// HTTPTransport implements Transport against the auth service's cookie
// API. The cookie jar carries the HTTP-only token cookies; client code only
// ever inspects the auth_status marker.
type HTTPTransport struct {
	baseURL *url.URL
	client  *http.Client
}

func NewHTTPTransport(baseURL string) (*HTTPTransport, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	return &HTTPTransport{
		baseURL: u,
		client: &http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
		},
	}, nil
}

func (t *HTTPTransport) Refresh(ctx context.Context) (*CachedSession, error) {
	resp, err := t.do(ctx, http.MethodPost, "/api/v1/refresh")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var env sessionEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK && env.Success && env.User != nil && env.ExpiresAt != nil:
		return &CachedSession{
			User:      *env.User,
			ExpiresAt: *env.ExpiresAt,
			Source:    SourceServer,
		}, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrSessionRejected
	default:
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}
}

func (t *HTTPTransport) Logout(ctx context.Context) error {
	resp, err := t.do(ctx, http.MethodDelete, "/api/v1/session")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// HasAuthMarker reports whether the non-HTTP-only auth_status cookie is
// present and unexpired in the jar.
func (t *HTTPTransport) HasAuthMarker() bool {
	for _, c := range t.client.Jar.Cookies(t.baseURL) {
		if c.Name == constant.AuthStatusCookie && c.Value == constant.AuthStatusActive {
			return true
		}
	}
	return false
}

func (t *HTTPTransport) do(ctx context.Context, method, path string) (*http.Response, error) {
	u := *t.baseURL
	u.Path = path

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return t.client.Do(req)
}
