package sessioncache

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Transport talks to the auth server. Refresh exchanges the cookie-held
// refresh token for a new pair; HasAuthMarker reports whether the
// auth_status marker cookie is currently visible.
type Transport interface {
	Refresh(ctx context.Context) (*CachedSession, error)
	Logout(ctx context.Context) error
	HasAuthMarker() bool
}

type Options struct {
	// CheckInterval is how often the background loop wakes up.
	CheckInterval time.Duration
	// RefreshThreshold triggers a refresh when the cached expiry is this
	// close to now.
	RefreshThreshold time.Duration
	// AttemptInterval caps refresh attempts to one per interval of
	// wall-clock time, tolerating clock skew and refresh storms.
	AttemptInterval time.Duration
	// MaxPlausibleAhead bounds how far in the future a restored expiry may
	// claim to be before it is corrected.
	MaxPlausibleAhead time.Duration
	// AccessTTL is the conservative estimate used when a restored expiry is
	// implausible.
	AccessTTL time.Duration

	Now func() time.Time
}

func (o *Options) setDefaults() {
	if o.CheckInterval == 0 {
		o.CheckInterval = 30 * time.Second
	}
	if o.RefreshThreshold == 0 {
		o.RefreshThreshold = 3 * time.Minute
	}
	if o.AttemptInterval == 0 {
		o.AttemptInterval = time.Minute
	}
	if o.MaxPlausibleAhead == 0 {
		o.MaxPlausibleAhead = 20 * time.Minute
	}
	if o.AccessTTL == 0 {
		o.AccessTTL = 15 * time.Minute
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Manager is the single writer of client-side session state. All state
// transitions happen under one lock; readers subscribe via Session/State.
type Manager struct {
	store     Store
	transport Transport
	logger    *zap.Logger
	opts      Options

	mu          sync.Mutex
	state       State
	session     *CachedSession
	lastAttempt time.Time
	inFlight    bool
	loggingOut  bool
}

func NewManager(store Store, transport Transport, logger *zap.Logger, opts Options) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.setDefaults()
	return &Manager{
		store:     store,
		transport: transport,
		logger:    logger,
		opts:      opts,
		state:     StateAnonymous,
	}
}

// Restore loads the persisted cache and reconciles it against the marker
// cookie. A cache without a marker is discarded: the cookie disappeared, so
// the session is gone no matter what the cache claims. An implausible
// expiry is corrected to a conservative estimate rather than trusted.
func (m *Manager) Restore() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cached, err := m.store.Load()
	if err != nil {
		m.logger.Warn("failed to load session cache", zap.Error(err))
		cached = nil
	}
	if cached == nil {
		m.state = StateAnonymous
		return nil
	}

	if !m.transport.HasAuthMarker() {
		m.session = nil
		m.state = StateAnonymous
		return m.store.Clear()
	}

	now := m.opts.Now()
	switch {
	case cached.ExpiresAt.After(now.Add(m.opts.MaxPlausibleAhead)):
		// Too far out to be a real access-token expiry.
		cached.ExpiresAt = now.Add(m.opts.AccessTTL)
		cached.Source = SourceClient
	case !cached.ExpiresAt.After(now):
		// Expired locally while the marker still claims a session; assume
		// the next check should refresh right away.
		cached.ExpiresAt = now.Add(m.opts.RefreshThreshold)
		cached.Source = SourceClient
	}

	m.session = cached
	m.state = StateAuthenticated
	if err := m.store.Save(cached); err != nil {
		m.logger.Warn("failed to persist corrected session cache", zap.Error(err))
	}
	return nil
}

// Run drives the proactive refresh loop until the context is cancelled.
// Check frequency is decoupled from refresh frequency: most ticks do
// nothing.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.opts.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.maybeRefresh(ctx)
		}
	}
}

// maybeRefresh refreshes when the cached expiry is inside the threshold,
// rate-limited and single-flight.
func (m *Manager) maybeRefresh(ctx context.Context) {
	m.mu.Lock()
	now := m.opts.Now()

	due := m.state == StateAuthenticated &&
		m.session != nil &&
		m.session.ExpiresAt.Sub(now) <= m.opts.RefreshThreshold

	if !due || m.inFlight || m.loggingOut || now.Sub(m.lastAttempt) < m.opts.AttemptInterval {
		m.mu.Unlock()
		return
	}
	m.beginRefreshLocked(now)
	m.mu.Unlock()

	fresh, err := m.transport.Refresh(ctx)
	m.finishRefresh(fresh, err)
}

// ForceRefresh refreshes immediately, still honoring single-flight and a
// logout in progress.
func (m *Manager) ForceRefresh(ctx context.Context) error {
	m.mu.Lock()
	if m.inFlight || m.loggingOut || m.state == StateAnonymous {
		m.mu.Unlock()
		return nil
	}
	m.beginRefreshLocked(m.opts.Now())
	m.mu.Unlock()

	fresh, err := m.transport.Refresh(ctx)
	m.finishRefresh(fresh, err)
	return err
}

func (m *Manager) beginRefreshLocked(now time.Time) {
	m.inFlight = true
	m.lastAttempt = now
	m.state = StateRefreshing
}

// finishRefresh commits a refresh result. The commit only happens if the
// refresh is still the active transition: a logout or login that happened
// while the refresh was in flight wins, and the stale result is dropped.
func (m *Manager) finishRefresh(fresh *CachedSession, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.inFlight = false

	if m.state != StateRefreshing {
		return
	}

	switch {
	case err == nil:
		fresh.Source = SourceServer
		m.session = fresh
		m.state = StateAuthenticated
		if serr := m.store.Save(fresh); serr != nil {
			m.logger.Warn("failed to persist refreshed session", zap.Error(serr))
		}
	case errors.Is(err, ErrSessionRejected):
		// Revoked or expired server-side: drop everything at once. There is
		// no partially-authenticated client state.
		m.session = nil
		m.state = StateAnonymous
		if cerr := m.store.Clear(); cerr != nil {
			m.logger.Warn("failed to clear session cache", zap.Error(cerr))
		}
	default:
		// Transient failure; keep the session and try again later.
		m.state = StateAuthenticated
		m.logger.Warn("session refresh failed", zap.Error(err))
	}
}

// Logout clears local state first and unconditionally, then asks the server
// to revoke. A failed server call never leaves the client displaying a
// stale authenticated state.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.loggingOut = true
	m.state = StateLoggingOut
	m.session = nil
	if err := m.store.Clear(); err != nil {
		m.logger.Warn("failed to clear session cache", zap.Error(err))
	}
	m.mu.Unlock()

	err := m.transport.Logout(ctx)
	if err != nil {
		m.logger.Warn("server-side logout failed", zap.Error(err))
	}

	m.mu.Lock()
	m.loggingOut = false
	m.state = StateAnonymous
	m.mu.Unlock()

	return err
}

// SetSession installs a session obtained outside the manager (login
// response handled by the caller).
func (m *Manager) SetSession(s *CachedSession) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loggingOut {
		return
	}
	m.session = s
	m.state = StateAuthenticated
	if err := m.store.Save(s); err != nil {
		m.logger.Warn("failed to persist session cache", zap.Error(err))
	}
}

// Session returns a copy of the current cached session, or nil.
func (m *Manager) Session() *CachedSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	s := *m.session
	return &s
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
