package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/garyjia/payment-portal/internal/domain/entity"
	"github.com/garyjia/payment-portal/internal/gateway"
	"github.com/garyjia/payment-portal/internal/metrics"
)

// Authenticator is the part of the payment API the manager calls
type Authenticator interface {
	Login(ctx context.Context, n gateway.Notifier, identifier, secret string) (*entity.LoginResult, bool)
	Logout(ctx context.Context, s gateway.Scope, refreshToken string) bool
}

// CacheInvalidator drops a principal's cached query state
type CacheInvalidator interface {
	InvalidatePrincipal(principal int64)
}

// Config holds session lifetimes and the janitor schedule
type Config struct {
	// RememberTTL is the lifetime of a durable session
	RememberTTL time.Duration
	// SessionTTL bounds a browser-session login on the server side
	SessionTTL time.Duration
	// JanitorSchedule is a cron spec, e.g. "@every 10m"
	JanitorSchedule string
}

// Manager creates, resolves and destroys sessions
type Manager struct {
	api     Authenticator
	durable Store
	scoped  Store
	cache   CacheInvalidator
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time

	janitorMu sync.Mutex
	janitor   *cron.Cron
}

// NewManager creates a new session manager. durable holds remembered
// sessions, scoped holds the others. cache may be nil.
func NewManager(api Authenticator, durable, scoped Store, cache CacheInvalidator, cfg Config, logger *zap.Logger) *Manager {
	if cfg.RememberTTL <= 0 {
		cfg.RememberTTL = 30 * 24 * time.Hour
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	if cfg.JanitorSchedule == "" {
		cfg.JanitorSchedule = "@every 10m"
	}
	return &Manager{
		api:     api,
		durable: durable,
		scoped:  scoped,
		cache:   cache,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Login authenticates against the payment API and creates a session. With
// remember the session goes to the durable store, otherwise to the
// session-scoped store. Failures are surfaced on n.
func (m *Manager) Login(ctx context.Context, identifier, secret string, remember bool, n gateway.Notifier) (*Session, bool) {
	result, ok := m.api.Login(ctx, n, identifier, secret)
	if !ok {
		metrics.RecordSessionEvent("login_failed")
		return nil, false
	}

	now := m.now()
	s := &Session{
		ID:           uuid.NewString(),
		User:         result.User,
		AccessToken:  result.Access,
		RefreshToken: result.Refresh,
		Remember:     remember,
		CreatedAt:    now,
	}

	store := m.scoped
	if remember {
		store = m.durable
		s.ExpiresAt = now.Add(m.cfg.RememberTTL)
	} else {
		s.ExpiresAt = now.Add(m.cfg.SessionTTL)
	}

	if err := store.Save(ctx, s); err != nil {
		m.logger.Error("Failed to store session",
			zap.Int64("user_id", s.User.ID),
			zap.Bool("remember", remember),
			zap.Error(err))
		if n != nil {
			n.Notify(gateway.Notice{Kind: gateway.NoticeHTTP, Message: "Could not start a session. Please try again."})
		}
		return nil, false
	}

	m.logger.Info("User logged in",
		zap.Int64("user_id", s.User.ID),
		zap.Bool("remember", remember))
	metrics.RecordSessionEvent("login")
	return s, true
}

// Logout invalidates the refresh token on the server, best effort, then
// removes the session and the user's cached query state regardless of the
// outcome.
func (m *Manager) Logout(ctx context.Context, s *Session) {
	if s == nil {
		return
	}

	discard := gateway.NotifierFunc(func(n gateway.Notice) {
		m.logger.Debug("Server logout failed", zap.String("message", n.Message))
	})
	m.api.Logout(ctx, gateway.Scope{Token: s.AccessToken, Notifier: discard}, s.RefreshToken)

	m.destroy(ctx, s)
	metrics.RecordSessionEvent("logout")
	m.logger.Info("User logged out", zap.Int64("user_id", s.User.ID))
}

// Resolve returns the live session for id. An unknown id, an expired session
// or an expired access token all yield ErrNotAuthenticated; expired sessions
// are removed on the way.
func (m *Manager) Resolve(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotAuthenticated
	}

	s, err := m.lookup(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}

	now := m.now()
	if s.Expired(now) || s.TokenExpired(now) {
		m.destroy(ctx, s)
		metrics.RecordSessionEvent("forced_logout")
		m.logger.Info("Session expired, forcing logout", zap.Int64("user_id", s.User.ID))
		return nil, fmt.Errorf("%w: %w", ErrNotAuthenticated, ErrSessionExpired)
	}
	return s, nil
}

// InvalidateToken removes every session holding token. The gateway calls it
// when the payment API reports the token as no longer valid.
func (m *Manager) InvalidateToken(ctx context.Context, token string) {
	if token == "" {
		return
	}
	// The page request may already be finishing; the purge must still land.
	ctx = context.WithoutCancel(ctx)

	removed := 0
	for _, store := range m.stores() {
		users, err := store.DeleteByAccessToken(ctx, token)
		if err != nil {
			m.logger.Error("Failed to invalidate sessions", zap.Error(err))
			continue
		}
		removed += len(users)
		for _, userID := range users {
			m.invalidateCache(userID)
		}
	}
	if removed > 0 {
		metrics.RecordSessionEvent("forced_logout")
		m.logger.Info("Access token rejected by API, sessions removed", zap.Int("count", removed))
	}
}

// Purge removes expired sessions from both stores
func (m *Manager) Purge(ctx context.Context) int {
	now := m.now()
	total := 0
	for _, store := range m.stores() {
		n, err := store.PurgeExpired(ctx, now)
		if err != nil {
			m.logger.Error("Failed to purge expired sessions", zap.Error(err))
			continue
		}
		total += n
	}
	if total > 0 {
		metrics.RecordSessionEvent("purged")
		m.logger.Info("Purged expired sessions", zap.Int("count", total))
	}
	return total
}

// StartJanitor schedules Purge on the configured cron spec
func (m *Manager) StartJanitor() error {
	m.janitorMu.Lock()
	defer m.janitorMu.Unlock()
	if m.janitor != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(m.cfg.JanitorSchedule, func() {
		m.Purge(context.Background())
	}); err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", m.cfg.JanitorSchedule, err)
	}
	c.Start()
	m.janitor = c

	m.logger.Info("Session janitor started", zap.String("schedule", m.cfg.JanitorSchedule))
	return nil
}

// StopJanitor stops the janitor and waits for a running purge to finish
func (m *Manager) StopJanitor() {
	m.janitorMu.Lock()
	c := m.janitor
	m.janitor = nil
	m.janitorMu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

func (m *Manager) lookup(ctx context.Context, id string) (*Session, error) {
	var lastErr error
	for _, store := range m.stores() {
		s, err := store.Get(ctx, id)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, ErrSessionNotFound) {
			lastErr = err
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrSessionNotFound
}

func (m *Manager) destroy(ctx context.Context, s *Session) {
	ctx = context.WithoutCancel(ctx)
	for _, store := range m.stores() {
		if err := store.Delete(ctx, s.ID); err != nil {
			m.logger.Error("Failed to delete session", zap.Error(err))
		}
	}
	m.invalidateCache(s.User.ID)
}

func (m *Manager) invalidateCache(userID int64) {
	if m.cache != nil {
		m.cache.InvalidatePrincipal(userID)
	}
}

func (m *Manager) stores() []Store {
	if m.durable == m.scoped {
		return []Store{m.durable}
	}
	return []Store{m.durable, m.scoped}
}
