// Package session owns the portal's login sessions. A session holds the
// principal and the tokens the payment API issued at login; the browser only
// holds the session id.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/garyjia/payment-portal/internal/domain/entity"
)

var (
	// ErrSessionNotFound is returned when a store has no session for an id
	ErrSessionNotFound = errors.New("session not found")

	// ErrNotAuthenticated is returned by Resolve when there is no usable session
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrSessionExpired is wrapped into ErrNotAuthenticated when a session or
	// its access token has expired
	ErrSessionExpired = errors.New("session expired")
)

// Session is one logged-in browser
type Session struct {
	ID           string
	User         entity.User
	AccessToken  string
	RefreshToken string
	// Remember marks a durable session that survives browser and server
	// restarts
	Remember  bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired returns true if the session lifetime has passed at now
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// TokenExpired returns true if the access token carries an exp claim that has
// passed at now. Tokens without a readable exp are treated as live; the API
// is the authority and reports token_not_valid when it disagrees.
func (s *Session) TokenExpired(now time.Time) bool {
	exp, ok := TokenExpiry(s.AccessToken)
	return ok && !now.Before(exp)
}

// TokenExpiry reads the exp claim of a JWT without verifying its signature.
// The portal cannot verify tokens it did not sign; it only uses exp to log
// out early instead of waiting for the API to reject the token.
func TokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Store persists sessions
type Store interface {
	// Save creates or replaces a session
	Save(ctx context.Context, s *Session) error

	// Get returns ErrSessionNotFound when there is no session for id
	Get(ctx context.Context, id string) (*Session, error)

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteByAccessToken removes every session holding token and returns
	// the user id of each removed session
	DeleteByAccessToken(ctx context.Context, token string) ([]int64, error)

	// PurgeExpired removes sessions whose lifetime has passed at now
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}
