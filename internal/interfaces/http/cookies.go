package http

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/payment-portal/internal/gateway"
	"github.com/garyjia/payment-portal/internal/session"
)

const (
	// SessionCookie carries the session id
	SessionCookie = "portal_session"
	// FlashCookie carries one notice across a redirect
	FlashCookie = "portal_flash"
)

// setSessionCookie writes the session id. Durable sessions get an expiry so
// they survive a browser restart; others are browser-session cookies.
func (s *Server) setSessionCookie(c *gin.Context, sess *session.Session) {
	cookie := &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if sess.Remember {
		cookie.Expires = sess.ExpiresAt
	}
	http.SetCookie(c.Writer, cookie)
}

func (s *Server) clearSessionCookie(c *gin.Context) {
	s.expireCookie(c, SessionCookie)
}

func (s *Server) expireCookie(c *gin.Context, name string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// setFlash stores a notice for the next page render
func (s *Server) setFlash(c *gin.Context, n gateway.Notice) {
	if strings.TrimSpace(n.Message) == "" {
		return
	}
	value := base64.RawURLEncoding.EncodeToString([]byte(string(n.Kind) + "|" + n.Message))
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     FlashCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeFlash reads and clears the pending flash notice
func (s *Server) takeFlash(c *gin.Context) (gateway.Notice, bool) {
	value, err := c.Cookie(FlashCookie)
	if err != nil || value == "" {
		return gateway.Notice{}, false
	}
	s.expireCookie(c, FlashCookie)

	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return gateway.Notice{}, false
	}
	kind, msg, ok := strings.Cut(string(raw), "|")
	if !ok || msg == "" {
		return gateway.Notice{}, false
	}
	return gateway.Notice{Kind: gateway.NoticeKind(kind), Message: msg}, true
}
