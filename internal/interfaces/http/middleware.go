package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/payment-portal/internal/gateway"
	"github.com/garyjia/payment-portal/internal/session"
)

const (
	ctxSession = "portal.session"
	ctxNotices = "portal.notices"
)

// recoveryMiddleware turns a panic into a 500 page
func (s *Server) recoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, err interface{}) {
		s.logger.Error("Panic recovered",
			"error", err,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// sessionMiddleware attaches the page's notice buffer and, when the cookie
// names a live session, the session itself
func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxNotices, &gateway.Notices{})

		id, err := c.Cookie(SessionCookie)
		if err != nil || id == "" {
			c.Next()
			return
		}

		sess, err := s.deps.Sessions.Resolve(c.Request.Context(), id)
		switch {
		case err == nil:
			c.Set(ctxSession, sess)
		case errors.Is(err, session.ErrSessionExpired):
			s.clearSessionCookie(c)
			s.setFlash(c, gateway.Notice{Kind: gateway.NoticeTokenExpired, Message: "Your session has expired. Please log in again."})
		case errors.Is(err, session.ErrNotAuthenticated):
			s.clearSessionCookie(c)
		default:
			s.logger.Error("Failed to resolve session", "error", err)
		}
		c.Next()
	}
}

// RequireSession redirects requests without a live session to the login page
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentSession(c) != nil {
			c.Next()
			return
		}
		target := "/login"
		if c.Request.Method == http.MethodGet {
			target += "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
		}
		c.Redirect(http.StatusFound, target)
		c.Abort()
	}
}

// RequireRoles lets the request through when the user holds any of roles and
// redirects other authenticated users to fallback. Without a session it
// behaves like RequireSession.
func RequireRoles(fallback string, roles ...string) gin.HandlerFunc {
	requireSession := RequireSession()
	return func(c *gin.Context) {
		sess := currentSession(c)
		if sess == nil {
			requireSession(c)
			return
		}
		for _, role := range roles {
			if sess.User.HasRole(role) {
				c.Next()
				return
			}
		}
		c.Redirect(http.StatusFound, fallback)
		c.Abort()
	}
}

func currentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(ctxSession)
	if !ok {
		return nil
	}
	sess, _ := v.(*session.Session)
	return sess
}

func pageNotices(c *gin.Context) *gateway.Notices {
	if v, ok := c.Get(ctxNotices); ok {
		if n, ok := v.(*gateway.Notices); ok {
			return n
		}
	}
	n := &gateway.Notices{}
	c.Set(ctxNotices, n)
	return n
}

// safeNext accepts only same-site absolute paths as a post-login target
func safeNext(next string) (string, bool) {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "", false
	}
	if next == "/login" || strings.HasPrefix(next, "/login?") {
		return "", false
	}
	return next, true
}
