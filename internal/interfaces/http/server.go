// Package http serves the portal pages. Handlers resolve the login session,
// load what the page needs through the resource loaders and render a
// server-side template; the browser only holds the session cookie.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/payment-portal/internal/domain/entity"
	"github.com/garyjia/payment-portal/internal/export"
	"github.com/garyjia/payment-portal/internal/form"
	"github.com/garyjia/payment-portal/internal/gateway"
	"github.com/garyjia/payment-portal/internal/metrics"
	"github.com/garyjia/payment-portal/internal/resource"
	"github.com/garyjia/payment-portal/internal/session"
	"github.com/garyjia/payment-portal/internal/storage"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	SecureCookies   bool
	TrustedProxies  []string
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Deps are the components the pages use
type Deps struct {
	API      *gateway.API
	Sessions *session.Manager
	Loaders  *resource.Loaders
	Stager   *storage.Stager
	Exporter *export.RequestsExporter
	Limiter  *LoginLimiter
	Defaults form.Defaults
}

// Server is the portal's HTTP server
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	deps       Deps
	logger     Logger
}

// NewServer creates the server and registers every route. It also routes the
// gateway's token-invalid signal to the session manager.
func NewServer(config ServerConfig, deps Deps, logger Logger) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	if err := router.SetTrustedProxies(config.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	tmpl, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	router.SetHTMLTemplate(tmpl)

	if deps.Limiter == nil {
		deps.Limiter = NewLoginLimiter(10, 5)
	}
	deps.API.Client().OnTokenInvalid(deps.Sessions.InvalidateToken)

	server := &Server{
		config: config,
		router: router,
		deps:   deps,
		logger: logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server, nil
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(s.recoveryMiddleware())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(metrics.GinMiddleware())
	s.router.Use(s.sessionMiddleware())
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	r := s.router

	r.GET("/health", s.healthCheck)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/dashboard") })

	// Public pages
	r.GET("/login", s.loginPage)
	r.POST("/login", s.deps.Limiter.Middleware(s.tooManyLogins), s.login)
	r.POST("/logout", s.logout)
	r.GET("/forgot-password", s.forgotPasswordPage)
	r.POST("/forgot-password", s.forgotPassword)
	r.GET("/set-password", s.setPasswordPage)
	r.POST("/set-password", s.setPassword)

	// Pages behind login
	auth := r.Group("/", RequireSession())
	{
		auth.GET("/dashboard", s.dashboard)
		auth.GET("/requests", s.listRequests)
		auth.GET("/requests/export.xlsx", s.exportRequests)
		auth.GET("/requests/:id", s.requestDetail)
		auth.GET("/create-request", s.createRequestPage)
		auth.POST("/create-request", s.createRequest)
		auth.GET("/profile", s.profile)
		auth.GET("/change-password", s.changePasswordPage)
		auth.POST("/change-password", s.changePassword)

		decide := auth.Group("/requests/:id", RequireRoles("/requests", entity.RoleApprover, entity.RoleAdmin))
		decide.POST("/approve", s.approveRequest)
		decide.POST("/reject", s.rejectRequest)

		auth.GET("/admin-dashboard", RequireRoles("/dashboard", entity.RoleAdmin), s.adminDashboard)

		admin := auth.Group("/admin", RequireRoles("/dashboard", entity.RoleAdmin))
		admin.GET("", func(c *gin.Context) { c.Redirect(http.StatusFound, "/admin-dashboard") })
		admin.GET("/requests", s.adminRequests)
		admin.GET("/users/:id", s.adminUser)
	}

	r.NoRoute(s.notFound)
}

// Start starts the HTTP server and blocks until ctx is cancelled or the
// listener fails
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.Address(),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", s.httpServer.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
