package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/payment-portal/internal/domain/entity"
	"github.com/garyjia/payment-portal/internal/resource"
)

type dashboardContent struct {
	Data  *resource.DashboardData
	Error string
}

type adminDashboardContent struct {
	Data        *resource.DashboardData
	Counts      resource.Counts
	Recent      []resource.RequestRow
	Error       string
	ListError   string
	RecentLimit int
}

type profileContent struct {
	Profile      *entity.User
	Error        string
	CountryCodes []entity.CountryCode
	// Self is false when an admin views another user
	Self bool
}

const recentRequests = 10

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// healthCheck handles GET /health
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	})
}

// notFound renders the 404 page
func (s *Server) notFound(c *gin.Context) {
	s.render(c, http.StatusNotFound, "not_found.html", "Not found", nil)
}

// dashboard handles GET /dashboard
func (s *Server) dashboard(c *gin.Context) {
	res := s.deps.Loaders.Dashboard(c.Request.Context(), principal(c))
	defer res.Close()
	state := res.Load(c.Request.Context())
	if s.tokenExpired(c) {
		return
	}
	s.render(c, http.StatusOK, "dashboard.html", "Dashboard", dashboardContent{Data: state.Data, Error: state.Error})
}

// adminDashboard handles GET /admin-dashboard: the dashboard plus counts and
// the most recent requests across all users
func (s *Server) adminDashboard(c *gin.Context) {
	ctx := c.Request.Context()
	p := principal(c)

	dash := s.deps.Loaders.Dashboard(ctx, p)
	defer dash.Close()
	list := s.deps.Loaders.RequestList(ctx, p, 0)
	defer list.Close()

	dashState := dash.Load(ctx)
	listState := list.Load(ctx)
	if s.tokenExpired(c) {
		return
	}

	rows := resource.RequestRows(listState.Data)
	if len(rows) > recentRequests {
		rows = rows[:recentRequests]
	}
	s.render(c, http.StatusOK, "admin_dashboard.html", "Admin dashboard", adminDashboardContent{
		Data:        dashState.Data,
		Counts:      resource.StatusCounts(listState.Data),
		Recent:      rows,
		Error:       dashState.Error,
		ListError:   listState.Error,
		RecentLimit: recentRequests,
	})
}

// profile handles GET /profile
func (s *Server) profile(c *gin.Context) {
	s.renderProfile(c, currentSession(c).User.ID, true)
}

// adminUser handles GET /admin/users/:id
func (s *Server) adminUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		s.notFound(c)
		return
	}
	s.renderProfile(c, id, id == currentSession(c).User.ID)
}

func (s *Server) renderProfile(c *gin.Context, userID int64, self bool) {
	ctx := c.Request.Context()

	user := s.deps.Loaders.Profile(ctx, principal(c), userID)
	defer user.Close()
	state := user.Load(ctx)
	if s.tokenExpired(c) {
		return
	}

	content := profileContent{Profile: state.Data, Error: state.Error, Self: self}
	if self {
		// The dialing code list is decoration; its failure is a notice only.
		countries := s.deps.Loaders.CountryCodes(ctx, pageNotices(c))
		defer countries.Close()
		content.CountryCodes = countries.Load(ctx).Data
	}
	s.render(c, http.StatusOK, "profile.html", "Profile", content)
}
