package http

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/payment-portal/internal/domain/entity"
	"github.com/garyjia/payment-portal/internal/form"
	"github.com/garyjia/payment-portal/internal/gateway"
	"github.com/garyjia/payment-portal/internal/resource"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"currency":   resource.FormatCurrency,
	"entityName": resource.EntityName,
	"requestNo":  resource.RequestNo,
	"typeLabel":  entity.PaymentTypeLabel,
	"fieldError": func(errs *form.ValidationErrors, field string) string {
		if errs == nil {
			return ""
		}
		for _, f := range errs.Fields {
			if f.Field == field {
				return f.Message
			}
		}
		return ""
	},
	"vendorField": func(i int, name string) string {
		return fmt.Sprintf("vendors[%d][%s]", i, name)
	},
	"glField": func(i, j int, name string) string {
		return fmt.Sprintf("vendors[%d][gl_entries][%d][%s]", i, j, name)
	},
	"lower": strings.ToLower,
}

func loadTemplates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

// page is the data every template receives
type page struct {
	Title      string
	User       *entity.User
	IsAdmin    bool
	IsApprover bool
	Flash      *gateway.Notice
	Notices    []gateway.Notice
	Errors     *form.ValidationErrors
	// Focus is the form name of the first invalid input
	Focus   string
	Content interface{}
}

// render writes a template with the page's session, flash and notices
func (s *Server) render(c *gin.Context, status int, name, title string, content interface{}) {
	s.renderForm(c, status, name, title, content, nil)
}

// renderForm renders a form page with its validation errors
func (s *Server) renderForm(c *gin.Context, status int, name, title string, content interface{}, err error) {
	verrs, _ := form.AsValidationErrors(err)

	p := page{
		Title:   title,
		Notices: pageNotices(c).Items(),
		Errors:  verrs,
		Focus:   verrs.FirstField(),
		Content: content,
	}
	if sess := currentSession(c); sess != nil {
		user := sess.User
		p.User = &user
		p.IsAdmin = user.HasRole(entity.RoleAdmin)
		p.IsApprover = p.IsAdmin || user.HasRole(entity.RoleApprover)
	}
	if flash, ok := s.takeFlash(c); ok {
		p.Flash = &flash
	}
	c.HTML(status, name, p)
}

// redirectWithFlash sends the browser to target with one notice
func (s *Server) redirectWithFlash(c *gin.Context, target string, n gateway.Notice) {
	s.setFlash(c, n)
	c.Redirect(http.StatusSeeOther, target)
}

// tokenExpired reports whether the API rejected the session's token during
// this request. The session is already gone; the browser is sent to login.
func (s *Server) tokenExpired(c *gin.Context) bool {
	notices := pageNotices(c)
	if !notices.Has(gateway.NoticeTokenExpired) {
		return false
	}
	s.clearSessionCookie(c)
	s.redirectWithFlash(c, "/login", gateway.Notice{
		Kind:    gateway.NoticeTokenExpired,
		Message: "Your session has expired. Please log in again.",
	})
	c.Abort()
	return true
}

// lastError returns the most recent error notice of the page, or fallback
func lastError(c *gin.Context, fallback string) string {
	items := pageNotices(c).Items()
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].IsError() {
			return items[i].Message
		}
	}
	return fallback
}
