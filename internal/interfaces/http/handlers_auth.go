package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/payment-portal/internal/domain/entity"
	"github.com/garyjia/payment-portal/internal/form"
	"github.com/garyjia/payment-portal/internal/gateway"
	"github.com/garyjia/payment-portal/internal/resource"
	"github.com/garyjia/payment-portal/pkg/utils"
)

type loginContent struct {
	Form form.LoginForm
	Next string
}

type setPasswordContent struct {
	Form form.SetPasswordForm
}

type emailContent struct {
	Form form.ForgotPasswordForm
}

// scope returns the gateway scope of the logged-in user
func scope(c *gin.Context) gateway.Scope {
	sc := gateway.Scope{Notifier: pageNotices(c)}
	if sess := currentSession(c); sess != nil {
		sc.Token = sess.AccessToken
	}
	return sc
}

// principal returns the loader principal of the logged-in user
func principal(c *gin.Context) resource.Principal {
	sess := currentSession(c)
	return resource.Principal{
		UserID:   sess.User.ID,
		Token:    sess.AccessToken,
		Notifier: pageNotices(c),
	}
}

func homeFor(user entity.User) string {
	if user.HasRole(entity.RoleAdmin) {
		return "/admin-dashboard"
	}
	return "/dashboard"
}

// loginPage handles GET /login
func (s *Server) loginPage(c *gin.Context) {
	if sess := currentSession(c); sess != nil {
		c.Redirect(http.StatusFound, homeFor(sess.User))
		return
	}
	next, _ := safeNext(c.Query("next"))
	s.render(c, http.StatusOK, "login.html", "Log in", loginContent{Next: next})
}

// login handles POST /login
func (s *Server) login(c *gin.Context) {
	f := form.LoginForm{
		Identifier: utils.SanitizeString(c.PostForm("identifier")),
		Password:   c.PostForm("password"),
		Remember:   c.PostForm("remember") != "",
	}
	next, _ := safeNext(c.PostForm("next"))
	content := loginContent{Form: form.LoginForm{Identifier: f.Identifier, Remember: f.Remember}, Next: next}

	if err := f.Validate(); err != nil {
		s.renderForm(c, http.StatusUnprocessableEntity, "login.html", "Log in", content, err)
		return
	}

	sess, ok := s.deps.Sessions.Login(c.Request.Context(), f.Identifier, f.Password, f.Remember, pageNotices(c))
	if !ok {
		s.render(c, http.StatusUnauthorized, "login.html", "Log in", content)
		return
	}

	s.setSessionCookie(c, sess)
	if next == "" {
		next = homeFor(sess.User)
	}
	c.Redirect(http.StatusSeeOther, next)
}

// tooManyLogins renders the login page for rate-limited attempts
func (s *Server) tooManyLogins(c *gin.Context) {
	pageNotices(c).Notify(gateway.Notice{
		Kind:    gateway.NoticeValidation,
		Message: "Too many login attempts. Please wait a minute and try again.",
	})
	s.render(c, http.StatusTooManyRequests, "login.html", "Log in", loginContent{})
}

// logout handles POST /logout. The local session is always removed, whatever
// the server says.
func (s *Server) logout(c *gin.Context) {
	if sess := currentSession(c); sess != nil {
		s.deps.Sessions.Logout(c.Request.Context(), sess)
	}
	s.clearSessionCookie(c)
	s.redirectWithFlash(c, "/login", gateway.Notice{Kind: gateway.NoticeSuccess, Message: "You have been logged out."})
}

// forgotPasswordPage handles GET /forgot-password
func (s *Server) forgotPasswordPage(c *gin.Context) {
	s.render(c, http.StatusOK, "forgot_password.html", "Forgot password", emailContent{})
}

// forgotPassword handles POST /forgot-password
func (s *Server) forgotPassword(c *gin.Context) {
	var f form.ForgotPasswordForm
	if err := c.ShouldBind(&f); err != nil {
		s.logger.Error("Invalid forgot-password form", "error", err)
	}
	f.Email = strings.TrimSpace(f.Email)

	if err := f.Validate(); err != nil {
		s.renderForm(c, http.StatusUnprocessableEntity, "forgot_password.html", "Forgot password", emailContent{Form: f}, err)
		return
	}

	if !s.deps.API.ForgotPassword(c.Request.Context(), pageNotices(c), f.Email) {
		s.render(c, http.StatusOK, "forgot_password.html", "Forgot password", emailContent{Form: f})
		return
	}
	s.redirectWithFlash(c, "/login", gateway.Notice{
		Kind:    gateway.NoticeSuccess,
		Message: "If the address is registered, a reset link has been sent.",
	})
}

// setPasswordPage handles GET /set-password?uid=..&token=..
func (s *Server) setPasswordPage(c *gin.Context) {
	f := form.SetPasswordForm{UID: c.Query("uid"), Token: c.Query("token")}
	s.render(c, http.StatusOK, "set_password.html", "Set password", setPasswordContent{Form: f})
}

// setPassword handles POST /set-password
func (s *Server) setPassword(c *gin.Context) {
	var f form.SetPasswordForm
	if err := c.ShouldBind(&f); err != nil {
		s.logger.Error("Invalid set-password form", "error", err)
	}
	content := setPasswordContent{Form: form.SetPasswordForm{UID: f.UID, Token: f.Token}}

	if err := f.Validate(); err != nil {
		s.renderForm(c, http.StatusUnprocessableEntity, "set_password.html", "Set password", content, err)
		return
	}

	if !s.deps.API.SetPassword(c.Request.Context(), pageNotices(c), f.UID, f.Token, f.NewPassword) {
		s.render(c, http.StatusOK, "set_password.html", "Set password", content)
		return
	}
	s.redirectWithFlash(c, "/login", gateway.Notice{Kind: gateway.NoticeSuccess, Message: "Your password has been set. You can now log in."})
}

// changePasswordPage handles GET /change-password
func (s *Server) changePasswordPage(c *gin.Context) {
	s.render(c, http.StatusOK, "change_password.html", "Change password", nil)
}

// changePassword handles POST /change-password
func (s *Server) changePassword(c *gin.Context) {
	var f form.ChangePasswordForm
	if err := c.ShouldBind(&f); err != nil {
		s.logger.Error("Invalid change-password form", "error", err)
	}

	if err := f.Validate(); err != nil {
		s.renderForm(c, http.StatusUnprocessableEntity, "change_password.html", "Change password", nil, err)
		return
	}

	if !s.deps.API.ChangePassword(c.Request.Context(), scope(c), f.CurrentPassword, f.NewPassword) {
		if s.tokenExpired(c) {
			return
		}
		s.render(c, http.StatusOK, "change_password.html", "Change password", nil)
		return
	}
	s.redirectWithFlash(c, "/profile", gateway.Notice{Kind: gateway.NoticeSuccess, Message: "Your password has been changed."})
}
