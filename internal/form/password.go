package form

// ChangePasswordForm is the change-password page
type ChangePasswordForm struct {
	CurrentPassword string `form:"current_password" validate:"required"`
	NewPassword     string `form:"new_password" validate:"required,min=8,nefield=CurrentPassword"`
	ConfirmPassword string `form:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// Validate checks the form
func (f *ChangePasswordForm) Validate() error {
	errs := &ValidationErrors{}
	collect(errs, f)
	return errs.orNil()
}

// SetPasswordForm is the page an invite or reset link lands on
type SetPasswordForm struct {
	UID             string `form:"uid" validate:"required"`
	Token           string `form:"token" validate:"required"`
	NewPassword     string `form:"new_password" validate:"required,min=8"`
	ConfirmPassword string `form:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// Validate checks the form
func (f *SetPasswordForm) Validate() error {
	errs := &ValidationErrors{}
	collect(errs, f)
	return errs.orNil()
}

// ForgotPasswordForm asks for a reset link
type ForgotPasswordForm struct {
	Email string `form:"email" validate:"required,email"`
}

// Validate checks the form
func (f *ForgotPasswordForm) Validate() error {
	errs := &ValidationErrors{}
	collect(errs, f)
	return errs.orNil()
}

// LoginForm is the login page
type LoginForm struct {
	Identifier string `form:"identifier" validate:"required"`
	Password   string `form:"password" validate:"required"`
	Remember   bool   `form:"remember"`
}

// Validate checks the form
func (f *LoginForm) Validate() error {
	errs := &ValidationErrors{}
	collect(errs, f)
	return errs.orNil()
}
