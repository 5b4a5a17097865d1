package entity

// User is the authenticated principal as the API reports it
type User struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Department   string   `json:"department"`
	DepartmentID int64    `json:"department_id,omitempty"`
	Role         string   `json:"role"`
	Roles        []string `json:"roles"`
	Phone        string   `json:"phone,omitempty"`
	CountryCode  string   `json:"country_code,omitempty"`
}

// HasRole reports whether the user carries the role, either as the primary
// role or in the roles list
func (u *User) HasRole(role string) bool {
	if u.Role == role {
		return true
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// LoginResult is the data payload of POST /auth/login/
type LoginResult struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    User   `json:"user"`
}

// CountryCode is one entry of the country dialing code list
type CountryCode struct {
	Name     string `json:"name"`
	ISO2     string `json:"iso2"`
	DialCode string `json:"dial_code"`
}
