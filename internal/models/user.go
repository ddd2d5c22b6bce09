package models

// User is the profile returned by GET /users/.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	Role      Role   `json:"role"`
	MobileNo  string `json:"mobile_no,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Tokens is the pair issued by POST /token/.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Credentials is the login form.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is the body of POST /users/.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
	MobileNo string `json:"mobile_no"`
}

// Session is the authenticated identity of one browser.
type Session struct {
	UserID       int64  `json:"user_id"`
	Username     string `json:"username"`
	Role         Role   `json:"role"`
	AccessToken  string `json:"-"`
	RefreshToken string `json:"-"`
}
