package models

// Role is the coarse capability tag the backend assigns to a user.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Valid reports whether the role is one the portal can route.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTeacher
}

// HomePath is where a user lands right after login.
func (r Role) HomePath() string {
	switch r {
	case RoleStudent:
		return "/student/dashboard"
	case RoleTeacher:
		return "/teacher/dashboard"
	default:
		return "/"
	}
}
