// Package guard decides, per navigation, whether a page may render.
package guard

import (
	"slices"

	"github.com/s/lmsPortal/internal/models"
)

// LoginPath is where every denied navigation lands, whatever the reason.
const LoginPath = "/login"

type State int

const (
	Unauthenticated State = iota
	AuthenticatedWrongRole
	AuthenticatedAllowed
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case AuthenticatedWrongRole:
		return "wrong_role"
	default:
		return "allowed"
	}
}

// Decision is the outcome of one check. Redirect is empty when the page
// may render.
type Decision struct {
	State    State
	Redirect string
}

func (d Decision) Allowed() bool { return d.State == AuthenticatedAllowed }

// HasRole is the single capability check used by every guarded route.
// No roles means any signed-in user.
func HasRole(sess *models.Session, roles ...models.Role) bool {
	if sess == nil {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	return slices.Contains(roles, sess.Role)
}

// Check classifies the session against the route's roles.
func Check(sess *models.Session, roles ...models.Role) Decision {
	switch {
	case sess == nil:
		return Decision{State: Unauthenticated, Redirect: LoginPath}
	case !HasRole(sess, roles...):
		return Decision{State: AuthenticatedWrongRole, Redirect: LoginPath}
	default:
		return Decision{State: AuthenticatedAllowed}
	}
}
