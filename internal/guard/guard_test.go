package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/s/lmsPortal/internal/models"
)

func TestCheck(t *testing.T) {
	student := &models.Session{UserID: 1, Role: models.RoleStudent}
	teacher := &models.Session{UserID: 2, Role: models.RoleTeacher}

	tests := []struct {
		name  string
		sess  *models.Session
		roles []models.Role
		state State
	}{
		{"anonymous on public-any route", nil, nil, Unauthenticated},
		{"anonymous on student route", nil, []models.Role{models.RoleStudent}, Unauthenticated},
		{"student on teacher route", student, []models.Role{models.RoleTeacher}, AuthenticatedWrongRole},
		{"teacher on student route", teacher, []models.Role{models.RoleStudent}, AuthenticatedWrongRole},
		{"student on student route", student, []models.Role{models.RoleStudent}, AuthenticatedAllowed},
		{"any signed-in", teacher, nil, AuthenticatedAllowed},
		{"either role", student, []models.Role{models.RoleTeacher, models.RoleStudent}, AuthenticatedAllowed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := Check(tc.sess, tc.roles...)
			assert.Equal(t, tc.state, d.State)
			if tc.state == AuthenticatedAllowed {
				assert.True(t, d.Allowed())
				assert.Empty(t, d.Redirect)
			} else {
				assert.False(t, d.Allowed())
				assert.Equal(t, LoginPath, d.Redirect)
			}
		})
	}
}

func TestStudentNeverReachesTeacherRoute(t *testing.T) {
	for id := int64(1); id <= 50; id++ {
		sess := &models.Session{UserID: id, Username: "s", Role: models.RoleStudent}
		d := Check(sess, models.RoleTeacher)
		assert.Equal(t, LoginPath, d.Redirect)
		assert.False(t, HasRole(sess, models.RoleTeacher))
	}
}

func TestHasRole_UnknownRole(t *testing.T) {
	assert.False(t, HasRole(&models.Session{Role: "admin"}, models.RoleStudent, models.RoleTeacher))
	assert.True(t, HasRole(&models.Session{Role: "admin"}))
}
