package models

import (
	"time"

	"gorm.io/datatypes"
)

// UserLog is the portal's own audit trail of user actions.
type UserLog struct {
	ID        uint              `gorm:"primarykey"`
	UserID    int64             `gorm:"index"`
	Action    string            `json:"action"` // "login", "logout", "enroll", "lesson_complete"
	Details   datatypes.JSONMap `json:"details"`
	RequestID string            `gorm:"size:64" json:"request_id"`
	CreatedAt time.Time         `json:"created_at"`
}

const (
	ActionLogin          = "login"
	ActionLogout         = "logout"
	ActionEnroll         = "enroll"
	ActionLessonComplete = "lesson_complete"
	ActionCourseDelete   = "course_delete"
)
