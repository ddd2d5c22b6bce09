package models

import "math"

// Enrollment is a student's registration in a course as reported
// by GET /student/courses/.
type Enrollment struct {
	ID          int64   `json:"id"`
	Course      Ref     `json:"course"`
	CourseTitle string  `json:"course_title,omitempty"`
	Progress    float64 `json:"progress"`
	IsCompleted bool    `json:"is_completed"`
}

func (e Enrollment) GetID() int64 { return e.ID }

// CourseID is the enrolled course whichever shape the backend used.
func (e Enrollment) CourseID() int64 { return e.Course.ID }

// Title prefers the flat course_title field.
func (e Enrollment) Title() string {
	if e.CourseTitle != "" {
		return e.CourseTitle
	}
	return e.Course.Title
}

// RoundedProgress clamps the reported progress to [0, 100].
func (e Enrollment) RoundedProgress() int {
	p := int(math.Round(e.Progress))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Completed mirrors the dashboard rule: flagged by the server or at 100%.
func (e Enrollment) Completed() bool {
	return e.IsCompleted || e.RoundedProgress() == 100
}
