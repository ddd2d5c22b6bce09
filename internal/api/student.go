package api

import (
	"context"
	"net/http"

	"github.com/s/lmsPortal/internal/models"
)

func (c *Client) Enroll(ctx context.Context, courseID int64) error {
	body := map[string]int64{"course_id": courseID}
	return c.doJSON(ctx, http.MethodPost, "/student/enroll/", body, nil)
}

// Enrollments lists the caller's courses with server-computed progress.
func (c *Client) Enrollments(ctx context.Context) ([]models.Enrollment, error) {
	return list[models.Enrollment](ctx, c, "/student/courses/", nil)
}

// CompletedLessons returns the ids of lessons the caller finished in
// the course.
func (c *Client) CompletedLessons(ctx context.Context, courseID int64) ([]int64, error) {
	return list[int64](ctx, c, idPath("/student/completed-lessons/", courseID), nil)
}

func (c *Client) CompleteLesson(ctx context.Context, lessonID int64) error {
	body := map[string]int64{"lesson_id": lessonID}
	return c.doJSON(ctx, http.MethodPost, "/student/complete-lesson/", body, nil)
}
