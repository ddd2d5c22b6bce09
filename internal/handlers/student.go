package handlers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/s/lmsPortal/internal/models"
	"github.com/s/lmsPortal/internal/progress"
)

const recentActivity = 10

func (h *Handler) HandleStudentDashboard(w http.ResponseWriter, r *http.Request) {
	data := h.Page(r, "My learning")
	cached, sess, err := h.Data(r)
	if err != nil {
		h.Fail(w, r, data, err)
		return
	}

	enrollments, err := cached.Enrollments.Refresh(r.Context())
	if err != nil {
		h.Fail(w, r, data, err)
		return
	}

	data.Enrollments = make([]EnrollmentView, 0, len(enrollments))
	for _, e := range enrollments {
		data.Enrollments = append(data.Enrollments, EnrollmentView{
			CourseID:  e.CourseID(),
			Title:     e.Title(),
			Percent:   e.RoundedProgress(),
			Completed: e.Completed(),
		})
	}

	activity, err := h.Activity.Recent(r.Context(), sess.UserID, recentActivity)
	if err != nil {
		log.Printf("Loading activity for user %d failed: %v", sess.UserID, err)
	}
	data.Activity = activity

	h.Render(w, http.StatusOK, data)
}

func (h *Handler) HandleCourseLessons(w http.ResponseWriter, r *http.Request) {
	courseID, ok := PathID(r, "id")
	if !ok {
		h.NotFound(w, r)
		return
	}
	h.renderLessons(w, r, courseID, nil)
}

// renderLessons shows the lessons of an enrolled course with progress.
func (h *Handler) renderLessons(w http.ResponseWriter, r *http.Request, courseID int64, failed error) {
	data := h.Page(r, "Lessons")
	cached, _, err := h.Data(r)
	if err != nil {
		h.Fail(w, r, data, err)
		return
	}

	// 1. Enrollment gate, checked against the server's list
	if _, err := cached.Enrollments.Refresh(r.Context()); err != nil {
		h.Fail(w, r, data, err)
		return
	}
	if _, ok := cached.Enrollments.For(courseID); !ok {
		h.Fail(w, r, data, fmt.Errorf("course %d: %w", courseID, progress.ErrNotEnrolled))
		return
	}

	// 2. Course, lessons and completed set
	reconciler := progress.NewReconciler(cached, h.API)
	cp, err := reconciler.Load(r.Context(), courseID)
	if err != nil {
		h.Fail(w, r, data, err)
		return
	}
	if course, ok := cached.Courses.Cached(courseID); ok {
		view := h.CourseView(course)
		data.Title = course.Title
		data.Course = &view
	}
	h.fillLessons(&data, cached.Lessons.Where(inCourse(courseID)), cp)

	if failed != nil {
		h.Fail(w, r, data, failed)
		return
	}
	h.Render(w, http.StatusOK, data)
}

func (h *Handler) HandleCompleteLesson(w http.ResponseWriter, r *http.Request) {
	courseID, ok := PathID(r, "id")
	lessonID, ok2 := PathID(r, "lessonID")
	if !ok || !ok2 {
		h.NotFound(w, r)
		return
	}

	cached, _, err := h.Data(r)
	if err != nil {
		h.Fail(w, r, h.Page(r, "Lessons"), err)
		return
	}

	reconciler := progress.NewReconciler(cached, h.API)
	if _, err := reconciler.MarkComplete(r.Context(), courseID, lessonID); err != nil {
		h.renderLessons(w, r, courseID, err)
		return
	}

	h.Record(r, models.ActionLessonComplete, map[string]any{"course_id": courseID, "lesson_id": lessonID})
	http.Redirect(w, r, fmt.Sprintf("/student/courses/%d/lessons", courseID), http.StatusSeeOther)
}

func (h *Handler) fillLessons(data *PageData, lessons []models.Lesson, cp progress.CourseProgress) {
	done := make(map[int64]bool, len(cp.Completed))
	for _, id := range cp.Completed {
		done[id] = true
	}

	data.Lessons = make([]LessonView, 0, len(lessons))
	for _, l := range lessons {
		data.Lessons = append(data.Lessons, h.LessonView(l, done[l.ID]))
	}
	data.Progress = &cp
}

func inCourse(courseID int64) func(models.Lesson) bool {
	return func(l models.Lesson) bool { return l.Course.ID == courseID }
}
