package handlers

import (
	"net/http"
	"strconv"

	"github.com/s/lmsPortal/internal/cache"
	"github.com/s/lmsPortal/internal/models"
)

func (h *Handler) HandleMain(w http.ResponseWriter, r *http.Request) {
	data := h.Page(r, "Home")
	if !data.IsAuthenticated {
		h.Render(w, http.StatusOK, data)
		return
	}

	cached, _, err := h.Data(r)
	if err != nil {
		h.Fail(w, r, data, err)
		return
	}
	courses, err := cached.Courses.List(r.Context(), nil)
	if err != nil {
		h.Fail(w, r, data, err)
		return
	}

	data.Courses = h.courseViews(courses)
	h.Render(w, http.StatusOK, data)
}

// HandleCourses lists the catalogue, optionally narrowed to one
// category with ?category=<id>.
func (h *Handler) HandleCourses(w http.ResponseWriter, r *http.Request) {
	data := h.Page(r, "Courses")
	cached, _, err := h.Data(r)
	if err != nil {
		h.Fail(w, r, data, err)
		return
	}

	courses, err := cached.Courses.List(r.Context(), nil)
	if err != nil {
		h.Fail(w, r, data, err)
		return
	}
	categories, err := cached.Categories.Refresh(r.Context())
	if err != nil {
		h.Fail(w, r, data, err)
		return
	}

	if categoryID, err := strconv.ParseInt(r.URL.Query().Get("category"), 10, 64); err == nil {
		courses = cached.Courses.Where(func(c models.Course) bool { return c.Category.ID == categoryID })
	}

	data.Courses = h.courseViews(courses)
	data.Categories = categories
	h.Render(w, http.StatusOK, data)
}

func (h *Handler) HandleCourseDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := PathID(r, "id")
	if !ok {
		h.NotFound(w, r)
		return
	}
	h.renderCourseDetail(w, r, id, nil)
}

// renderCourseDetail shows the course; failed is the error of a form
// post that landed back here.
func (h *Handler) renderCourseDetail(w http.ResponseWriter, r *http.Request, id int64, failed error) {
	data := h.Page(r, "Course")
	cached, sess, err := h.Data(r)
	if err != nil {
		h.Fail(w, r, data, err)
		return
	}

	course, err := cached.Courses.Get(r.Context(), id)
	if err != nil {
		h.Fail(w, r, data, err)
		return
	}
	view := h.CourseView(course)
	data.Title = course.Title
	data.Course = &view

	if _, err := cached.Lessons.List(r.Context(), cache.LessonParams(id)); err != nil {
		h.Fail(w, r, data, err)
		return
	}
	lessons := cached.Lessons.Where(inCourse(id))
	data.Lessons = make([]LessonView, 0, len(lessons))
	for _, l := range lessons {
		data.Lessons = append(data.Lessons, h.LessonView(l, false))
	}

	if sess.Role == models.RoleStudent {
		if _, err := cached.Enrollments.Refresh(r.Context()); err != nil {
			h.Fail(w, r, data, err)
			return
		}
		_, data.IsEnrolled = cached.Enrollments.For(id)
	}

	if failed != nil {
		h.Fail(w, r, data, failed)
		return
	}
	h.Render(w, http.StatusOK, data)
}

func (h *Handler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	id, ok := PathID(r, "id")
	if !ok {
		h.NotFound(w, r)
		return
	}

	cached, _, err := h.Data(r)
	if err != nil {
		h.Fail(w, r, h.Page(r, "Course"), err)
		return
	}

	if err := cached.Enrollments.Enroll(r.Context(), id); err != nil {
		h.renderCourseDetail(w, r, id, err)
		return
	}

	h.Record(r, models.ActionEnroll, map[string]any{"course_id": id})
	http.Redirect(w, r, "/student/dashboard", http.StatusSeeOther)
}

func (h *Handler) courseViews(courses []models.Course) []CourseView {
	views := make([]CourseView, 0, len(courses))
	for _, c := range courses {
		views = append(views, h.CourseView(c))
	}
	return views
}
