package teacher

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/s/lmsPortal/internal/api"
	"github.com/s/lmsPortal/internal/cache"
	"github.com/s/lmsPortal/internal/handlers"
	"github.com/s/lmsPortal/internal/models"
)

// ============================================================
// Dashboard: the teacher's own courses
// ============================================================

func (s Service) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	s.renderDashboard(w, r, nil)
}

func (s Service) renderDashboard(w http.ResponseWriter, r *http.Request, failed error) {
	data := s.Page(r, "Teacher dashboard")
	cached, sess, err := s.Data(r)
	if err != nil {
		s.Fail(w, r, data, err)
		return
	}

	if _, err := cached.Courses.List(r.Context(), nil); err != nil {
		s.Fail(w, r, data, err)
		return
	}
	categories, err := cached.Categories.Refresh(r.Context())
	if err != nil {
		s.Fail(w, r, data, err)
		return
	}

	own := cached.Courses.Where(func(c models.Course) bool { return c.Instructor.ID == sess.UserID })
	data.Courses = make([]handlers.CourseView, 0, len(own))
	for _, c := range own {
		data.Courses = append(data.Courses, s.CourseView(c))
	}
	data.Categories = categories

	if failed != nil {
		s.Fail(w, r, data, failed)
		return
	}
	s.Render(w, http.StatusOK, data)
}

func (s Service) HandleCreateCourse(w http.ResponseWriter, r *http.Request) {
	cached, _, err := s.Data(r)
	if err != nil {
		s.Fail(w, r, s.Page(r, "Teacher dashboard"), err)
		return
	}

	fields, closeBanner, err := courseFields(r)
	if err != nil {
		s.renderDashboard(w, r, err)
		return
	}
	defer closeBanner()

	if fields.Title == "" {
		s.renderDashboard(w, r, requiredField("title", "Title is required."))
		return
	}

	course, err := cached.Courses.Create(r.Context(), fields)
	if err != nil {
		s.renderDashboard(w, r, err)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/teacher/courses/%d", course.ID), http.StatusSeeOther)
}

// ============================================================
// Course editor: course, its lessons and materials
// ============================================================

func (s Service) HandleCourseEditor(w http.ResponseWriter, r *http.Request) {
	id, ok := handlers.PathID(r, "id")
	if !ok {
		s.NotFound(w, r)
		return
	}
	s.renderCourseEditor(w, r, id, nil)
}

func (s Service) renderCourseEditor(w http.ResponseWriter, r *http.Request, id int64, failed error) {
	data := s.Page(r, "Edit course")
	cached, _, err := s.Data(r)
	if err != nil {
		s.Fail(w, r, data, err)
		return
	}

	// 1. The course itself; on a failed mutation prefer what is cached
	course, ok := cached.Courses.Cached(id)
	if !ok || failed == nil {
		if course, err = cached.Courses.Get(r.Context(), id); err != nil {
			s.Fail(w, r, data, err)
			return
		}
	}
	view := s.CourseView(course)
	data.Title = course.Title
	data.Course = &view

	// 2. Lessons and materials of this course
	if _, err := cached.Lessons.List(r.Context(), cache.LessonParams(id)); err != nil {
		s.Fail(w, r, data, err)
		return
	}
	if _, err := cached.Materials.List(r.Context(), cache.MaterialParams(id)); err != nil {
		s.Fail(w, r, data, err)
		return
	}
	for _, l := range cached.Lessons.Where(func(l models.Lesson) bool { return l.Course.ID == id }) {
		data.Lessons = append(data.Lessons, s.LessonView(l, false))
	}
	data.Materials = cached.Materials.Where(func(m models.Material) bool { return m.Course.ID == id })

	categories, err := cached.Categories.Refresh(r.Context())
	if err != nil {
		s.Fail(w, r, data, err)
		return
	}
	data.Categories = categories

	if failed != nil {
		s.Fail(w, r, data, failed)
		return
	}
	s.Render(w, http.StatusOK, data)
}

func (s Service) HandleUpdateCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := handlers.PathID(r, "id")
	if !ok {
		s.NotFound(w, r)
		return
	}

	cached, _, err := s.Data(r)
	if err != nil {
		s.Fail(w, r, s.Page(r, "Edit course"), err)
		return
	}

	fields, closeBanner, err := courseFields(r)
	if err != nil {
		s.renderCourseEditor(w, r, id, err)
		return
	}
	defer closeBanner()

	if _, err := cached.Courses.Update(r.Context(), id, fields); err != nil {
		s.renderCourseEditor(w, r, id, err)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/teacher/courses/%d", id), http.StatusSeeOther)
}

func (s Service) HandleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := handlers.PathID(r, "id")
	if !ok {
		s.NotFound(w, r)
		return
	}

	cached, _, err := s.Data(r)
	if err != nil {
		s.Fail(w, r, s.Page(r, "Edit course"), err)
		return
	}

	if err := cached.Courses.Delete(r.Context(), id); err != nil {
		s.renderCourseEditor(w, r, id, err)
		return
	}

	s.Record(r, models.ActionCourseDelete, map[string]any{"course_id": id})
	http.Redirect(w, r, "/teacher/dashboard", http.StatusSeeOther)
}

func courseFields(r *http.Request) (models.CourseFields, func(), error) {
	if err := parseForm(r); err != nil {
		return models.CourseFields{}, func() {}, invalidForm(err)
	}

	fields := models.CourseFields{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: r.FormValue("description"),
		Price:       strings.TrimSpace(r.FormValue("price")),
		Duration:    strings.TrimSpace(r.FormValue("duration")),
	}

	if raw := r.FormValue("category"); raw != "" {
		categoryID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return models.CourseFields{}, func() {}, requiredField("category", "Choose a category.")
		}
		fields.CategoryID = categoryID
	}

	banner, closeBanner := formUpload(r, "banner")
	fields.Banner = banner
	return fields, closeBanner, nil
}

// requiredField builds the same error the backend would return for a
// missing field, so the page shows it next to the input.
func requiredField(field, message string) error {
	return &api.Error{
		Kind:    api.KindValidationFailed,
		Status:  http.StatusBadRequest,
		Message: message,
		Fields:  map[string]string{field: message},
	}
}

func invalidForm(err error) error {
	return &api.Error{
		Kind:    api.KindValidationFailed,
		Status:  http.StatusBadRequest,
		Message: "The form could not be read.",
		Err:     err,
	}
}
