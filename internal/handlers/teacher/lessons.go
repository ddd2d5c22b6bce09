package teacher

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/s/lmsPortal/internal/handlers"
	"github.com/s/lmsPortal/internal/models"
)

func (s Service) HandleCreateLesson(w http.ResponseWriter, r *http.Request) {
	courseID, ok := handlers.PathID(r, "id")
	if !ok {
		s.NotFound(w, r)
		return
	}

	cached, _, err := s.Data(r)
	if err != nil {
		s.Fail(w, r, s.Page(r, "Edit course"), err)
		return
	}

	fields := lessonFields(r)
	fields.CourseID = courseID
	if fields.Title == "" {
		s.renderCourseEditor(w, r, courseID, requiredField("title", "Title is required."))
		return
	}

	if _, err := cached.Lessons.Create(r.Context(), fields); err != nil {
		s.renderCourseEditor(w, r, courseID, err)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/teacher/courses/%d", courseID), http.StatusSeeOther)
}

func (s Service) HandleLessonEditor(w http.ResponseWriter, r *http.Request) {
	id, ok := handlers.PathID(r, "id")
	if !ok {
		s.NotFound(w, r)
		return
	}
	s.renderLessonEditor(w, r, id, nil)
}

func (s Service) renderLessonEditor(w http.ResponseWriter, r *http.Request, id int64, failed error) {
	data := s.Page(r, "Edit lesson")
	cached, _, err := s.Data(r)
	if err != nil {
		s.Fail(w, r, data, err)
		return
	}

	lesson, ok := cached.Lessons.Cached(id)
	if !ok || failed == nil {
		if lesson, err = cached.Lessons.Get(r.Context(), id); err != nil {
			s.Fail(w, r, data, err)
			return
		}
	}
	view := s.LessonView(lesson, false)
	data.Title = lesson.Title
	data.Lesson = &view

	if failed != nil {
		s.Fail(w, r, data, failed)
		return
	}
	s.Render(w, http.StatusOK, data)
}

func (s Service) HandleUpdateLesson(w http.ResponseWriter, r *http.Request) {
	id, ok := handlers.PathID(r, "id")
	if !ok {
		s.NotFound(w, r)
		return
	}

	cached, _, err := s.Data(r)
	if err != nil {
		s.Fail(w, r, s.Page(r, "Edit lesson"), err)
		return
	}

	lesson, err := cached.Lessons.Update(r.Context(), id, lessonFields(r))
	if err != nil {
		s.renderLessonEditor(w, r, id, err)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/teacher/courses/%d", lesson.Course.ID), http.StatusSeeOther)
}

func (s Service) HandleDeleteLesson(w http.ResponseWriter, r *http.Request) {
	id, ok := handlers.PathID(r, "id")
	if !ok {
		s.NotFound(w, r)
		return
	}

	cached, _, err := s.Data(r)
	if err != nil {
		s.Fail(w, r, s.Page(r, "Edit lesson"), err)
		return
	}

	// remember the course before the lesson leaves the cache
	back := "/teacher/dashboard"
	if lesson, ok := cached.Lessons.Cached(id); ok {
		back = fmt.Sprintf("/teacher/courses/%d", lesson.Course.ID)
	}

	if err := cached.Lessons.Delete(r.Context(), id); err != nil {
		s.renderLessonEditor(w, r, id, err)
		return
	}

	http.Redirect(w, r, back, http.StatusSeeOther)
}

func lessonFields(r *http.Request) models.LessonFields {
	return models.LessonFields{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: r.FormValue("description"),
		Video:       strings.TrimSpace(r.FormValue("video")),
	}
}
