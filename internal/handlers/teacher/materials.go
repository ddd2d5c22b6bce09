package teacher

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/s/lmsPortal/internal/handlers"
	"github.com/s/lmsPortal/internal/models"
)

func (s Service) HandleCreateMaterial(w http.ResponseWriter, r *http.Request) {
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

	fields, closeFile, err := materialFields(r)
	if err != nil {
		s.renderCourseEditor(w, r, courseID, err)
		return
	}
	defer closeFile()
	fields.CourseID = courseID

	if fields.File == nil {
		s.renderCourseEditor(w, r, courseID, requiredField("file", "Choose a file to upload."))
		return
	}

	if _, err := cached.Materials.Create(r.Context(), fields); err != nil {
		s.renderCourseEditor(w, r, courseID, err)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/teacher/courses/%d", courseID), http.StatusSeeOther)
}

func (s Service) HandleMaterialEditor(w http.ResponseWriter, r *http.Request) {
	id, ok := handlers.PathID(r, "id")
	if !ok {
		s.NotFound(w, r)
		return
	}
	s.renderMaterialEditor(w, r, id, nil)
}

func (s Service) renderMaterialEditor(w http.ResponseWriter, r *http.Request, id int64, failed error) {
	data := s.Page(r, "Edit material")
	cached, _, err := s.Data(r)
	if err != nil {
		s.Fail(w, r, data, err)
		return
	}

	material, ok := cached.Materials.Cached(id)
	if !ok || failed == nil {
		if material, err = cached.Materials.Get(r.Context(), id); err != nil {
			s.Fail(w, r, data, err)
			return
		}
	}
	data.Title = material.Title
	data.Material = &material

	if failed != nil {
		s.Fail(w, r, data, failed)
		return
	}
	s.Render(w, http.StatusOK, data)
}

func (s Service) HandleUpdateMaterial(w http.ResponseWriter, r *http.Request) {
	id, ok := handlers.PathID(r, "id")
	if !ok {
		s.NotFound(w, r)
		return
	}

	cached, _, err := s.Data(r)
	if err != nil {
		s.Fail(w, r, s.Page(r, "Edit material"), err)
		return
	}

	fields, closeFile, err := materialFields(r)
	if err != nil {
		s.renderMaterialEditor(w, r, id, err)
		return
	}
	defer closeFile()

	material, err := cached.Materials.Update(r.Context(), id, fields)
	if err != nil {
		s.renderMaterialEditor(w, r, id, err)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/teacher/courses/%d", material.Course.ID), http.StatusSeeOther)
}

func (s Service) HandleDeleteMaterial(w http.ResponseWriter, r *http.Request) {
	id, ok := handlers.PathID(r, "id")
	if !ok {
		s.NotFound(w, r)
		return
	}

	cached, _, err := s.Data(r)
	if err != nil {
		s.Fail(w, r, s.Page(r, "Edit material"), err)
		return
	}

	back := "/teacher/dashboard"
	if material, ok := cached.Materials.Cached(id); ok {
		back = fmt.Sprintf("/teacher/courses/%d", material.Course.ID)
	}

	if err := cached.Materials.Delete(r.Context(), id); err != nil {
		s.renderMaterialEditor(w, r, id, err)
		return
	}

	http.Redirect(w, r, back, http.StatusSeeOther)
}

func materialFields(r *http.Request) (models.MaterialFields, func(), error) {
	if err := parseForm(r); err != nil {
		return models.MaterialFields{}, func() {}, invalidForm(err)
	}

	file, closeFile := formUpload(r, "file")
	return models.MaterialFields{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: r.FormValue("description"),
		FileType:    strings.TrimSpace(r.FormValue("file_type")),
		File:        file,
	}, closeFile, nil
}
