// Package teacher serves the course, lesson and material editors.
package teacher

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/s/lmsPortal/internal/handlers"
	"github.com/s/lmsPortal/internal/middleware"
	"github.com/s/lmsPortal/internal/models"
)

// maxUpload bounds banner and material files.
const maxUpload = 32 << 20

type Service struct {
	*handlers.Handler
}

func (s Service) Register(r *mux.Router) {
	teacher := middleware.RequiredRole(s.Sessions, models.RoleTeacher)

	r.HandleFunc("/teacher/dashboard", teacher(s.HandleDashboard)).Methods(http.MethodGet)

	// --- Courses ---
	r.HandleFunc("/teacher/courses", teacher(s.HandleCreateCourse)).Methods(http.MethodPost)
	r.HandleFunc("/teacher/courses/{id:[0-9]+}", teacher(s.HandleCourseEditor)).Methods(http.MethodGet)
	r.HandleFunc("/teacher/courses/{id:[0-9]+}", teacher(s.HandleUpdateCourse)).Methods(http.MethodPost)
	r.HandleFunc("/teacher/courses/{id:[0-9]+}/delete", teacher(s.HandleDeleteCourse)).Methods(http.MethodPost)

	// --- Lessons ---
	r.HandleFunc("/teacher/courses/{id:[0-9]+}/lessons", teacher(s.HandleCreateLesson)).Methods(http.MethodPost)
	r.HandleFunc("/teacher/lessons/{id:[0-9]+}", teacher(s.HandleLessonEditor)).Methods(http.MethodGet)
	r.HandleFunc("/teacher/lessons/{id:[0-9]+}", teacher(s.HandleUpdateLesson)).Methods(http.MethodPost)
	r.HandleFunc("/teacher/lessons/{id:[0-9]+}/delete", teacher(s.HandleDeleteLesson)).Methods(http.MethodPost)

	// --- Materials ---
	r.HandleFunc("/teacher/courses/{id:[0-9]+}/materials", teacher(s.HandleCreateMaterial)).Methods(http.MethodPost)
	r.HandleFunc("/teacher/materials/{id:[0-9]+}", teacher(s.HandleMaterialEditor)).Methods(http.MethodGet)
	r.HandleFunc("/teacher/materials/{id:[0-9]+}", teacher(s.HandleUpdateMaterial)).Methods(http.MethodPost)
	r.HandleFunc("/teacher/materials/{id:[0-9]+}/delete", teacher(s.HandleDeleteMaterial)).Methods(http.MethodPost)
}

// formUpload reads an optional file part. The returned closer is never nil.
func formUpload(r *http.Request, name string) (*models.Upload, func()) {
	file, header, err := r.FormFile(name)
	if err != nil {
		return nil, func() {}
	}
	return &models.Upload{Filename: header.Filename, Body: file}, func() { closeQuietly(file) }
}

func closeQuietly(c io.Closer) { _ = c.Close() }

// parseForm accepts both urlencoded and multipart bodies.
func parseForm(r *http.Request) error {
	err := r.ParseMultipartForm(maxUpload)
	if err == http.ErrNotMultipart {
		return r.ParseForm()
	}
	return err
}
