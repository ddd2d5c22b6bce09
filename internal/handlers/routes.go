package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/s/lmsPortal/internal/middleware"
	"github.com/s/lmsPortal/internal/models"
)

// Register mounts the public, shared and student pages.
func (h *Handler) Register(r *mux.Router) {
	public := middleware.WithSession(h.Sessions)
	signedIn := middleware.RequiredRole(h.Sessions)
	student := middleware.RequiredRole(h.Sessions, models.RoleStudent)

	r.HandleFunc("/health", h.HandleHealth).Methods(http.MethodGet)

	// --- Public ---
	r.HandleFunc("/", public(h.HandleMain)).Methods(http.MethodGet)
	r.HandleFunc("/login", public(h.HandleLoginPage)).Methods(http.MethodGet)
	r.HandleFunc("/login", public(h.HandleLogin)).Methods(http.MethodPost)
	r.HandleFunc("/register", public(h.HandleRegisterPage)).Methods(http.MethodGet)
	r.HandleFunc("/register", public(h.HandleRegister)).Methods(http.MethodPost)
	r.HandleFunc("/logout", public(h.HandleLogout)).Methods(http.MethodPost)

	// --- Any signed-in user ---
	r.HandleFunc("/courses", signedIn(h.HandleCourses)).Methods(http.MethodGet)
	r.HandleFunc("/courses/{id:[0-9]+}", signedIn(h.HandleCourseDetail)).Methods(http.MethodGet)

	// --- Students ---
	r.HandleFunc("/courses/{id:[0-9]+}/enroll", student(h.HandleEnroll)).Methods(http.MethodPost)
	r.HandleFunc("/student/dashboard", student(h.HandleStudentDashboard)).Methods(http.MethodGet)
	r.HandleFunc("/student/courses/{id:[0-9]+}/lessons", student(h.HandleCourseLessons)).Methods(http.MethodGet)
	r.HandleFunc("/student/courses/{id:[0-9]+}/lessons/{lessonID:[0-9]+}/complete", student(h.HandleCompleteLesson)).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(h.NotFound)
}
