package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"github.com/yuin/goldmark"

	"github.com/s/lmsPortal/internal/api"
	"github.com/s/lmsPortal/internal/cache"
	"github.com/s/lmsPortal/internal/guard"
	"github.com/s/lmsPortal/internal/middleware"
	"github.com/s/lmsPortal/internal/models"
	"github.com/s/lmsPortal/internal/progress"
	"github.com/s/lmsPortal/internal/session"
	"github.com/s/lmsPortal/internal/storage"
)

type Handler struct {
	API      *api.Client
	Sessions middleware.Sessions
	Caches   *cache.Registry
	Activity storage.Activity
	Markdown goldmark.Markdown
}

func NewHandler(client *api.Client, sessions middleware.Sessions, caches *cache.Registry, activity storage.Activity) *Handler {
	if activity == nil {
		activity = storage.Nop{}
	}
	return &Handler{
		API:      client,
		Sessions: sessions,
		Caches:   caches,
		Activity: activity,
		Markdown: goldmark.New(),
	}
}

// PageData is the JSON model of every page. Only the fields the page
// needs are set.
type PageData struct {
	Title           string       `json:"title"`
	IsAuthenticated bool         `json:"is_authenticated"`
	User            *models.User `json:"user,omitempty"`
	CurrentPath     string       `json:"current_path"`
	CSRFToken       string       `json:"csrf_token,omitempty"`
	Error           *PageError   `json:"error,omitempty"`

	Courses     []CourseView      `json:"courses,omitempty"`
	Course      *CourseView       `json:"course,omitempty"`
	Categories  []models.Category `json:"categories,omitempty"`
	Enrollments []EnrollmentView  `json:"enrollments,omitempty"`
	IsEnrolled  bool              `json:"is_enrolled,omitempty"`

	Lessons   []LessonView      `json:"lessons,omitempty"`
	Lesson    *LessonView       `json:"lesson,omitempty"`
	Materials []models.Material `json:"materials,omitempty"`
	Material  *models.Material  `json:"material,omitempty"`

	Progress *progress.CourseProgress `json:"progress,omitempty"`
	Activity []models.UserLog         `json:"activity,omitempty"`
}

// PageError is shown inline: Fields next to the form inputs, Message as
// a banner.
type PageError struct {
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type CourseView struct {
	models.Course
	DescriptionHTML string `json:"description_html"`
	InstructorName  string `json:"instructor_name"`
	CategoryTitle   string `json:"category_title"`
}

type LessonView struct {
	models.Lesson
	DescriptionHTML string `json:"description_html"`
	Completed       bool   `json:"completed"`
}

type EnrollmentView struct {
	CourseID  int64  `json:"course_id"`
	Title     string `json:"title"`
	Percent   int    `json:"percent"`
	Completed bool   `json:"completed"`
}

// ============================================================
// Page plumbing
// ============================================================

// Page starts a page model for the current request.
func (h *Handler) Page(r *http.Request, title string) PageData {
	data := PageData{
		Title:       title,
		CurrentPath: r.URL.Path,
		CSRFToken:   csrf.Token(r),
	}
	if store, ok := session.FromContext(r.Context()); ok {
		if user, ok := store.User(); ok {
			data.IsAuthenticated = true
			data.User = &user
		}
	}
	return data
}

func (h *Handler) Render(w http.ResponseWriter, status int, data PageData) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error rendering %s: %v", data.CurrentPath, err)
	}
}

// Fail renders data with err applied. A rejected credential ends the
// session; a role the backend refuses sends navigations to the login
// page and shows mutations an inline error.
func (h *Handler) Fail(w http.ResponseWriter, r *http.Request, data PageData, err error) {
	kind := api.KindOf(err)

	switch {
	case kind == api.KindAuthenticationRequired:
		h.endSession(w, r)
		http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
		return
	case kind == api.KindAuthorizationDenied && r.Method == http.MethodGet:
		http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
		return
	}

	data.Error = pageError(err)
	h.Render(w, statusFor(err), data)
}

func pageError(err error) *PageError {
	if errors.Is(err, progress.ErrNotEnrolled) {
		return &PageError{Kind: "not_enrolled", Message: "Enroll in this course to track your progress."}
	}

	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return &PageError{Kind: apiErr.Kind.String(), Message: apiErr.Message, Fields: apiErr.Fields}
	}

	log.Printf("Unexpected page error: %v", err)
	return &PageError{Kind: api.KindServerError.String(), Message: "Something went wrong. Please try again."}
}

func statusFor(err error) int {
	if errors.Is(err, progress.ErrNotEnrolled) {
		return http.StatusForbidden
	}
	switch api.KindOf(err) {
	case api.KindAuthorizationDenied:
		return http.StatusForbidden
	case api.KindValidationFailed:
		return http.StatusBadRequest
	case api.KindNotFound:
		return http.StatusNotFound
	case api.KindNetworkUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// endSession logs the browser out and forgets the user's cache.
func (h *Handler) endSession(w http.ResponseWriter, r *http.Request) {
	store, ok := session.FromContext(r.Context())
	if !ok {
		return
	}
	if sess, ok := store.Current(); ok {
		h.Caches.Drop(sess.UserID)
		h.record(r, sess.UserID, models.ActionLogout, nil)
	}
	if err := store.Logout(r.Context()); err != nil {
		log.Printf("Logout failed: %v", err)
	}
}

// Data returns the signed-in user's cache. Guarded routes always have a
// session in the context.
func (h *Handler) Data(r *http.Request) (*cache.Data, models.Session, error) {
	store, ok := session.FromContext(r.Context())
	if !ok {
		return nil, models.Session{}, session.ErrNoSession
	}
	sess, err := store.Require()
	if err != nil {
		return nil, models.Session{}, err
	}
	return h.Caches.For(sess.UserID), sess, nil
}

func (h *Handler) record(r *http.Request, userID int64, action string, details map[string]any) {
	h.Activity.Record(r.Context(), models.UserLog{
		UserID:    userID,
		Action:    action,
		Details:   details,
		RequestID: middleware.RequestID(r.Context()),
	})
}

// Record stores an action of the signed-in user.
func (h *Handler) Record(r *http.Request, action string, details map[string]any) {
	if store, ok := session.FromContext(r.Context()); ok {
		if sess, ok := store.Current(); ok {
			h.record(r, sess.UserID, action, details)
		}
	}
}

// RenderMarkdown turns a description into HTML. Raw HTML in the source
// is not passed through.
func (h *Handler) RenderMarkdown(src string) string {
	var buf bytes.Buffer
	if err := h.Markdown.Convert([]byte(src), &buf); err != nil {
		log.Printf("Markdown conversion failed: %v", err)
		return ""
	}
	return buf.String()
}

func (h *Handler) CourseView(c models.Course) CourseView {
	return CourseView{
		Course:          c,
		DescriptionHTML: h.RenderMarkdown(c.Description),
		InstructorName:  c.Instructor.Name(),
		CategoryTitle:   c.Category.Title,
	}
}

func (h *Handler) LessonView(l models.Lesson, completed bool) LessonView {
	return LessonView{
		Lesson:          l,
		DescriptionHTML: h.RenderMarkdown(l.Description),
		Completed:       completed,
	}
}

// PathID reads a numeric route variable.
func PathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id, err == nil && id > 0
}

// NotFound renders the not-found page model.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	data := h.Page(r, "Not found")
	data.Error = &PageError{Kind: api.KindNotFound.String(), Message: "Not found."}
	h.Render(w, http.StatusNotFound, data)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
