// Package fakelms is an in-memory stand-in for the LMS REST backend,
// used by handler tests. It speaks the same JSON shapes: paginated course
// lists, bare arrays elsewhere, {"detail": ...} errors and DRF field
// errors.
package fakelms

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/s/lmsPortal/internal/models"
)

// Server holds the backend state. Tokens are "t-<username>".
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	users      map[string]models.User
	passwords  map[string]string
	courses    map[int64]models.Course
	lessons    map[int64]models.Lesson
	materials  map[int64]models.Material
	categories []models.Category
	enrolled   map[int64][]int64
	completed  map[[2]int64][]int64
	nextID     int64

	down     bool
	requests []string
}

// Start seeds alice (student, id 1), bob (teacher, id 2) and carol
// (teacher, id 3). Bob teaches course 5 with lessons 50 and 51; carol
// teaches course 6.
func Start() *Server {
	s := &Server{
		users:     make(map[string]models.User),
		passwords: make(map[string]string),
		courses:   make(map[int64]models.Course),
		lessons:   make(map[int64]models.Lesson),
		materials: make(map[int64]models.Material),
		enrolled:  make(map[int64][]int64),
		completed: make(map[[2]int64][]int64),
		nextID:    100,
	}

	s.AddUser(models.User{ID: 1, Username: "alice", Role: models.RoleStudent}, "x")
	s.AddUser(models.User{ID: 2, Username: "bob", Role: models.RoleTeacher, FirstName: "Bob", LastName: "Stone"}, "x")
	s.AddUser(models.User{ID: 3, Username: "carol", Role: models.RoleTeacher}, "x")

	s.categories = []models.Category{{ID: 1, Title: "Math"}, {ID: 2, Title: "Programming"}}
	s.courses[5] = models.Course{
		ID: 5, Title: "Algebra", Description: "Learn **algebra**", Price: "10.00", Duration: "4",
		Category:   models.Ref{ID: 1, Title: "Math"},
		Instructor: models.Ref{ID: 2, Username: "bob", FullName: "Bob Stone"},
	}
	s.courses[6] = models.Course{
		ID: 6, Title: "Go", Price: "20.00", Duration: "6",
		Category:   models.Ref{ID: 2, Title: "Programming"},
		Instructor: models.Ref{ID: 3, Username: "carol"},
	}
	s.lessons[50] = models.Lesson{ID: 50, Course: models.Ref{ID: 5}, Title: "Variables"}
	s.lessons[51] = models.Lesson{ID: 51, Course: models.Ref{ID: 5}, Title: "Equations"}

	s.Server = httptest.NewServer(s)
	return s
}

func (s *Server) AddUser(u models.User, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users["t-"+u.Username] = u
	s.passwords[u.Username] = password
}

// Enroll registers a student directly, bypassing the API.
func (s *Server) Enroll(userID, courseID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enrolled[userID] = append(s.enrolled[userID], courseID)
}

func (s *Server) Completed(userID, courseID int64) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.completed[[2]int64{userID, courseID}])
}

func (s *Server) Course(id int64) (models.Course, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courses[id]
	return c, ok
}

func (s *Server) Lesson(id int64) (models.Lesson, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lessons[id]
	return l, ok
}

func (s *Server) Material(id int64) (models.Material, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.materials[id]
	return m, ok
}

// SetDown makes every call fail with a 503.
func (s *Server) SetDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

// Calls lists "METHOD /path" of every request so far.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// Revoke invalidates a user's token, as an expired session would.
func (s *Server) Revoke(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, "t-"+username)
}

// ============================================================
// HTTP
// ============================================================

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, r.Method+" "+r.URL.Path)
	if s.down {
		detail(w, http.StatusServiceUnavailable, "Service unavailable.")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api")
	switch {
	case path == "/token/" && r.Method == http.MethodPost:
		s.token(w, r)
		return
	case path == "/users/" && r.Method == http.MethodPost:
		s.register(w, r)
		return
	}

	user, ok := s.users[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
	if !ok {
		detail(w, http.StatusUnauthorized, "Given token not valid for any token type")
		return
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	var id int64
	if len(parts) > 1 {
		id, _ = strconv.ParseInt(parts[len(parts)-1], 10, 64)
	}

	switch {
	case path == "/users/":
		writeJSON(w, http.StatusOK, []models.User{user})
	case path == "/categories/":
		writeJSON(w, http.StatusOK, s.categories)
	case parts[0] == "courses":
		s.coursesRoute(w, r, user, id)
	case parts[0] == "lessons":
		s.lessonsRoute(w, r, user, id)
	case parts[0] == "materials":
		s.materialsRoute(w, r, user, id)
	case path == "/student/courses/":
		s.enrollments(w, user)
	case path == "/student/enroll/":
		s.enroll(w, r, user)
	case strings.HasPrefix(path, "/student/completed-lessons/"):
		writeJSON(w, http.StatusOK, nonNil(s.completed[[2]int64{user.ID, id}]))
	case path == "/student/complete-lesson/":
		s.completeLesson(w, r, user)
	default:
		detail(w, http.StatusNotFound, "Not found.")
	}
}

func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		detail(w, http.StatusBadRequest, "Malformed body.")
		return
	}
	if pw, ok := s.passwords[creds.Username]; !ok || pw != creds.Password {
		detail(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}
	writeJSON(w, http.StatusOK, models.Tokens{Access: "t-" + creds.Username, Refresh: "r-" + creds.Username})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var reg models.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		detail(w, http.StatusBadRequest, "Malformed body.")
		return
	}
	if _, taken := s.passwords[reg.Username]; taken {
		writeJSON(w, http.StatusBadRequest, map[string][]string{
			"username": {"A user with that username already exists."},
		})
		return
	}
	s.nextID++
	u := models.User{ID: s.nextID, Username: reg.Username, Email: reg.Email, Role: reg.Role, MobileNo: reg.MobileNo}
	s.users["t-"+u.Username] = u
	s.passwords[u.Username] = reg.Password
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) coursesRoute(w http.ResponseWriter, r *http.Request, user models.User, id int64) {
	if id == 0 {
		switch r.Method {
		case http.MethodGet:
			list := sortedValues(s.courses)
			writeJSON(w, http.StatusOK, map[string]any{"count": len(list), "next": nil, "previous": nil, "results": list})
		case http.MethodPost:
			if user.Role != models.RoleTeacher {
				detail(w, http.StatusForbidden, "Only teachers can create courses.")
				return
			}
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				detail(w, http.StatusBadRequest, "Expected multipart.")
				return
			}
			if r.FormValue("title") == "" {
				writeJSON(w, http.StatusBadRequest, map[string][]string{"title": {"This field is required."}})
				return
			}
			s.nextID++
			c := models.Course{ID: s.nextID, Instructor: models.Ref{ID: user.ID, Username: user.Username}}
			s.applyCourseForm(&c, r)
			s.courses[c.ID] = c
			writeJSON(w, http.StatusCreated, c)
		}
		return
	}

	c, ok := s.courses[id]
	if !ok {
		detail(w, http.StatusNotFound, "Not found.")
		return
	}

	switch r.Method {
	case http.MethodGet:
		c.LessonCount = s.lessonCount(id)
		writeJSON(w, http.StatusOK, c)
	case http.MethodPatch:
		if c.Instructor.ID != user.ID {
			detail(w, http.StatusForbidden, "You do not have permission to perform this action.")
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			detail(w, http.StatusBadRequest, "Expected multipart.")
			return
		}
		s.applyCourseForm(&c, r)
		s.courses[id] = c
		writeJSON(w, http.StatusOK, c)
	case http.MethodDelete:
		if c.Instructor.ID != user.ID {
			detail(w, http.StatusForbidden, "You do not have permission to perform this action.")
			return
		}
		delete(s.courses, id)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) applyCourseForm(c *models.Course, r *http.Request) {
	if v := r.FormValue("title"); v != "" {
		c.Title = v
	}
	if v := r.FormValue("description"); v != "" {
		c.Description = v
	}
	if v := r.FormValue("price"); v != "" {
		c.Price = models.FlexString(v)
	}
	if v := r.FormValue("duration"); v != "" {
		c.Duration = models.FlexString(v)
	}
	if v, err := strconv.ParseInt(r.FormValue("category"), 10, 64); err == nil {
		for _, cat := range s.categories {
			if cat.ID == v {
				c.Category = models.Ref{ID: cat.ID, Title: cat.Title}
			}
		}
	}
	if _, header, err := r.FormFile("banner"); err == nil {
		c.Banner = "/media/banners/" + header.Filename
	}
}

func (s *Server) lessonsRoute(w http.ResponseWriter, r *http.Request, user models.User, id int64) {
	if id == 0 {
		switch r.Method {
		case http.MethodGet:
			courseID, _ := strconv.ParseInt(r.URL.Query().Get("course_id"), 10, 64)
			out := []models.Lesson{}
			for _, l := range sortedValues(s.lessons) {
				if courseID == 0 || l.Course.ID == courseID {
					out = append(out, l)
				}
			}
			writeJSON(w, http.StatusOK, out)
		case http.MethodPost:
			var f models.LessonFields
			if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
				detail(w, http.StatusBadRequest, "Malformed body.")
				return
			}
			if !s.teaches(user, f.CourseID) {
				detail(w, http.StatusForbidden, "You do not have permission to perform this action.")
				return
			}
			s.nextID++
			l := models.Lesson{ID: s.nextID, Course: models.Ref{ID: f.CourseID}, Title: f.Title, Description: f.Description, Video: f.Video}
			s.lessons[l.ID] = l
			writeJSON(w, http.StatusCreated, l)
		}
		return
	}

	l, ok := s.lessons[id]
	if !ok {
		detail(w, http.StatusNotFound, "Not found.")
		return
	}
	if r.Method != http.MethodGet && !s.teaches(user, l.Course.ID) {
		detail(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, l)
	case http.MethodPatch:
		var f models.LessonFields
		if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
			detail(w, http.StatusBadRequest, "Malformed body.")
			return
		}
		if f.Title != "" {
			l.Title = f.Title
		}
		if f.Description != "" {
			l.Description = f.Description
		}
		if f.Video != "" {
			l.Video = f.Video
		}
		s.lessons[id] = l
		writeJSON(w, http.StatusOK, l)
	case http.MethodDelete:
		delete(s.lessons, id)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) materialsRoute(w http.ResponseWriter, r *http.Request, user models.User, id int64) {
	if id == 0 {
		switch r.Method {
		case http.MethodGet:
			// like the real backend, the course filter is ignored
			writeJSON(w, http.StatusOK, sortedValues(s.materials))
		case http.MethodPost:
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				detail(w, http.StatusBadRequest, "Expected multipart.")
				return
			}
			courseID, _ := strconv.ParseInt(r.FormValue("course"), 10, 64)
			if !s.teaches(user, courseID) {
				detail(w, http.StatusForbidden, "You do not have permission to perform this action.")
				return
			}
			_, header, err := r.FormFile("file")
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string][]string{"file": {"No file was submitted."}})
				return
			}
			s.nextID++
			m := models.Material{
				ID: s.nextID, Course: models.Ref{ID: courseID},
				Title: r.FormValue("title"), Description: r.FormValue("description"),
				FileType: r.FormValue("file_type"), File: "/media/materials/" + header.Filename,
			}
			s.materials[m.ID] = m
			writeJSON(w, http.StatusCreated, m)
		}
		return
	}

	m, ok := s.materials[id]
	if !ok {
		detail(w, http.StatusNotFound, "Not found.")
		return
	}
	if r.Method != http.MethodGet && !s.teaches(user, m.Course.ID) {
		detail(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, m)
	case http.MethodPatch:
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			detail(w, http.StatusBadRequest, "Expected multipart.")
			return
		}
		if v := r.FormValue("title"); v != "" {
			m.Title = v
		}
		if v := r.FormValue("file_type"); v != "" {
			m.FileType = v
		}
		s.materials[id] = m
		writeJSON(w, http.StatusOK, m)
	case http.MethodDelete:
		delete(s.materials, id)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) enrollments(w http.ResponseWriter, user models.User) {
	out := []models.Enrollment{}
	for i, courseID := range s.enrolled[user.ID] {
		c := s.courses[courseID]
		done := len(s.completed[[2]int64{user.ID, courseID}])
		total := s.lessonCount(courseID)
		var pct float64
		if total > 0 {
			pct = float64(done) / float64(total) * 100
		}
		out = append(out, models.Enrollment{
			ID:          int64(i + 1),
			Course:      models.Ref{ID: courseID, Title: c.Title},
			CourseTitle: c.Title,
			Progress:    pct,
			IsCompleted: total > 0 && done == total,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) enroll(w http.ResponseWriter, r *http.Request, user models.User) {
	if user.Role != models.RoleStudent {
		detail(w, http.StatusForbidden, "Only students can enroll.")
		return
	}
	var body struct {
		CourseID int64 `json:"course_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		detail(w, http.StatusBadRequest, "Malformed body.")
		return
	}
	if _, ok := s.courses[body.CourseID]; !ok {
		detail(w, http.StatusNotFound, "Course not found.")
		return
	}
	if slices.Contains(s.enrolled[user.ID], body.CourseID) {
		detail(w, http.StatusBadRequest, "Already enrolled.")
		return
	}
	s.enrolled[user.ID] = append(s.enrolled[user.ID], body.CourseID)
	writeJSON(w, http.StatusCreated, map[string]string{"detail": "Enrolled successfully."})
}

func (s *Server) completeLesson(w http.ResponseWriter, r *http.Request, user models.User) {
	var body struct {
		LessonID int64 `json:"lesson_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		detail(w, http.StatusBadRequest, "Malformed body.")
		return
	}
	l, ok := s.lessons[body.LessonID]
	if !ok {
		detail(w, http.StatusNotFound, "Lesson not found.")
		return
	}
	key := [2]int64{user.ID, l.Course.ID}
	if !slices.Contains(s.completed[key], l.ID) {
		s.completed[key] = append(s.completed[key], l.ID)
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "Lesson marked as completed."})
}

func (s *Server) teaches(user models.User, courseID int64) bool {
	c, ok := s.courses[courseID]
	return ok && c.Instructor.ID == user.ID
}

func (s *Server) lessonCount(courseID int64) int {
	n := 0
	for _, l := range s.lessons {
		if l.Course.ID == courseID {
			n++
		}
	}
	return n
}

type identified interface{ GetID() int64 }

func sortedValues[T identified](m map[int64]T) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b T) int { return int(a.GetID() - b.GetID()) })
	return out
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func detail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

// URL of the API root, as API_BASE_URL would be configured.
func (s *Server) APIURL() string {
	return fmt.Sprintf("%s/api", s.URL)
}
