package cache

import (
	"context"
	"net/url"
	"slices"
	"strconv"
	"sync"

	"github.com/s/lmsPortal/internal/api"
	"github.com/s/lmsPortal/internal/models"
)

// StudentAPI is the enrollment side of the backend.
type StudentAPI interface {
	Enrollments(ctx context.Context) ([]models.Enrollment, error)
	Enroll(ctx context.Context, courseID int64) error
}

// Source is where a Data gets its entries from.
type Source struct {
	Courses    api.Endpoint[models.Course, models.CourseFields]
	Lessons    api.Endpoint[models.Lesson, models.LessonFields]
	Materials  api.Endpoint[models.Material, models.MaterialFields]
	Categories func(ctx context.Context) ([]models.Category, error)
	Student    StudentAPI
}

func FromClient(c *api.Client) Source {
	return Source{
		Courses:    c.Courses(),
		Lessons:    c.Lessons(),
		Materials:  c.Materials(),
		Categories: c.Categories,
		Student:    c,
	}
}

// Data is one user's cache.
type Data struct {
	Courses     *Store[models.Course, models.CourseFields]
	Lessons     *Store[models.Lesson, models.LessonFields]
	Materials   *Store[models.Material, models.MaterialFields]
	Categories  *Listing[models.Category]
	Enrollments *Enrollments
	Completed   *CompletedLessons
}

func NewData(src Source) *Data {
	return &Data{
		Courses:     NewStore(src.Courses, nil),
		Lessons:     NewStore(src.Lessons, lessonScope),
		Materials:   NewStore(src.Materials, materialScope),
		Categories:  NewListing(src.Categories),
		Enrollments: &Enrollments{Listing: NewListing(src.Student.Enrollments), api: src.Student},
		Completed:   &CompletedLessons{sets: make(map[int64][]int64)},
	}
}

// LessonParams filters the lesson list by course.
func LessonParams(courseID int64) url.Values {
	return url.Values{"course_id": {strconv.FormatInt(courseID, 10)}}
}

// MaterialParams filters the material list by course.
func MaterialParams(courseID int64) url.Values {
	return url.Values{"course": {strconv.FormatInt(courseID, 10)}}
}

func lessonScope(l models.Lesson, params url.Values) bool {
	return matchesCourse(l.Course.ID, params.Get("course_id"))
}

func materialScope(m models.Material, params url.Values) bool {
	return matchesCourse(m.Course.ID, params.Get("course"))
}

func matchesCourse(id int64, want string) bool {
	return want == "" || strconv.FormatInt(id, 10) == want
}

// ============================================================
// Enrollments
// ============================================================

type Enrollments struct {
	*Listing[models.Enrollment]
	api StudentAPI
}

// Enroll posts the enrollment and then reloads the list; the new entry
// only appears once the server reports it.
func (e *Enrollments) Enroll(ctx context.Context, courseID int64) error {
	if err := e.api.Enroll(ctx, courseID); err != nil {
		return err
	}
	_, err := e.Refresh(ctx)
	return err
}

// For finds the cached enrollment of a course.
func (e *Enrollments) For(courseID int64) (models.Enrollment, bool) {
	for _, en := range e.All() {
		if en.CourseID() == courseID {
			return en, true
		}
	}
	return models.Enrollment{}, false
}

// ============================================================
// Completed lessons
// ============================================================

// CompletedLessons holds the server's completed-lesson ids per course.
type CompletedLessons struct {
	mu   sync.RWMutex
	sets map[int64][]int64
}

// Set replaces the course's set with the server's answer, deduplicated.
func (c *CompletedLessons) Set(courseID int64, ids []int64) {
	set := slices.Clone(ids)
	slices.Sort(set)
	set = slices.Compact(set)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets[courseID] = set
}

func (c *CompletedLessons) Get(courseID int64) ([]int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	set, ok := c.sets[courseID]
	return slices.Clone(set), ok
}

func (c *CompletedLessons) Contains(courseID, lessonID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, found := slices.BinarySearch(c.sets[courseID], lessonID)
	return found
}
