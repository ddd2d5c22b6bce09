// Package progress derives a student's course progress from the lesson
// list and the server's completed-lesson set.
package progress

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/s/lmsPortal/internal/cache"
	"github.com/s/lmsPortal/internal/models"
)

var ErrNotEnrolled = errors.New("not enrolled in course")

// Percent is round(100*completed/total), 0 for an empty course, always
// within [0, 100].
func Percent(total, completed int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	p := int(math.Round(100 * float64(completed) / float64(total)))
	return min(p, 100)
}

// CourseProgress is the derived view of one course.
type CourseProgress struct {
	CourseID     int64   `json:"course_id"`
	TotalLessons int     `json:"total_lessons"`
	Completed    []int64 `json:"completed"`
	Percent      int     `json:"percent"`
	IsCompleted  bool    `json:"is_completed"`
	// NextLessonID is the first lesson not yet completed, 0 when done.
	NextLessonID int64 `json:"next_lesson_id"`
}

// Backend records and reports lesson completion.
type Backend interface {
	CompletedLessons(ctx context.Context, courseID int64) ([]int64, error)
	CompleteLesson(ctx context.Context, lessonID int64) error
}

type Reconciler struct {
	data    *cache.Data
	backend Backend
}

func NewReconciler(data *cache.Data, backend Backend) *Reconciler {
	return &Reconciler{data: data, backend: backend}
}

// Load fetches the course, its lessons and the completed set in
// parallel. Each result is committed to the cache as soon as it arrives,
// so one failing does not discard the others.
func (r *Reconciler) Load(ctx context.Context, courseID int64) (CourseProgress, error) {
	var (
		wg                             sync.WaitGroup
		courseErr, lessonsErr, doneErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		_, courseErr = r.data.Courses.Get(ctx, courseID)
	}()
	go func() {
		defer wg.Done()
		_, lessonsErr = r.data.Lessons.List(ctx, cache.LessonParams(courseID))
	}()
	go func() {
		defer wg.Done()
		doneErr = r.refreshCompleted(ctx, courseID)
	}()
	wg.Wait()

	if err := errors.Join(courseErr, lessonsErr, doneErr); err != nil {
		return r.Snapshot(courseID), err
	}
	return r.Snapshot(courseID), nil
}

// MarkComplete records a lesson as done and then reloads the completed
// set from the server. The local set never changes on its own, so a
// repeated call cannot grow it and a failed call leaves it as it was.
func (r *Reconciler) MarkComplete(ctx context.Context, courseID, lessonID int64) (CourseProgress, error) {
	// 1. Only enrolled students may complete lessons
	if err := r.requireEnrollment(ctx, courseID); err != nil {
		return r.Snapshot(courseID), err
	}

	// 2. Record on the server
	if err := r.backend.CompleteLesson(ctx, lessonID); err != nil {
		return r.Snapshot(courseID), fmt.Errorf("complete lesson %d: %w", lessonID, err)
	}

	// 3. Trust the server's set, not a local increment
	if err := r.refreshCompleted(ctx, courseID); err != nil {
		return r.Snapshot(courseID), err
	}
	return r.Snapshot(courseID), nil
}

// Snapshot computes progress from what is cached. The lesson total is
// the course's own lesson count; the cached lesson list only stands in
// when the course did not report one.
func (r *Reconciler) Snapshot(courseID int64) CourseProgress {
	lessons := r.data.Lessons.Where(func(l models.Lesson) bool { return l.Course.ID == courseID })
	completed, _ := r.data.Completed.Get(courseID)

	total := len(lessons)
	if course, ok := r.data.Courses.Cached(courseID); ok && course.LessonCount > 0 {
		total = course.LessonCount
	}

	done := completed
	if len(lessons) >= total {
		// the list is complete: ids of lessons that no longer exist do not count
		inCourse := make(map[int64]bool, len(lessons))
		for _, l := range lessons {
			inCourse[l.ID] = true
		}
		done = make([]int64, 0, len(completed))
		for _, id := range completed {
			if inCourse[id] {
				done = append(done, id)
			}
		}
	}

	if done == nil {
		done = []int64{}
	}

	cp := CourseProgress{
		CourseID:     courseID,
		TotalLessons: total,
		Completed:    done,
		Percent:      Percent(total, len(done)),
	}
	cp.IsCompleted = cp.Percent == 100

	for _, l := range lessons {
		if !r.data.Completed.Contains(courseID, l.ID) {
			cp.NextLessonID = l.ID
			break
		}
	}
	return cp
}

func (r *Reconciler) refreshCompleted(ctx context.Context, courseID int64) error {
	ids, err := r.backend.CompletedLessons(ctx, courseID)
	if err != nil {
		return fmt.Errorf("completed lessons of course %d: %w", courseID, err)
	}
	r.data.Completed.Set(courseID, ids)
	return nil
}

// requireEnrollment checks the server-sourced enrollment list, loading it
// once when nothing is cached yet.
func (r *Reconciler) requireEnrollment(ctx context.Context, courseID int64) error {
	if _, ok := r.data.Enrollments.For(courseID); ok {
		return nil
	}
	if _, err := r.data.Enrollments.Refresh(ctx); err != nil {
		return fmt.Errorf("load enrollments: %w", err)
	}
	if _, ok := r.data.Enrollments.For(courseID); !ok {
		return fmt.Errorf("course %d: %w", courseID, ErrNotEnrolled)
	}
	return nil
}
