package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s/lmsPortal/internal/api"
	"github.com/s/lmsPortal/internal/cache"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		total, completed, want int
	}{
		{0, 0, 0},
		{0, 3, 0},
		{1, 0, 0},
		{1, 1, 100},
		{3, 1, 33},
		{3, 2, 67},
		{8, 1, 13},
		{200, 199, 100},
		{4, 9, 100},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, Percent(tc.total, tc.completed), "Percent(%d, %d)", tc.total, tc.completed)
	}
}

func TestPercent_MatchesRoundedRatio(t *testing.T) {
	for total := 1; total <= 60; total++ {
		for done := 0; done <= total; done++ {
			want := int(math.Round(100 * float64(done) / float64(total)))
			got := Percent(total, done)
			require.Equal(t, want, got, "Percent(%d, %d)", total, done)
			require.GreaterOrEqual(t, got, 0)
			require.LessOrEqual(t, got, 100)
		}
	}
}

// fakeLMS is a tiny backend: course 1 has lessons 10, 11, 12 and the
// caller is enrolled in it.
type fakeLMS struct {
	mu            sync.Mutex
	completed     []int64
	failComplete  bool
	failCompleted bool
	completeHits  int
}

func (f *fakeLMS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case "/courses/1/":
		w.Write([]byte(`{"id":1,"title":"Go","lessons":3}`))
	case "/lessons/":
		w.Write([]byte(`[{"id":10,"course":1},{"id":11,"course":1},{"id":12,"course":1}]`))
	case "/student/courses/":
		w.Write([]byte(`[{"id":1,"course":{"id":1,"title":"Go"},"progress":0}]`))
	case "/student/completed-lessons/1/":
		if f.failCompleted {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(f.completed)
	case "/student/complete-lesson/":
		f.completeHits++
		if f.failComplete {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var body struct {
			LessonID int64 `json:"lesson_id"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if !slices.Contains(f.completed, body.LessonID) {
			f.completed = append(f.completed, body.LessonID)
		}
		w.Write([]byte(`{"detail":"ok"}`))
	default:
		http.NotFound(w, r)
	}
}

func newReconciler(t *testing.T, lms *fakeLMS) *Reconciler {
	t.Helper()
	srv := httptest.NewServer(lms)
	t.Cleanup(srv.Close)

	client := api.New(srv.URL, srv.Client())
	return NewReconciler(cache.NewData(cache.FromClient(client)), client)
}

func TestLoad(t *testing.T) {
	r := newReconciler(t, &fakeLMS{completed: []int64{10}})

	cp, err := r.Load(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, cp.TotalLessons)
	assert.Equal(t, []int64{10}, cp.Completed)
	assert.Equal(t, 33, cp.Percent)
	assert.False(t, cp.IsCompleted)
	assert.Equal(t, int64(11), cp.NextLessonID)
}

func TestLoad_CommitsEachFetchIndependently(t *testing.T) {
	r := newReconciler(t, &fakeLMS{failCompleted: true})

	cp, err := r.Load(context.Background(), 1)
	assert.Equal(t, api.KindServerError, api.KindOf(err))

	// lessons and course still landed in the cache
	assert.Len(t, r.data.Lessons.All(), 3)
	_, ok := r.data.Courses.Cached(1)
	assert.True(t, ok)
	assert.Equal(t, 3, cp.TotalLessons)
	assert.Zero(t, cp.Percent)
	assert.Equal(t, int64(10), cp.NextLessonID)
}

// pagedLMS reports 15 lessons for course 1 but lists them 10 per page,
// the way the backend's paginator does.
func pagedLMS(t *testing.T, followable bool) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/courses/1/":
			w.Write([]byte(`{"id":1,"title":"Go","lessons":15}`))
		case "/lessons/":
			first, last, next := 1, 10, "null"
			if r.URL.Query().Get("page") == "2" {
				first, last = 11, 15
			} else if followable {
				next = fmt.Sprintf("%q", srv.URL+"/lessons/?course_id=1&page=2")
			}
			var results []map[string]int
			for id := first; id <= last; id++ {
				results = append(results, map[string]int{"id": id, "course": 1})
			}
			page, _ := json.Marshal(results)
			fmt.Fprintf(w, `{"count":15,"next":%s,"previous":null,"results":%s}`, next, page)
		case "/student/completed-lessons/1/":
			w.Write([]byte(`[1,2,3,4,5,6,7,8,9,10]`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLoad_TotalIsTheCourseLessonCount(t *testing.T) {
	tests := []struct {
		name       string
		followable bool
		next       int64
	}{
		{"pages followed", true, 11},
		{"only first page served", false, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := pagedLMS(t, tc.followable)
			client := api.New(srv.URL, srv.Client())
			r := NewReconciler(cache.NewData(cache.FromClient(client)), client)

			cp, err := r.Load(context.Background(), 1)
			require.NoError(t, err)
			assert.Equal(t, 15, cp.TotalLessons)
			assert.Len(t, cp.Completed, 10)
			assert.Equal(t, 67, cp.Percent)
			assert.False(t, cp.IsCompleted)
			assert.Equal(t, tc.next, cp.NextLessonID)
		})
	}
}

func TestMarkComplete_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	lms := &fakeLMS{completed: []int64{10}}
	r := newReconciler(t, lms)
	_, err := r.Load(ctx, 1)
	require.NoError(t, err)

	first, err := r.MarkComplete(ctx, 1, 11)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11}, first.Completed)
	assert.Equal(t, 67, first.Percent)

	second, err := r.MarkComplete(ctx, 1, 11)
	require.NoError(t, err)
	assert.Len(t, second.Completed, len(first.Completed))
	assert.Equal(t, first.Percent, second.Percent)
}

func TestMarkComplete_ReachesHundred(t *testing.T) {
	ctx := context.Background()
	r := newReconciler(t, &fakeLMS{completed: []int64{10, 11}})
	_, err := r.Load(ctx, 1)
	require.NoError(t, err)

	cp, err := r.MarkComplete(ctx, 1, 12)
	require.NoError(t, err)
	assert.Equal(t, 100, cp.Percent)
	assert.True(t, cp.IsCompleted)
	assert.Zero(t, cp.NextLessonID)
}

func TestMarkComplete_FailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	lms := &fakeLMS{completed: []int64{10}, failComplete: true}
	r := newReconciler(t, lms)
	before, err := r.Load(ctx, 1)
	require.NoError(t, err)

	after, err := r.MarkComplete(ctx, 1, 11)
	assert.Equal(t, api.KindServerError, api.KindOf(err))
	assert.Equal(t, before, after)
}

func TestMarkComplete_RequiresEnrollment(t *testing.T) {
	lms := &fakeLMS{}
	r := newReconciler(t, lms)

	_, err := r.MarkComplete(context.Background(), 2, 30)
	assert.True(t, errors.Is(err, ErrNotEnrolled))
	assert.Zero(t, lms.completeHits)
}

func TestSnapshot_EmptyCourse(t *testing.T) {
	r := newReconciler(t, &fakeLMS{})
	cp := r.Snapshot(99)
	assert.Zero(t, cp.TotalLessons)
	assert.Zero(t, cp.Percent)
	assert.False(t, cp.IsCompleted)
	assert.Empty(t, cp.Completed)
}
