package cache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s/lmsPortal/internal/api"
	"github.com/s/lmsPortal/internal/models"
)

// fakeLessons serves lessons from memory and fails when err is set.
type fakeLessons struct {
	byCourse map[int64][]models.Lesson
	nextID   int64
	err      error
}

func (f *fakeLessons) List(_ context.Context, params url.Values) ([]models.Lesson, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Lesson
	for courseID, lessons := range f.byCourse {
		if matchesCourse(courseID, params.Get("course_id")) {
			out = append(out, lessons...)
		}
	}
	return out, nil
}

func (f *fakeLessons) Get(_ context.Context, id int64) (models.Lesson, error) {
	if f.err != nil {
		return models.Lesson{}, f.err
	}
	for _, lessons := range f.byCourse {
		for _, l := range lessons {
			if l.ID == id {
				return l, nil
			}
		}
	}
	return models.Lesson{}, &api.Error{Kind: api.KindNotFound}
}

func (f *fakeLessons) Create(_ context.Context, fields models.LessonFields) (models.Lesson, error) {
	if f.err != nil {
		return models.Lesson{}, f.err
	}
	f.nextID++
	l := models.Lesson{ID: f.nextID, Course: models.Ref{ID: fields.CourseID}, Title: fields.Title}
	f.byCourse[fields.CourseID] = append(f.byCourse[fields.CourseID], l)
	return l, nil
}

func (f *fakeLessons) Update(_ context.Context, id int64, fields models.LessonFields) (models.Lesson, error) {
	if f.err != nil {
		return models.Lesson{}, f.err
	}
	// the server trims titles; the cache must show its version
	return models.Lesson{ID: id, Course: models.Ref{ID: fields.CourseID}, Title: "server:" + fields.Title}, nil
}

func (f *fakeLessons) Delete(_ context.Context, id int64) error {
	return f.err
}

func lessonIDs(lessons []models.Lesson) []int64 {
	ids := make([]int64, 0, len(lessons))
	for _, l := range lessons {
		ids = append(ids, l.ID)
	}
	return ids
}

func TestStore_ListReplacesOnlyScopedSubset(t *testing.T) {
	ctx := context.Background()
	fake := &fakeLessons{byCourse: map[int64][]models.Lesson{
		1: {{ID: 10, Course: models.Ref{ID: 1}}, {ID: 11, Course: models.Ref{ID: 1}}},
		2: {{ID: 20, Course: models.Ref{ID: 2}}},
	}}
	store := NewStore[models.Lesson, models.LessonFields](fake, lessonScope)

	_, err := store.List(ctx, LessonParams(1))
	require.NoError(t, err)
	_, err = store.List(ctx, LessonParams(2))
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{10, 11, 20}, lessonIDs(store.All()))

	// lesson 11 was deleted elsewhere; refreshing course 1 must not touch course 2
	fake.byCourse[1] = fake.byCourse[1][:1]
	fresh, err := store.List(ctx, LessonParams(1))
	require.NoError(t, err)
	assert.Equal(t, []int64{10}, lessonIDs(fresh))
	assert.ElementsMatch(t, []int64{10, 20}, lessonIDs(store.All()))
}

func TestStore_FailureLeavesCacheUntouched(t *testing.T) {
	ctx := context.Background()
	fake := &fakeLessons{byCourse: map[int64][]models.Lesson{
		1: {{ID: 10, Course: models.Ref{ID: 1}, Title: "Intro"}},
	}}
	store := NewStore[models.Lesson, models.LessonFields](fake, lessonScope)
	_, err := store.List(ctx, LessonParams(1))
	require.NoError(t, err)

	fake.err = &api.Error{Kind: api.KindValidationFailed, Status: 400}

	_, err = store.List(ctx, LessonParams(1))
	assert.Error(t, err)
	_, err = store.Create(ctx, models.LessonFields{CourseID: 1, Title: "New"})
	assert.Error(t, err)
	_, err = store.Update(ctx, 10, models.LessonFields{CourseID: 1, Title: "Renamed"})
	assert.Error(t, err)
	assert.Error(t, store.Delete(ctx, 10))

	cached, ok := store.Cached(10)
	require.True(t, ok)
	assert.Equal(t, "Intro", cached.Title)
	assert.Len(t, store.All(), 1)
}

func TestStore_MutationsCommitServerResponse(t *testing.T) {
	ctx := context.Background()
	fake := &fakeLessons{byCourse: map[int64][]models.Lesson{}, nextID: 40}
	store := NewStore[models.Lesson, models.LessonFields](fake, lessonScope)

	created, err := store.Create(ctx, models.LessonFields{CourseID: 3, Title: "One"})
	require.NoError(t, err)
	assert.Equal(t, int64(41), created.ID)

	updated, err := store.Update(ctx, 41, models.LessonFields{CourseID: 3, Title: "Two"})
	require.NoError(t, err)
	cached, _ := store.Cached(41)
	assert.Equal(t, updated, cached)
	assert.Equal(t, "server:Two", cached.Title)

	require.NoError(t, store.Delete(ctx, 41))
	_, ok := store.Cached(41)
	assert.False(t, ok)
	assert.Empty(t, store.All())
}

func TestDeleteCourseForbiddenKeepsCourse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/courses/":
			w.Write([]byte(`{"count":1,"next":null,"previous":null,"results":[{"id":5,"title":"Algebra"}]}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/courses/5/":
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"detail":"You do not have permission to perform this action."}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	data := NewData(FromClient(api.New(srv.URL, srv.Client())))
	ctx := context.Background()

	_, err := data.Courses.List(ctx, nil)
	require.NoError(t, err)

	err = data.Courses.Delete(ctx, 5)
	assert.Equal(t, api.KindAuthorizationDenied, api.KindOf(err))

	course, ok := data.Courses.Cached(5)
	require.True(t, ok)
	assert.Equal(t, "Algebra", course.Title)
}

type fakeStudent struct {
	enrolled []models.Enrollment
	fail     bool
}

func (f *fakeStudent) Enrollments(context.Context) ([]models.Enrollment, error) {
	return f.enrolled, nil
}

func (f *fakeStudent) Enroll(_ context.Context, courseID int64) error {
	if f.fail {
		return &api.Error{Kind: api.KindValidationFailed, Message: "Already enrolled"}
	}
	f.enrolled = append(f.enrolled, models.Enrollment{ID: int64(len(f.enrolled) + 1), Course: models.Ref{ID: courseID}})
	return nil
}

func TestEnrollments_EnrollReloadsFromServer(t *testing.T) {
	ctx := context.Background()
	student := &fakeStudent{}
	en := &Enrollments{Listing: NewListing(student.Enrollments), api: student}

	_, ok := en.For(4)
	assert.False(t, ok)

	require.NoError(t, en.Enroll(ctx, 4))
	got, ok := en.For(4)
	require.True(t, ok)
	assert.Equal(t, int64(4), got.CourseID())

	student.fail = true
	assert.Error(t, en.Enroll(ctx, 6))
	_, ok = en.For(6)
	assert.False(t, ok)
}

func TestCompletedLessons(t *testing.T) {
	c := &CompletedLessons{sets: make(map[int64][]int64)}

	_, ok := c.Get(1)
	assert.False(t, ok)

	c.Set(1, []int64{3, 1, 3})
	got, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, []int64{1, 3}, got)
	assert.True(t, c.Contains(1, 3))
	assert.False(t, c.Contains(1, 2))
	assert.False(t, c.Contains(2, 3))
}

func TestRegistry(t *testing.T) {
	builds := 0
	r := NewRegistry(time.Minute, time.Hour, func() *Data {
		builds++
		return &Data{}
	})
	defer r.Close()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	alice := r.For(1)
	assert.Same(t, alice, r.For(1))
	assert.NotSame(t, alice, r.For(2))
	assert.Equal(t, 2, builds)

	now = now.Add(2 * time.Minute)
	assert.NotSame(t, alice, r.For(1), "idle cache expires")

	r.Drop(1)
	r.Drop(2)
	assert.Equal(t, 0, r.Len())

	r.For(3)
	now = now.Add(time.Hour)
	r.evictExpired()
	assert.Equal(t, 0, r.Len())
	r.Close()
}
