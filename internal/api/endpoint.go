package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/s/lmsPortal/internal/models"
)

// Endpoint is a REST collection of T written with fields F.
type Endpoint[T any, F any] interface {
	List(ctx context.Context, params url.Values) ([]T, error)
	Get(ctx context.Context, id int64) (T, error)
	Create(ctx context.Context, fields F) (T, error)
	Update(ctx context.Context, id int64, fields F) (T, error)
	Delete(ctx context.Context, id int64) error
}

var (
	_ Endpoint[models.Course, models.CourseFields]     = Courses{}
	_ Endpoint[models.Lesson, models.LessonFields]     = Lessons{}
	_ Endpoint[models.Material, models.MaterialFields] = Materials{}
)

// ============================================================
// Courses
// ============================================================

type Courses struct{ c *Client }

func (c *Client) Courses() Courses { return Courses{c: c} }

func (e Courses) List(ctx context.Context, params url.Values) ([]models.Course, error) {
	return list[models.Course](ctx, e.c, "/courses/", params)
}

func (e Courses) Get(ctx context.Context, id int64) (models.Course, error) {
	var course models.Course
	err := e.c.doJSON(ctx, http.MethodGet, idPath("/courses/", id), nil, &course)
	return course, err
}

func (e Courses) Create(ctx context.Context, fields models.CourseFields) (models.Course, error) {
	var course models.Course
	err := e.c.doForm(ctx, http.MethodPost, "/courses/", courseForm(fields), &course)
	return course, err
}

func (e Courses) Update(ctx context.Context, id int64, fields models.CourseFields) (models.Course, error) {
	var course models.Course
	err := e.c.doForm(ctx, http.MethodPatch, idPath("/courses/", id), courseForm(fields), &course)
	return course, err
}

func (e Courses) Delete(ctx context.Context, id int64) error {
	return e.c.doJSON(ctx, http.MethodDelete, idPath("/courses/", id), nil, nil)
}

func courseForm(f models.CourseFields) *multipartForm {
	form := newMultipartForm().
		set("title", f.Title).
		set("description", f.Description).
		set("price", f.Price).
		set("duration", f.Duration)
	if f.CategoryID != 0 {
		form.set("category", strconv.FormatInt(f.CategoryID, 10))
	}
	return form.file("banner", f.Banner)
}

// ============================================================
// Lessons
// ============================================================

type Lessons struct{ c *Client }

func (c *Client) Lessons() Lessons { return Lessons{c: c} }

// List expects course_id in params; the backend returns every lesson
// the caller can see otherwise.
func (e Lessons) List(ctx context.Context, params url.Values) ([]models.Lesson, error) {
	return list[models.Lesson](ctx, e.c, "/lessons/", params)
}

func (e Lessons) Get(ctx context.Context, id int64) (models.Lesson, error) {
	var lesson models.Lesson
	err := e.c.doJSON(ctx, http.MethodGet, idPath("/lessons/", id), nil, &lesson)
	return lesson, err
}

func (e Lessons) Create(ctx context.Context, fields models.LessonFields) (models.Lesson, error) {
	var lesson models.Lesson
	err := e.c.doJSON(ctx, http.MethodPost, "/lessons/", fields, &lesson)
	return lesson, err
}

func (e Lessons) Update(ctx context.Context, id int64, fields models.LessonFields) (models.Lesson, error) {
	var lesson models.Lesson
	err := e.c.doJSON(ctx, http.MethodPatch, idPath("/lessons/", id), fields, &lesson)
	return lesson, err
}

func (e Lessons) Delete(ctx context.Context, id int64) error {
	return e.c.doJSON(ctx, http.MethodDelete, idPath("/lessons/", id), nil, nil)
}

// ============================================================
// Materials
// ============================================================

type Materials struct{ c *Client }

func (c *Client) Materials() Materials { return Materials{c: c} }

func (e Materials) List(ctx context.Context, params url.Values) ([]models.Material, error) {
	return list[models.Material](ctx, e.c, "/materials/", params)
}

func (e Materials) Get(ctx context.Context, id int64) (models.Material, error) {
	var material models.Material
	err := e.c.doJSON(ctx, http.MethodGet, idPath("/materials/", id), nil, &material)
	return material, err
}

func (e Materials) Create(ctx context.Context, fields models.MaterialFields) (models.Material, error) {
	var material models.Material
	err := e.c.doForm(ctx, http.MethodPost, "/materials/", materialForm(fields), &material)
	return material, err
}

func (e Materials) Update(ctx context.Context, id int64, fields models.MaterialFields) (models.Material, error) {
	var material models.Material
	err := e.c.doForm(ctx, http.MethodPatch, idPath("/materials/", id), materialForm(fields), &material)
	return material, err
}

func (e Materials) Delete(ctx context.Context, id int64) error {
	return e.c.doJSON(ctx, http.MethodDelete, idPath("/materials/", id), nil, nil)
}

func materialForm(f models.MaterialFields) *multipartForm {
	form := newMultipartForm().
		set("title", f.Title).
		set("description", f.Description).
		set("file_type", f.FileType)
	if f.CourseID != 0 {
		form.set("course", strconv.FormatInt(f.CourseID, 10))
	}
	return form.file("file", f.File)
}

// Categories is read-only.
func (c *Client) Categories(ctx context.Context) ([]models.Category, error) {
	return list[models.Category](ctx, c, "/categories/", nil)
}
