package models

import "io"

type Category struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

func (c Category) GetID() int64 { return c.ID }

// Course is owned by an instructor; only that teacher may edit it.
type Course struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Price       FlexString `json:"price"`
	Duration    FlexString `json:"duration"`
	Category    Ref        `json:"category"`
	Instructor  Ref        `json:"instructor"`
	Image       string     `json:"image,omitempty"`
	Banner      string     `json:"banner,omitempty"`
	LessonCount int        `json:"lessons"`
}

func (c Course) GetID() int64 { return c.ID }

// Lesson belongs to exactly one course.
type Lesson struct {
	ID          int64  `json:"id"`
	Course      Ref    `json:"course"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Video       string `json:"video"`
}

func (l Lesson) GetID() int64 { return l.ID }

// Material is a downloadable file attached to a course.
type Material struct {
	ID          int64  `json:"id"`
	Course      Ref    `json:"course"`
	Title       string `json:"title"`
	Description string `json:"description"`
	FileType    string `json:"file_type"`
	File        string `json:"file,omitempty"`
}

func (m Material) GetID() int64 { return m.ID }

// Upload is an optional file part of a multipart write.
type Upload struct {
	Filename string
	Body     io.Reader
}

// CourseFields is sent as multipart: title, description, price,
// duration, category, banner.
type CourseFields struct {
	Title       string
	Description string
	Price       string
	Duration    string
	CategoryID  int64
	Banner      *Upload
}

type LessonFields struct {
	CourseID    int64  `json:"course,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Video       string `json:"video,omitempty"`
}

// MaterialFields is sent as multipart, the file part is named "file".
type MaterialFields struct {
	CourseID    int64
	Title       string
	Description string
	FileType    string
	File        *Upload
}
