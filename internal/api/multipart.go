package api

import (
	"bytes"
	"io"
	"mime/multipart"

	"github.com/s/lmsPortal/internal/models"
)

// multipartForm collects text fields and at most one file per name.
// Empty text fields are skipped so PATCH only touches what was sent.
type multipartForm struct {
	fields [][2]string
	files  map[string]*models.Upload
}

func newMultipartForm() *multipartForm {
	return &multipartForm{files: make(map[string]*models.Upload)}
}

func (f *multipartForm) set(name, value string) *multipartForm {
	if value != "" {
		f.fields = append(f.fields, [2]string{name, value})
	}
	return f
}

func (f *multipartForm) file(name string, upload *models.Upload) *multipartForm {
	if upload != nil && upload.Body != nil {
		f.files[name] = upload
	}
	return f
}

func (f *multipartForm) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, kv := range f.fields {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", err
		}
	}
	for name, upload := range f.files {
		part, err := w.CreateFormFile(name, upload.Filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, upload.Body); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
