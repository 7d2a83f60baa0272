package validators

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/wishlist-backend/pkg/errors"
)

// ErrFileMissing is returned by File when the form has no part for the field.
var ErrFileMissing = errors.New("file missing")

// multipartMemory is how much of the form is buffered before spilling to disk.
const multipartMemory = 8 << 20

// MultipartForm wraps a parsed multipart request.
type MultipartForm struct {
	form *multipart.Form
}

// UploadedFile is one fully read file part.
type UploadedFile struct {
	Filename string
	Data     []byte
}

// ParseMultipart caps the body at maxBytes and parses it as multipart/form-data.
func ParseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) (*MultipartForm, error) {
	if !strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expected multipart/form-data body")
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "request body too large")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body")
	}
	return &MultipartForm{form: r.MultipartForm}, nil
}

// Value returns the first value of a text field, trimmed.
func (m *MultipartForm) Value(field string) string {
	if m == nil || m.form == nil {
		return ""
	}
	if values := m.form.Value[field]; len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}

// OptionalValue returns nil when the field is absent or blank.
func (m *MultipartForm) OptionalValue(field string) *string {
	v := m.Value(field)
	if v == "" {
		return nil
	}
	return &v
}

// File reads the first file part for field. An empty filename is treated as missing.
func (m *MultipartForm) File(field string) (*UploadedFile, error) {
	if m == nil || m.form == nil {
		return nil, ErrFileMissing
	}
	headers := m.form.File[field]
	if len(headers) == 0 || headers[0].Filename == "" {
		return nil, ErrFileMissing
	}
	f, err := headers[0].Open()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read uploaded file")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read uploaded file")
	}
	return &UploadedFile{Filename: headers[0].Filename, Data: data}, nil
}
