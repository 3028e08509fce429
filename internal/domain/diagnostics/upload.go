package diagnostics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/clim-up/wikaya/internal/platform/apperr"
	"github.com/clim-up/wikaya/internal/platform/blobstore"
)

const msgNoFile = "No file was submitted."

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

// formFile returns the uploaded "file" part, or nil when there is none.
func formFile(c echo.Context) (*multipart.FileHeader, error) {
	fh, err := c.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "malformed multipart body").SetInternal(err)
	}
	return fh, nil
}

// applyForm copies the listed form fields that are present onto v. An empty
// value clears a nullable field.
func applyForm(c echo.Context, v any, fields []string) error {
	form, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed multipart body").SetInternal(err)
	}
	fe := apperr.FieldErrors{}
	for _, f := range fields {
		vals, ok := form[f]
		if !ok || len(vals) == 0 {
			continue
		}
		var value any
		if vals[0] != "" {
			value = vals[0]
		}
		data, err := json.Marshal(map[string]any{f: value})
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, v); err != nil {
			fe.Add(f, "Invalid value.")
		}
	}
	return fe.Err()
}

func checkExtension(fe apperr.FieldErrors, name string, allowed []string) {
	ext := blobstore.Extension(name)
	for _, a := range allowed {
		if ext == a {
			return
		}
	}
	fe.Add("file", fmt.Sprintf("File extension %q is not allowed. Allowed extensions are: %s.",
		ext, strings.Join(allowed, ", ")))
}

// mergeValidation folds the field messages of a validation error into fe and
// passes any other error through.
func mergeValidation(fe apperr.FieldErrors, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Kind == apperr.KindValidation {
		for field, msgs := range ae.Fields {
			for _, m := range msgs {
				fe.Add(field, m)
			}
		}
		return nil
	}
	return err
}

type multipartFile struct {
	header *multipart.FileHeader
}

// store writes the upload under key. A nil upload stores nothing.
func (f *multipartFile) store(ctx context.Context, s blobstore.Store, key string) error {
	if f == nil {
		return nil
	}
	src, err := f.header.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()
	if _, err := s.Put(ctx, key, src); err != nil {
		return fmt.Errorf("store upload: %w", err)
	}
	return nil
}
