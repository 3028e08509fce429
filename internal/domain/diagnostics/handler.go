package diagnostics

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"path"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clim-up/wikaya/internal/domain/record"
	"github.com/clim-up/wikaya/internal/platform/apperr"
	"github.com/clim-up/wikaya/internal/platform/blobstore"
)

type Handler struct {
	labs    *documents[LabReport]
	imaging *documents[Imaging]
}

func NewHandler(labs record.Repository[LabReport], imaging record.Repository[Imaging], store blobstore.Store, now func() time.Time) *Handler {
	return &Handler{
		labs:    newDocuments(labReports, labs, store, now),
		imaging: newDocuments(imagingStudies, imaging, store, now),
	}
}

func (h *Handler) RegisterRoutes(files *echo.Group) {
	h.labs.RegisterRoutes(files)
	h.imaging.RegisterRoutes(files)
}

// documents serves one document type. Reads go through the generic record
// handler; writes also manage the stored blob.
type documents[T any] struct {
	kind  kind[T]
	svc   *record.Service[T]
	crud  *record.Handler[T]
	store blobstore.Store
	now   func() time.Time
}

func newDocuments[T any](k kind[T], repo record.Repository[T], store blobstore.Store, now func() time.Time) *documents[T] {
	svc := record.NewService(repo, k.table.Base, k.validate)
	return &documents[T]{
		kind:  k,
		svc:   svc,
		crud:  record.NewHandler(svc, k.path),
		store: store,
		now:   now,
	}
}

func (d *documents[T]) RegisterRoutes(g *echo.Group) {
	g.GET(d.kind.path, d.crud.List)
	g.POST(d.kind.path, d.Create)
	g.GET(d.kind.path+"/:id", d.crud.Get)
	g.PATCH(d.kind.path+"/:id", d.Patch)
	g.DELETE(d.kind.path+"/:id", d.Delete)
	g.GET(d.kind.path+"/:id/file", d.Download)
}

// Create takes a multipart body with the document in the "file" part. The
// blob is written only once the metadata has validated.
func (d *documents[T]) Create(c echo.Context) error {
	owner, err := record.Owner(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	v := new(T)
	fe := apperr.FieldErrors{}

	var upload *multipartFile
	if isMultipart(c.Request()) {
		if err := mergeValidation(fe, applyForm(c, v, d.kind.formFields)); err != nil {
			return err
		}
		fh, err := formFile(c)
		if err != nil {
			return err
		}
		if fh != nil {
			upload = &multipartFile{header: fh}
			checkExtension(fe, fh.Filename, d.kind.extensions)
		}
	} else if err := record.Bind(c, v); err != nil {
		return err
	}

	file := d.kind.file(v)
	*file = ""
	if upload != nil {
		*file = blobstore.NewKey(d.kind.prefix, d.now(), upload.header.Filename)
	}
	if err := mergeValidation(fe, d.kind.validate(ctx, v)); err != nil {
		return apperr.HTTP(err)
	}
	if err := fe.Err(); err != nil {
		return apperr.HTTP(err)
	}

	if err := upload.store(ctx, d.store, *file); err != nil {
		return apperr.HTTP(err)
	}
	if err := d.svc.Create(ctx, owner, v); err != nil {
		d.discard(ctx, *file)
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, v)
}

// Patch accepts multipart (fields plus an optional replacement file) or JSON
// (metadata only).
func (d *documents[T]) Patch(c echo.Context) error {
	owner, err := record.Owner(c)
	if err != nil {
		return err
	}
	id, err := record.ParseID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	var oldKey, newKey string
	v, err := d.svc.Patch(ctx, owner, id, func(v *T) error {
		file := d.kind.file(v)
		current := *file
		if !isMultipart(c.Request()) {
			if err := record.Bind(c, v); err != nil {
				return err
			}
			*file = current
			return nil
		}

		if err := applyForm(c, v, d.kind.formFields); err != nil {
			return err
		}
		fh, err := formFile(c)
		if err != nil || fh == nil {
			return err
		}
		fe := apperr.FieldErrors{}
		checkExtension(fe, fh.Filename, d.kind.extensions)
		if err := fe.Err(); err != nil {
			return err
		}
		key := blobstore.NewKey(d.kind.prefix, d.now(), fh.Filename)
		if err := (&multipartFile{header: fh}).store(ctx, d.store, key); err != nil {
			return err
		}
		oldKey, newKey, *file = current, key, key
		return nil
	})
	if err != nil {
		if newKey != "" {
			d.discard(ctx, newKey)
		}
		return apperr.HTTP(err)
	}
	if oldKey != "" {
		d.discard(ctx, oldKey)
	}
	return c.JSON(http.StatusOK, v)
}

func (d *documents[T]) Delete(c echo.Context) error {
	owner, err := record.Owner(c)
	if err != nil {
		return err
	}
	id, err := record.ParseID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	v, err := d.svc.Get(ctx, owner, id)
	if err != nil {
		return apperr.HTTP(err)
	}
	if err := d.svc.Delete(ctx, owner, id); err != nil {
		return apperr.HTTP(err)
	}
	d.discard(ctx, *d.kind.file(v))
	return c.NoContent(http.StatusNoContent)
}

// Download streams the stored document to its owner.
func (d *documents[T]) Download(c echo.Context) error {
	owner, err := record.Owner(c)
	if err != nil {
		return err
	}
	id, err := record.ParseID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	v, err := d.svc.Get(ctx, owner, id)
	if err != nil {
		return apperr.HTTP(err)
	}
	key := *d.kind.file(v)
	rc, err := d.store.Open(ctx, key)
	if errors.Is(err, blobstore.ErrNotFound) {
		return apperr.HTTP(apperr.NotFound(err))
	}
	if err != nil {
		return apperr.HTTP(err)
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": path.Base(key)}))
	return c.Stream(http.StatusOK, contentType(key), rc)
}

func (d *documents[T]) discard(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := d.store.Delete(ctx, key); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("failed to remove document blob")
	}
}

func contentType(key string) string {
	ext := path.Ext(key)
	if ext == ".dicom" {
		return "application/dicom"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return echo.MIMEOctetStream
}
