package record

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clim-up/wikaya/internal/platform/apperr"
	"github.com/clim-up/wikaya/internal/platform/auth"
	"github.com/clim-up/wikaya/pkg/pagination"
)

// Presenter turns a stored record into its response body, typically adding
// derived fields.
type Presenter[T any] func(ctx context.Context, owner uuid.UUID, v *T) (any, error)

type HandlerOption[T any] func(*Handler[T])

// WithDefaults sets the constructor used for a create body, so that fields the
// client omits keep their defaults.
func WithDefaults[T any](fn func() *T) HandlerOption[T] {
	return func(h *Handler[T]) { h.newT = fn }
}

func WithPresenter[T any](p Presenter[T]) HandlerOption[T] {
	return func(h *Handler[T]) { h.present = p }
}

// Handler serves the owner-scoped CRUD routes of one record type.
type Handler[T any] struct {
	svc     *Service[T]
	path    string
	newT    func() *T
	present Presenter[T]
}

func NewHandler[T any](svc *Service[T], path string, opts ...HandlerOption[T]) *Handler[T] {
	h := &Handler[T]{svc: svc, path: path, newT: func() *T { return new(T) }}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Handler[T]) RegisterRoutes(g *echo.Group) {
	g.GET(h.path, h.List)
	g.POST(h.path, h.Create)
	g.GET(h.path+"/:id", h.Get)
	g.PATCH(h.path+"/:id", h.Patch)
	g.DELETE(h.path+"/:id", h.Delete)
}

func (h *Handler[T]) List(c echo.Context) error {
	owner, err := Owner(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), owner, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	out, err := PresentAll(c.Request().Context(), owner, items, h.present)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(out, total, pg.Limit, pg.Offset))
}

func (h *Handler[T]) Create(c echo.Context) error {
	owner, err := Owner(c)
	if err != nil {
		return err
	}
	v := h.newT()
	if err := Bind(c, v); err != nil {
		return err
	}
	if err := h.svc.Create(c.Request().Context(), owner, v); err != nil {
		return apperr.HTTP(err)
	}
	return h.respond(c, http.StatusCreated, owner, v)
}

func (h *Handler[T]) Get(c echo.Context) error {
	owner, err := Owner(c)
	if err != nil {
		return err
	}
	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}
	v, err := h.svc.Get(c.Request().Context(), owner, id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return h.respond(c, http.StatusOK, owner, v)
}

// Patch decodes the body onto the stored record: absent fields keep their
// value and an explicit null clears a nullable one.
func (h *Handler[T]) Patch(c echo.Context) error {
	owner, err := Owner(c)
	if err != nil {
		return err
	}
	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}
	v, err := h.svc.Patch(c.Request().Context(), owner, id, func(v *T) error {
		return Bind(c, v)
	})
	if err != nil {
		return apperr.HTTP(err)
	}
	return h.respond(c, http.StatusOK, owner, v)
}

func (h *Handler[T]) Delete(c echo.Context) error {
	owner, err := Owner(c)
	if err != nil {
		return err
	}
	id, err := ParseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), owner, id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler[T]) respond(c echo.Context, status int, owner uuid.UUID, v *T) error {
	if h.present == nil {
		return c.JSON(status, v)
	}
	out, err := h.present(c.Request().Context(), owner, v)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(status, out)
}

// PresentAll applies p to every item; with a nil p the items are returned
// as they are.
func PresentAll[T any](ctx context.Context, owner uuid.UUID, items []*T, p Presenter[T]) (any, error) {
	if p == nil {
		return items, nil
	}
	out := make([]any, 0, len(items))
	for _, v := range items {
		body, err := p(ctx, owner, v)
		if err != nil {
			return nil, err
		}
		out = append(out, body)
	}
	return out, nil
}

// Owner returns the caller's account id.
func Owner(c echo.Context) (uuid.UUID, error) {
	id := auth.AccountIDFromContext(c.Request().Context())
	if id == uuid.Nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return id, nil
}

// ParseID reads a uuid path parameter. A malformed id cannot name any record,
// so it is reported as not found.
func ParseID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusNotFound, apperr.ErrNotFound.Message)
	}
	return id, nil
}

// Bind decodes the request body into v. A value of the wrong JSON type is
// reported against its field.
func Bind(c echo.Context, v any) error {
	err := c.Bind(v)
	if err == nil {
		return nil
	}
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) && ute.Field != "" {
		return echo.NewHTTPError(http.StatusBadRequest, map[string][]string{
			ute.Field: {"Incorrect type. Expected " + ute.Type.String() + "."},
		}).SetInternal(err)
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
}
