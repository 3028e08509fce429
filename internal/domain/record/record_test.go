package record

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/labstack/echo/v4"

	"github.com/clim-up/wikaya/internal/platform/apperr"
	"github.com/clim-up/wikaya/internal/platform/auth"
)

type note struct {
	Base
	Title string      `json:"title"`
	Body  *string     `json:"body"`
	Due   pgtype.Date `json:"due"`
}

var noteTable = Table[note]{
	Name:    "notes",
	Columns: []string{"title", "body", "due"},
	Fields:  func(n *note) []any { return []any{&n.Title, &n.Body, &n.Due} },
	Base:    func(n *note) *Base { return &n.Base },
}

func validateNote(_ context.Context, n *note) error {
	fe := apperr.FieldErrors{}
	if strings.TrimSpace(n.Title) == "" {
		fe.Add("title", "This field is required.")
	}
	return fe.Err()
}

func newNoteService() (*Service[note], *MemoryRepository[note]) {
	repo := NewMemoryRepository(noteTable)
	return NewService[note](repo, noteTable.Base, validateNote), repo
}

func TestTableSQL(t *testing.T) {
	if got, want := noteTable.InsertSQL(),
		"INSERT INTO notes (id, user_id, title, body, due, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)"; got != want {
		t.Errorf("InsertSQL:\n got %s\nwant %s", got, want)
	}
	if got, want := noteTable.UpdateSQL(),
		"UPDATE notes SET title = $3, body = $4, due = $5, updated_at = $6 WHERE id = $1 AND user_id = $2"; got != want {
		t.Errorf("UpdateSQL:\n got %s\nwant %s", got, want)
	}
	for name, sql := range map[string]string{
		"get":    noteTable.GetSQL(),
		"delete": noteTable.DeleteSQL(),
		"count":  noteTable.CountSQL(),
		"list":   noteTable.ListSQL(),
	} {
		if !strings.Contains(sql, "user_id = $") {
			t.Errorf("%s statement is not owner scoped: %s", name, sql)
		}
	}
	if !strings.HasSuffix(noteTable.ListSQL(), "ORDER BY created_at ASC, id ASC LIMIT $2 OFFSET $3") {
		t.Errorf("unexpected list order: %s", noteTable.ListSQL())
	}

	newest := noteTable
	newest.OrderBy = "created_at DESC, id DESC"
	if !strings.Contains(newest.ListSQL(), "ORDER BY created_at DESC") {
		t.Errorf("OrderBy not applied: %s", newest.ListSQL())
	}
}

func TestTableListBySQL(t *testing.T) {
	sql, err := noteTable.ListBySQL("title")
	if err != nil {
		t.Fatalf("ListBySQL: %v", err)
	}
	if !strings.Contains(sql, "WHERE user_id = $1 AND title = $2") {
		t.Errorf("unexpected statement: %s", sql)
	}
	if _, err := noteTable.ListBySQL("title; DROP TABLE notes"); err == nil {
		t.Error("expected unknown column to be rejected")
	}
}

func TestTableArgsMatchPlaceholders(t *testing.T) {
	n := &note{Title: "x"}
	if got := len(noteTable.insertArgs(n)); got != 7 {
		t.Errorf("insert args = %d, want 7", got)
	}
	if got := len(noteTable.updateArgs(n)); got != 6 {
		t.Errorf("update args = %d, want 6", got)
	}
}

func TestService_CreateStampsOwner(t *testing.T) {
	svc, _ := newNoteService()
	owner, other := uuid.New(), uuid.New()
	forged := uuid.New()

	n := &note{Base: Base{ID: forged, UserID: other}, Title: "first"}
	if err := svc.Create(context.Background(), owner, n); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n.UserID != owner {
		t.Errorf("owner = %s, want %s", n.UserID, owner)
	}
	if n.ID == forged || n.ID == uuid.Nil {
		t.Errorf("expected a fresh id, got %s", n.ID)
	}
	if n.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
}

func TestService_CreateValidates(t *testing.T) {
	svc, repo := newNoteService()
	err := svc.Create(context.Background(), uuid.New(), &note{})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	items, total, _ := repo.List(context.Background(), uuid.New(), 10, 0)
	if total != 0 || len(items) != 0 {
		t.Error("invalid record was stored")
	}
}

func TestService_OwnershipIsolation(t *testing.T) {
	svc, _ := newNoteService()
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	n := &note{Title: "alice's"}
	if err := svc.Create(ctx, alice, n); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Get(ctx, bob, n.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get by other owner: expected not found, got %v", err)
	}
	if _, err := svc.Patch(ctx, bob, n.ID, func(v *note) error { v.Title = "stolen"; return nil }); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Patch by other owner: expected not found, got %v", err)
	}
	if err := svc.Delete(ctx, bob, n.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Delete by other owner: expected not found, got %v", err)
	}
	items, total, err := svc.List(ctx, bob, 10, 0)
	if err != nil || total != 0 || len(items) != 0 {
		t.Errorf("List by other owner: got %d items (total %d), err %v", len(items), total, err)
	}

	got, err := svc.Get(ctx, alice, n.ID)
	if err != nil {
		t.Fatalf("Get by owner: %v", err)
	}
	if got.Title != "alice's" {
		t.Errorf("record was modified by another owner: %q", got.Title)
	}
}

func TestService_PatchRestoresIdentity(t *testing.T) {
	svc, repo := newNoteService()
	ctx := context.Background()
	owner := uuid.New()
	repo.SetClock(func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) })

	n := &note{Title: "a"}
	if err := svc.Create(ctx, owner, n); err != nil {
		t.Fatalf("Create: %v", err)
	}
	created := n.CreatedAt

	repo.SetClock(func() time.Time { return time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC) })
	got, err := svc.Patch(ctx, owner, n.ID, func(v *note) error {
		v.ID = uuid.New()
		v.UserID = uuid.New()
		v.CreatedAt = time.Time{}
		v.Title = "b"
		return nil
	})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if got.ID != n.ID || got.UserID != owner || !got.CreatedAt.Equal(created) {
		t.Errorf("identity columns changed: %+v", got.Base)
	}
	if !got.UpdatedAt.After(created) {
		t.Errorf("updated_at not advanced: %v", got.UpdatedAt)
	}
	if got.Title != "b" {
		t.Errorf("title = %q, want b", got.Title)
	}
}

func TestService_PatchValidates(t *testing.T) {
	svc, _ := newNoteService()
	ctx := context.Background()
	owner := uuid.New()
	n := &note{Title: "keep"}
	_ = svc.Create(ctx, owner, n)

	_, err := svc.Patch(ctx, owner, n.ID, func(v *note) error { v.Title = ""; return nil })
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	got, _ := svc.Get(ctx, owner, n.ID)
	if got.Title != "keep" {
		t.Errorf("invalid patch was stored: %q", got.Title)
	}
}

func TestMemoryRepository_OrderAndPaging(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	asc := NewMemoryRepository(noteTable)
	descTable := noteTable
	descTable.OrderBy = "created_at DESC, id DESC"
	desc := NewMemoryRepository(descTable)

	for _, title := range []string{"one", "two", "three"} {
		_ = asc.Create(ctx, &note{Base: Base{UserID: owner}, Title: title})
		_ = desc.Create(ctx, &note{Base: Base{UserID: owner}, Title: title})
	}

	items, total, _ := asc.List(ctx, owner, 2, 0)
	if total != 3 || len(items) != 2 || items[0].Title != "one" {
		t.Errorf("asc page: total %d, items %+v", total, items)
	}
	items, _, _ = asc.List(ctx, owner, 2, 2)
	if len(items) != 1 || items[0].Title != "three" {
		t.Errorf("asc second page: %+v", items)
	}
	items, _, _ = desc.List(ctx, owner, 10, 0)
	if len(items) != 3 || items[0].Title != "three" || items[2].Title != "one" {
		t.Errorf("desc order: %+v", items)
	}
	items, _, _ = asc.List(ctx, owner, 10, 50)
	if len(items) != 0 {
		t.Errorf("offset past end: %+v", items)
	}
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(noteTable)
	owner := uuid.New()
	body := "original"
	n := &note{Base: Base{UserID: owner}, Title: "t", Body: &body}
	_ = repo.Create(ctx, n)

	got, _ := repo.Get(ctx, owner, n.ID)
	*got.Body = "mutated"
	again, _ := repo.Get(ctx, owner, n.ID)
	if *again.Body != "original" {
		t.Errorf("stored record shares memory with caller: %q", *again.Body)
	}
}

func TestMemoryRepository_UniqueAndListBy(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(noteTable).Unique(func(existing, candidate *note) bool {
		return existing.UserID == candidate.UserID && existing.Title == candidate.Title
	})
	owner := uuid.New()
	if err := repo.Create(ctx, &note{Base: Base{UserID: owner}, Title: "dup"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := repo.Create(ctx, &note{Base: Base{UserID: owner}, Title: "dup"})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := repo.Create(ctx, &note{Base: Base{UserID: uuid.New()}, Title: "dup"}); err != nil {
		t.Errorf("other owner should not conflict: %v", err)
	}

	found, err := repo.ListBy(ctx, owner, "title", "dup")
	if err != nil || len(found) != 1 {
		t.Errorf("ListBy: %d items, err %v", len(found), err)
	}
	if _, err := repo.ListBy(ctx, owner, "missing", "x"); err == nil {
		t.Error("expected error for unknown column")
	}
}

func TestDateHelpers(t *testing.T) {
	now := time.Date(2025, 6, 15, 23, 30, 0, 0, time.UTC)
	if !BeforeDay(Date(2025, 6, 14), now) {
		t.Error("yesterday should be before today")
	}
	if BeforeDay(Date(2025, 6, 15), now) {
		t.Error("today is not before today")
	}
	if !AfterDay(Date(2025, 6, 16), now) {
		t.Error("tomorrow should be after today")
	}
	if BeforeDay(pgtype.Date{}, now) || AfterDay(pgtype.Date{}, now) {
		t.Error("null date compares false")
	}
	if !Before(Date(2025, 1, 1), Date(2025, 1, 2)) || Before(Date(2025, 1, 2), Date(2025, 1, 2)) {
		t.Error("Before is a strict comparison")
	}
}

// -- HTTP --

func newNoteServer(t *testing.T) (*echo.Echo, *Service[note]) {
	t.Helper()
	svc, _ := newNoteService()
	e := echo.New()
	h := NewHandler(svc, "/notes", WithPresenter[note](func(_ context.Context, _ uuid.UUID, n *note) (any, error) {
		return map[string]any{"id": n.ID, "title": n.Title, "body": n.Body, "due": n.Due, "shout": strings.ToUpper(n.Title)}, nil
	}))
	h.RegisterRoutes(e.Group("/api"))
	return e, svc
}

func doRequest(e *echo.Echo, owner uuid.UUID, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if owner != uuid.Nil {
		req = req.WithContext(auth.WithAccountID(req.Context(), owner))
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_CRUD(t *testing.T) {
	e, _ := newNoteServer(t)
	owner := uuid.New()

	rec := doRequest(e, owner, http.MethodPost, "/api/notes", `{"title":"milk","body":"2 litres","due":"2025-04-01"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d body %s", rec.Code, rec.Body.String())
	}
	var created map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created["shout"] != "MILK" || created["due"] != "2025-04-01" {
		t.Errorf("unexpected create body: %v", created)
	}
	id := created["id"].(string)

	rec = doRequest(e, owner, http.MethodPatch, "/api/notes/"+id, `{"body":null}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: status %d body %s", rec.Code, rec.Body.String())
	}
	var patched map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &patched)
	if patched["title"] != "milk" || patched["body"] != nil || patched["due"] != "2025-04-01" {
		t.Errorf("partial update lost or kept the wrong fields: %v", patched)
	}

	rec = doRequest(e, owner, http.MethodGet, "/api/notes?limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	var page struct {
		Data  []map[string]any `json:"data"`
		Total int              `json:"total"`
		Limit int              `json:"limit"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &page)
	if page.Total != 1 || len(page.Data) != 1 || page.Limit != 5 {
		t.Errorf("unexpected page: %+v", page)
	}

	rec = doRequest(e, owner, http.MethodDelete, "/api/notes/"+id, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", rec.Code)
	}
	rec = doRequest(e, owner, http.MethodGet, "/api/notes/"+id, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: status %d", rec.Code)
	}
}

func TestHandler_ValidationBody(t *testing.T) {
	e, _ := newNoteServer(t)
	rec := doRequest(e, uuid.New(), http.MethodPost, "/api/notes", `{"body":"no title"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
	var fields map[string][]string
	if err := json.Unmarshal(rec.Body.Bytes(), &fields); err != nil {
		t.Fatalf("decode: %v (%s)", err, rec.Body.String())
	}
	if len(fields["title"]) == 0 {
		t.Errorf("expected a title error, got %v", fields)
	}

	rec = doRequest(e, uuid.New(), http.MethodPost, "/api/notes", `{"title":42}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("wrong type: status %d, want 400", rec.Code)
	}
}

func TestHandler_ForeignAndMalformedIDs(t *testing.T) {
	e, svc := newNoteServer(t)
	alice, bob := uuid.New(), uuid.New()
	n := &note{Title: "private"}
	if err := svc.Create(context.Background(), alice, n); err != nil {
		t.Fatalf("Create: %v", err)
	}

	for _, method := range []string{http.MethodGet, http.MethodPatch, http.MethodDelete} {
		body := ""
		if method == http.MethodPatch {
			body = `{"title":"mine now"}`
		}
		rec := doRequest(e, bob, method, "/api/notes/"+n.ID.String(), body)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s foreign record: status %d, want 404", method, rec.Code)
		}
	}
	rec := doRequest(e, alice, http.MethodGet, "/api/notes/not-a-uuid", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("malformed id: status %d, want 404", rec.Code)
	}
}

func TestHandler_Unauthenticated(t *testing.T) {
	e, _ := newNoteServer(t)
	rec := doRequest(e, uuid.Nil, http.MethodGet, "/api/notes", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status %d, want 401", rec.Code)
	}
}

func TestHandler_PutNotRouted(t *testing.T) {
	e, svc := newNoteServer(t)
	owner := uuid.New()
	n := &note{Title: "x"}
	_ = svc.Create(context.Background(), owner, n)
	rec := doRequest(e, owner, http.MethodPut, "/api/notes/"+n.ID.String(), `{"title":"y"}`)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("PUT: status %d, want 405", rec.Code)
	}
}
