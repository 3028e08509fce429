package clinical

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

	"github.com/clim-up/wikaya/internal/domain/record"
	"github.com/clim-up/wikaya/internal/platform/apperr"
	"github.com/clim-up/wikaya/internal/platform/auth"
)

var fixedNow = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

func TestAllergyCalculatedIsPassed(t *testing.T) {
	tests := []struct {
		name string
		end  pgtype.Date
		want bool
	}{
		{"no end date", pgtype.Date{}, false},
		{"ended yesterday", record.Date(2025, 6, 14), true},
		{"ends today", record.Date(2025, 6, 15), false},
		{"ends tomorrow", record.Date(2025, 6, 16), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Allergy{EndDate: tt.end, StartDate: record.Date(2020, 1, 1)}
			if got := a.CalculatedIsPassed(fixedNow); got != tt.want {
				t.Errorf("CalculatedIsPassed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAllergyOverride(t *testing.T) {
	no := false
	a := &Allergy{EndDate: record.Date(2001, 1, 1), IsPassed: &no}
	s := a.Derived(fixedNow)
	if !s.CalculatedIsPassed || s.EffectiveIsPassed || s.Status != record.StatusCurrent {
		t.Errorf("override should win over dates: %+v", s)
	}
}

func TestValidateAllergy(t *testing.T) {
	tests := []struct {
		name    string
		allergy Allergy
		field   string
	}{
		{"ok", Allergy{Title: "Peanuts", StartDate: record.Date(2024, 1, 1), EndDate: record.Date(2024, 1, 1)}, ""},
		{"missing title", Allergy{}, "title"},
		{"title too long", Allergy{Title: strings.Repeat("a", 101)}, "title"},
		{"end before start", Allergy{Title: "Dust", StartDate: record.Date(2024, 2, 1), EndDate: record.Date(2024, 1, 1)}, apperr.NonFieldErrors},
		{"only end", Allergy{Title: "Dust", EndDate: record.Date(2024, 1, 1)}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAllergy(context.Background(), &tt.allergy)
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ae *apperr.Error
			if !errors.As(err, &ae) || len(ae.Fields[tt.field]) == 0 {
				t.Fatalf("expected error on %s, got %v", tt.field, err)
			}
		})
	}
}

func TestValidateHealthProblem(t *testing.T) {
	if err := ValidateHealthProblem(context.Background(), &HealthProblem{Title: "Asthma"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateHealthProblem(context.Background(), &HealthProblem{}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func newServer() *echo.Echo {
	e := echo.New()
	h := NewHandler(
		record.NewMemoryRepository(AllergyTable),
		record.NewMemoryRepository(HealthProblemTable),
		func() time.Time { return fixedNow },
	)
	h.RegisterRoutes(e.Group("/api/files"))
	return e
}

func call(e *echo.Echo, owner uuid.UUID, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(auth.WithAccountID(req.Context(), owner))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAllergyEndpoints(t *testing.T) {
	e := newServer()
	owner := uuid.New()

	rec := call(e, owner, http.MethodPost, "/api/files/allergies",
		`{"title":"Penicillin","start_date":"2024-01-01","end_date":"2025-01-01","user":"`+uuid.NewString()+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["user"] != owner.String() {
		t.Errorf("owner not stamped from caller: %v", body["user"])
	}
	if body["calculated_is_passed"] != true || body["effective_is_passed"] != true || body["status"] != "past" {
		t.Errorf("unexpected derived status: %v", body)
	}
	if body["is_passed"] != nil {
		t.Errorf("is_passed should be null, got %v", body["is_passed"])
	}
	id := body["id"].(string)

	rec = call(e, owner, http.MethodPatch, "/api/files/allergies/"+id, `{"is_passed":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", rec.Code, rec.Body.String())
	}
	body = map[string]any{}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["effective_is_passed"] != false || body["status"] != "current" || body["title"] != "Penicillin" {
		t.Errorf("override not applied: %v", body)
	}

	rec = call(e, owner, http.MethodPatch, "/api/files/allergies/"+id, `{"start_date":"2026-01-01"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("end before start via patch: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), apperr.NonFieldErrors) {
		t.Errorf("expected non_field_errors, got %s", rec.Body.String())
	}
}

func TestHealthProblemEndpoints(t *testing.T) {
	e := newServer()
	alice, bob := uuid.New(), uuid.New()

	rec := call(e, alice, http.MethodPost, "/api/files/health-problems", `{"title":"Migraine","diagnosis_date":"2023-05-02"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var p HealthProblem
	_ = json.Unmarshal(rec.Body.Bytes(), &p)
	if p.Resolved {
		t.Error("resolved should default to false")
	}

	rec = call(e, bob, http.MethodGet, "/api/files/health-problems", "")
	if !strings.Contains(rec.Body.String(), `"total":0`) {
		t.Errorf("other user sees records: %s", rec.Body.String())
	}
	rec = call(e, bob, http.MethodDelete, "/api/files/health-problems/"+p.ID.String(), "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign delete: %d", rec.Code)
	}
	rec = call(e, alice, http.MethodPatch, "/api/files/health-problems/"+p.ID.String(), `{"resolved":true}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"resolved":true`) {
		t.Errorf("patch: %d %s", rec.Code, rec.Body.String())
	}
}
