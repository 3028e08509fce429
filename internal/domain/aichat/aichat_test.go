package aichat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/clim-up/wikaya/internal/domain/record"
	"github.com/clim-up/wikaya/internal/domain/vitals"
	"github.com/clim-up/wikaya/internal/platform/auth"
)

func ptr[T any](v T) *T { return &v }

// fakeUpstream answers /chat/completions with reply, or fails with status
// and message when status is not 200.
func fakeUpstream(t *testing.T, status int, reply string, calls *int32, seen *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "test-model" || len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("unexpected request: %+v", req)
		}
		if seen != nil && len(req.Messages) == 1 {
			*seen = req.Messages[0].Content
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"` + reply + `"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]string{"role": "assistant", "content": reply}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(url string, reg prometheus.Registerer) *OpenAIClient {
	return NewOpenAIClient(ClientConfig{BaseURL: url, APIKey: "test-key", Model: "test-model", Timeout: 5 * time.Second}, reg)
}

type testEnv struct {
	e      *echo.Echo
	vitals *vitals.Service
}

func newServer(llm Completer) testEnv {
	vs := vitals.NewService(record.NewMemoryRepository(vitals.SnapshotTable))
	e := echo.New()
	NewHandler(NewService(vs, llm)).RegisterRoutes(e.Group("/api/files"))
	return testEnv{e: e, vitals: vs}
}

func (env testEnv) ask(owner uuid.UUID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/files/ai-chat", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(auth.WithAccountID(req.Context(), owner))
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env testEnv) seed(t *testing.T, owner uuid.UUID) {
	t.Helper()
	s := vitals.NewSnapshot()
	s.WeightKg, s.HeightCm, s.BloodPressure = ptr(80.0), ptr(180.0), ptr("120/80")
	if err := env.vitals.Create(context.Background(), owner, s); err != nil {
		t.Fatal(err)
	}
}

func TestBuildPrompt(t *testing.T) {
	s := vitals.NewSnapshot()
	s.WeightKg, s.HeightCm, s.BloodPressure = ptr(80.0), ptr(180.0), ptr("120/80")
	got := BuildPrompt(s, "Am I healthy?")
	for _, want := range []string{"weight 80 kg", "height 180 cm", "blood pressure 120/80 mmHg", "blood sugar 90 mg/dL", "BMI 24.7", "Question: Am I healthy?"} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}

	got = BuildPrompt(vitals.NewSnapshot(), "q")
	for _, want := range []string{"weight not recorded", "height not recorded", "blood pressure not recorded", "BMI not recorded"} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
}

func TestChat_Success(t *testing.T) {
	var calls int32
	var seen string
	srv := fakeUpstream(t, http.StatusOK, "Drink more water.", &calls, &seen)
	reg := prometheus.NewRegistry()
	client := newClient(srv.URL, reg)
	env := newServer(client)
	owner := uuid.New()
	env.seed(t, owner)

	rec := env.ask(owner, `{"prompt":"How is my blood pressure?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["response"] != "Drink more water." {
		t.Errorf("response = %q", body["response"])
	}
	if !strings.Contains(seen, "120/80") || !strings.Contains(seen, "How is my blood pressure?") {
		t.Errorf("upstream prompt = %q", seen)
	}
	if got := testutil.ToFloat64(client.calls.WithLabelValues("success")); got != 1 {
		t.Errorf("success counter = %v", got)
	}
}

func TestChat_EmptyPromptSkipsUpstream(t *testing.T) {
	var calls int32
	srv := fakeUpstream(t, http.StatusOK, "x", &calls, nil)
	env := newServer(newClient(srv.URL, nil))
	owner := uuid.New()
	env.seed(t, owner)

	for _, body := range []string{`{}`, `{"prompt":""}`, `{"prompt":"   "}`} {
		rec := env.ask(owner, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", body, rec.Code)
		}
		var out map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil || out["error"] == "" {
			t.Errorf("%s: body = %s", body, rec.Body.String())
		}
	}
	if calls != 0 {
		t.Errorf("upstream called %d times", calls)
	}
}

func TestChat_NoVitals(t *testing.T) {
	var calls int32
	srv := fakeUpstream(t, http.StatusOK, "x", &calls, nil)
	env := newServer(newClient(srv.URL, nil))

	rec := env.ask(uuid.New(), `{"prompt":"hi"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
	if calls != 0 {
		t.Errorf("upstream called %d times", calls)
	}
}

func TestChat_UpstreamFailure(t *testing.T) {
	var calls int32
	srv := fakeUpstream(t, http.StatusTooManyRequests, "rate limited", &calls, nil)
	reg := prometheus.NewRegistry()
	client := newClient(srv.URL, reg)
	env := newServer(client)
	owner := uuid.New()
	env.seed(t, owner)

	rec := env.ask(owner, `{"prompt":"hi"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var out map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	if !strings.Contains(out["error"], "rate limited") {
		t.Errorf("error = %q", out["error"])
	}
	if calls != 1 {
		t.Errorf("upstream called %d times, want exactly 1", calls)
	}
	if got := testutil.ToFloat64(client.calls.WithLabelValues("error")); got != 1 {
		t.Errorf("error counter = %v", got)
	}
}

func TestClient_BreakerOpens(t *testing.T) {
	var calls int32
	srv := fakeUpstream(t, http.StatusBadGateway, "down", &calls, nil)
	client := newClient(srv.URL, nil)

	for i := 0; i < 5; i++ {
		if _, err := client.Complete(context.Background(), "p"); err == nil {
			t.Fatal("expected failure")
		}
	}
	_, err := client.Complete(context.Background(), "p")
	if err == nil || !strings.Contains(err.Error(), "unavailable") {
		t.Errorf("expected breaker rejection, got %v", err)
	}
	if calls != 5 {
		t.Errorf("upstream called %d times, want 5", calls)
	}
	if got := testutil.ToFloat64(client.calls.WithLabelValues("rejected")); got != 1 {
		t.Errorf("rejected counter = %v", got)
	}
}

func TestClient_CanceledDoesNotTrip(t *testing.T) {
	var calls int32
	srv := fakeUpstream(t, http.StatusOK, "ok", &calls, nil)
	client := newClient(srv.URL, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 6; i++ {
		if _, err := client.Complete(ctx, "p"); !errors.Is(err, context.Canceled) {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	if got, err := client.Complete(context.Background(), "p"); err != nil || got != "ok" {
		t.Errorf("after cancellations: %q, %v", got, err)
	}
}
