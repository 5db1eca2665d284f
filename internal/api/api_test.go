package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"quizforge/internal/explain"
	"quizforge/internal/i18n"
	"quizforge/internal/llm"
	"quizforge/internal/model"
	"quizforge/internal/store"
)

type fakeTransport struct {
	reply string
	err   error
}

func (f *fakeTransport) Complete(_ context.Context, _ string) (*llm.Completion, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Completion{Text: f.reply}, nil
}

func newTestServer(t *testing.T, transport llm.Transport) (*httptest.Server, *store.Store) {
	t.Helper()
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	if transport == nil {
		transport = &fakeTransport{reply: `{"questions": []}`}
	}

	st := store.New(":memory:")
	t.Cleanup(func() { st.Close() })

	h := New(Config{
		Store:   st,
		Gen:     llm.NewService(transport, nil),
		Explain: explain.New(transport, nil),
	})
	r := chi.NewRouter()
	h.Routes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, st
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, buf.Bytes()
}

func validQuizBody() map[string]any {
	return map[string]any{
		"title": "HTTP basics",
		"questions": []map[string]any{
			{
				"id":           "q-http-001",
				"type":         "SINGLE_CHOICE",
				"prompt":       "Which verb fetches?",
				"options":      []string{"GET", "DELETE"},
				"correctIndex": 0,
				"explanation":  "GET reads.",
			},
		},
	}
}

func TestQuizCRUD(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/quizzes", validQuizBody())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: %d %s", resp.StatusCode, body)
	}
	var created model.Quiz
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode created quiz: %v", err)
	}
	if created.ID == "" {
		t.Fatal("server must assign an id")
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/quizzes/"+created.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: %d %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodPatch, srv.URL+"/quizzes/"+created.ID,
		map[string]any{"title": "HTTP fundamentals"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch: %d %s", resp.StatusCode, body)
	}
	var patched model.Quiz
	if err := json.Unmarshal(body, &patched); err != nil {
		t.Fatal(err)
	}
	if patched.Title != "HTTP fundamentals" {
		t.Errorf("patched title = %q", patched.Title)
	}

	resp, body = doJSON(t, http.MethodDelete, srv.URL+"/quizzes/"+created.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: %d %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), "HTTP fundamentals") {
		t.Errorf("delete message should name the quiz: %s", body)
	}

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/quizzes/"+created.ID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("deleted quiz should 404, got %d", resp.StatusCode)
	}
}

func TestCreateQuizValidation(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	bad := validQuizBody()
	bad["questions"] = []map[string]any{}
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/quizzes", bad)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d %s", resp.StatusCode, body)
	}
	var eb struct {
		Error   string `json:"error"`
		Details []model.ValidationError
	}
	if err := json.Unmarshal(body, &eb); err != nil {
		t.Fatal(err)
	}
	if eb.Error != "VALIDATION" || len(eb.Details) == 0 {
		t.Errorf("expected validation details, got %s", body)
	}
}

func TestCreateQuizSanitizesTitle(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	q := validQuizBody()
	q["title"] = `<script>alert(1)</script>`
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/quizzes", q)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: %d %s", resp.StatusCode, body)
	}
	var created model.Quiz
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(created.Title, "<script>") {
		t.Errorf("title not sanitized: %q", created.Title)
	}
}

func TestGenerateEndpoint(t *testing.T) {
	reply := `{"questions": [
		{"type": "SINGLE_CHOICE", "prompt": "Generated?", "options": ["yes", "no"], "correctIndex": 0, "explanation": "it was"}
	]}`
	srv, _ := newTestServer(t, &fakeTransport{reply: reply})

	text := strings.Repeat("A sentence about the subject matter at hand. ", 10)
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/generate", map[string]any{
		"text":  text,
		"count": 3,
		"title": "Generated quiz",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate: %d %s", resp.StatusCode, body)
	}

	var out struct {
		Questions []model.Question `json:"questions"`
		Message   string           `json:"message"`
		Quiz      *model.Quiz      `json:"quiz"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Questions) != 1 {
		t.Errorf("expected 1 question, got %d", len(out.Questions))
	}
	if out.Message != "1 question generated." {
		t.Errorf("message = %q", out.Message)
	}
	if out.Quiz == nil || out.Quiz.ID == "" {
		t.Error("title set means a quiz should be created")
	}
}

func TestGenerateRejectsThinText(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/generate", map[string]any{"text": "too short"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d %s", resp.StatusCode, body)
	}
}

func TestGenerateQuotaError(t *testing.T) {
	srv, _ := newTestServer(t, &fakeTransport{
		err: &llm.Error{Kind: llm.KindQuota, Err: fmt.Errorf("429")},
	})
	text := strings.Repeat("A sentence about the subject matter at hand. ", 10)
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/generate", map[string]any{"text": text})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), "rate limit") {
		t.Errorf("expected a friendly quota message, got %s", body)
	}
}

func TestSessionFlow(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/quizzes", validQuizBody())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create quiz: %d %s", resp.StatusCode, body)
	}
	var quiz model.Quiz
	if err := json.Unmarshal(body, &quiz); err != nil {
		t.Fatal(err)
	}

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/quizzes/"+quiz.ID+"/sessions", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start session: %d %s", resp.StatusCode, body)
	}
	var view sessionView
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatal(err)
	}
	if view.State != "RUNNING" || view.Total != 1 {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.Question.CorrectAnswer != "" || view.Question.Explanation != "" {
		t.Error("answers must not leak into the running view")
	}

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/sessions/"+view.ID+"/answers",
		map[string]any{"questionId": "q-http-001", "answer": 0})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("answer: %d %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/sessions/"+view.ID+"/submit", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit: %d %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatal(err)
	}
	if view.State != "COMPLETED" || view.Result == nil {
		t.Fatalf("expected completed view with result, got %+v", view)
	}
	if view.Result.Score != 100 {
		t.Errorf("score = %d", view.Result.Score)
	}

	// The result is now queryable through the results API.
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/quizzes/"+quiz.ID+"/results", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("quiz results: %d %s", resp.StatusCode, body)
	}
	var results []model.Result
	if err := json.Unmarshal(body, &results); err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 persisted result, got %d", len(results))
	}
}

func TestSessionStateConflict(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/quizzes", validQuizBody())
	var quiz model.Quiz
	if err := json.Unmarshal(body, &quiz); err != nil {
		t.Fatal(err)
	}
	_, body = doJSON(t, http.MethodPost, srv.URL+"/quizzes/"+quiz.ID+"/sessions", nil)
	var view sessionView
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatal(err)
	}

	// Resume without a pause is a state conflict.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/sessions/"+view.ID+"/resume", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409, got %d %s", resp.StatusCode, body)
	}
}

func TestSessionNotFound(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/sessions/nope", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestPreferencesMasksKey(t *testing.T) {
	srv, st := newTestServer(t, nil)

	if err := st.PutPreferences(model.UserPreferences{
		APIKeys:     model.APIKeys{GeminiKey: "secret-key"},
		Preferences: model.DefaultPreferences().Preferences,
	}); err != nil {
		t.Fatal(err)
	}

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/preferences", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("preferences: %d %s", resp.StatusCode, body)
	}
	if strings.Contains(string(body), "secret-key") {
		t.Error("API key must never be returned")
	}
	if !strings.Contains(string(body), `"hasGeminiKey":true`) {
		t.Errorf("expected hasGeminiKey flag, got %s", body)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	if resp, body := doJSON(t, http.MethodPost, srv.URL+"/quizzes", validQuizBody()); resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: %d %s", resp.StatusCode, body)
	}

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/export", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export: %d %s", resp.StatusCode, body)
	}
	var snap model.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		t.Fatal(err)
	}
	if len(snap.Data.Quizzes) != 1 {
		t.Fatalf("expected 1 exported quiz, got %d", len(snap.Data.Quizzes))
	}

	// Import into a fresh server.
	srv2, _ := newTestServer(t, nil)
	resp, body = doJSON(t, http.MethodPost, srv2.URL+"/import",
		map[string]any{"snapshot": snap})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import: %d %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), "1 imported, 0 skipped") {
		t.Errorf("unexpected import message: %s", body)
	}

	resp, body = doJSON(t, http.MethodGet, srv2.URL+"/quizzes", nil)
	var quizzes []model.Quiz
	if err := json.Unmarshal(body, &quizzes); err != nil {
		t.Fatal(err)
	}
	if len(quizzes) != 1 {
		t.Errorf("expected the imported quiz, got %d", len(quizzes))
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health: %d %s", resp.StatusCode, body)
	}
	var health store.Health
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatal(err)
	}
	if !health.Initialized || !health.ObjectStore || !health.KVStore {
		t.Errorf("unhealthy: %+v", health)
	}
}

func TestPDFUnavailable(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/text/pdf", strings.NewReader("%PDF-1.4"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("expected 501 with no extractor wired, got %d", resp.StatusCode)
	}
}
