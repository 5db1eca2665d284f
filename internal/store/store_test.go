package store

import (
	"errors"
	"testing"
	"time"

	"quizforge/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(":memory:")
	if err := s.ensure(); err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testQuiz(t *testing.T, id string) model.Quiz {
	t.Helper()
	return model.Quiz{
		ID:          id,
		Title:       "Sample quiz",
		Description: "Three canonical questions",
		Questions: []model.Question{
			{
				ID: "q-single-01", Type: model.SingleChoice,
				Prompt: "What is 2+2?", Explanation: "Arithmetic.",
				Options: []string{"3", "4", "5", "6"}, CorrectIndex: 1,
			},
			{
				ID: "q-multi-01", Type: model.MultiChoice,
				Prompt: "Which are even?", Explanation: "2 and 4.",
				Options: []string{"1", "2", "3", "4"}, CorrectIndices: []int{1, 3},
			},
			{
				ID: "q-free-01", Type: model.FreeText,
				Prompt: "Capital of France?", Explanation: "Paris.",
				CorrectAnswer: "Paris",
			},
		},
	}
}

func testResult(t *testing.T, id, quizID, userID string) model.Result {
	t.Helper()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return model.Result{
		ID:             id,
		QuizID:         quizID,
		UserID:         userID,
		Score:          67,
		TotalQuestions: 3,
		CorrectCount:   2,
		Answers: []model.AnswerRecord{
			{QuestionID: "q-single-01", UserAnswer: 1, IsCorrect: true},
			{QuestionID: "q-multi-01", UserAnswer: []int{1, 3}, IsCorrect: true},
			{QuestionID: "q-free-01", UserAnswer: nil, IsCorrect: false},
		},
		StartedAt:        started,
		CompletedAt:      started.Add(90 * time.Second),
		TimeSpentSeconds: 90,
		Grade:            "D+",
	}
}

func TestQuizCRUD(t *testing.T) {
	s := newTestStore(t)

	// Empty store.
	got, err := s.GetQuiz("missing-quiz")
	if err != nil {
		t.Fatalf("GetQuiz: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for missing quiz")
	}

	q := testQuiz(t, "quiz-0001")
	if err := s.PutQuiz(&q); err != nil {
		t.Fatalf("PutQuiz: %v", err)
	}
	if q.CreatedAt.IsZero() || q.UpdatedAt.IsZero() {
		t.Error("PutQuiz should fill zero timestamps")
	}

	got, err = s.GetQuiz("quiz-0001")
	if err != nil {
		t.Fatalf("GetQuiz: %v", err)
	}
	if got == nil {
		t.Fatal("expected quiz")
	}
	if got.Title != "Sample quiz" || len(got.Questions) != 3 {
		t.Errorf("unexpected quiz round trip: %+v", got)
	}
	if got.Questions[1].CorrectIndices[1] != 3 {
		t.Error("multi-choice indices lost in round trip")
	}

	// Idempotent on id: second put overwrites.
	q.Title = "Renamed"
	if err := s.PutQuiz(&q); err != nil {
		t.Fatalf("PutQuiz overwrite: %v", err)
	}
	list, err := s.ListQuizzes()
	if err != nil {
		t.Fatalf("ListQuizzes: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 quiz, got %d", len(list))
	}
	if list[0].Title != "Renamed" {
		t.Errorf("expected overwritten title, got %q", list[0].Title)
	}
}

func TestPatchQuiz(t *testing.T) {
	s := newTestStore(t)
	q := testQuiz(t, "quiz-0001")
	if err := s.PutQuiz(&q); err != nil {
		t.Fatalf("PutQuiz: %v", err)
	}

	title := "Patched title"
	settings := model.QuizSettings{ShuffleQuestions: true, TimeLimitSeconds: 120}
	patched, err := s.PatchQuiz("quiz-0001", QuizPatch{Title: &title, Settings: &settings})
	if err != nil {
		t.Fatalf("PatchQuiz: %v", err)
	}
	if patched.Title != "Patched title" {
		t.Errorf("title not patched: %q", patched.Title)
	}
	if !patched.Settings.ShuffleQuestions || patched.Settings.TimeLimitSeconds != 120 {
		t.Errorf("settings not patched: %+v", patched.Settings)
	}
	if patched.ID != "quiz-0001" {
		t.Errorf("id must be preserved, got %q", patched.ID)
	}
	if patched.Description != "Three canonical questions" {
		t.Error("unpatched fields must be preserved")
	}
	if patched.UpdatedAt.Before(patched.CreatedAt) {
		t.Error("updatedAt must not precede createdAt")
	}

	// Patching a missing quiz reports not found as nil.
	missing, err := s.PatchQuiz("missing-quiz", QuizPatch{Title: &title})
	if err != nil {
		t.Fatalf("PatchQuiz missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing quiz")
	}
}

func TestCascadeDelete(t *testing.T) {
	s := newTestStore(t)

	q := testQuiz(t, "quiz-0001")
	if err := s.PutQuiz(&q); err != nil {
		t.Fatalf("PutQuiz: %v", err)
	}
	other := testQuiz(t, "quiz-0002")
	if err := s.PutQuiz(&other); err != nil {
		t.Fatalf("PutQuiz other: %v", err)
	}

	r1 := testResult(t, "result-0001", "quiz-0001", "user-0001")
	r2 := testResult(t, "result-0002", "quiz-0001", "user-0001")
	r3 := testResult(t, "result-0003", "quiz-0002", "user-0001")
	for _, r := range []*model.Result{&r1, &r2, &r3} {
		if err := s.PutResult(r); err != nil {
			t.Fatalf("PutResult: %v", err)
		}
	}

	if err := s.DeleteQuiz("quiz-0001"); err != nil {
		t.Fatalf("DeleteQuiz: %v", err)
	}

	got, err := s.GetQuiz("quiz-0001")
	if err != nil {
		t.Fatalf("GetQuiz: %v", err)
	}
	if got != nil {
		t.Error("quiz should be gone")
	}
	results, err := s.ListResultsByQuiz("quiz-0001")
	if err != nil {
		t.Fatalf("ListResultsByQuiz: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results for deleted quiz, got %d", len(results))
	}

	// The other quiz's results survive.
	results, err = s.ListResultsByQuiz("quiz-0002")
	if err != nil {
		t.Fatalf("ListResultsByQuiz other: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 surviving result, got %d", len(results))
	}
}

func TestMediaCleanupOnQuizDelete(t *testing.T) {
	s := newTestStore(t)

	if err := s.PutMedia("blob-0001", "data:image/png;base64,aGVsbG8=", "image/png"); err != nil {
		t.Fatalf("PutMedia: %v", err)
	}
	q := testQuiz(t, "quiz-0001")
	q.Questions[0].Media = &model.Media{Kind: model.MediaImage, URL: "media:blob-0001"}
	if err := s.PutQuiz(&q); err != nil {
		t.Fatalf("PutQuiz: %v", err)
	}

	if err := s.DeleteQuiz("quiz-0001"); err != nil {
		t.Fatalf("DeleteQuiz: %v", err)
	}
	blob, err := s.GetMedia("blob-0001")
	if err != nil {
		t.Fatalf("GetMedia: %v", err)
	}
	if blob != nil {
		t.Error("referenced media should be cleaned up with the quiz")
	}
}

func TestResultQueries(t *testing.T) {
	s := newTestStore(t)

	q := testQuiz(t, "quiz-0001")
	if err := s.PutQuiz(&q); err != nil {
		t.Fatalf("PutQuiz: %v", err)
	}
	r1 := testResult(t, "result-0001", "quiz-0001", "user-a")
	r2 := testResult(t, "result-0002", "quiz-0001", "user-b")
	r2.CompletedAt = r1.CompletedAt.Add(time.Hour)
	for _, r := range []*model.Result{&r1, &r2} {
		if err := s.PutResult(r); err != nil {
			t.Fatalf("PutResult: %v", err)
		}
	}

	byQuiz, err := s.ListResultsByQuiz("quiz-0001")
	if err != nil {
		t.Fatalf("ListResultsByQuiz: %v", err)
	}
	if len(byQuiz) != 2 {
		t.Fatalf("expected 2 results, got %d", len(byQuiz))
	}
	// Newest first.
	if byQuiz[0].ID != "result-0002" {
		t.Errorf("expected newest first, got %q", byQuiz[0].ID)
	}

	byUser, err := s.ListResultsByUser("user-a")
	if err != nil {
		t.Fatalf("ListResultsByUser: %v", err)
	}
	if len(byUser) != 1 || byUser[0].ID != "result-0001" {
		t.Errorf("unexpected user results: %+v", byUser)
	}

	if err := s.DeleteResult("result-0001"); err != nil {
		t.Fatalf("DeleteResult: %v", err)
	}
	got, err := s.GetResult("result-0001")
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if got != nil {
		t.Error("deleted result should be gone")
	}

	// Answers round-trip with skips preserved.
	got, err = s.GetResult("result-0002")
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if got == nil || len(got.Answers) != 3 {
		t.Fatalf("expected 3 answer records, got %+v", got)
	}
	if got.Answers[2].UserAnswer != nil {
		t.Error("skipped answer should stay nil")
	}
}

func TestPreferences(t *testing.T) {
	s := newTestStore(t)

	// Nothing stored yet.
	p, err := s.GetPreferences()
	if err != nil {
		t.Fatalf("GetPreferences: %v", err)
	}
	if p != nil {
		t.Fatal("expected nil preferences on fresh store")
	}

	prefs := model.DefaultPreferences()
	prefs.APIKeys.GeminiKey = "test-key"
	if err := s.PutPreferences(prefs); err != nil {
		t.Fatalf("PutPreferences: %v", err)
	}

	p, err = s.GetPreferences()
	if err != nil {
		t.Fatalf("GetPreferences: %v", err)
	}
	if p == nil || p.APIKeys.GeminiKey != "test-key" {
		t.Errorf("unexpected preferences: %+v", p)
	}
	if p.Preferences.Theme != model.ThemeLight {
		t.Errorf("expected light theme, got %q", p.Preferences.Theme)
	}

	// Patch merges over stored values.
	dark := model.ThemeDark
	p, err = s.PatchPreferences(PreferencesPatch{Theme: &dark})
	if err != nil {
		t.Fatalf("PatchPreferences: %v", err)
	}
	if p.Preferences.Theme != model.ThemeDark {
		t.Errorf("theme not patched: %q", p.Preferences.Theme)
	}
	if p.APIKeys.GeminiKey != "test-key" {
		t.Error("patch must preserve unrelated fields")
	}

	// Unparseable stored value reads as unset.
	if err := s.kv.Set(keyPreferences, "{not json"); err != nil {
		t.Fatalf("kv.Set: %v", err)
	}
	p, err = s.GetPreferences()
	if err != nil {
		t.Fatalf("GetPreferences corrupt: %v", err)
	}
	if p != nil {
		t.Error("corrupt preferences should read as nil")
	}
}

func TestEnsureUserID(t *testing.T) {
	s := newTestStore(t)

	id1, err := s.EnsureUserID()
	if err != nil {
		t.Fatalf("EnsureUserID: %v", err)
	}
	if len(id1) < 8 {
		t.Fatalf("user id too short: %q", id1)
	}
	id2, err := s.EnsureUserID()
	if err != nil {
		t.Fatalf("EnsureUserID second: %v", err)
	}
	if id1 != id2 {
		t.Errorf("user id must be stable: %q != %q", id1, id2)
	}
}

func TestErrorLog(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < maxLoggedErrors+10; i++ {
		s.LogError("test", "boom")
	}
	entries, err := s.RecentErrors()
	if err != nil {
		t.Fatalf("RecentErrors: %v", err)
	}
	if len(entries) != maxLoggedErrors {
		t.Errorf("expected log capped at %d, got %d", maxLoggedErrors, len(entries))
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newTestStore(t)

	q := testQuiz(t, "quiz-0001")
	if err := src.PutQuiz(&q); err != nil {
		t.Fatalf("PutQuiz: %v", err)
	}
	r := testResult(t, "result-0001", "quiz-0001", "user-0001")
	if err := src.PutResult(&r); err != nil {
		t.Fatalf("PutResult: %v", err)
	}
	prefs := model.DefaultPreferences()
	prefs.APIKeys.GeminiKey = "round-trip"
	if err := src.PutPreferences(prefs); err != nil {
		t.Fatalf("PutPreferences: %v", err)
	}

	snap, err := src.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if snap.Version != model.SnapshotVersion {
		t.Errorf("unexpected snapshot version %q", snap.Version)
	}
	if len(snap.Data.Quizzes) != 1 || len(snap.Data.Results) != 1 {
		t.Fatalf("unexpected snapshot contents: %d quizzes, %d results",
			len(snap.Data.Quizzes), len(snap.Data.Results))
	}

	dst := newTestStore(t)
	summary, err := dst.Import(*snap, true)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if summary.Quizzes.Imported != 1 || summary.Results.Imported != 1 || summary.Preferences.Imported != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	again, err := dst.Export()
	if err != nil {
		t.Fatalf("second Export: %v", err)
	}
	if len(again.Data.Quizzes) != 1 || again.Data.Quizzes[0].ID != "quiz-0001" {
		t.Error("quiz did not survive round trip")
	}
	if again.Data.Quizzes[0].Title != q.Title {
		t.Error("quiz title changed in round trip")
	}
	if len(again.Data.Results) != 1 || again.Data.Results[0].Score != 67 {
		t.Error("result did not survive round trip")
	}
	if again.Data.Preferences == nil || again.Data.Preferences.APIKeys.GeminiKey != "round-trip" {
		t.Error("preferences did not survive round trip")
	}
}

func TestImportSkipsExistingWithoutOverwrite(t *testing.T) {
	s := newTestStore(t)
	q := testQuiz(t, "quiz-0001")
	if err := s.PutQuiz(&q); err != nil {
		t.Fatalf("PutQuiz: %v", err)
	}

	incoming := testQuiz(t, "quiz-0001")
	incoming.Title = "Imported title"
	fresh := testQuiz(t, "quiz-0002")
	snap := model.Snapshot{
		Version: model.SnapshotVersion,
		UserID:  "user-0001",
		Data:    model.SnapshotData{Quizzes: []model.Quiz{incoming, fresh}},
	}

	summary, err := s.Import(snap, false)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if summary.Quizzes.Imported != 1 || summary.Quizzes.Skipped != 1 {
		t.Errorf("unexpected summary: %+v", summary.Quizzes)
	}

	kept, err := s.GetQuiz("quiz-0001")
	if err != nil {
		t.Fatalf("GetQuiz: %v", err)
	}
	if kept.Title != "Sample quiz" {
		t.Errorf("existing quiz must be kept, got title %q", kept.Title)
	}
}

func TestImportRejectsMissingVersion(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Import(model.Snapshot{}, true); err == nil {
		t.Error("expected import of unversioned snapshot to fail")
	}
}

func TestClearAll(t *testing.T) {
	s := newTestStore(t)
	q := testQuiz(t, "quiz-0001")
	if err := s.PutQuiz(&q); err != nil {
		t.Fatalf("PutQuiz: %v", err)
	}

	if err := s.ClearAll(false); err == nil {
		t.Fatal("ClearAll without confirmation must refuse")
	}
	list, _ := s.ListQuizzes()
	if len(list) != 1 {
		t.Fatal("refused clear must not delete anything")
	}

	if err := s.ClearAll(true); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	list, err := s.ListQuizzes()
	if err != nil {
		t.Fatalf("ListQuizzes: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected empty store, got %d quizzes", len(list))
	}
}

func TestStatsAndHealth(t *testing.T) {
	s := newTestStore(t)

	st, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Quizzes.Count != 0 || st.Results.Count != 0 {
		t.Errorf("expected empty stats, got %+v", st)
	}

	q := testQuiz(t, "quiz-0001")
	if err := s.PutQuiz(&q); err != nil {
		t.Fatalf("PutQuiz: %v", err)
	}
	st, err = s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Quizzes.Count != 1 || st.Quizzes.Bytes == 0 {
		t.Errorf("expected 1 quiz with nonzero bytes, got %+v", st.Quizzes)
	}

	h := s.HealthCheck()
	if !h.Initialized || !h.ObjectStore || !h.KVStore {
		t.Errorf("expected healthy store, got %+v", h)
	}
}

func TestCorruptRowReturnsNil(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.db.Exec(
		`INSERT INTO quizzes (id, data, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		"quiz-corrupt", "{broken", time.Now(), time.Now(),
	); err != nil {
		t.Fatalf("seed corrupt row: %v", err)
	}

	got, err := s.GetQuiz("quiz-corrupt")
	if err != nil {
		t.Fatalf("GetQuiz should not fail on corrupt row: %v", err)
	}
	if got != nil {
		t.Error("corrupt row should read as missing")
	}
}

func TestStorageErrorWrapping(t *testing.T) {
	inner := errors.New("database or disk is full")
	err := storageErr("putQuiz", inner)
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatal("expected StorageError")
	}
	if se.Kind != KindQuota {
		t.Errorf("expected quota kind, got %q", se.Kind)
	}
	if !errors.Is(err, inner) {
		t.Error("expected wrapped error to unwrap")
	}
	if storageErr("op", nil) != nil {
		t.Error("nil error must stay nil")
	}
}
