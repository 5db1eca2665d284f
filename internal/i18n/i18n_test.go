package i18n

import (
	"context"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "QuizNotFound")
	if got != "Quiz not found." {
		t.Errorf("T(QuizNotFound) = %q, want 'Quiz not found.'", got)
	}

	got = T(ctx, "PDFUnavailable")
	if got != "PDF text extraction is not available. Paste the text instead." {
		t.Errorf("T(PDFUnavailable) = %q", got)
	}
}

func TestTranslateRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	got := T(ctx, "QuizNotFound")
	if got != "Викторина не найдена." {
		t.Errorf("T(QuizNotFound) = %q", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got1 := Tp(ctx, "QuestionsGenerated", 1)
	if got1 != "1 question generated." {
		t.Errorf("Tp(QuestionsGenerated, 1) = %q", got1)
	}

	got5 := Tp(ctx, "QuestionsGenerated", 5)
	if got5 != "5 questions generated." {
		t.Errorf("Tp(QuestionsGenerated, 5) = %q", got5)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "QuizDeleted", map[string]any{"Title": "Biology 101"})
	if got != `Quiz "Biology 101" and its results were deleted.` {
		t.Errorf("Td(QuizDeleted) = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want the key itself", got)
	}
}
