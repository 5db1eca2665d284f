package model

import "time"

// QuestionType discriminates the question variants.
type QuestionType string

const (
	// SingleChoice questions have one correct option index.
	SingleChoice QuestionType = "SINGLE_CHOICE"
	// MultiChoice questions have a set of correct option indices.
	MultiChoice QuestionType = "MULTI_CHOICE"
	// FreeText questions are answered with a typed string.
	FreeText QuestionType = "FREE_TEXT"
)

// ValidTypes lists all question types in canonical order.
var ValidTypes = []QuestionType{SingleChoice, MultiChoice, FreeText}

// IsValidType reports whether t names a known question type.
func IsValidType(t QuestionType) bool {
	switch t {
	case SingleChoice, MultiChoice, FreeText:
		return true
	}
	return false
}

// MediaKind identifies the kind of media attached to a question.
type MediaKind string

const MediaImage MediaKind = "IMAGE"

// Media is an optional attachment on a question. The URL either points at an
// external resource or uses the "media:<id>" scheme to reference a stored blob.
type Media struct {
	Kind MediaKind `json:"kind"`
	URL  string    `json:"url"`
}

// Question is a single quiz question. The Type field discriminates which of
// the variant fields are meaningful: Options/CorrectIndex for SINGLE_CHOICE,
// Options/CorrectIndices for MULTI_CHOICE, CorrectAnswer/CaseSensitive for
// FREE_TEXT. Validators fan out by the tag.
type Question struct {
	ID          string       `json:"id"`
	Type        QuestionType `json:"type"`
	Prompt      string       `json:"prompt"`
	Explanation string       `json:"explanation"`
	Media       *Media       `json:"media,omitempty"`

	Options        []string `json:"options,omitempty"`
	CorrectIndex   int      `json:"correctIndex,omitempty"`
	CorrectIndices []int    `json:"correctIndices,omitempty"`

	CorrectAnswer string `json:"correctAnswer,omitempty"`
	CaseSensitive bool   `json:"caseSensitive,omitempty"`
}

// QuizSettings controls how a quiz run behaves.
type QuizSettings struct {
	ShuffleQuestions bool `json:"shuffleQuestions"`
	ShowExplanations bool `json:"showExplanations"`
	// TimeLimitSeconds of 0 means no time limit.
	TimeLimitSeconds int `json:"timeLimitSeconds,omitempty"`
}

// Quiz is an ordered collection of questions with settings.
type Quiz struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Questions   []Question   `json:"questions"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	Settings    QuizSettings `json:"settings"`
}

// Answer is a user-supplied answer value. Its dynamic type depends on the
// question variant: int for SINGLE_CHOICE, []int for MULTI_CHOICE, string for
// FREE_TEXT. A nil Answer means the question was skipped. Values decoded from
// JSON (float64, []any) are accepted by the normalization helpers in answer.go.
type Answer = any

// AnswerRecord pairs a question with the user's answer and its correctness.
type AnswerRecord struct {
	QuestionID  string `json:"questionId"`
	UserAnswer  Answer `json:"userAnswer"`
	IsCorrect   bool   `json:"isCorrect"`
	Explanation string `json:"explanation,omitempty"`
}

// TypePerformance holds per-question-type accuracy counts.
type TypePerformance struct {
	Total    int     `json:"total"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}

// ResultMetadata carries derived statistics for a single result.
type ResultMetadata struct {
	AnsweredCount          int                              `json:"answeredCount"`
	SkippedCount           int                              `json:"skippedCount"`
	AverageTimePerQuestion float64                          `json:"averageTimePerQuestion"`
	CompletionRate         float64                          `json:"completionRate"`
	Accuracy               float64                          `json:"accuracy"`
	PerformanceByType      map[QuestionType]TypePerformance `json:"performanceByType"`
	TimedOut               bool                             `json:"timedOut,omitempty"`
}

// Result is the immutable outcome of one quiz run. A result is replaced, not
// mutated, when re-graded against a newer quiz revision; the replacement
// carries RecalculatedAt.
type Result struct {
	ID               string         `json:"id"`
	QuizID           string         `json:"quizId"`
	UserID           string         `json:"userId"`
	Score            int            `json:"score"`
	TotalQuestions   int            `json:"totalQuestions"`
	CorrectCount     int            `json:"correctCount"`
	Answers          []AnswerRecord `json:"answers"`
	StartedAt        time.Time      `json:"startedAt"`
	CompletedAt      time.Time      `json:"completedAt"`
	TimeSpentSeconds int            `json:"timeSpentSeconds"`
	Grade            string         `json:"grade"`
	Metadata         ResultMetadata `json:"metadata"`
	RecalculatedAt   *time.Time     `json:"recalculatedAt,omitempty"`
}

// Theme selects the UI color scheme.
type Theme string

const (
	ThemeLight Theme = "LIGHT"
	ThemeDark  Theme = "DARK"
)

// APIKeys holds remote service credentials stored in preferences.
type APIKeys struct {
	GeminiKey string `json:"geminiKey,omitempty"`
}

// Preferences holds user-tunable defaults.
type Preferences struct {
	Theme               Theme        `json:"theme"`
	DefaultQuizSettings QuizSettings `json:"defaultQuizSettings"`
}

// UserPreferences is the persisted preferences document.
type UserPreferences struct {
	APIKeys     APIKeys     `json:"apiKeys"`
	Preferences Preferences `json:"preferences"`
}

// DefaultPreferences returns the preferences used before the user changes anything.
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		Preferences: Preferences{
			Theme: ThemeLight,
			DefaultQuizSettings: QuizSettings{
				ShuffleQuestions: false,
				ShowExplanations: true,
			},
		},
	}
}

// MediaBlob is a stored media object. Bytes are kept as a base64 data URL so
// the blob round-trips through JSON export unchanged.
type MediaBlob struct {
	ID        string    `json:"id"`
	DataURL   string    `json:"dataUrl"`
	MimeType  string    `json:"mimeType"`
	CreatedAt time.Time `json:"createdAt"`
}
