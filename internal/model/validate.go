package model

import (
	"fmt"
	"math"
	"sort"
)

// ValidationError describes a single data-shape defect.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationResult accumulates defects instead of failing on the first one.
type ValidationResult struct {
	OK     bool              `json:"ok"`
	Errors []ValidationError `json:"errors,omitempty"`
}

func (r *ValidationResult) add(field, format string, args ...any) {
	r.OK = false
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// MinIDLength is the minimum length of an entity identifier.
const MinIDLength = 8

// ValidateQuestion checks a question against its variant rules.
func ValidateQuestion(q Question) ValidationResult {
	res := ValidationResult{OK: true}

	if len(q.ID) < MinIDLength {
		res.add("id", "must be at least %d characters, got %d", MinIDLength, len(q.ID))
	}
	if q.Prompt == "" {
		res.add("prompt", "must not be empty")
	}
	if q.Explanation == "" {
		res.add("explanation", "must not be empty")
	}
	if q.Media != nil {
		if q.Media.Kind != MediaImage {
			res.add("media.kind", "unknown media kind %q", q.Media.Kind)
		}
		if q.Media.URL == "" {
			res.add("media.url", "must not be empty")
		}
	}

	switch q.Type {
	case SingleChoice:
		if len(q.Options) < 2 {
			res.add("options", "need at least 2 options, got %d", len(q.Options))
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			res.add("correctIndex", "index %d out of range [0, %d)", q.CorrectIndex, len(q.Options))
		}
	case MultiChoice:
		if len(q.Options) < 2 {
			res.add("options", "need at least 2 options, got %d", len(q.Options))
		}
		if len(q.CorrectIndices) == 0 {
			res.add("correctIndices", "must not be empty")
		}
		seen := make(map[int]bool, len(q.CorrectIndices))
		for _, i := range q.CorrectIndices {
			if i < 0 || i >= len(q.Options) {
				res.add("correctIndices", "index %d out of range [0, %d)", i, len(q.Options))
			}
			if seen[i] {
				res.add("correctIndices", "duplicate index %d", i)
			}
			seen[i] = true
		}
		if !sort.IntsAreSorted(q.CorrectIndices) {
			res.add("correctIndices", "must be sorted ascending")
		}
	case FreeText:
		if q.CorrectAnswer == "" {
			res.add("correctAnswer", "must not be empty")
		}
	default:
		res.add("type", "unknown question type %q", q.Type)
	}

	return res
}

// ValidateQuiz checks a quiz and every contained question.
func ValidateQuiz(q Quiz) ValidationResult {
	res := ValidationResult{OK: true}

	if len(q.ID) < MinIDLength {
		res.add("id", "must be at least %d characters, got %d", MinIDLength, len(q.ID))
	}
	if q.Title == "" {
		res.add("title", "must not be empty")
	}
	if len(q.Questions) == 0 {
		res.add("questions", "quiz needs at least one question")
	}
	if q.Settings.TimeLimitSeconds < 0 {
		res.add("settings.timeLimitSeconds", "must be positive when set, got %d", q.Settings.TimeLimitSeconds)
	}
	if !q.UpdatedAt.IsZero() && !q.CreatedAt.IsZero() && q.UpdatedAt.Before(q.CreatedAt) {
		res.add("updatedAt", "must not precede createdAt")
	}

	for i, question := range q.Questions {
		qr := ValidateQuestion(question)
		for _, e := range qr.Errors {
			res.add(fmt.Sprintf("questions[%d].%s", i, e.Field), "%s", e.Message)
		}
	}

	return res
}

// ValidateResult checks a result against the quiz it references. Pass a zero
// Quiz to validate the result's internal consistency only.
func ValidateResult(r Result, quiz Quiz) ValidationResult {
	res := ValidationResult{OK: true}

	if len(r.ID) < MinIDLength {
		res.add("id", "must be at least %d characters, got %d", MinIDLength, len(r.ID))
	}
	if r.QuizID == "" {
		res.add("quizId", "must not be empty")
	}
	if len(r.Answers) != r.TotalQuestions {
		res.add("answers", "expected %d answer records, got %d", r.TotalQuestions, len(r.Answers))
	}
	if r.CorrectCount < 0 || r.CorrectCount > r.TotalQuestions {
		res.add("correctCount", "%d out of range [0, %d]", r.CorrectCount, r.TotalQuestions)
	}
	if r.TotalQuestions > 0 {
		want := int(math.Round(float64(r.CorrectCount) / float64(r.TotalQuestions) * 100))
		if r.Score != want {
			res.add("score", "expected %d for %d/%d correct, got %d", want, r.CorrectCount, r.TotalQuestions, r.Score)
		}
	}
	if r.CompletedAt.Before(r.StartedAt) {
		res.add("completedAt", "must not precede startedAt")
	}
	if r.TimeSpentSeconds < 0 {
		res.add("timeSpentSeconds", "must not be negative")
	}

	if quiz.ID != "" {
		known := make(map[string]bool, len(quiz.Questions))
		for _, q := range quiz.Questions {
			known[q.ID] = true
		}
		for i, a := range r.Answers {
			if !known[a.QuestionID] {
				res.add(fmt.Sprintf("answers[%d].questionId", i), "question %q not in quiz %q", a.QuestionID, quiz.ID)
			}
		}
	}

	return res
}
