// Package scoring grades quiz runs. All functions are pure with respect to
// their inputs; the only ambient read is the clock captured at construction.
package scoring

import (
	"math"
	"time"

	"quizforge/internal/model"
)

// GradeBand maps a minimum score to a letter grade.
type GradeBand struct {
	Grade string
	Min   int
}

// DefaultGradeBands is the standard letter scale, scanned high to low; the
// first band whose minimum is at or below the score wins.
var DefaultGradeBands = []GradeBand{
	{"A+", 97}, {"A", 93}, {"A-", 90},
	{"B+", 87}, {"B", 83}, {"B-", 80},
	{"C+", 77}, {"C", 73}, {"C-", 70},
	{"D+", 67}, {"D", 63}, {"D-", 60},
	{"F", 0},
}

// Grader computes results. The grade table is fixed per instance so a result
// is never graded against a table that changed mid-computation.
type Grader struct {
	bands []GradeBand
	now   func() time.Time
}

// Option configures a Grader.
type Option func(*Grader)

// WithGradeBands replaces the default letter scale.
func WithGradeBands(bands []GradeBand) Option {
	return func(g *Grader) { g.bands = bands }
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Grader) { g.now = now }
}

// NewGrader returns a Grader with the default scale.
func NewGrader(opts ...Option) *Grader {
	g := &Grader{bands: DefaultGradeBands, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// IsCorrect applies the per-variant equality law. Exposed here so callers of
// the scoring service need not import the model's helper directly.
func IsCorrect(q model.Question, a model.Answer) bool {
	return model.IsAnswerCorrect(q, a)
}

// Grade maps a 0..100 score to a letter using the grader's table.
func (g *Grader) Grade(score int) string {
	for _, band := range g.bands {
		if score >= band.Min {
			return band.Grade
		}
	}
	return "F"
}

// CalculateResult grades a full run. Answer records are built in quiz
// question order, one per question; questions missing from the answer map
// become skipped records. timestamps carries per-question submission times
// and is used only for the average-time metadata; total time always comes
// from the wall-clock delta.
func (g *Grader) CalculateResult(
	quiz model.Quiz,
	answers map[string]model.Answer,
	timestamps map[string]time.Time,
	startedAt, completedAt time.Time,
	userID string,
) model.Result {
	total := len(quiz.Questions)
	records := make([]model.AnswerRecord, 0, total)
	correct := 0

	for _, q := range quiz.Questions {
		a, ok := answers[q.ID]
		if !ok {
			a = nil
		}
		rec := model.AnswerRecord{
			QuestionID:  q.ID,
			UserAnswer:  a,
			IsCorrect:   a != nil && IsCorrect(q, a),
			Explanation: q.Explanation,
		}
		if rec.IsCorrect {
			correct++
		}
		records = append(records, rec)
	}

	score := 0
	if total > 0 {
		score = int(math.Round(float64(correct) / float64(total) * 100))
	}

	timeSpent := int(math.Round(completedAt.Sub(startedAt).Seconds()))
	if timeSpent < 0 {
		timeSpent = 0
	}

	return model.Result{
		ID:               model.NewID(),
		QuizID:           quiz.ID,
		UserID:           userID,
		Score:            score,
		TotalQuestions:   total,
		CorrectCount:     correct,
		Answers:          records,
		StartedAt:        startedAt,
		CompletedAt:      completedAt,
		TimeSpentSeconds: timeSpent,
		Grade:            g.Grade(score),
		Metadata:         buildMetadata(quiz, records, timestamps, startedAt),
	}
}

func buildMetadata(
	quiz model.Quiz,
	records []model.AnswerRecord,
	timestamps map[string]time.Time,
	startedAt time.Time,
) model.ResultMetadata {
	meta := model.ResultMetadata{
		PerformanceByType: make(map[model.QuestionType]model.TypePerformance),
	}

	byID := make(map[string]model.Question, len(quiz.Questions))
	for _, q := range quiz.Questions {
		byID[q.ID] = q
	}

	var answeredSeconds float64
	for _, rec := range records {
		q := byID[rec.QuestionID]
		perf := meta.PerformanceByType[q.Type]
		perf.Total++

		if rec.UserAnswer == nil {
			meta.SkippedCount++
		} else {
			meta.AnsweredCount++
			if ts, ok := timestamps[rec.QuestionID]; ok && ts.After(startedAt) {
				answeredSeconds += ts.Sub(startedAt).Seconds()
			}
		}
		if rec.IsCorrect {
			perf.Correct++
		}
		meta.PerformanceByType[q.Type] = perf
	}

	for t, perf := range meta.PerformanceByType {
		if perf.Total > 0 {
			perf.Accuracy = float64(perf.Correct) / float64(perf.Total)
		}
		meta.PerformanceByType[t] = perf
	}

	total := len(records)
	if total > 0 {
		meta.CompletionRate = float64(meta.AnsweredCount) / float64(total)
	}
	if meta.AnsweredCount > 0 {
		correct := 0
		for _, rec := range records {
			if rec.IsCorrect {
				correct++
			}
		}
		meta.Accuracy = float64(correct) / float64(meta.AnsweredCount)
		meta.AverageTimePerQuestion = answeredSeconds / float64(meta.AnsweredCount)
	}
	return meta
}

// Recalculate re-grades a result against the given quiz revision and returns
// a replacement copy stamped with RecalculatedAt. Questions no longer present
// in the quiz grade as incorrect with an explanatory note.
func (g *Grader) Recalculate(r model.Result, quiz model.Quiz) model.Result {
	byID := make(map[string]model.Question, len(quiz.Questions))
	for _, q := range quiz.Questions {
		byID[q.ID] = q
	}

	out := r
	out.Answers = make([]model.AnswerRecord, len(r.Answers))
	correct := 0
	for i, rec := range r.Answers {
		nr := rec
		q, ok := byID[rec.QuestionID]
		if !ok {
			nr.IsCorrect = false
			nr.Explanation = "question no longer exists"
		} else {
			nr.IsCorrect = rec.UserAnswer != nil && IsCorrect(q, rec.UserAnswer)
			nr.Explanation = q.Explanation
		}
		if nr.IsCorrect {
			correct++
		}
		out.Answers[i] = nr
	}

	out.CorrectCount = correct
	if out.TotalQuestions > 0 {
		out.Score = int(math.Round(float64(correct) / float64(out.TotalQuestions) * 100))
	}
	out.Grade = g.Grade(out.Score)
	now := g.now()
	out.RecalculatedAt = &now
	return out
}
