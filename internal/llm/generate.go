package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"quizforge/internal/llm/prompts"
	"quizforge/internal/model"
)

// Generation limits.
const (
	MinQuestions     = 1
	MaxQuestions     = 20
	DefaultQuestions = 5
)

// GenerateOptions tunes question generation. Zero values take the defaults:
// 5 questions, single choice only, mixed difficulty, explanations on.
type GenerateOptions struct {
	Count               int
	Types               []model.QuestionType
	Difficulty          prompts.Difficulty
	IncludeExplanations *bool
}

func (o GenerateOptions) withDefaults() GenerateOptions {
	if o.Count == 0 {
		o.Count = DefaultQuestions
	}
	if o.Count < MinQuestions {
		o.Count = MinQuestions
	}
	if o.Count > MaxQuestions {
		o.Count = MaxQuestions
	}
	// Unknown type names are dropped rather than forwarded to the prompt;
	// a request that names none we recognize falls back to single choice.
	var types []model.QuestionType
	for _, t := range o.Types {
		if model.IsValidType(t) {
			types = append(types, t)
		}
	}
	if len(types) == 0 {
		types = []model.QuestionType{model.SingleChoice}
	}
	o.Types = types
	if o.Difficulty == "" {
		o.Difficulty = prompts.DifficultyMixed
	}
	if o.IncludeExplanations == nil {
		on := true
		o.IncludeExplanations = &on
	}
	return o
}

// GenerationMetadata records what a generation run produced and dropped.
type GenerationMetadata struct {
	GeneratedAt         time.Time            `json:"generatedAt"`
	SourceContentLength int                  `json:"sourceContentLength"`
	RequestedCount      int                  `json:"requestedCount"`
	AcceptedCount       int                  `json:"acceptedCount"`
	RejectedCount       int                  `json:"rejectedCount"`
	QuestionTypes       []model.QuestionType `json:"questionTypes"`
}

// Generated is the outcome of one generation run.
type Generated struct {
	Questions []model.Question   `json:"questions"`
	Metadata  GenerationMetadata `json:"metadata"`
}

// Service generates validated questions through a Transport.
type Service struct {
	transport Transport
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires a generation service over the given transport.
func NewService(transport Transport, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{transport: transport, logger: logger, now: time.Now}
}

// candidate mirrors the JSON shape the prompt asks the model for. Indices
// arrive as float64 through the generic decode path, so they are declared
// loosely and normalized afterwards.
type candidate struct {
	Type           string   `json:"type"`
	Prompt         string   `json:"prompt"`
	Options        []string `json:"options"`
	CorrectIndex   *int     `json:"correctIndex"`
	CorrectIndices []int    `json:"correctIndices"`
	CorrectAnswer  string   `json:"correctAnswer"`
	Explanation    string   `json:"explanation"`
}

type reply struct {
	Questions []candidate `json:"questions"`
}

// GenerateQuestions asks the model for questions about content and returns
// only candidates that survive validation. Invalid candidates are dropped and
// counted, never repaired into something the model did not say; a run where
// every candidate fails decodes as a parse error.
func (s *Service) GenerateQuestions(ctx context.Context, content string, opts GenerateOptions) (*Generated, error) {
	opts = opts.withDefaults()

	if strings.TrimSpace(content) == "" {
		return nil, &Error{Kind: KindParse, Err: fmt.Errorf("no source content")}
	}

	typeNames := make([]string, len(opts.Types))
	for i, t := range opts.Types {
		typeNames[i] = string(t)
	}
	prompt, err := prompts.BuildGenerate(opts.Difficulty, prompts.GenerateData{
		Content:             content,
		Count:               opts.Count,
		Types:               strings.Join(typeNames, ", "),
		IncludeExplanations: *opts.IncludeExplanations,
	})
	if err != nil {
		return nil, &Error{Kind: KindParse, Err: err}
	}

	completion, err := s.transport.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var parsed reply
	raw := extractJSON(completion.Text)
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		s.logger.Debug("unparseable model reply", "raw", completion.Text)
		return nil, &Error{Kind: KindParse, Err: fmt.Errorf("decode model reply: %w", err)}
	}
	if len(parsed.Questions) == 0 {
		return nil, &Error{Kind: KindParse, Err: fmt.Errorf("model reply contained no questions")}
	}

	allowed := make(map[model.QuestionType]bool, len(opts.Types))
	for _, t := range opts.Types {
		allowed[t] = true
	}

	questions := make([]model.Question, 0, len(parsed.Questions))
	rejected := 0
	for i, c := range parsed.Questions {
		q, ok := s.acceptCandidate(c, allowed)
		if !ok {
			rejected++
			s.logger.Debug("dropped generated question", "index", i, "type", c.Type)
			continue
		}
		questions = append(questions, q)
		if len(questions) == opts.Count {
			break
		}
	}
	if len(questions) == 0 {
		return nil, &Error{Kind: KindParse, Err: fmt.Errorf("no usable questions in model reply")}
	}

	return &Generated{
		Questions: questions,
		Metadata: GenerationMetadata{
			GeneratedAt:         s.now().UTC(),
			SourceContentLength: len(content),
			RequestedCount:      opts.Count,
			AcceptedCount:       len(questions),
			RejectedCount:       rejected,
			QuestionTypes:       opts.Types,
		},
	}, nil
}

// acceptCandidate normalizes one model candidate into a Question and runs it
// through the domain validator. A candidate without a type is treated as
// single choice; candidates of a type the caller did not ask for are rejected
// even when internally consistent.
func (s *Service) acceptCandidate(c candidate, allowed map[model.QuestionType]bool) (model.Question, bool) {
	t := model.QuestionType(strings.ToUpper(strings.TrimSpace(c.Type)))
	if t == "" {
		t = model.SingleChoice
	}
	if !model.IsValidType(t) || !allowed[t] {
		return model.Question{}, false
	}

	q := model.Question{
		ID:          model.NewID(),
		Type:        t,
		Prompt:      strings.TrimSpace(c.Prompt),
		Explanation: strings.TrimSpace(c.Explanation),
	}

	switch t {
	case model.SingleChoice:
		if c.CorrectIndex == nil {
			return model.Question{}, false
		}
		q.Options = trimAll(c.Options)
		q.CorrectIndex = *c.CorrectIndex
	case model.MultiChoice:
		q.Options = trimAll(c.Options)
		q.CorrectIndices = normalizeIndices(c.CorrectIndices)
	case model.FreeText:
		q.CorrectAnswer = strings.TrimSpace(c.CorrectAnswer)
		q.CaseSensitive = false
	}

	if q.Explanation == "" {
		q.Explanation = defaultExplanation(q)
	}

	if v := model.ValidateQuestion(q); !v.OK {
		return model.Question{}, false
	}
	return q, true
}

// defaultExplanation fills the explanation slot when the caller asked for
// none, so every stored question still explains itself during review.
func defaultExplanation(q model.Question) string {
	switch q.Type {
	case model.SingleChoice:
		if q.CorrectIndex >= 0 && q.CorrectIndex < len(q.Options) {
			return "The correct answer is: " + q.Options[q.CorrectIndex]
		}
	case model.MultiChoice:
		var parts []string
		for _, i := range q.CorrectIndices {
			if i >= 0 && i < len(q.Options) {
				parts = append(parts, q.Options[i])
			}
		}
		if len(parts) > 0 {
			return "The correct answers are: " + strings.Join(parts, ", ")
		}
	case model.FreeText:
		if q.CorrectAnswer != "" {
			return "The expected answer is: " + q.CorrectAnswer
		}
	}
	return "See the source material for details."
}

func trimAll(opts []string) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = strings.TrimSpace(o)
	}
	return out
}

// normalizeIndices sorts and deduplicates so the validator's ordering rule
// never rejects a semantically fine answer set.
func normalizeIndices(indices []int) []int {
	if len(indices) == 0 {
		return nil
	}
	seen := make(map[int]bool, len(indices))
	out := make([]int, 0, len(indices))
	for _, i := range indices {
		if !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}
