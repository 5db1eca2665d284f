// Package explain produces learner-facing explanations for quiz answers,
// caching model output so repeat lookups cost nothing.
package explain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"quizforge/internal/llm"
	"quizforge/internal/llm/prompts"
	"quizforge/internal/model"
	"quizforge/internal/store"
)

// Service answers explanation requests, consulting the cache first and
// falling back to the question's own explanation when the model is
// unreachable.
type Service struct {
	transport llm.Transport
	cache     *cache
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*options)

type options struct {
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// WithTTL overrides the cache lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New builds the service. kv may be nil, in which case the cache lives only
// in memory.
func New(transport llm.Transport, kv store.KV, opts ...Option) *Service {
	o := options{ttl: DefaultTTL, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		transport: transport,
		cache:     newCache(kv, o.ttl, o.logger, o.now),
		logger:    o.logger,
	}
}

// Explain returns an explanation for the given question, tailored to the
// learner's answer when one is provided. Model failures degrade to the
// question's stored explanation; the caller always gets usable text.
func (s *Service) Explain(ctx context.Context, q model.Question, userAnswer model.Answer) string {
	key := hashKey("question", q.ID, answerString(userAnswer))
	if text, ok := s.cache.get(key); ok {
		return text
	}

	prompt, err := prompts.BuildExplain(prompts.ExplainData{
		Prompt:     q.Prompt,
		Options:    q.Options,
		Correct:    correctString(q),
		UserAnswer: answerString(userAnswer),
	})
	if err != nil {
		s.logger.Error("build explanation prompt", "question", q.ID, "error", err)
		return fallback(q)
	}

	completion, err := s.transport.Complete(ctx, prompt)
	if err != nil {
		s.logger.Warn("explanation request failed", "question", q.ID, "kind", llm.Kind(err), "error", err)
		return fallback(q)
	}

	text := strings.TrimSpace(completion.Text)
	if text == "" {
		return fallback(q)
	}
	s.cache.put(key, text)
	return text
}

// General explains a free-form concept, optionally grounded in source text.
func (s *Service) General(ctx context.Context, topic, source string) (string, error) {
	key := hashKey("general", topic, source)
	if text, ok := s.cache.get(key); ok {
		return text, nil
	}

	prompt, err := prompts.BuildGeneral(prompts.GeneralData{Topic: topic, Context: source})
	if err != nil {
		return "", err
	}
	completion, err := s.transport.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(completion.Text)
	if text == "" {
		return "", &llm.Error{Kind: llm.KindParse, Err: fmt.Errorf("empty explanation for %q", topic)}
	}
	s.cache.put(key, text)
	return text, nil
}

// GeneralResult is one item of a batch lookup.
type GeneralResult struct {
	Topic       string `json:"topic"`
	Explanation string `json:"explanation,omitempty"`
	Err         error  `json:"-"`
}

// BatchGeneral explains several concepts, preserving input order. One topic
// failing does not abort the rest; each result carries its own error.
func (s *Service) BatchGeneral(ctx context.Context, topics []string, source string) []GeneralResult {
	results := make([]GeneralResult, len(topics))
	for i, topic := range topics {
		text, err := s.General(ctx, topic, source)
		results[i] = GeneralResult{Topic: topic, Explanation: text, Err: err}
	}
	return results
}

// ClearCache drops all cached explanations.
func (s *Service) ClearCache() { s.cache.clear() }

// CacheSize reports how many explanations are cached.
func (s *Service) CacheSize() int { return s.cache.size() }

// fallback picks the best explanation available without the model.
func fallback(q model.Question) string {
	if q.Explanation != "" {
		return q.Explanation
	}
	if c := correctString(q); c != "" {
		return "The correct answer is: " + c
	}
	return "No explanation is available for this question."
}

// correctString renders the question's correct answer as display text.
func correctString(q model.Question) string {
	switch q.Type {
	case model.SingleChoice:
		if q.CorrectIndex >= 0 && q.CorrectIndex < len(q.Options) {
			return q.Options[q.CorrectIndex]
		}
	case model.MultiChoice:
		var parts []string
		for _, i := range q.CorrectIndices {
			if i >= 0 && i < len(q.Options) {
				parts = append(parts, q.Options[i])
			}
		}
		return strings.Join(parts, ", ")
	case model.FreeText:
		return q.CorrectAnswer
	}
	return ""
}

// answerString renders a learner answer for prompts and cache keys. Index
// answers are shown as their option positions; nil means no answer.
func answerString(a model.Answer) string {
	if a == nil {
		return ""
	}
	if i, ok := model.AsIndex(a); ok {
		return fmt.Sprintf("option %d", i)
	}
	if is, ok := model.AsIndices(a); ok {
		parts := make([]string, len(is))
		for j, i := range is {
			parts[j] = fmt.Sprintf("%d", i)
		}
		return "options " + strings.Join(parts, ", ")
	}
	if s, ok := model.AsText(a); ok {
		return s
	}
	return fmt.Sprintf("%v", a)
}
