// Package llm turns source text into quiz questions through an
// OpenAI-compatible chat completion API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// ErrorKind classifies a generation failure so callers can pick the right
// user-facing message without string matching.
type ErrorKind string

const (
	// KindAuth covers missing or rejected API keys.
	KindAuth ErrorKind = "AUTH"
	// KindQuota covers rate limiting and exhausted quotas.
	KindQuota ErrorKind = "QUOTA"
	// KindNetwork covers transport failures and server errors.
	KindNetwork ErrorKind = "NETWORK"
	// KindParse covers replies that could not be turned into questions.
	KindParse ErrorKind = "PARSE"
)

// Error is a classified generation failure.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("llm %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Kind extracts the classification from err, defaulting to KindNetwork for
// unclassified failures.
func Kind(err error) ErrorKind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindNetwork
}

// Completion is one model reply plus the response headers, which carry the
// provider's rate-limit hints.
type Completion struct {
	Text    string
	Headers http.Header
}

// Transport sends one prompt and returns the model's reply. Implemented by
// OpenAITransport in production and by fakes in tests.
type Transport interface {
	Complete(ctx context.Context, prompt string) (*Completion, error)
}

// GeminiBaseURL is the OpenAI-compatible endpoint of the Gemini API.
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// DefaultModel is the model used when the caller does not pick one.
const DefaultModel = "gemini-2.0-flash"

// OpenAITransport talks to any OpenAI-compatible chat completion endpoint.
type OpenAITransport struct {
	api    *openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAITransport builds a transport for the given endpoint. An empty
// baseURL targets the Gemini compatibility endpoint; an empty modelName takes
// the default.
func NewOpenAITransport(baseURL, apiKey, modelName string, logger *slog.Logger) *OpenAITransport {
	config := openai.DefaultConfig(apiKey)
	if baseURL == "" {
		baseURL = GeminiBaseURL
	}
	config.BaseURL = baseURL
	if modelName == "" {
		modelName = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAITransport{
		api:    openai.NewClientWithConfig(config),
		model:  modelName,
		logger: logger,
	}
}

// Complete sends the prompt as a single user message and returns the first
// choice. API failures come back classified.
func (t *OpenAITransport) Complete(ctx context.Context, prompt string) (*Completion, error) {
	resp, err := t.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &Error{Kind: KindParse, Err: errors.New("model returned no choices")}
	}

	headers := resp.Header()
	if remaining := headers.Get("x-ratelimit-remaining-requests"); remaining == "0" {
		t.logger.Warn("request quota nearly exhausted",
			"reset", headers.Get("x-ratelimit-reset-requests"))
	}

	return &Completion{
		Text:    resp.Choices[0].Message.Content,
		Headers: headers,
	}, nil
}

// classify maps API and transport errors onto error kinds by HTTP status.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &Error{Kind: KindAuth, Err: err}
		case http.StatusTooManyRequests:
			return &Error{Kind: KindQuota, Err: err}
		}
		return &Error{Kind: KindNetwork, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &Error{Kind: KindAuth, Err: err}
		case http.StatusTooManyRequests:
			return &Error{Kind: KindQuota, Err: err}
		}
	}
	return &Error{Kind: KindNetwork, Err: err}
}
