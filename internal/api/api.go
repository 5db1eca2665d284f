// Package api is the JSON surface over the quiz services. Rendering is
// someone else's job; every endpoint speaks JSON and nothing else.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"quizforge/internal/explain"
	"quizforge/internal/i18n"
	"quizforge/internal/llm"
	"quizforge/internal/scoring"
	"quizforge/internal/session"
	"quizforge/internal/store"
	"quizforge/internal/textproc"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store   *store.Store
	gen     *llm.Service
	explain *explain.Service
	grader  *scoring.Grader
	pdf     textproc.PDFExtractor
	logger  *slog.Logger
	lang    string

	mu       sync.Mutex
	sessions map[string]*session.Controller
}

// Config carries the handler's collaborators. PDF may be nil; the endpoint
// then reports extraction as unavailable.
type Config struct {
	Store   *store.Store
	Gen     *llm.Service
	Explain *explain.Service
	Grader  *scoring.Grader
	PDF     textproc.PDFExtractor
	Logger  *slog.Logger

	// Lang is the fallback response language when the client sends no
	// Accept-Language header. Defaults to "en".
	Lang string
}

// New creates a new Handler.
func New(cfg Config) *Handler {
	if cfg.Grader == nil {
		cfg.Grader = scoring.NewGrader()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Lang == "" {
		cfg.Lang = "en"
	}
	return &Handler{
		store:    cfg.Store,
		gen:      cfg.Gen,
		explain:  cfg.Explain,
		grader:   cfg.Grader,
		pdf:      cfg.PDF,
		logger:   cfg.Logger,
		lang:     cfg.Lang,
		sessions: make(map[string]*session.Controller),
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(i18n.Middleware(h.lang))

	r.Get("/health", h.handleHealth)
	r.Get("/stats", h.handleStats)
	r.Get("/errors", h.handleRecentErrors)

	r.Route("/quizzes", func(r chi.Router) {
		r.Get("/", h.handleListQuizzes)
		r.Post("/", h.handleCreateQuiz)
		r.Get("/{quizID}", h.handleGetQuiz)
		r.Patch("/{quizID}", h.handlePatchQuiz)
		r.Delete("/{quizID}", h.handleDeleteQuiz)
		r.Get("/{quizID}/results", h.handleQuizResults)
		r.Get("/{quizID}/stats", h.handleQuizStats)
		r.Post("/{quizID}/recalculate", h.handleRecalculate)
		r.Post("/{quizID}/sessions", h.handleStartSession)
	})

	r.Route("/results", func(r chi.Router) {
		r.Get("/", h.handleListResults)
		r.Get("/{resultID}", h.handleGetResult)
		r.Delete("/{resultID}", h.handleDeleteResult)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/{sessionID}", h.handleGetSession)
		r.Post("/{sessionID}/answers", h.handleSessionAnswer)
		r.Post("/{sessionID}/goto", h.handleSessionGoTo)
		r.Post("/{sessionID}/pause", h.handleSessionPause)
		r.Post("/{sessionID}/resume", h.handleSessionResume)
		r.Post("/{sessionID}/review", h.handleSessionReview)
		r.Post("/{sessionID}/submit", h.handleSessionSubmit)
		r.Post("/{sessionID}/cancel", h.handleSessionCancel)
	})

	r.Post("/text/process", h.handleProcessText)
	r.Post("/text/pdf", h.handleExtractPDF)
	r.Post("/generate", h.handleGenerate)
	r.Post("/explain", h.handleExplain)
	r.Post("/explain/general", h.handleExplainGeneral)

	r.Get("/media/{mediaID}", h.handleGetMedia)
	r.Post("/media", h.handlePutMedia)

	r.Get("/preferences", h.handleGetPreferences)
	r.Patch("/preferences", h.handlePatchPreferences)

	r.Get("/export", h.handleExport)
	r.Post("/import", h.handleImport)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// respondError maps a service failure to a status code and a localized
// message. The raw error never reaches the client.
func (h *Handler) respondError(w http.ResponseWriter, ctx context.Context, err error) {
	var se *store.StorageError
	if errors.As(err, &se) {
		switch se.Kind {
		case store.KindQuota:
			respondJSON(w, http.StatusInsufficientStorage, errorBody{
				Error: string(se.Kind), Message: i18n.T(ctx, "StorageQuota"),
			})
		default:
			respondJSON(w, http.StatusServiceUnavailable, errorBody{
				Error: string(se.Kind), Message: i18n.T(ctx, "StorageUnavailable"),
			})
		}
		h.logger.Error("storage failure", "op", se.Op, "kind", se.Kind, "error", se.Err)
		return
	}

	var le *llm.Error
	if errors.As(err, &le) {
		status := http.StatusBadGateway
		msgID := "ModelUnreachable"
		switch le.Kind {
		case llm.KindAuth:
			status, msgID = http.StatusUnauthorized, "ModelAuthFailed"
		case llm.KindQuota:
			status, msgID = http.StatusTooManyRequests, "ModelQuota"
		case llm.KindParse:
			status, msgID = http.StatusUnprocessableEntity, "ModelReplyUnusable"
		}
		respondJSON(w, status, errorBody{Error: string(le.Kind), Message: i18n.T(ctx, msgID)})
		return
	}

	if errors.Is(err, session.ErrState) {
		respondJSON(w, http.StatusConflict, errorBody{
			Error: "SESSION_STATE", Message: i18n.T(ctx, "SessionConflict"),
		})
		return
	}
	if errors.Is(err, textproc.ErrPDFUnavailable) {
		respondJSON(w, http.StatusNotImplemented, errorBody{
			Error: "PDF_UNAVAILABLE", Message: i18n.T(ctx, "PDFUnavailable"),
		})
		return
	}

	h.logger.Error("request failed", "error", err)
	respondJSON(w, http.StatusInternalServerError, errorBody{
		Error: "INTERNAL", Message: i18n.T(ctx, "InvalidRequest"),
	})
}

func (h *Handler) notFound(w http.ResponseWriter, ctx context.Context, msgID string) {
	respondJSON(w, http.StatusNotFound, errorBody{Error: "NOT_FOUND", Message: i18n.T(ctx, msgID)})
}

func (h *Handler) badRequest(w http.ResponseWriter, ctx context.Context, details any) {
	respondJSON(w, http.StatusBadRequest, errorBody{
		Error: "INVALID", Message: i18n.T(ctx, "InvalidRequest"), Details: details,
	})
}

// decodeBody decodes a JSON request body into v, rejecting unknown fields.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
