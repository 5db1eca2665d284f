package api

import (
	"io"
	"net/http"
	"strings"

	"quizforge/internal/i18n"
	"quizforge/internal/llm"
	"quizforge/internal/llm/prompts"
	"quizforge/internal/model"
	"quizforge/internal/textproc"
)

// maxPDFBytes caps uploaded PDF size at 20MB.
const maxPDFBytes = 20 << 20

func (h *Handler) handleProcessText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text  string                `json:"text"`
		Chunk textproc.ChunkOptions `json:"chunk"`
	}
	if err := decodeBody(r, &req); err != nil {
		h.badRequest(w, r.Context(), err.Error())
		return
	}

	res := textproc.Process(req.Text, req.Chunk)
	if !res.OK {
		respondJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:   "TEXT_INVALID",
			Message: i18n.T(r.Context(), "TextTooShort"),
			Details: res.Validation,
		})
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// handleExtractPDF accepts raw PDF bytes and returns the extracted text run
// through the cleaning pipeline.
func (h *Handler) handleExtractPDF(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPDFBytes))
	if err != nil {
		h.badRequest(w, r.Context(), "request body too large")
		return
	}

	text, err := textproc.ExtractPDFText(h.pdf, data)
	if err != nil {
		h.respondError(w, r.Context(), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"text": textproc.Clean(text)})
}

type generateRequest struct {
	Text                string               `json:"text"`
	Count               int                  `json:"count"`
	Types               []model.QuestionType `json:"types"`
	Difficulty          string               `json:"difficulty"`
	IncludeExplanations *bool                `json:"includeExplanations"`

	// Title set means the generated questions are saved as a new quiz.
	Title    string              `json:"title,omitempty"`
	Settings *model.QuizSettings `json:"settings,omitempty"`
}

// handleGenerate runs the text pipeline, asks the model for questions, and
// optionally persists the outcome as a quiz.
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeBody(r, &req); err != nil {
		h.badRequest(w, r.Context(), err.Error())
		return
	}
	if req.Difficulty != "" && !prompts.IsValidDifficulty(req.Difficulty) {
		h.badRequest(w, r.Context(), "unknown difficulty "+req.Difficulty)
		return
	}

	processed := textproc.Process(req.Text, textproc.ChunkOptions{})
	if !processed.OK {
		respondJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:   "TEXT_INVALID",
			Message: i18n.T(r.Context(), "TextTooShort"),
			Details: processed.Validation,
		})
		return
	}

	generated, err := h.gen.GenerateQuestions(r.Context(), processed.Text, llm.GenerateOptions{
		Count:               req.Count,
		Types:               req.Types,
		Difficulty:          prompts.Difficulty(req.Difficulty),
		IncludeExplanations: req.IncludeExplanations,
	})
	if err != nil {
		h.respondError(w, r.Context(), err)
		return
	}

	body := map[string]any{
		"questions": generated.Questions,
		"metadata":  generated.Metadata,
		"message":   i18n.Tp(r.Context(), "QuestionsGenerated", len(generated.Questions)),
	}

	if strings.TrimSpace(req.Title) != "" {
		quiz := model.Quiz{
			ID:        model.NewID(),
			Title:     model.SanitizeText(req.Title),
			Questions: generated.Questions,
		}
		if req.Settings != nil {
			quiz.Settings = *req.Settings
		} else if prefs, err := h.store.GetPreferences(); err == nil && prefs != nil {
			quiz.Settings = prefs.Preferences.DefaultQuizSettings
		}
		if err := h.store.PutQuiz(&quiz); err != nil {
			h.respondError(w, r.Context(), err)
			return
		}
		body["quiz"] = quiz
	}

	respondJSON(w, http.StatusOK, body)
}

// handleExplain explains one question, tailored to the user's answer.
func (h *Handler) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuizID     string       `json:"quizId"`
		QuestionID string       `json:"questionId"`
		UserAnswer model.Answer `json:"userAnswer"`
	}
	if err := decodeBody(r, &req); err != nil {
		h.badRequest(w, r.Context(), err.Error())
		return
	}

	quiz, err := h.store.GetQuiz(req.QuizID)
	if err != nil {
		h.respondError(w, r.Context(), err)
		return
	}
	if quiz == nil {
		h.notFound(w, r.Context(), "QuizNotFound")
		return
	}
	for _, q := range quiz.Questions {
		if q.ID == req.QuestionID {
			text := h.explain.Explain(r.Context(), q, req.UserAnswer)
			respondJSON(w, http.StatusOK, map[string]string{"explanation": text})
			return
		}
	}
	h.notFound(w, r.Context(), "QuizNotFound")
}

func (h *Handler) handleExplainGeneral(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topics  []string `json:"topics"`
		Context string   `json:"context"`
	}
	if err := decodeBody(r, &req); err != nil || len(req.Topics) == 0 {
		h.badRequest(w, r.Context(), "topics are required")
		return
	}

	if len(req.Topics) == 1 {
		text, err := h.explain.General(r.Context(), req.Topics[0], req.Context)
		if err != nil {
			h.respondError(w, r.Context(), err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"explanation": text})
		return
	}

	results := h.explain.BatchGeneral(r.Context(), req.Topics, req.Context)
	out := make([]map[string]any, len(results))
	for i, res := range results {
		item := map[string]any{"topic": res.Topic}
		if res.Err != nil {
			item["error"] = string(llm.Kind(res.Err))
		} else {
			item["explanation"] = res.Explanation
		}
		out[i] = item
	}
	respondJSON(w, http.StatusOK, out)
}
