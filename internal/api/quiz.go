package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"quizforge/internal/i18n"
	"quizforge/internal/model"
	"quizforge/internal/store"
)

func (h *Handler) handleListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.store.ListQuizzes()
	if err != nil {
		h.respondError(w, r.Context(), err)
		return
	}
	respondJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) handleCreateQuiz(w http.ResponseWriter, r *http.Request) {
	var quiz model.Quiz
	if err := decodeBody(r, &quiz); err != nil {
		h.badRequest(w, r.Context(), err.Error())
		return
	}

	if quiz.ID == "" {
		quiz.ID = model.NewID()
		for i := range quiz.Questions {
			if quiz.Questions[i].ID == "" {
				quiz.Questions[i].ID = model.NewID()
			}
		}
	}
	quiz.Title = model.SanitizeText(quiz.Title)
	quiz.Description = model.SanitizeText(quiz.Description)

	if v := model.ValidateQuiz(quiz); !v.OK {
		respondJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error: "VALIDATION", Message: i18n.T(r.Context(), "InvalidQuiz"), Details: v.Errors,
		})
		return
	}
	if err := h.store.PutQuiz(&quiz); err != nil {
		h.respondError(w, r.Context(), err)
		return
	}
	respondJSON(w, http.StatusCreated, quiz)
}

func (h *Handler) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.store.GetQuiz(chi.URLParam(r, "quizID"))
	if err != nil {
		h.respondError(w, r.Context(), err)
		return
	}
	if quiz == nil {
		h.notFound(w, r.Context(), "QuizNotFound")
		return
	}
	respondJSON(w, http.StatusOK, quiz)
}

func (h *Handler) handlePatchQuiz(w http.ResponseWriter, r *http.Request) {
	var patch store.QuizPatch
	if err := decodeBody(r, &patch); err != nil {
		h.badRequest(w, r.Context(), err.Error())
		return
	}
	quiz, err := h.store.PatchQuiz(chi.URLParam(r, "quizID"), patch)
	if err != nil {
		h.respondError(w, r.Context(), err)
		return
	}
	if quiz == nil {
		h.notFound(w, r.Context(), "QuizNotFound")
		return
	}
	if v := model.ValidateQuiz(*quiz); !v.OK {
		respondJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error: "VALIDATION", Message: i18n.T(r.Context(), "InvalidQuiz"), Details: v.Errors,
		})
		return
	}
	respondJSON(w, http.StatusOK, quiz)
}

func (h *Handler) handleDeleteQuiz(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "quizID")
	quiz, err := h.store.GetQuiz(id)
	if err != nil {
		h.respondError(w, r.Context(), err)
		return
	}
	if quiz == nil {
		h.notFound(w, r.Context(), "QuizNotFound")
		return
	}
	if err := h.store.DeleteQuiz(id); err != nil {
		h.respondError(w, r.Context(), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": i18n.Td(r.Context(), "QuizDeleted", map[string]any{"Title": quiz.Title}),
	})
}

func (h *Handler) handleGetMedia(w http.ResponseWriter, r *http.Request) {
	blob, err := h.store.GetMedia(chi.URLParam(r, "mediaID"))
	if err != nil {
		h.respondError(w, r.Context(), err)
		return
	}
	if blob == nil {
		h.notFound(w, r.Context(), "MediaNotFound")
		return
	}
	respondJSON(w, http.StatusOK, blob)
}

func (h *Handler) handlePutMedia(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID       string `json:"id"`
		DataURL  string `json:"dataUrl"`
		MimeType string `json:"mimeType"`
	}
	if err := decodeBody(r, &req); err != nil || req.DataURL == "" {
		h.badRequest(w, r.Context(), "dataUrl is required")
		return
	}
	if req.ID == "" {
		req.ID = model.NewID()
	}
	if err := h.store.PutMedia(req.ID, req.DataURL, req.MimeType); err != nil {
		h.respondError(w, r.Context(), err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": req.ID})
}
