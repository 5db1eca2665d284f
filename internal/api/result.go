package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"quizforge/internal/model"
	"quizforge/internal/scoring"
)

func (h *Handler) handleListResults(w http.ResponseWriter, r *http.Request) {
	var (
		results []model.Result
		err     error
	)
	if userID := r.URL.Query().Get("user"); userID != "" {
		results, err = h.store.ListResultsByUser(userID)
	} else {
		results, err = h.store.ListResults()
	}
	if err != nil {
		h.respondError(w, r.Context(), err)
		return
	}
	respondJSON(w, http.StatusOK, results)
}

func (h *Handler) handleGetResult(w http.ResponseWriter, r *http.Request) {
	result, err := h.store.GetResult(chi.URLParam(r, "resultID"))
	if err != nil {
		h.respondError(w, r.Context(), err)
		return
	}
	if result == nil {
		h.notFound(w, r.Context(), "ResultNotFound")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteResult(chi.URLParam(r, "resultID")); err != nil {
		h.respondError(w, r.Context(), err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handleQuizResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.store.ListResultsByQuiz(chi.URLParam(r, "quizID"))
	if err != nil {
		h.respondError(w, r.Context(), err)
		return
	}
	respondJSON(w, http.StatusOK, results)
}

func (h *Handler) handleQuizStats(w http.ResponseWriter, r *http.Request) {
	results, err := h.store.ListResultsByQuiz(chi.URLParam(r, "quizID"))
	if err != nil {
		h.respondError(w, r.Context(), err)
		return
	}
	// Listing order is newest first; the trend wants submission order.
	ordered := make([]model.Result, len(results))
	for i, res := range results {
		ordered[len(results)-1-i] = res
	}
	respondJSON(w, http.StatusOK, scoring.ComputeStatistics(ordered))
}

// handleRecalculate re-grades every result of a quiz against its current
// questions, persisting the replacements.
func (h *Handler) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	quizID := chi.URLParam(r, "quizID")
	quiz, err := h.store.GetQuiz(quizID)
	if err != nil {
		h.respondError(w, r.Context(), err)
		return
	}
	if quiz == nil {
		h.notFound(w, r.Context(), "QuizNotFound")
		return
	}

	results, err := h.store.ListResultsByQuiz(quizID)
	if err != nil {
		h.respondError(w, r.Context(), err)
		return
	}

	updated := make([]model.Result, 0, len(results))
	for _, res := range results {
		re := h.grader.Recalculate(res, *quiz)
		if err := h.store.PutResult(&re); err != nil {
			h.respondError(w, r.Context(), err)
			return
		}
		updated = append(updated, re)
	}
	respondJSON(w, http.StatusOK, updated)
}
