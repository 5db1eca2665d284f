package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"quizforge/internal/model"
	"quizforge/internal/session"
)

// sessionView is the state snapshot returned by every session endpoint.
type sessionView struct {
	ID        string         `json:"id"`
	State     session.State  `json:"state"`
	Position  int            `json:"position"`
	Total     int            `json:"total"`
	Question  model.Question `json:"question"`
	Answered  int            `json:"answered"`
	Remaining int            `json:"remainingSeconds"`
	Result    *model.Result  `json:"result,omitempty"`
}

func (h *Handler) viewOf(id string, c *session.Controller) sessionView {
	q, pos, total := c.Current()
	// Correct answers stay server side until the run completes.
	if c.State() != session.StateCompleted {
		q.CorrectIndex = 0
		q.CorrectIndices = nil
		q.CorrectAnswer = ""
		q.Explanation = ""
	}
	return sessionView{
		ID:        id,
		State:     c.State(),
		Position:  pos,
		Total:     total,
		Question:  q,
		Answered:  c.AnsweredCount(),
		Remaining: int(c.Remaining().Seconds()),
		Result:    c.Result(),
	}
}

func (h *Handler) lookupSession(id string) *session.Controller {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessions[id]
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.store.GetQuiz(chi.URLParam(r, "quizID"))
	if err != nil {
		h.respondError(w, r.Context(), err)
		return
	}
	if quiz == nil {
		h.notFound(w, r.Context(), "QuizNotFound")
		return
	}

	userID, err := h.store.EnsureUserID()
	if err != nil {
		h.respondError(w, r.Context(), err)
		return
	}

	c := session.New(*quiz, userID, session.Config{
		Store:  h.store,
		Grader: h.grader,
		Logger: h.logger,
	})
	if err := c.Start(); err != nil {
		h.respondError(w, r.Context(), err)
		return
	}

	id := model.NewID()
	h.mu.Lock()
	h.sessions[id] = c
	h.mu.Unlock()

	respondJSON(w, http.StatusCreated, h.viewOf(id, c))
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	c := h.lookupSession(id)
	if c == nil {
		h.notFound(w, r.Context(), "SessionNotFound")
		return
	}
	respondJSON(w, http.StatusOK, h.viewOf(id, c))
}

func (h *Handler) handleSessionAnswer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	c := h.lookupSession(id)
	if c == nil {
		h.notFound(w, r.Context(), "SessionNotFound")
		return
	}

	var req struct {
		QuestionID string       `json:"questionId"`
		Answer     model.Answer `json:"answer"`
		Advance    bool         `json:"advance"`
	}
	if err := decodeBody(r, &req); err != nil {
		h.badRequest(w, r.Context(), err.Error())
		return
	}
	if err := c.Answer(req.QuestionID, req.Answer); err != nil {
		h.respondError(w, r.Context(), err)
		return
	}
	if req.Advance {
		c.Next()
	}
	respondJSON(w, http.StatusOK, h.viewOf(id, c))
}

func (h *Handler) handleSessionGoTo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	c := h.lookupSession(id)
	if c == nil {
		h.notFound(w, r.Context(), "SessionNotFound")
		return
	}
	var req struct {
		Position int `json:"position"`
	}
	if err := decodeBody(r, &req); err != nil {
		h.badRequest(w, r.Context(), err.Error())
		return
	}
	c.GoTo(req.Position)
	respondJSON(w, http.StatusOK, h.viewOf(id, c))
}

// sessionOp runs one state-machine transition and replies with the new view.
func (h *Handler) sessionOp(w http.ResponseWriter, r *http.Request, op func(*session.Controller) error) {
	id := chi.URLParam(r, "sessionID")
	c := h.lookupSession(id)
	if c == nil {
		h.notFound(w, r.Context(), "SessionNotFound")
		return
	}
	if err := op(c); err != nil {
		h.respondError(w, r.Context(), err)
		return
	}
	respondJSON(w, http.StatusOK, h.viewOf(id, c))
}

func (h *Handler) handleSessionPause(w http.ResponseWriter, r *http.Request) {
	h.sessionOp(w, r, (*session.Controller).Pause)
}

func (h *Handler) handleSessionResume(w http.ResponseWriter, r *http.Request) {
	h.sessionOp(w, r, (*session.Controller).Resume)
}

func (h *Handler) handleSessionReview(w http.ResponseWriter, r *http.Request) {
	h.sessionOp(w, r, (*session.Controller).Review)
}

func (h *Handler) handleSessionCancel(w http.ResponseWriter, r *http.Request) {
	h.sessionOp(w, r, (*session.Controller).Cancel)
}

func (h *Handler) handleSessionSubmit(w http.ResponseWriter, r *http.Request) {
	h.sessionOp(w, r, func(c *session.Controller) error {
		_, err := c.Submit()
		return err
	})
}
