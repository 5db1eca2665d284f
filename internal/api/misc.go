package api

import (
	"encoding/json"
	"net/http"

	"quizforge/internal/i18n"
	"quizforge/internal/model"
	"quizforge/internal/store"
)

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := h.store.HealthCheck()
	status := http.StatusOK
	if !health.Initialized {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, health)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats()
	if err != nil {
		h.respondError(w, r.Context(), err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleRecentErrors(w http.ResponseWriter, r *http.Request) {
	logged, err := h.store.RecentErrors()
	if err != nil {
		h.respondError(w, r.Context(), err)
		return
	}
	respondJSON(w, http.StatusOK, logged)
}

func (h *Handler) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.store.GetPreferences()
	if err != nil {
		h.respondError(w, r.Context(), err)
		return
	}
	if prefs == nil {
		defaults := model.DefaultPreferences()
		prefs = &defaults
	}
	// The key itself never leaves the process; the client learns only
	// whether one is set.
	masked := *prefs
	hasKey := masked.APIKeys.GeminiKey != ""
	masked.APIKeys.GeminiKey = ""
	respondJSON(w, http.StatusOK, map[string]any{
		"preferences":  masked.Preferences,
		"hasGeminiKey": hasKey,
	})
}

func (h *Handler) handlePatchPreferences(w http.ResponseWriter, r *http.Request) {
	var patch store.PreferencesPatch
	if err := decodeBody(r, &patch); err != nil {
		h.badRequest(w, r.Context(), err.Error())
		return
	}
	prefs, err := h.store.PatchPreferences(patch)
	if err != nil {
		h.respondError(w, r.Context(), err)
		return
	}
	respondJSON(w, http.StatusOK, prefs.Preferences)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Export()
	if err != nil {
		h.respondError(w, r.Context(), err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="quizforge-export.json"`)
	respondJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Snapshot  model.Snapshot `json:"snapshot"`
		Overwrite bool           `json:"overwrite"`
	}
	// Snapshots from newer builds may carry extra fields; tolerate them.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, r.Context(), err.Error())
		return
	}
	summary, err := h.store.Import(req.Snapshot, req.Overwrite)
	if err != nil {
		h.respondError(w, r.Context(), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"summary": summary,
		"message": i18n.Td(r.Context(), "ImportDone", map[string]any{
			"Imported": summary.Quizzes.Imported + summary.Results.Imported,
			"Skipped":  summary.Quizzes.Skipped + summary.Results.Skipped,
		}),
	})
}
