package http

import (
	"encoding/json"
	"net/http"

	"snapquiz-service/internal/app"
	"snapquiz-service/internal/domain"
)

// LeaderboardHandler exposes score submission and per-quiz ranking.
type LeaderboardHandler struct {
	service *app.PlayerService
}

func NewLeaderboardHandler(service *app.PlayerService) *LeaderboardHandler {
	return &LeaderboardHandler{service: service}
}

// Top returns all entries for a quiz, best score first.
func (h *LeaderboardHandler) Top(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}
	entries, err := h.service.Leaderboard(r.Context(), quizID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	writeJSON(w, entries)
}

// Submit appends a score entry directly.
func (h *LeaderboardHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var entry domain.LeaderboardEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		http.Error(w, "invalid entry payload", http.StatusBadRequest)
		return
	}
	if entry.QuizID == "" || entry.Email == "" {
		http.Error(w, "quizId and email required", http.StatusBadRequest)
		return
	}
	if err := h.service.SubmitScore(r.Context(), entry); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}
