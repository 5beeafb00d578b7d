package handlers

import (
	"net/http"

	"github.com/AJM432/racing/services"
)

type LeaderboardHandler struct {
	leaderboardService services.LeaderboardService
}

func NewLeaderboardHandler(ls services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: ls}
}

// SubmitHandler обрабатывает POST /api/racetracks/{trackID}/leaderboard
func (h *LeaderboardHandler) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	trackID, err := getTrackIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Username string  `json:"username"`
		Time     float64 `json:"time"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.leaderboardService.SubmitTime(r.Context(), trackID, input.Username, input.Time)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetHandler обрабатывает GET /api/racetracks/{trackID}/leaderboard
func (h *LeaderboardHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	trackID, err := getTrackIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	entries, err := h.leaderboardService.GetLeaderboard(r.Context(), trackID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": entries}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
