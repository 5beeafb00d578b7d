package handlers

import (
	"errors"
	"net/http"

	"github.com/AJM432/racing/services"
	"github.com/go-chi/chi/v5"
)

type TrackHandler struct {
	trackService services.TrackService
}

func NewTrackHandler(ts services.TrackService) *TrackHandler {
	return &TrackHandler{trackService: ts}
}

func getTrackIDFromURL(r *http.Request) (string, error) {
	id := chi.URLParam(r, "trackID")
	if id == "" {
		return "", errors.New("missing track id in URL")
	}
	return id, nil
}

// CreateHandler обрабатывает POST /api/racetracks
func (h *TrackHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name     string `json:"name"`
		Username string `json:"username"`
		Image    string `json:"image"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	track, err := h.trackService.CreateTrack(r.Context(), services.CreateTrackInput{
		Name:         input.Name,
		Owner:        input.Username,
		ImagePayload: input.Image,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"racetrack": track}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler обрабатывает GET /api/racetracks
func (h *TrackHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")

	tracks, err := h.trackService.ListTracks(r.Context(), owner)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"racetracks": tracks}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler обрабатывает GET /api/racetracks/{trackID}
func (h *TrackHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getTrackIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	track, err := h.trackService.GetTrackByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"racetrack": track}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ReplaceImageHandler обрабатывает PUT /api/racetracks/{trackID}/image
func (h *TrackHandler) ReplaceImageHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getTrackIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Image string `json:"image"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	track, err := h.trackService.ReplaceTrackAsset(r.Context(), id, input.Image)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"racetrack": track}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteHandler обрабатывает DELETE /api/racetracks/{trackID}
func (h *TrackHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getTrackIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.trackService.DeleteTrack(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
