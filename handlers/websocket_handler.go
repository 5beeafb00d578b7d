package handlers

import (
	"errors"
	"net/http"

	"github.com/AJM432/racing/live"
	"github.com/AJM432/racing/services"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Same stance as the CORS config: usernames are client-supplied
		// and nothing here is privileged.
		return true
	},
}

type WebSocketHandler struct {
	hub          *live.Hub
	trackService services.TrackService
}

func NewWebSocketHandler(hub *live.Hub, ts services.TrackService) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, trackService: ts}
}

// ServeHandler обрабатывает GET /ws/racetracks/{trackID}
func (h *WebSocketHandler) ServeHandler(w http.ResponseWriter, r *http.Request) {
	trackID, err := getTrackIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	// Subscriptions are only offered for tracks that exist.
	if _, err := h.trackService.GetTrackByID(r.Context(), trackID); err != nil {
		if errors.Is(err, services.ErrTrackNotFound) {
			notFoundResponse(w, r)
			return
		}
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := live.NewClient(h.hub, conn, trackID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
