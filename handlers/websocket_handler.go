package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/aoe-board/tournament-board/realtime"
	"github.com/aoe-board/tournament-board/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin is not restricted; the endpoint sits behind admin auth.
		return true
	},
}

type WebSocketHandler struct {
	hub    *realtime.Hub
	logger *slog.Logger
}

func NewWebSocketHandler(hub *realtime.Hub, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, logger: logger}
}

// ServeInbox handles GET /ws/inbox. The route is admin-gated; subscribers
// receive inbox events as messages arrive and publish requests open or
// close.
func (h *WebSocketHandler) ServeInbox(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error to the client.
		h.logger.Error("failed to upgrade inbox connection", slog.Any("error", err))
		return
	}

	client := &realtime.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: services.InboxRoom,
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
