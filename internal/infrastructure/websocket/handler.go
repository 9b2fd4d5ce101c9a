package websocket

import (
	"net/http"
	"sync"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// WebSocketHandler upgrades notification subscriptions. Clients connect with
// ?user_id=<id> and receive every event addressed to that user.
type WebSocketHandler struct {
	connManager domain.ConnectionManager
	log         logger.Logger
}

func NewWebSocketHandler(connManager domain.ConnectionManager, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		connManager: connManager,
		log:         log,
	}
}

func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	wsConn := NewWebSocketConnection(conn, userID)
	if err := h.connManager.RegisterConnection(userID, wsConn); err != nil {
		h.log.Error("Failed to register connection", "user_id", userID, "error", err)
		conn.Close()
		return
	}

	go h.handleMessages(wsConn)
}

func (h *WebSocketHandler) handleMessages(conn *WebSocketConnection) {
	defer func() {
		h.connManager.UnregisterConnection(conn.UserID(), conn)
		conn.Close()
	}()

	for {
		var msg map[string]interface{}
		if err := conn.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Error("Failed to read message", "user_id", conn.UserID(), "error", err)
			}
			return
		}

		msgType, ok := msg["type"].(string)
		if !ok {
			continue
		}

		switch msgType {
		case "ping":
			if err := conn.Send(map[string]string{"type": "pong"}); err != nil {
				h.log.Error("Failed to send pong", "user_id", conn.UserID(), "error", err)
			}
		default:
			h.log.Debug("Ignoring client message", "user_id", conn.UserID(), "type", msgType)
		}
	}
}

// WebSocketConnection serialises writes; gorilla connections allow a single
// concurrent writer.
type WebSocketConnection struct {
	conn   *websocket.Conn
	userID string
	mu     sync.Mutex
}

func NewWebSocketConnection(conn *websocket.Conn, userID string) *WebSocketConnection {
	return &WebSocketConnection{
		conn:   conn,
		userID: userID,
	}
}

func (wsc *WebSocketConnection) Send(message interface{}) error {
	wsc.mu.Lock()
	defer wsc.mu.Unlock()
	return wsc.conn.WriteJSON(message)
}

func (wsc *WebSocketConnection) Close() error {
	return wsc.conn.Close()
}

func (wsc *WebSocketConnection) UserID() string {
	return wsc.userID
}
