package websocket

import (
	"encoding/json"
	"sync"

	"auction-marketplace/internal/domain"
	"auction-marketplace/internal/metrics"
	"auction-marketplace/pkg/logger"
)

type ConnectionManager struct {
	userConns map[string][]domain.WebSocketConnection // userID -> connections
	mutex     sync.RWMutex
	log       logger.Logger
}

func NewConnectionManager(log logger.Logger) *ConnectionManager {
	return &ConnectionManager{
		userConns: make(map[string][]domain.WebSocketConnection),
		log:       log,
	}
}

func (cm *ConnectionManager) RegisterConnection(userID string, conn domain.WebSocketConnection) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	cm.userConns[userID] = append(cm.userConns[userID], conn)
	metrics.WebSocketConnections.Inc()

	cm.log.Info("Connection registered", "user_id", userID, "connections", len(cm.userConns[userID]))
	return nil
}

func (cm *ConnectionManager) UnregisterConnection(userID string, conn domain.WebSocketConnection) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	userConnections, exists := cm.userConns[userID]
	if !exists {
		return nil
	}

	var newConns []domain.WebSocketConnection
	for _, existingConn := range userConnections {
		if existingConn != conn {
			newConns = append(newConns, existingConn)
		}
	}
	if len(newConns) == len(userConnections) {
		return nil
	}
	metrics.WebSocketConnections.Dec()

	if len(newConns) == 0 {
		delete(cm.userConns, userID)
	} else {
		cm.userConns[userID] = newConns
	}

	cm.log.Info("Connection unregistered", "user_id", userID)
	return nil
}

// CloseAll closes every registered connection. Used on shutdown.
func (cm *ConnectionManager) CloseAll() {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	for userID, conns := range cm.userConns {
		for _, conn := range conns {
			if err := conn.Close(); err != nil {
				cm.log.Error("Failed to close connection", "user_id", userID, "error", err)
			}
			metrics.WebSocketConnections.Dec()
		}
	}
	cm.userConns = make(map[string][]domain.WebSocketConnection)
}

func (cm *ConnectionManager) GetConnectionsForUser(userID string) []domain.WebSocketConnection {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	if connections, exists := cm.userConns[userID]; exists {
		return append([]domain.WebSocketConnection(nil), connections...)
	}

	return nil
}

// NotifyUser sends message to every connection the user holds. A failed send
// is logged and the remaining connections still receive the message.
func (cm *ConnectionManager) NotifyUser(userID string, message interface{}) error {
	connections := cm.GetConnectionsForUser(userID)
	if len(connections) == 0 {
		cm.log.Debug("No connections for user", "user_id", userID)
		return nil
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	for _, conn := range connections {
		if err := conn.Send(json.RawMessage(messageBytes)); err != nil {
			cm.log.Error("Failed to send message", "user_id", userID, "error", err)
		}
	}

	return nil
}
