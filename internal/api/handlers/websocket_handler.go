package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	apimw "auction-marketplace/internal/api/middleware"
	"auction-marketplace/internal/infrastructure/websocket"
	"auction-marketplace/pkg/logger"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewNotificationRouter serves websocket subscriptions for the notification
// service.
func NewNotificationRouter(wsHandler *websocket.WebSocketHandler, log logger.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(apimw.RequestLogger(log))
	router.Use(apimw.CORS(log))

	router.HandleFunc("/ws/notifications", wsHandler.HandleConnection).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "ok",
			"service":   "notification-service",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return router
}
