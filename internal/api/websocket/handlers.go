package websocket

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin enforcement happens in the CORS middleware upstream
		return true
	},
}

// ErrAlertHubNotRunning indicates the hub has been stopped
var ErrAlertHubNotRunning = errors.New("alert event hub not running")

// Handler manages WebSocket connections for the risk alert stream
type Handler struct {
	logger *zap.Logger
	hub    *AlertEventHub
}

// NewHandler creates a new WebSocket handler
func NewHandler(logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		logger: logger,
		hub:    NewAlertEventHub(logger),
	}
}

// Hub exposes the event hub so it can be wired as the alert broadcaster
func (h *Handler) Hub() *AlertEventHub {
	return h.hub
}

// Start launches the hub loop
func (h *Handler) Start(ctx context.Context) {
	go h.hub.Run(ctx)
	h.logger.Info("alert stream hub started")
}

// Stop shuts down the hub and disconnects all clients
func (h *Handler) Stop() {
	h.hub.Stop()
	h.logger.Info("alert stream hub stopped")
}

// HandleAlertStream upgrades the request and subscribes the caller to
// risk alerts. Identity comes from the REST layer, which authenticated
// the request before delegating here.
func (h *Handler) HandleAlertStream(w http.ResponseWriter, r *http.Request, userID uuid.UUID, role string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := NewAlertClient(conn, h.hub, userID, role)
	h.hub.RegisterClient(client)

	go client.WritePump()
	go client.ReadPump()
}

// HealthCheck reports whether the hub is accepting connections
func (h *Handler) HealthCheck() error {
	select {
	case <-h.hub.done:
		return ErrAlertHubNotRunning
	default:
		return nil
	}
}
