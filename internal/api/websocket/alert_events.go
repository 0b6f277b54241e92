package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/davidleathers/applicant-trust-engine/internal/service/alerting"
)

// AlertEventType labels the messages sent over the alert stream
type AlertEventType string

const (
	AlertEventHighRisk   AlertEventType = "alert.high_risk"
	AlertEventAutoReject AlertEventType = "alert.auto_reject"
	AlertEventConnection AlertEventType = "connection.established"
	AlertEventPong       AlertEventType = "pong"
)

// AlertEvent is the wire format for one alert stream message
type AlertEvent struct {
	ID           string         `json:"id"`
	Type         AlertEventType `json:"type"`
	ApplicantID  string         `json:"applicant_id,omitempty"`
	AssessmentID string         `json:"assessment_id,omitempty"`
	Severity     string         `json:"severity,omitempty"`
	RiskScore    float64        `json:"risk_score,omitempty"`
	Message      string         `json:"message,omitempty"`
	Patterns     []string       `json:"patterns,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
	Data         interface{}    `json:"data,omitempty"`
}

// AlertEventFilters narrows which alerts a client receives
type AlertEventFilters struct {
	Severities   []string `json:"severities,omitempty"`
	AlertTypes   []string `json:"alert_types,omitempty"`
	MinRiskScore float64  `json:"min_risk_score,omitempty"`
}

// AlertEventHub fans risk alerts out to connected WebSocket clients.
// It implements the alert manager's Broadcaster.
type AlertEventHub struct {
	logger      *zap.Logger
	clients     map[uuid.UUID]*AlertClient
	clientsLock sync.RWMutex
	broadcast   chan *AlertEvent
	register    chan *AlertClient
	unregister  chan *AlertClient
	done        chan struct{}
}

// AlertClient represents a WebSocket client subscribed to risk alerts
type AlertClient struct {
	ID      uuid.UUID
	conn    *websocket.Conn
	send    chan *AlertEvent
	hub     *AlertEventHub
	filters AlertEventFilters
	userID  uuid.UUID
	role    string
}

// NewAlertEventHub creates a new alert event hub
func NewAlertEventHub(logger *zap.Logger) *AlertEventHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertEventHub{
		logger:     logger,
		clients:    make(map[uuid.UUID]*AlertClient),
		broadcast:  make(chan *AlertEvent, 100),
		register:   make(chan *AlertClient),
		unregister: make(chan *AlertClient),
		done:       make(chan struct{}),
	}
}

// Run drives the hub until the context ends or Stop is called
func (h *AlertEventHub) Run(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case <-h.done:
			h.shutdown()
			return
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case event := <-h.broadcast:
			h.broadcastEvent(event)
		case <-ticker.C:
			h.pingClients()
		}
	}
}

// Stop gracefully shuts down the hub
func (h *AlertEventHub) Stop() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

// BroadcastAlert satisfies the alert manager's Broadcaster. A full
// broadcast queue drops the event rather than blocking the caller.
func (h *AlertEventHub) BroadcastAlert(alert *alerting.RiskAlert) {
	if alert == nil {
		return
	}

	eventType := AlertEventHighRisk
	if alert.AlertType == alerting.AlertTypeAutoReject {
		eventType = AlertEventAutoReject
	}

	event := &AlertEvent{
		ID:           uuid.New().String(),
		Type:         eventType,
		ApplicantID:  alert.ApplicantID,
		AssessmentID: alert.AssessmentID.String(),
		Severity:     alert.Severity,
		RiskScore:    alert.RiskScore,
		Message:      alert.Message,
		Patterns:     alert.Patterns,
		Timestamp:    alert.TriggeredAt,
	}

	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("alert broadcast queue full, dropping event",
			zap.String("applicant_id", alert.ApplicantID),
			zap.String("alert_type", alert.AlertType),
		)
	}
}

// RegisterClient hands a new client to the hub loop
func (h *AlertEventHub) RegisterClient(client *AlertClient) {
	h.register <- client
}

// UnregisterClient removes a client from the hub loop
func (h *AlertEventHub) UnregisterClient(client *AlertClient) {
	h.unregister <- client
}

// ActiveConnections reports the current client count
func (h *AlertEventHub) ActiveConnections() int {
	h.clientsLock.RLock()
	defer h.clientsLock.RUnlock()
	return len(h.clients)
}

func (h *AlertEventHub) registerClient(client *AlertClient) {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()

	h.clients[client.ID] = client
	h.logger.Info("alert stream client registered",
		zap.String("client_id", client.ID.String()),
		zap.String("user_id", client.userID.String()),
		zap.String("role", client.role),
	)

	welcome := &AlertEvent{
		ID:        uuid.New().String(),
		Type:      AlertEventConnection,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"client_id": client.ID.String(),
			"message":   "Connected to risk alert stream",
		},
	}

	select {
	case client.send <- welcome:
	default:
	}
}

func (h *AlertEventHub) unregisterClient(client *AlertClient) {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()

	if _, exists := h.clients[client.ID]; exists {
		delete(h.clients, client.ID)
		close(client.send)
		h.logger.Info("alert stream client unregistered",
			zap.String("client_id", client.ID.String()),
		)
	}
}

func (h *AlertEventHub) broadcastEvent(event *AlertEvent) {
	h.clientsLock.RLock()
	defer h.clientsLock.RUnlock()

	for _, client := range h.clients {
		if !client.shouldReceiveEvent(event) {
			continue
		}
		select {
		case client.send <- event:
		default:
			// A slow consumer must not hold up the rest
			h.logger.Warn("client send queue full, closing connection",
				zap.String("client_id", client.ID.String()),
			)
			go func(c *AlertClient) {
				h.unregister <- c
			}(client)
		}
	}
}

func (h *AlertEventHub) pingClients() {
	h.clientsLock.RLock()
	defer h.clientsLock.RUnlock()

	for _, client := range h.clients {
		if err := client.conn.WriteControl(
			websocket.PingMessage,
			nil,
			time.Now().Add(10*time.Second),
		); err != nil {
			go func(c *AlertClient) {
				h.unregister <- c
			}(client)
		}
	}
}

func (h *AlertEventHub) shutdown() {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()

	for _, client := range h.clients {
		close(client.send)
		client.conn.Close()
	}
	h.clients = make(map[uuid.UUID]*AlertClient)
}

// AlertClient methods

// NewAlertClient creates a client for an upgraded connection
func NewAlertClient(conn *websocket.Conn, hub *AlertEventHub, userID uuid.UUID, role string) *AlertClient {
	return &AlertClient{
		ID:     uuid.New(),
		conn:   conn,
		send:   make(chan *AlertEvent, 10),
		hub:    hub,
		userID: userID,
		role:   role,
	}
}

// ReadPump consumes client messages: filter updates and pings
func (c *AlertClient) ReadPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error("alert stream read error",
					zap.String("client_id", c.ID.String()),
					zap.Error(err),
				)
			}
			break
		}

		var msg struct {
			Type    string            `json:"type"`
			Filters AlertEventFilters `json:"filters"`
		}
		if err := json.Unmarshal(message, &msg); err != nil {
			c.hub.logger.Warn("unparseable client message",
				zap.String("client_id", c.ID.String()),
				zap.Error(err),
			)
			continue
		}

		switch msg.Type {
		case "update_filters":
			c.filters = msg.Filters
		case "ping":
			pong := &AlertEvent{
				ID:        uuid.New().String(),
				Type:      AlertEventPong,
				Timestamp: time.Now(),
			}
			select {
			case c.send <- pong:
			default:
			}
		}
	}
}

// WritePump pushes hub events to the connection and keeps it alive
func (c *AlertClient) WritePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(event); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *AlertClient) shouldReceiveEvent(event *AlertEvent) bool {
	if c.role != "admin" && c.role != "assessor" {
		return false
	}

	if len(c.filters.AlertTypes) > 0 && event.Type != AlertEventConnection {
		alertType := alerting.AlertTypeHighRisk
		if event.Type == AlertEventAutoReject {
			alertType = alerting.AlertTypeAutoReject
		}
		if !containsString(c.filters.AlertTypes, alertType) {
			return false
		}
	}

	if len(c.filters.Severities) > 0 && event.Severity != "" {
		if !containsString(c.filters.Severities, event.Severity) {
			return false
		}
	}

	if c.filters.MinRiskScore > 0 && event.RiskScore < c.filters.MinRiskScore {
		return false
	}

	return true
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
