package websocket

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davidleathers/applicant-trust-engine/internal/service/alerting"
)

func startHub(t *testing.T) *AlertEventHub {
	t.Helper()

	hub := NewAlertEventHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func waitForEvent(t *testing.T, ch <-chan *AlertEvent) *AlertEvent {
	t.Helper()

	select {
	case event := <-ch:
		require.NotNil(t, event)
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for alert event")
		return nil
	}
}

func assertNoEvent(t *testing.T, ch <-chan *AlertEvent) {
	t.Helper()

	select {
	case event := <-ch:
		t.Fatalf("expected no event, got %q", event.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func drainClients(t *testing.T, hub *AlertEventHub, clients ...*AlertClient) {
	t.Helper()

	for _, client := range clients {
		hub.UnregisterClient(client)
	}
	require.Eventually(t, func() bool {
		return hub.ActiveConnections() == 0
	}, time.Second, 10*time.Millisecond)
}

func highRiskAlert(applicantID string, score float64) *alerting.RiskAlert {
	return &alerting.RiskAlert{
		ID:           uuid.New(),
		AlertType:    alerting.AlertTypeHighRisk,
		Severity:     "high",
		ApplicantID:  applicantID,
		AssessmentID: uuid.New(),
		RiskScore:    score,
		Message:      "risk score exceeded escalation threshold",
		Patterns:     []string{"suspicious_ip"},
		TriggeredAt:  time.Now(),
	}
}

func TestAlertEventHubRegisterAndBroadcast(t *testing.T) {
	hub := startHub(t)

	client := NewAlertClient(nil, hub, uuid.New(), "admin")
	hub.RegisterClient(client)

	welcome := waitForEvent(t, client.send)
	assert.Equal(t, AlertEventConnection, welcome.Type)
	assert.Equal(t, 1, hub.ActiveConnections())

	alert := highRiskAlert("APP-3001", 0.82)
	hub.BroadcastAlert(alert)

	event := waitForEvent(t, client.send)
	assert.Equal(t, AlertEventHighRisk, event.Type)
	assert.Equal(t, "APP-3001", event.ApplicantID)
	assert.Equal(t, alert.AssessmentID.String(), event.AssessmentID)
	assert.Equal(t, "high", event.Severity)
	assert.InDelta(t, 0.82, event.RiskScore, 0.0001)
	assert.Equal(t, []string{"suspicious_ip"}, event.Patterns)

	hub.BroadcastAlert(&alerting.RiskAlert{
		ID:           uuid.New(),
		AlertType:    alerting.AlertTypeAutoReject,
		Severity:     "critical",
		ApplicantID:  "APP-3001",
		AssessmentID: uuid.New(),
		RiskScore:    0.97,
		TriggeredAt:  time.Now(),
	})

	rejected := waitForEvent(t, client.send)
	assert.Equal(t, AlertEventAutoReject, rejected.Type)

	drainClients(t, hub, client)
}

func TestAlertEventHubRoleGate(t *testing.T) {
	hub := startHub(t)

	admin := NewAlertClient(nil, hub, uuid.New(), "admin")
	viewer := NewAlertClient(nil, hub, uuid.New(), "viewer")
	hub.RegisterClient(admin)
	hub.RegisterClient(viewer)

	// Both get the welcome handshake regardless of role
	waitForEvent(t, admin.send)
	waitForEvent(t, viewer.send)

	hub.BroadcastAlert(highRiskAlert("APP-3002", 0.85))

	event := waitForEvent(t, admin.send)
	assert.Equal(t, "APP-3002", event.ApplicantID)
	assertNoEvent(t, viewer.send)

	drainClients(t, hub, admin, viewer)
}

func TestAlertEventHubDropsSlowClients(t *testing.T) {
	hub := startHub(t)

	client := NewAlertClient(nil, hub, uuid.New(), "admin")
	hub.RegisterClient(client)

	require.Eventually(t, func() bool {
		return hub.ActiveConnections() == 1
	}, time.Second, 10*time.Millisecond)

	// Nobody drains client.send, so its buffer fills and the hub evicts
	// the client instead of blocking the broadcast loop.
	for i := 0; i < 20; i++ {
		hub.BroadcastAlert(highRiskAlert(fmt.Sprintf("APP-%d", i), 0.8))
	}

	require.Eventually(t, func() bool {
		return hub.ActiveConnections() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestBroadcastAlertNeverBlocks(t *testing.T) {
	// No Run loop draining the queue; the overflow is dropped
	hub := NewAlertEventHub(zap.NewNop())

	for i := 0; i < 150; i++ {
		hub.BroadcastAlert(highRiskAlert("APP-4000", 0.8))
	}

	assert.Len(t, hub.broadcast, 100)
}

func TestShouldReceiveEvent(t *testing.T) {
	highRisk := &AlertEvent{Type: AlertEventHighRisk, Severity: "high", RiskScore: 0.82}

	tests := []struct {
		name     string
		role     string
		filters  AlertEventFilters
		event    *AlertEvent
		expected bool
	}{
		{
			name:     "admin receives by default",
			role:     "admin",
			event:    highRisk,
			expected: true,
		},
		{
			name:     "assessor receives by default",
			role:     "assessor",
			event:    highRisk,
			expected: true,
		},
		{
			name:     "other roles receive nothing",
			role:     "viewer",
			event:    highRisk,
			expected: false,
		},
		{
			name:     "alert type filter matches",
			role:     "admin",
			filters:  AlertEventFilters{AlertTypes: []string{alerting.AlertTypeHighRisk}},
			event:    highRisk,
			expected: true,
		},
		{
			name:     "alert type filter excludes",
			role:     "admin",
			filters:  AlertEventFilters{AlertTypes: []string{alerting.AlertTypeAutoReject}},
			event:    highRisk,
			expected: false,
		},
		{
			name:     "connection events bypass type filters",
			role:     "admin",
			filters:  AlertEventFilters{AlertTypes: []string{alerting.AlertTypeAutoReject}},
			event:    &AlertEvent{Type: AlertEventConnection},
			expected: true,
		},
		{
			name:     "severity filter matches",
			role:     "admin",
			filters:  AlertEventFilters{Severities: []string{"high", "critical"}},
			event:    highRisk,
			expected: true,
		},
		{
			name:     "severity filter excludes",
			role:     "admin",
			filters:  AlertEventFilters{Severities: []string{"critical"}},
			event:    highRisk,
			expected: false,
		},
		{
			name:     "risk score floor excludes",
			role:     "admin",
			filters:  AlertEventFilters{MinRiskScore: 0.9},
			event:    highRisk,
			expected: false,
		},
		{
			name:     "risk score floor passes",
			role:     "admin",
			filters:  AlertEventFilters{MinRiskScore: 0.8},
			event:    highRisk,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &AlertClient{role: tt.role, filters: tt.filters}
			assert.Equal(t, tt.expected, client.shouldReceiveEvent(tt.event))
		})
	}
}

func TestAlertStreamEndToEnd(t *testing.T) {
	handler := NewHandler(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler.Start(ctx)
	defer handler.Stop()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.HandleAlertStream(w, r, uuid.New(), "admin")
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var welcome AlertEvent
	require.NoError(t, conn.ReadJSON(&welcome))
	assert.Equal(t, AlertEventConnection, welcome.Type)
	payload, ok := welcome.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Connected to risk alert stream", payload["message"])

	alert := highRiskAlert("APP-5001", 0.86)
	handler.Hub().BroadcastAlert(alert)

	var event AlertEvent
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, AlertEventHighRisk, event.Type)
	assert.Equal(t, "APP-5001", event.ApplicantID)
	assert.InDelta(t, 0.86, event.RiskScore, 0.0001)

	// Raise the client's score floor, then ping. The pong proves the
	// filter update was applied because the read pump is serial.
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":    "update_filters",
		"filters": map[string]interface{}{"min_risk_score": 0.9},
	}))
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "ping"}))

	var pong AlertEvent
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, AlertEventPong, pong.Type)

	handler.Hub().BroadcastAlert(highRiskAlert("APP-5002", 0.42))
	handler.Hub().BroadcastAlert(highRiskAlert("APP-5003", 0.97))

	var filtered AlertEvent
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&filtered))
	assert.Equal(t, "APP-5003", filtered.ApplicantID, "the low-score alert should have been filtered out")
}

func TestHandlerHealthCheck(t *testing.T) {
	handler := NewHandler(nil)
	assert.NoError(t, handler.HealthCheck())

	handler.Stop()
	assert.ErrorIs(t, handler.HealthCheck(), ErrAlertHubNotRunning)

	// Stop is idempotent
	handler.Stop()
	assert.ErrorIs(t, handler.HealthCheck(), ErrAlertHubNotRunning)
}
