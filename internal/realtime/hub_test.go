package realtime

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/net/websocket"

	"greenorbit/internal/models"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, err := websocket.Dial(url, "", "http://localhost/")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func receive(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var raw string
	require.NoError(t, websocket.Message.Receive(conn, &raw))

	var msg map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	return msg
}

func send(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, websocket.Message.Send(conn, frame))
}

func TestHub_ConnectAndSubscribe(t *testing.T) {
	hub := NewHub(zap.NewNop())
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	conn := dial(t, srv)

	hello := receive(t, conn)
	assert.Equal(t, "connection", hello["type"])
	assert.Equal(t, "Connected to GreenOrbit real-time server", hello["message"])

	send(t, conn, `{"type":"subscribe","farmId":"FARM-001"}`)
	ack := receive(t, conn)
	assert.Equal(t, "subscribed", ack["type"])
	assert.Equal(t, "FARM-001", ack["farmId"])
	assert.Equal(t, "Subscribed to updates for FARM-001", ack["message"])
	assert.True(t, hub.HasSubscribers("FARM-001"))

	require.NoError(t, hub.Publish(context.Background(), models.SensorUpdate{
		Type:   models.TypeSensorUpdate,
		FarmID: "FARM-001",
		Data:   models.SensorData{Humidity: 66},
	}))
	update := receive(t, conn)
	assert.Equal(t, "sensor-update", update["type"])
	assert.Equal(t, "FARM-001", update["farmId"])
	assert.Equal(t, 66.0, update["data"].(map[string]any)["humidity"])
}

func TestHub_ResubscribeMovesClient(t *testing.T) {
	hub := NewHub(zap.NewNop())
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	receive(t, conn)

	send(t, conn, `{"type":"subscribe","farmId":"FARM-001"}`)
	receive(t, conn)
	send(t, conn, `{"type":"subscribe","farmId":"FARM-002"}`)
	receive(t, conn)

	assert.False(t, hub.HasSubscribers("FARM-001"))
	assert.True(t, hub.HasSubscribers("FARM-002"))
}

func TestHub_MalformedFrameIgnored(t *testing.T) {
	hub := NewHub(zap.NewNop())
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	receive(t, conn)

	send(t, conn, `not json`)
	send(t, conn, `{"type":"subscribe","farmId":"FARM-003"}`)

	ack := receive(t, conn)
	assert.Equal(t, "subscribed", ack["type"])
	assert.Equal(t, "FARM-003", ack["farmId"])
}

func TestHub_UnsubscribeAndClose(t *testing.T) {
	hub := NewHub(zap.NewNop())
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	receive(t, conn)

	send(t, conn, `{"type":"subscribe","farmId":"FARM-001"}`)
	receive(t, conn)

	send(t, conn, `{"type":"unsubscribe"}`)
	assert.Eventually(t, func() bool { return !hub.HasSubscribers("FARM-001") }, 2*time.Second, 10*time.Millisecond)

	send(t, conn, `{"type":"subscribe","farmId":"FARM-001"}`)
	receive(t, conn)
	assert.Equal(t, 1, hub.Clients())

	conn.Close()
	assert.Eventually(t, func() bool {
		return hub.Clients() == 0 && !hub.HasSubscribers("FARM-001")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_PublishOnlyToFarm(t *testing.T) {
	hub := NewHub(zap.NewNop())
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	receive(t, a)
	receive(t, b)

	send(t, a, `{"type":"subscribe","farmId":"FARM-001"}`)
	receive(t, a)
	send(t, b, `{"type":"subscribe","farmId":"FARM-002"}`)
	receive(t, b)

	require.NoError(t, hub.Publish(context.Background(), models.SensorUpdate{Type: models.TypeSensorUpdate, FarmID: "FARM-002"}))
	require.NoError(t, hub.Publish(context.Background(), models.SensorUpdate{Type: models.TypeSensorUpdate, FarmID: "FARM-001"}))

	assert.Equal(t, "FARM-002", receive(t, b)["farmId"])
	assert.Equal(t, "FARM-001", receive(t, a)["farmId"])
}
