package events_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/sistemamasajes/integracion/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitSubscribers(t *testing.T, hub *events.Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Subscribers() == n }, time.Second, 5*time.Millisecond)
}

func TestHubJSON(t *testing.T) {
	hub := events.NewHub(zerolog.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	conn := dial(t, srv, "")
	waitSubscribers(t, hub, 1)

	hub.Notify(events.Event{Kind: events.KindEnqueued, TaskID: "abc", Endpoint: "Cliente", Method: "POST"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	typ, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, typ)

	var ev events.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, events.KindEnqueued, ev.Kind)
	assert.Equal(t, "Cliente", ev.Endpoint)
	assert.False(t, ev.At.IsZero())
}

func TestHubCBOR(t *testing.T) {
	hub := events.NewHub(zerolog.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	conn := dial(t, srv, "?encoding=cbor")
	waitSubscribers(t, hub, 1)

	hub.Notify(events.Event{Kind: events.KindRetrying, TaskID: "abc", Endpoint: "Cita/2", Method: "PUT", Attempts: 2, Error: "timeout"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	typ, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, typ)

	var ev events.Event
	require.NoError(t, cbor.Unmarshal(data, &ev))
	assert.Equal(t, events.KindRetrying, ev.Kind)
	assert.Equal(t, 2, ev.Attempts)
	assert.Equal(t, "timeout", ev.Error)
}

func TestHubUnregistersOnDisconnect(t *testing.T) {
	hub := events.NewHub(zerolog.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	conn := dial(t, srv, "")
	waitSubscribers(t, hub, 1)
	conn.Close()
	waitSubscribers(t, hub, 0)

	// Notifying with nobody listening is a no-op.
	hub.Notify(events.Event{Kind: events.KindReplayed})
}

func TestHubClose(t *testing.T) {
	hub := events.NewHub(zerolog.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv, "")
	waitSubscribers(t, hub, 1)
	hub.Close()
	assert.Equal(t, 0, hub.Subscribers())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	// Late subscribers are turned away.
	late := dial(t, srv, "")
	require.NoError(t, late.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = late.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
