package events

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversEvents(t *testing.T) {
	hub := NewHub(hclog.NewNullLogger())
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(Event{Entity: EntityContent, Action: ActionUpdated, ID: 7})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, EntityContent, ev.Entity)
	assert.Equal(t, ActionUpdated, ev.Action)
	assert.Equal(t, int64(7), ev.ID)
	assert.NotZero(t, ev.Timestamp)
}

func TestHubRemovesDisconnectedClients(t *testing.T) {
	hub := NewHub(hclog.NewNullLogger())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 10*time.Millisecond)
}

func TestPublishWithoutClients(t *testing.T) {
	hub := NewHub(hclog.NewNullLogger())
	hub.Publish(Event{Entity: EntitySettings, Action: ActionUpdated})
	assert.Equal(t, 0, hub.Clients())
}

func TestHubChecksOrigin(t *testing.T) {
	hub := NewHub(hclog.NewNullLogger(), "https://play.example.com", "*")
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	dial := func(origin string) error {
		header := http.Header{}
		if origin != "" {
			header.Set("Origin", origin)
		}
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
		if err == nil {
			conn.Close()
		}
		return err
	}

	assert.NoError(t, dial(""))
	assert.NoError(t, dial(srv.URL))
	assert.NoError(t, dial("https://PLAY.example.com"))
	assert.ErrorIs(t, dial("https://evil.example.net"), websocket.ErrBadHandshake)
	assert.ErrorIs(t, dial("http://play.example.com"), websocket.ErrBadHandshake)
}
