package stream

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/petems/micwav/internal/capture"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readMessage(t *testing.T, conn *websocket.Conn) message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var m message
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestHubBroadcastsToAllClients(t *testing.T) {
	hub := NewHub(8, zerolog.Nop())
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()
	defer hub.Close()

	a := dial(t, wsURL(srv))
	b := dial(t, wsURL(srv))
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, 5*time.Second, time.Millisecond)

	hub.OnEvent(capture.Event{Name: capture.EventData, Seq: 2, Data: "AAEC"})
	hub.OnEvent(capture.Event{Name: capture.EventData, Seq: 3, Data: "AwQF"})

	for _, conn := range []*websocket.Conn{a, b} {
		m := readMessage(t, conn)
		assert.Equal(t, message{Event: "data", Seq: 2, Data: "AAEC"}, m)
		m = readMessage(t, conn)
		assert.Equal(t, uint64(3), m.Seq)
	}
}

func TestHubWireFormat(t *testing.T) {
	payload, err := json.Marshal(message{Event: capture.EventData, Seq: 9, Data: "QUJD"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"data","seq":9,"data":"QUJD"}`, string(payload))
}

func TestHubForgetsDisconnectedClients(t *testing.T) {
	hub := NewHub(8, zerolog.Nop())
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()
	defer hub.Close()

	conn := dial(t, wsURL(srv))
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 5*time.Second, time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 5*time.Second, time.Millisecond)

	// broadcasting with no clients is fine
	hub.OnEvent(capture.Event{Name: capture.EventData})
}

func TestHubDropsForSlowClient(t *testing.T) {
	hub := NewHub(1, zerolog.Nop())

	// a client nobody drains
	c := &client{send: make(chan []byte, 1)}
	hub.add(c)

	for i := 0; i < 4; i++ {
		hub.OnEvent(capture.Event{Name: capture.EventData, Seq: uint64(i)})
	}
	assert.Equal(t, int64(3), hub.Dropped())
	assert.Len(t, c.send, 1)
}

func TestHubRejectsNonGet(t *testing.T) {
	hub := NewHub(1, zerolog.Nop())
	rec := httptest.NewRecorder()
	hub.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, Path, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	hub := NewHub(4, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- hub.ListenAndServe(ctx, addr) }()

	var conn *websocket.Conn
	require.Eventually(t, func() bool {
		c, _, err := websocket.DefaultDialer.Dial("ws://"+addr+Path, nil)
		if err != nil {
			return false
		}
		conn = c
		return true
	}, 5*time.Second, 10*time.Millisecond)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 5*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe did not return")
	}

	// the client sees a close frame
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}
