package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kiosk-backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := New()
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h
}

func serve(t *testing.T, h *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewClient(h, conn, strings.TrimPrefix(r.URL.Path, "/"))
		if !h.Register(c) {
			conn.Close()
			return
		}
		go c.WritePump()
		go c.ReadPump()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestPublishReachesOnlyTheSessionRoom(t *testing.T) {
	h := startHub(t)
	srv := serve(t, h)

	kioskA := dial(t, srv, "session-a")
	kioskB := dial(t, srv, "session-b")
	require.Eventually(t, func() bool { return h.Watching("session-a") == 1 && h.Watching("session-b") == 1 }, time.Second, 5*time.Millisecond)

	resp := &models.SentResponse{ID: "r1", Type: "complaint", Text: "We have registered your complaint."}
	require.True(t, h.Publish(Message{Type: MessageResponse, SessionID: "session-a", Response: resp}))

	kioskA.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := kioskA.ReadMessage()
	require.NoError(t, err)

	var got Message
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, MessageResponse, got.Type)
	assert.Equal(t, "session-a", got.SessionID)
	require.NotNil(t, got.Response)
	assert.Equal(t, resp.Text, got.Response.Text)
	assert.NotZero(t, got.Timestamp)

	kioskB.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = kioskB.ReadMessage()
	require.Error(t, err, "other sessions receive nothing")
}

func TestDisconnectUnregisters(t *testing.T) {
	h := startHub(t)
	srv := serve(t, h)

	conn := dial(t, srv, "s1")
	require.Eventually(t, func() bool { return h.Watching("s1") == 1 }, time.Second, 5*time.Millisecond)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	assert.Eventually(t, func() bool { return h.Watching("s1") == 0 }, time.Second, 5*time.Millisecond)
}

func TestStoppedHubRejectsWork(t *testing.T) {
	h := New()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	assert.False(t, h.Register(&Client{Hub: h, Send: make(chan []byte, 1), SessionID: "x"}))
	assert.False(t, h.Publish(Message{Type: MessageStatus, SessionID: "x"}))
}

func TestSlowClientIsDropped(t *testing.T) {
	h := startHub(t)

	slow := &Client{Hub: h, Send: make(chan []byte), SessionID: "s1"}
	require.True(t, h.Register(slow))
	require.Eventually(t, func() bool { return h.Watching("s1") == 1 }, time.Second, 5*time.Millisecond)

	require.True(t, h.Publish(Message{Type: MessageStatus, SessionID: "s1", Status: models.StatusCompleted}))

	assert.Eventually(t, func() bool { return h.Watching("s1") == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-slow.Send
	assert.False(t, open)
}
