package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kiosk-backend/internal/backend"
	"kiosk-backend/internal/capture"
	"kiosk-backend/internal/hub"
	"kiosk-backend/internal/i18n"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialWS(t *testing.T, srv *httptest.Server, path, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path + "?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

type captureEvent struct {
	Type    string        `json:"type"`
	Message string        `json:"message"`
	Turn    *turnResponse `json:"turn"`
}

func readEvent(t *testing.T, conn *websocket.Conn) captureEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev captureEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestCaptureStreamsATurn(t *testing.T) {
	e := newTestEnv(t)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	conn := dialWS(t, srv, "/ws/capture", e.citizenToken(t))

	require.NoError(t, conn.WriteJSON(capture.Control{Type: capture.ControlStart, Language: "hi", SessionID: "1"}))
	assert.Equal(t, "started", readEvent(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("webm-")))
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("chunk")))
	require.NoError(t, conn.WriteJSON(capture.Control{Type: capture.ControlStop}))
	assert.Equal(t, "processing", readEvent(t, conn).Type)

	ev := readEvent(t, conn)
	require.Equal(t, "turn", ev.Type, ev.Message)
	require.NotNil(t, ev.Turn)
	assert.Equal(t, complaintAnswerHi, ev.Turn.Turn.Response)

	session, err := e.sessions.Get(t.Context(), "1")
	require.NoError(t, err)
	assert.Contains(t, session.Transcript, "\n")
}

func TestCaptureRejectsSecondStopWhileBusy(t *testing.T) {
	e := newTestEnvWith(t, backend.Latency{SpeechToText: 300 * time.Millisecond}, "")
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	conn := dialWS(t, srv, "/ws/capture", e.citizenToken(t))

	require.NoError(t, conn.WriteJSON(capture.Control{Type: capture.ControlStart, Language: "hi"}))
	assert.Equal(t, "started", readEvent(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("webm-chunk")))
	require.NoError(t, conn.WriteJSON(capture.Control{Type: capture.ControlStop}))
	assert.Equal(t, "processing", readEvent(t, conn).Type)

	require.NoError(t, conn.WriteJSON(capture.Control{Type: capture.ControlStop}))
	ev := readEvent(t, conn)
	assert.Equal(t, "error", ev.Type)
	assert.Equal(t, i18n.Message(i18n.KeyTurnInProgress, "hi"), ev.Message)

	assert.Equal(t, "turn", readEvent(t, conn).Type)
}

func TestCaptureStopWithoutAudio(t *testing.T) {
	e := newTestEnv(t)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	conn := dialWS(t, srv, "/ws/capture", e.citizenToken(t))

	require.NoError(t, conn.WriteJSON(capture.Control{Type: capture.ControlStart, Language: "ta"}))
	assert.Equal(t, "started", readEvent(t, conn).Type)

	require.NoError(t, conn.WriteJSON(capture.Control{Type: capture.ControlStop}))
	ev := readEvent(t, conn)
	assert.Equal(t, "error", ev.Type)
	assert.NotEmpty(t, ev.Message)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"rewind"}`)))
	assert.Equal(t, "error", readEvent(t, conn).Type)

	require.NoError(t, conn.WriteJSON(capture.Control{Type: capture.ControlCancel}))
	assert.Equal(t, "cancelled", readEvent(t, conn).Type)
}

func TestCaptureRequiresLogin(t *testing.T) {
	e := newTestEnv(t)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/capture"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSubscribeReceivesOfficerResponses(t *testing.T) {
	e := newTestEnv(t)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	kiosk := dialWS(t, srv, "/ws/sessions/1", e.citizenToken(t))
	require.Eventually(t, func() bool { return e.hub.Watching("1") > 0 }, 2*time.Second, 10*time.Millisecond)

	officer := e.officerToken(t)
	rec := e.do(t, http.MethodPost, "/api/v1/sessions/1/responses", officer, map[string]any{"text": "Hello, how can I help you?"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.NoError(t, kiosk.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg hub.Message
	require.NoError(t, kiosk.ReadJSON(&msg))
	assert.Equal(t, hub.MessageResponse, msg.Type)
	require.NotNil(t, msg.Response)
	assert.Equal(t, "नमस्ते, मैं आपकी कैसे मदद कर सकता हूं?", msg.Response.TranslatedText)
}
