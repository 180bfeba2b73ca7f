package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"kiosk-backend/internal/auth"
	"kiosk-backend/internal/backend"
	"kiosk-backend/internal/capture"
	"kiosk-backend/internal/hub"
	"kiosk-backend/internal/i18n"
	"kiosk-backend/internal/models"
	"kiosk-backend/internal/orchestrator"
	"kiosk-backend/internal/service"
	"kiosk-backend/internal/validation"

	"github.com/gorilla/websocket"
)

const captureFrameLimit = 256 * 1024

type WSHandler struct {
	Hub          *hub.Hub
	Orchestrator *orchestrator.Orchestrator
	Sessions     *service.SessionService
	Upgrader     websocket.Upgrader
}

func newUpgrader(allowed []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if len(allowed) == 0 || origin == "" {
				return true
			}
			for _, a := range allowed {
				if a == "*" || a == origin {
					return true
				}
			}
			return false
		},
	}
}

// Subscribe attaches a kiosk to the responses sent for one session.
func (h *WSHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	session, ok := (&SessionHandler{Sessions: h.Sessions}).load(w, r)
	if !ok {
		return
	}

	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("handler: websocket upgrade: %v", err)
		return
	}

	client := hub.NewClient(h.Hub, conn, session.ID)
	if !h.Hub.Register(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

type wsFrame struct {
	kind int
	data []byte
	err  error
}

type turnResult struct {
	turn *orchestrator.Turn
	err  error
}

// Capture receives a recording as binary frames between "start" and "stop"
// control messages and answers with the turn. "cancel" aborts the turn in
// flight. The buffer and connection are released on every exit path.
func (h *WSHandler) Capture(w http.ResponseWriter, r *http.Request) {
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("handler: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	buf := capture.NewBuffer(validation.MaxAudioSize)
	defer buf.Release()

	user, _ := auth.UserFrom(r.Context())

	frames := make(chan wsFrame)
	go func() {
		defer close(frames)
		conn.SetReadLimit(captureFrameLimit)
		for {
			kind, data, err := conn.ReadMessage()
			select {
			case frames <- wsFrame{kind: kind, data: data, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	var (
		ctl        capture.Control
		turnCancel context.CancelFunc = func() {}
		results    chan turnResult
	)
	defer func() { turnCancel() }()

	send := func(ev capture.Event) bool {
		if err := conn.WriteJSON(ev); err != nil {
			log.Printf("handler: capture write: %v", err)
			return false
		}
		return true
	}
	fail := func(err error) bool {
		return send(capture.Event{Type: "error", Message: citizenMessage(err, ctl.Language)})
	}

	for {
		select {
		case f, ok := <-frames:
			if !ok || f.err != nil {
				if f.err != nil && websocket.IsUnexpectedCloseError(f.err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("handler: capture read: %v", f.err)
				}
				return
			}

			switch f.kind {
			case websocket.BinaryMessage:
				if _, err := buf.Write(f.data); err != nil {
					buf.Reset()
					if !fail(err) {
						return
					}
				}

			case websocket.TextMessage:
				c, err := capture.ParseControl(f.data)
				if err != nil {
					if !fail(fmt.Errorf("%w: %v", errBadRequest, err)) {
						return
					}
					continue
				}

				switch c.Type {
				case capture.ControlStart:
					if c.SessionID != "" {
						if err := validation.ValidateSessionID(c.SessionID); err != nil {
							if !fail(err) {
								return
							}
							continue
						}
					}
					turnCancel()
					results = nil
					ctl = c
					buf.Reset()
					if !send(capture.Event{Type: "started"}) {
						return
					}

				case capture.ControlStop:
					if results != nil {
						if !send(capture.Event{Type: "error", Message: i18n.Message(i18n.KeyTurnInProgress, ctl.Language)}) {
							return
						}
						continue
					}
					audio, _ := buf.Take()
					if err := validation.ValidateAudioBytes(audio); err != nil {
						if !fail(err) {
							return
						}
						continue
					}

					var turnCtx context.Context
					turnCtx, turnCancel = context.WithCancel(ctx)
					results = make(chan turnResult, 1)
					go h.runTurn(turnCtx, results, audio, ctl, user.Role)

					if !send(capture.Event{Type: "processing"}) {
						return
					}

				case capture.ControlCancel:
					turnCancel()
					results = nil
					buf.Reset()
					if !send(capture.Event{Type: "cancelled"}) {
						return
					}
				}
			}

		case res := <-results:
			results = nil
			if res.err != nil {
				if !fail(res.err) {
					return
				}
				continue
			}
			if !send(capture.Event{Type: "turn", Turn: turnResponse{Turn: res.turn}}) {
				return
			}
		}
	}
}

func (h *WSHandler) runTurn(ctx context.Context, out chan<- turnResult, audio []byte, ctl capture.Control, role models.Role) {
	turn, err := h.Orchestrator.Run(ctx, orchestrator.TurnRequest{
		Audio:    audio,
		Language: ctl.Language,
		Role:     role,
		Speak:    ctl.Speak,
	})
	if err == nil && ctl.SessionID != "" {
		_, err = h.Sessions.RecordTurn(ctx, ctl.SessionID, turn.Transcript, "")
	}
	out <- turnResult{turn: turn, err: err}
}

// citizenMessage renders err for display on the kiosk.
func citizenMessage(err error, language string) string {
	switch {
	case errors.Is(err, backend.ErrTranscriptionFailed), errors.Is(err, validation.ErrEmptyAudio):
		return i18n.Message(i18n.KeyTranscriptionFailed, language)
	case errors.Is(err, i18n.ErrUnsupportedLanguage):
		return i18n.Message(i18n.KeyUnsupportedLanguage, language)
	default:
		return i18n.Message(i18n.KeyApology, language)
	}
}
