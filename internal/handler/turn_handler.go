package handler

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"kiosk-backend/internal/auth"
	"kiosk-backend/internal/models"
	"kiosk-backend/internal/orchestrator"
	"kiosk-backend/internal/service"
	"kiosk-backend/internal/storage"
	"kiosk-backend/internal/validation"
)

type TurnHandler struct {
	Orchestrator *orchestrator.Orchestrator
	Sessions     *service.SessionService
	Storage      storage.Storage
}

type turnResponse struct {
	Turn     *orchestrator.Turn `json:"turn"`
	AudioURL string             `json:"audio_url,omitempty"`
	Session  *models.Session    `json:"session,omitempty"`
}

// Run handles one recorded citizen turn. Form fields: audio (file),
// language, speak, session_id and create_session. A session is only
// touched when the caller names one or asks for a new one.
func (h *TurnHandler) Run(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, validation.MaxAudioSize+1<<20)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, fmt.Errorf("%w: invalid multipart form: %v", errBadRequest, err), "")
		return
	}
	defer r.MultipartForm.RemoveAll()

	language := r.FormValue("language")
	speak, _ := strconv.ParseBool(r.FormValue("speak"))
	createSession, _ := strconv.ParseBool(r.FormValue("create_session"))
	sessionID := strings.TrimSpace(r.FormValue("session_id"))

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, fmt.Errorf("%w: audio file is required", validation.ErrEmptyAudio), language)
		return
	}
	defer file.Close()

	if err := validation.ValidateAudioUpload(header); err != nil {
		writeError(w, err, language)
		return
	}
	if sessionID != "" {
		if err := validation.ValidateSessionID(sessionID); err != nil {
			writeError(w, err, language)
			return
		}
	}

	audio, err := io.ReadAll(io.LimitReader(file, validation.MaxAudioSize+1))
	if err != nil {
		writeError(w, fmt.Errorf("read recording: %w", err), language)
		return
	}
	if err := validation.ValidateAudioBytes(audio); err != nil {
		writeError(w, err, language)
		return
	}

	user, _ := auth.UserFrom(r.Context())
	turn, err := h.Orchestrator.Run(r.Context(), orchestrator.TurnRequest{
		Audio:    audio,
		Language: language,
		Role:     user.Role,
		Speak:    speak,
	})
	if err != nil {
		writeError(w, err, language)
		return
	}

	resp := turnResponse{Turn: turn}
	if sessionID == "" && !createSession {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	if h.Storage != nil {
		url, err := h.Storage.Save(r.Context(), bytes.NewReader(audio), header.Filename, header.Header.Get("Content-Type"))
		if err != nil {
			log.Printf("handler: archive recording: %v", err)
		} else {
			resp.AudioURL = url
		}
	}

	if sessionID == "" {
		created, err := h.Sessions.Create(r.Context(), service.NewSession{CitizenLanguage: turn.Language})
		if err != nil {
			writeError(w, err, turn.Language)
			return
		}
		sessionID = created.ID
	}

	session, err := h.Sessions.RecordTurn(r.Context(), sessionID, turn.Transcript, resp.AudioURL)
	if err != nil {
		writeError(w, err, turn.Language)
		return
	}
	resp.Session = &session
	writeJSON(w, http.StatusOK, resp)
}

type askRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Speak    bool   `json:"speak"`
}

// Ask answers a typed question.
func (h *TurnHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err, "")
		return
	}

	user, _ := auth.UserFrom(r.Context())
	turn, err := h.Orchestrator.Ask(r.Context(), req.Text, req.Language, user.Role, req.Speak)
	if err != nil {
		writeError(w, err, req.Language)
		return
	}
	writeJSON(w, http.StatusOK, turnResponse{Turn: turn})
}

type speechRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func (h *TurnHandler) Speech(w http.ResponseWriter, r *http.Request) {
	var req speechRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err, "")
		return
	}

	speech, err := h.Orchestrator.Speak(r.Context(), req.Text, req.Language)
	if err != nil {
		writeError(w, err, req.Language)
		return
	}
	writeJSON(w, http.StatusOK, speech)
}
