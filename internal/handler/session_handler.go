package handler

import (
	"net/http"

	"kiosk-backend/internal/auth"
	"kiosk-backend/internal/checklist"
	"kiosk-backend/internal/hub"
	"kiosk-backend/internal/models"
	"kiosk-backend/internal/orchestrator"
	"kiosk-backend/internal/service"
	"kiosk-backend/internal/validation"

	"github.com/gorilla/mux"
)

// SessionHandler serves the officer review desk.
type SessionHandler struct {
	Sessions     *service.SessionService
	Orchestrator *orchestrator.Orchestrator
	Hub          *hub.Hub
}

type checklistResponse struct {
	Items  []models.ChecklistItem `json:"items"`
	Groups []checklist.Group      `json:"groups"`
	Stats  checklist.Stats        `json:"stats"`
}

func newChecklistResponse(items []models.ChecklistItem) checklistResponse {
	return checklistResponse{
		Items:  items,
		Groups: checklist.GroupByCategory(items),
		Stats:  checklist.Evaluate(items),
	}
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	status := models.SessionStatus(r.URL.Query().Get("status"))
	if status == "all" {
		status = ""
	}

	sessions, err := h.Sessions.List(r.Context(), status)
	if err != nil {
		writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions, "count": len(sessions)})
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.NewSession
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err, "")
		return
	}

	session, err := h.Sessions.Create(r.Context(), req)
	if err != nil {
		writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	var patch service.SessionPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err, "")
		return
	}
	if patch.Notes != nil {
		if err := validation.ValidateNotes(*patch.Notes); err != nil {
			writeError(w, err, "")
			return
		}
	}

	session, err := h.Sessions.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, err, "")
		return
	}
	if patch.Status != nil {
		h.Hub.Publish(hub.Message{Type: hub.MessageStatus, SessionID: id, Status: session.Status})
	}
	writeJSON(w, http.StatusOK, session)
}

// Archive backs DELETE. Sessions are kept and hidden from the default list.
func (h *SessionHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	session, err := h.Sessions.Archive(r.Context(), id)
	if err != nil {
		writeError(w, err, "")
		return
	}
	h.Hub.Publish(hub.Message{Type: hub.MessageStatus, SessionID: id, Status: session.Status})
	writeJSON(w, http.StatusOK, session)
}

func (h *SessionHandler) Checklist(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newChecklistResponse(session.Checklist))
}

func (h *SessionHandler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	session, err := h.Sessions.ToggleChecklistItem(r.Context(), id, mux.Vars(r)["itemID"])
	if err != nil {
		writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, newChecklistResponse(session.Checklist))
}

// Suggest drafts a reply to the session transcript with the officer
// assistant.
func (h *SessionHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}

	answer, err := h.Orchestrator.Suggest(r.Context(), session.Transcript, session.CitizenLanguage)
	if err != nil {
		writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

type sendResponseRequest struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Speak bool   `json:"speak"`
}

// SendResponse translates the officer's reply into the citizen's language,
// stores it on the session and pushes it to any kiosk watching.
func (h *SessionHandler) SendResponse(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}

	var req sendResponseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err, "")
		return
	}
	if err := validation.ValidateResponseText(req.Text); err != nil {
		writeError(w, err, "")
		return
	}

	translated, err := h.Orchestrator.Localize(r.Context(), req.Text, session.CitizenLanguage)
	if err != nil {
		writeError(w, err, "")
		return
	}

	officer, _ := auth.UserFrom(r.Context())
	sent, updated, err := h.Sessions.AppendResponse(r.Context(), session.ID, models.SentResponse{
		Type:           req.Type,
		Text:           req.Text,
		TranslatedText: translated,
		OfficerID:      officer.BadgeNumber,
	})
	if err != nil {
		writeError(w, err, "")
		return
	}

	h.Hub.Publish(hub.Message{Type: hub.MessageResponse, SessionID: session.ID, Response: &sent})

	body := map[string]any{"response": sent, "session": updated}
	if req.Speak {
		if speech, err := h.Orchestrator.Speak(r.Context(), translated, session.CitizenLanguage); err == nil {
			body["speech"] = speech
		}
	}
	writeJSON(w, http.StatusCreated, body)
}

func (h *SessionHandler) Templates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"templates": service.ResponseTemplates()})
}

func (h *SessionHandler) load(w http.ResponseWriter, r *http.Request) (models.Session, bool) {
	id, ok := sessionID(w, r)
	if !ok {
		return models.Session{}, false
	}
	session, err := h.Sessions.Get(r.Context(), id)
	if err != nil {
		writeError(w, err, "")
		return models.Session{}, false
	}
	return session, true
}

func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := mux.Vars(r)["id"]
	if err := validation.ValidateSessionID(id); err != nil {
		writeError(w, err, "")
		return "", false
	}
	return id, true
}
