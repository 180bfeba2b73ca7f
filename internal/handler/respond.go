package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"kiosk-backend/internal/auth"
	"kiosk-backend/internal/backend"
	"kiosk-backend/internal/checklist"
	"kiosk-backend/internal/i18n"
	"kiosk-backend/internal/service"
	"kiosk-backend/internal/validation"
)

const maxJSONBody = 1 << 20

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("handler: encode response: %v", err)
	}
}

// writeError maps err to a status code. Citizen-facing failures carry a
// message in language, and pipeline failures report a stable code instead of
// the upstream error text.
func writeError(w http.ResponseWriter, err error, language string) {
	status := statusFor(err)
	body := errorResponse{Error: err.Error()}

	switch code := pipelineCode(err); {
	case status == http.StatusInternalServerError:
		log.Printf("handler: internal error: %v", err)
		body.Error = "internal server error"
		body.Message = i18n.Message(i18n.KeyApology, language)
	case code != "":
		log.Printf("handler: turn failed: %v", err)
		body.Error = code
		body.Message = i18n.Message(i18n.KeyApology, language)
		if errors.Is(err, backend.ErrTranscriptionFailed) {
			body.Message = i18n.Message(i18n.KeyTranscriptionFailed, language)
		}
	case errors.Is(err, validation.ErrEmptyAudio):
		body.Message = i18n.Message(i18n.KeyTranscriptionFailed, language)
	case errors.Is(err, validation.ErrInvalidCode), errors.Is(err, auth.ErrInvalidCredentials):
		body.Message = i18n.Message(i18n.KeyInvalidCode, language)
	case errors.Is(err, i18n.ErrUnsupportedLanguage):
		body.Message = i18n.Message(i18n.KeyUnsupportedLanguage, language)
	}

	writeJSON(w, status, body)
}

func pipelineCode(err error) string {
	switch {
	case errors.Is(err, backend.ErrTranscriptionFailed):
		return "transcription_failed"
	case errors.Is(err, backend.ErrTranslationFailed):
		return "translation_failed"
	case errors.Is(err, backend.ErrQueryFailed):
		return "query_failed"
	case errors.Is(err, backend.ErrTTSFailed):
		return "speech_failed"
	default:
		return ""
	}
}

// denied renders route guard failures.
func denied(w http.ResponseWriter, _ *http.Request, err error) {
	writeError(w, err, "")
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, auth.ErrChallengeNotFound),
		errors.Is(err, checklist.ErrItemNotFound):
		return http.StatusNotFound

	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden

	case errors.Is(err, validation.ErrAudioTooLarge):
		return http.StatusRequestEntityTooLarge

	case errors.Is(err, validation.ErrInvalidAudioType):
		return http.StatusUnsupportedMediaType

	case errors.Is(err, backend.ErrInvalidInput),
		errors.Is(err, validation.ErrInvalidInput),
		errors.Is(err, validation.ErrInvalidCode),
		errors.Is(err, validation.ErrEmptyAudio),
		errors.Is(err, validation.ErrFilenameTooLong),
		errors.Is(err, i18n.ErrUnsupportedLanguage),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrInvalidResponseType),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrChecklistIncomplete),
		errors.Is(err, service.ErrVersionConflict),
		errors.Is(err, service.ErrSessionArchived):
		return http.StatusConflict

	case errors.Is(err, backend.ErrTranscriptionFailed),
		errors.Is(err, backend.ErrTranslationFailed),
		errors.Is(err, backend.ErrQueryFailed),
		errors.Is(err, backend.ErrTTSFailed):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	return nil
}
