package handler

import (
	"fmt"
	"net/http"

	"kiosk-backend/internal/i18n"

	"github.com/gorilla/mux"
)

type LanguageHandler struct {
	// Pivot is the language the assistant answers in.
	Pivot string
}

func (h *LanguageHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"languages": i18n.Supported(),
		"pivot":     h.Pivot,
	})
}

func GetLanguage(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	l, ok := i18n.Resolve(code)
	if !ok {
		writeError(w, fmt.Errorf("%w: %q", i18n.ErrUnsupportedLanguage, code), "")
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// GetMessages returns the UI catalog for a language, completed with English
// for untranslated keys.
func GetMessages(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	l, ok := i18n.Resolve(code)
	if !ok {
		writeError(w, fmt.Errorf("%w: %q", i18n.ErrUnsupportedLanguage, code), "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"language": l.Code,
		"messages": i18n.Catalog(l.Code),
	})
}
