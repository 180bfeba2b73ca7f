package handler

import (
	"net/http"

	"kiosk-backend/internal/auth"
	"kiosk-backend/internal/hub"
	"kiosk-backend/internal/models"
	"kiosk-backend/internal/orchestrator"
	"kiosk-backend/internal/service"
	"kiosk-backend/internal/storage"

	"github.com/gorilla/mux"
)

type Deps struct {
	Sessions     *service.SessionService
	Auth         *auth.Service
	Orchestrator *orchestrator.Orchestrator
	Storage      storage.Storage
	Hub          *hub.Hub
	// UploadDir is served under /uploads/ when set.
	UploadDir string
	// AllowedOrigins gates WebSocket upgrades. Empty allows any origin.
	AllowedOrigins []string
}

func NewRouter(d Deps) *mux.Router {
	sessions := &SessionHandler{Sessions: d.Sessions, Orchestrator: d.Orchestrator, Hub: d.Hub}
	authH := &AuthHandler{Auth: d.Auth}
	languages := &LanguageHandler{Pivot: d.Orchestrator.PivotLanguage()}
	turns := &TurnHandler{Orchestrator: d.Orchestrator, Sessions: d.Sessions, Storage: d.Storage}
	ws := &WSHandler{
		Hub:          d.Hub,
		Orchestrator: d.Orchestrator,
		Sessions:     d.Sessions,
		Upgrader:     newUpgrader(d.AllowedOrigins),
	}

	r := mux.NewRouter()
	r.Use(d.Auth.Middleware)

	// Health check: required by load balancers and Kubernetes liveness probes
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := d.Sessions.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/languages", languages.List).Methods(http.MethodGet)
	api.HandleFunc("/languages/{code}", GetLanguage).Methods(http.MethodGet)
	api.HandleFunc("/messages/{code}", GetMessages).Methods(http.MethodGet)

	api.HandleFunc("/auth/citizen/otp", authH.StartCitizen).Methods(http.MethodPost)
	api.HandleFunc("/auth/citizen/otp/resend", authH.ResendOTP).Methods(http.MethodPost)
	api.HandleFunc("/auth/citizen/verify", authH.VerifyCitizen).Methods(http.MethodPost)
	api.HandleFunc("/auth/officer/credentials", authH.StartOfficer).Methods(http.MethodPost)
	api.HandleFunc("/auth/officer/verify", authH.VerifyOfficer).Methods(http.MethodPost)

	anyone := api.NewRoute().Subrouter()
	anyone.Use(auth.RequireRoles(denied, models.RoleCitizen, models.RoleOfficer))
	anyone.HandleFunc("/auth/logout", authH.Logout).Methods(http.MethodPost)
	anyone.HandleFunc("/auth/me", authH.Me).Methods(http.MethodGet)
	anyone.HandleFunc("/ask", turns.Ask).Methods(http.MethodPost)
	anyone.HandleFunc("/speech", turns.Speech).Methods(http.MethodPost)

	citizen := api.NewRoute().Subrouter()
	citizen.Use(auth.RequireRoles(denied, models.RoleCitizen))
	citizen.HandleFunc("/turns", turns.Run).Methods(http.MethodPost)

	officer := api.NewRoute().Subrouter()
	officer.Use(auth.RequireRoles(denied, models.RoleOfficer))
	officer.HandleFunc("/templates", sessions.Templates).Methods(http.MethodGet)
	officer.HandleFunc("/sessions", sessions.List).Methods(http.MethodGet)
	officer.HandleFunc("/sessions", sessions.Create).Methods(http.MethodPost)
	officer.HandleFunc("/sessions/{id}", sessions.Get).Methods(http.MethodGet)
	officer.HandleFunc("/sessions/{id}", sessions.Update).Methods(http.MethodPatch)
	officer.HandleFunc("/sessions/{id}", sessions.Archive).Methods(http.MethodDelete)
	officer.HandleFunc("/sessions/{id}/checklist", sessions.Checklist).Methods(http.MethodGet)
	officer.HandleFunc("/sessions/{id}/checklist/{itemID}/toggle", sessions.ToggleItem).Methods(http.MethodPost)
	officer.HandleFunc("/sessions/{id}/suggestion", sessions.Suggest).Methods(http.MethodGet)
	officer.HandleFunc("/sessions/{id}/responses", sessions.SendResponse).Methods(http.MethodPost)

	wsRoutes := r.PathPrefix("/ws").Subrouter()
	wsRoutes.Use(auth.RequireRoles(denied, models.RoleCitizen, models.RoleOfficer))
	wsRoutes.HandleFunc("/sessions/{id}", ws.Subscribe).Methods(http.MethodGet)
	wsRoutes.HandleFunc("/capture", ws.Capture).Methods(http.MethodGet)

	// Archived recordings are for the review desk only. Audio elements pass
	// the token as ?token=.
	if d.UploadDir != "" {
		uploads := r.PathPrefix("/uploads").Subrouter()
		uploads.Use(auth.RequireRoles(denied, models.RoleOfficer))
		uploads.PathPrefix("/").Handler(
			http.StripPrefix("/uploads/", http.FileServer(http.Dir(d.UploadDir))),
		)
	}

	return r
}
