package handler

import (
	"context"
	"net/http"

	"kiosk-backend/internal/auth"
	"kiosk-backend/internal/validation"
)

type AuthHandler struct {
	Auth *auth.Service
}

type startCitizenRequest struct {
	Identifier string `json:"identifier"`
	Language   string `json:"language"`
}

type challengeRequest struct {
	ChallengeID string `json:"challenge_id"`
	Code        string `json:"code"`
	Language    string `json:"language"`
}

type startOfficerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) StartCitizen(w http.ResponseWriter, r *http.Request) {
	var req startCitizenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err, "")
		return
	}
	if err := validation.ValidateIdentifier(req.Identifier); err != nil {
		writeError(w, err, req.Language)
		return
	}

	c, err := h.Auth.StartCitizen(r.Context(), req.Identifier)
	if err != nil {
		writeError(w, err, req.Language)
		return
	}
	writeJSON(w, http.StatusAccepted, c)
}

func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err, "")
		return
	}

	c, err := h.Auth.ResendOTP(r.Context(), req.ChallengeID)
	if err != nil {
		writeError(w, err, req.Language)
		return
	}
	writeJSON(w, http.StatusAccepted, c)
}

func (h *AuthHandler) VerifyCitizen(w http.ResponseWriter, r *http.Request) {
	h.verify(w, r, validation.OTPDigits, h.Auth.VerifyCitizen)
}

func (h *AuthHandler) StartOfficer(w http.ResponseWriter, r *http.Request) {
	var req startOfficerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err, "")
		return
	}

	c, err := h.Auth.StartOfficer(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusAccepted, c)
}

func (h *AuthHandler) VerifyOfficer(w http.ResponseWriter, r *http.Request) {
	h.verify(w, r, validation.TwoFactorDigits, h.Auth.VerifyOfficer)
}

type verifyFunc func(ctx context.Context, challengeID, code string) (auth.Grant, error)

func (h *AuthHandler) verify(w http.ResponseWriter, r *http.Request, digits int, verify verifyFunc) {
	var req challengeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err, "")
		return
	}
	if err := validation.ValidateCode(req.Code, digits); err != nil {
		writeError(w, err, req.Language)
		return
	}

	g, err := verify(r.Context(), req.ChallengeID, req.Code)
	if err != nil {
		writeError(w, err, req.Language)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Auth.Logout(auth.TokenFrom(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())
	writeJSON(w, http.StatusOK, user)
}
