// Package handler serves GET /dev/otp. It is registered only in dev OTP mode and never in production.
package handler

import (
	"net/http"

	"inotebook/backend/internal/devotp"
	"inotebook/backend/internal/server/httpx"
)

const devOTPNote = "DEV MODE ONLY"

// Handler reads codes from the dev store.
type Handler struct {
	store devotp.Store
}

// NewHandler returns a dev OTP handler backed by store.
func NewHandler(store devotp.Store) *Handler {
	return &Handler{store: store}
}

type otpResponse struct {
	Status int    `json:"status"`
	OTP    string `json:"otp"`
	Note   string `json:"note"`
}

// GetOTP handles GET /dev/otp?email=&purpose=. Returns 404 if missing or expired.
func (h *Handler) GetOTP(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	purpose := r.URL.Query().Get("purpose")
	if email == "" || purpose == "" {
		httpx.WriteError(w, http.StatusBadRequest, "email and purpose are required")
		return
	}
	code, ok := h.store.Get(r.Context(), purpose, email)
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "OTP not found or expired")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, otpResponse{Status: 1, OTP: code, Note: devOTPNote})
}
