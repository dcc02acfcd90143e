// Package handler serves the /auth API: signup with email verification, cookie sessions, password
// reset, the client secret key, the PIN lock, and the transport public key.
package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"inotebook/backend/internal/identity/service"
	"inotebook/backend/internal/otp"
	otpdomain "inotebook/backend/internal/otp/domain"
	"inotebook/backend/internal/server/httpx"
	"inotebook/backend/internal/server/middleware"
)

// AuthService is the identity service surface used by the handler. Implemented by *service.AuthService.
type AuthService interface {
	Signup(ctx context.Context, email, password, name string) (string, time.Time, error)
	VerifyEmail(ctx context.Context, email, code string) error
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
	Logout(ctx context.Context) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	ResendOTP(ctx context.Context, email string, purpose otpdomain.Purpose) (time.Time, error)
	Me(ctx context.Context, userID string) (*service.Profile, error)
	SecretKey(ctx context.Context, userID string) (string, error)
	SetPIN(ctx context.Context, userID, pin string) error
	VerifyPIN(ctx context.Context, userID, pin string) error
}

// PublicKeySource exposes the transport public key. Implemented by *security.TransportKey.
type PublicKeySource interface {
	PublicKeyPEM() string
}

// CookieConfig controls the session cookie attributes.
type CookieConfig struct {
	Name   string
	Secure bool
}

// Handler serves /auth.
type Handler struct {
	auth      AuthService
	transport PublicKeySource
	cookie    CookieConfig
}

// NewHandler returns an auth handler.
func NewHandler(auth AuthService, transport PublicKeySource, cookie CookieConfig) *Handler {
	return &Handler{auth: auth, transport: transport, cookie: cookie}
}

type okResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
}

type profileView struct {
	UserID      string   `json:"userId"`
	Email       string   `json:"email"`
	Name        string   `json:"name,omitempty"`
	IsAdmin     bool     `json:"isAdmin"`
	Permissions []string `json:"permissions"`
	PINSet      bool     `json:"pinSet"`
}

func toView(p service.Profile) profileView {
	perms := p.Permissions
	if perms == nil {
		perms = []string{}
	}
	return profileView{
		UserID:      p.UserID,
		Email:       p.Email,
		Name:        p.Name,
		IsAdmin:     p.IsAdmin,
		Permissions: perms,
		PINSet:      p.PINSet,
	}
}

type userResponse struct {
	Status int         `json:"status"`
	User   profileView `json:"user"`
}

type codeSentResponse struct {
	Status       int        `json:"status"`
	UserID       string     `json:"userId,omitempty"`
	OTPExpiresAt *time.Time `json:"otpExpiresAt,omitempty"`
}

func expiryPtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Signup handles POST /auth/signup.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, expiresAt, err := h.auth.Signup(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeServiceError(w, "signup", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, codeSentResponse{Status: 1, UserID: userID, OTPExpiresAt: expiryPtr(expiresAt)})
}

type verifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// VerifyEmail handles POST /auth/verify-email.
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.auth.VerifyEmail(r.Context(), req.Email, req.Code); err != nil {
		writeServiceError(w, "verify email", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, okResponse{Status: 1})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /auth/login. The session token travels only in an HttpOnly cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, "login", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    res.Token,
		Path:     "/",
		Expires:  res.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	httpx.WriteJSON(w, http.StatusOK, userResponse{Status: 1, User: toView(res.Profile)})
}

// Logout handles POST /auth/logout. The cookie is cleared even if revocation fails.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context()); err != nil {
		log.Printf("auth: logout: %v", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	httpx.WriteJSON(w, http.StatusOK, okResponse{Status: 1})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword handles POST /auth/password/forgot. The response is the same whether or not the
// account exists.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		writeServiceError(w, "forgot password", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, okResponse{Status: 1, Message: "if the account exists, a reset code has been sent"})
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

// ResetPassword handles POST /auth/password/reset.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.auth.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		writeServiceError(w, "reset password", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, okResponse{Status: 1})
}

type resendOTPRequest struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
}

// ResendOTP handles POST /auth/otp/resend.
func (h *Handler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req resendOTPRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	expiresAt, err := h.auth.ResendOTP(r.Context(), req.Email, otpdomain.Purpose(req.Purpose))
	if err != nil {
		writeServiceError(w, "resend otp", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, codeSentResponse{Status: 1, OTPExpiresAt: expiryPtr(expiresAt)})
}

// Me handles GET /auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	p, err := h.auth.Me(r.Context(), userID)
	if err != nil {
		writeServiceError(w, "me", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userResponse{Status: 1, User: toView(*p)})
}

type secretKeyResponse struct {
	Status    int    `json:"status"`
	SecretKey string `json:"secretKey"`
}

// SecretKey handles GET /auth/secret-key.
func (h *Handler) SecretKey(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	key, err := h.auth.SecretKey(r.Context(), userID)
	if err != nil {
		writeServiceError(w, "secret key", err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httpx.WriteJSON(w, http.StatusOK, secretKeyResponse{Status: 1, SecretKey: key})
}

type pinRequest struct {
	PIN string `json:"pin"`
}

// SetPIN handles POST /auth/pin.
func (h *Handler) SetPIN(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, _ := middleware.GetUserID(r.Context())
	if err := h.auth.SetPIN(r.Context(), userID, req.PIN); err != nil {
		writeServiceError(w, "set pin", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, okResponse{Status: 1})
}

// VerifyPIN handles POST /auth/pin/verify.
func (h *Handler) VerifyPIN(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, _ := middleware.GetUserID(r.Context())
	if err := h.auth.VerifyPIN(r.Context(), userID, req.PIN); err != nil {
		writeServiceError(w, "verify pin", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, okResponse{Status: 1})
}

type publicKeyResponse struct {
	Key string `json:"key"`
}

// PublicKey handles GET /auth/getpubKey. Public; the response has no status field.
func (h *Handler) PublicKey(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, publicKeyResponse{Key: h.transport.PublicKeyPEM()})
}

// writeServiceError maps service and OTP sentinels to a status code and a client-safe message.
// Anything unrecognized is logged and reported as a 500.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.WriteError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, service.ErrEmailNotVerified):
		httpx.WriteError(w, http.StatusForbidden, "email not verified")
	case errors.Is(err, service.ErrEmailAlreadyRegistered):
		httpx.WriteError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, service.ErrUserNotFound):
		httpx.WriteError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, service.ErrPINNotSet):
		httpx.WriteError(w, http.StatusConflict, "PIN not set")
	case errors.Is(err, service.ErrInvalidPIN):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid PIN")
	case errors.Is(err, otp.ErrCodeInvalid), errors.Is(err, otp.ErrInvalidPurpose):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, otp.ErrCodeExpired), errors.Is(err, otp.ErrTooManyAttempts):
		httpx.WriteError(w, http.StatusGone, err.Error())
	case errors.Is(err, otp.ErrResendTooSoon):
		httpx.WriteError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httpx.WriteError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		log.Printf("auth: %s: %v", op, err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
