package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"inotebook/backend/internal/identity/service"
	"inotebook/backend/internal/otp"
	otpdomain "inotebook/backend/internal/otp/domain"
	"inotebook/backend/internal/server/middleware"
)

// fakeAuth returns err from every call when set; otherwise canned successes.
type fakeAuth struct {
	err         error
	loggedOut   bool
	lastUserID  string
	lastPurpose otpdomain.Purpose
}

var testProfile = service.Profile{UserID: "u1", Email: "a@example.com", Permissions: []string{"notes"}}

func (f *fakeAuth) Signup(ctx context.Context, email, password, name string) (string, time.Time, error) {
	return "u1", time.Now().Add(time.Minute), f.err
}
func (f *fakeAuth) VerifyEmail(ctx context.Context, email, code string) error { return f.err }
func (f *fakeAuth) Login(ctx context.Context, email, password string) (*service.LoginResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &service.LoginResult{Token: "tok", ExpiresAt: time.Now().Add(time.Hour), Profile: testProfile}, nil
}
func (f *fakeAuth) Logout(ctx context.Context) error {
	f.loggedOut = true
	return f.err
}
func (f *fakeAuth) ForgotPassword(ctx context.Context, email string) error { return f.err }
func (f *fakeAuth) ResetPassword(ctx context.Context, email, code, pw string) error {
	return f.err
}
func (f *fakeAuth) ResendOTP(ctx context.Context, email string, p otpdomain.Purpose) (time.Time, error) {
	f.lastPurpose = p
	return time.Time{}, f.err
}
func (f *fakeAuth) Me(ctx context.Context, userID string) (*service.Profile, error) {
	f.lastUserID = userID
	if f.err != nil {
		return nil, f.err
	}
	p := testProfile
	return &p, nil
}
func (f *fakeAuth) SecretKey(ctx context.Context, userID string) (string, error) {
	f.lastUserID = userID
	return strings.Repeat("ab", 32), f.err
}
func (f *fakeAuth) SetPIN(ctx context.Context, userID, pin string) error    { return f.err }
func (f *fakeAuth) VerifyPIN(ctx context.Context, userID, pin string) error { return f.err }

type staticKey string

func (k staticKey) PublicKeyPEM() string { return string(k) }

func newHandler(auth *fakeAuth) *Handler {
	return NewHandler(auth, staticKey("-----BEGIN PUBLIC KEY-----\nabc\n-----END PUBLIC KEY-----\n"), CookieConfig{Name: "sid", Secure: true})
}

func post(path, body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
}

func authed(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.WithIdentity(r.Context(), userID, "s1", false))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestLogin_SetsSessionCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	newHandler(&fakeAuth{}).Login(rec, post("/auth/login", `{"email":"a@example.com","password":"x"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body %s", rec.Code, rec.Body)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %v", cookies)
	}
	c := cookies[0]
	if c.Name != "sid" || c.Value != "tok" || !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie = %+v", c)
	}
	body := decode(t, rec)
	user, _ := body["user"].(map[string]any)
	if body["status"] != float64(1) || user["userId"] != "u1" || user["pinSet"] != false {
		t.Errorf("body = %v", body)
	}
	if strings.Contains(rec.Body.String(), "tok") {
		t.Error("token leaked into response body")
	}
}

func TestLogout_ClearsCookieEvenOnError(t *testing.T) {
	auth := &fakeAuth{err: errors.New("db down")}
	rec := httptest.NewRecorder()
	newHandler(auth).Logout(rec, post("/auth/logout", ""))
	if rec.Code != http.StatusOK || !auth.loggedOut {
		t.Fatalf("code = %d, loggedOut = %v", rec.Code, auth.loggedOut)
	}
	c := rec.Result().Cookies()
	if len(c) != 1 || c[0].MaxAge >= 0 || c[0].Value != "" {
		t.Errorf("cookie not cleared: %+v", c)
	}
}

func TestErrorMapping(t *testing.T) {
	testCases := []struct {
		err      error
		wantCode int
		wantMsg  string
	}{
		{&service.ValidationError{}, http.StatusBadRequest, ""},
		{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid email or password"},
		{service.ErrEmailNotVerified, http.StatusForbidden, "email not verified"},
		{service.ErrEmailAlreadyRegistered, http.StatusConflict, "email already registered"},
		{service.ErrInvalidPIN, http.StatusUnauthorized, "invalid PIN"},
		{otp.ErrCodeInvalid, http.StatusBadRequest, otp.ErrCodeInvalid.Error()},
		{otp.ErrCodeExpired, http.StatusGone, otp.ErrCodeExpired.Error()},
		{otp.ErrTooManyAttempts, http.StatusGone, otp.ErrTooManyAttempts.Error()},
		{otp.ErrResendTooSoon, http.StatusTooManyRequests, otp.ErrResendTooSoon.Error()},
		{fmt.Errorf("wrapped: %w", service.ErrInvalidCredentials), http.StatusUnauthorized, "invalid email or password"},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, "internal error"},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%v", tc.err), func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, "test", tc.err)
			if rec.Code != tc.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tc.wantCode)
			}
			body := decode(t, rec)
			if body["status"] != float64(0) {
				t.Errorf("status = %v", body["status"])
			}
			if tc.wantMsg != "" && body["error"] != tc.wantMsg {
				t.Errorf("error = %v, want %q", body["error"], tc.wantMsg)
			}
			if strings.Contains(rec.Body.String(), "pq:") {
				t.Error("internal cause leaked")
			}
		})
	}
}

func TestRoutes(t *testing.T) {
	testCases := []struct {
		name     string
		serve    func(h *Handler, w http.ResponseWriter, r *http.Request)
		req      *http.Request
		wantCode int
	}{
		{"signup", (*Handler).Signup, post("/auth/signup", `{"email":"a@example.com","password":"p"}`), http.StatusCreated},
		{"signup bad body", (*Handler).Signup, post("/auth/signup", `{`), http.StatusBadRequest},
		{"verify email", (*Handler).VerifyEmail, post("/auth/verify-email", `{"email":"a@example.com","code":"123456"}`), http.StatusOK},
		{"forgot", (*Handler).ForgotPassword, post("/auth/password/forgot", `{"email":"a@example.com"}`), http.StatusOK},
		{"reset", (*Handler).ResetPassword, post("/auth/password/reset", `{"email":"a@example.com","code":"1","newPassword":"x"}`), http.StatusOK},
		{"resend", (*Handler).ResendOTP, post("/auth/otp/resend", `{"email":"a@example.com","purpose":"signup"}`), http.StatusOK},
		{"set pin", (*Handler).SetPIN, authed(post("/auth/pin", `{"pin":"1234"}`), "u1"), http.StatusOK},
		{"verify pin", (*Handler).VerifyPIN, authed(post("/auth/pin/verify", `{"pin":"1234"}`), "u1"), http.StatusOK},
		{"me", (*Handler).Me, authed(httptest.NewRequest(http.MethodGet, "/auth/me", nil), "u1"), http.StatusOK},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tc.serve(newHandler(&fakeAuth{}), rec, tc.req)
			if rec.Code != tc.wantCode {
				t.Errorf("code = %d, want %d (body %s)", rec.Code, tc.wantCode, rec.Body)
			}
		})
	}
}

func TestResendOTP_PassesPurpose(t *testing.T) {
	auth := &fakeAuth{}
	rec := httptest.NewRecorder()
	newHandler(auth).ResendOTP(rec, post("/auth/otp/resend", `{"email":"a@example.com","purpose":"password_reset"}`))
	if auth.lastPurpose != otpdomain.PurposePasswordReset {
		t.Errorf("purpose = %q", auth.lastPurpose)
	}
	if strings.Contains(rec.Body.String(), "otpExpiresAt") {
		t.Errorf("zero expiry should be omitted: %s", rec.Body)
	}
}

func TestSecretKey(t *testing.T) {
	auth := &fakeAuth{}
	rec := httptest.NewRecorder()
	newHandler(auth).SecretKey(rec, authed(httptest.NewRequest(http.MethodGet, "/auth/secret-key", nil), "u9"))
	if rec.Code != http.StatusOK || auth.lastUserID != "u9" {
		t.Fatalf("code = %d, user = %q", rec.Code, auth.lastUserID)
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Error("secret key response is cacheable")
	}
	if decode(t, rec)["secretKey"] != strings.Repeat("ab", 32) {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestPublicKey(t *testing.T) {
	rec := httptest.NewRecorder()
	newHandler(&fakeAuth{}).PublicKey(rec, httptest.NewRequest(http.MethodGet, "/auth/getpubKey", nil))
	body := decode(t, rec)
	key, _ := body["key"].(string)
	if rec.Code != http.StatusOK || !strings.HasPrefix(key, "-----BEGIN PUBLIC KEY-----") {
		t.Errorf("code = %d, body = %v", rec.Code, body)
	}
}
