// Package client is the Go client for the iNotebook API: an HTTP client with a cookie session,
// the client-side session store, the symmetric payload cipher, and the RSA-OAEP encryptor for
// payloads sent to the server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

// API talks JSON to the server. The session cookie is kept in the HTTP client's jar.
type API struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewAPI returns a client for baseURL with its own cookie jar.
func NewAPI(baseURL string) (*API, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &API{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: defaultTimeout, Jar: jar},
	}, nil
}

type errorBody struct {
	Error string `json:"error"`
}

// do sends in as JSON (when non-nil) and decodes a 2xx body into out (when non-nil).
func (a *API) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(b, &eb) != nil || eb.Error == "" {
			eb.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: eb.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode %s %s: %w", method, path, err)
	}
	return nil
}

type userPayload struct {
	UserID      string   `json:"userId"`
	Email       string   `json:"email"`
	IsAdmin     bool     `json:"isAdmin"`
	Permissions []string `json:"permissions"`
	PINSet      bool     `json:"pinSet"`
}

func (u userPayload) summary() Summary {
	return Summary{UserID: u.UserID, Email: u.Email, IsAdmin: u.IsAdmin, Permissions: u.Permissions, PINSet: u.PINSet}
}

// Login signs in; the session cookie lands in the jar.
func (a *API) Login(ctx context.Context, email, password string) (Summary, error) {
	var resp struct {
		User userPayload `json:"user"`
	}
	in := map[string]string{"email": email, "password": password}
	if err := a.do(ctx, http.MethodPost, "/auth/login", in, &resp); err != nil {
		return Summary{}, err
	}
	return resp.User.summary(), nil
}

// Logout revokes the server session.
func (a *API) Logout(ctx context.Context) error {
	return a.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// PublicKey fetches the transport public key PEM.
func (a *API) PublicKey(ctx context.Context) (string, error) {
	var resp struct {
		Key string `json:"key"`
	}
	if err := a.do(ctx, http.MethodGet, "/auth/getpubKey", nil, &resp); err != nil {
		return "", err
	}
	if resp.Key == "" {
		return "", fmt.Errorf("client: empty public key")
	}
	return resp.Key, nil
}

// SecretKey fetches the user's secret key.
func (a *API) SecretKey(ctx context.Context) (string, error) {
	var resp struct {
		SecretKey string `json:"secretKey"`
	}
	if err := a.do(ctx, http.MethodGet, "/auth/secret-key", nil, &resp); err != nil {
		return "", err
	}
	return resp.SecretKey, nil
}

// VerifyPIN checks the PIN on the server.
func (a *API) VerifyPIN(ctx context.Context, pin string) error {
	return a.do(ctx, http.MethodPost, "/auth/pin/verify", map[string]string{"pin": pin}, nil)
}

// SendMessage posts a message whose body is already RSA-OAEP encrypted (see Encryptor).
func (a *API) SendMessage(ctx context.Context, recipientEmail, encryptedBody string) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	in := map[string]string{"recipientEmail": recipientEmail, "body": encryptedBody}
	if err := a.do(ctx, http.MethodPost, "/messages", in, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// LiveUser is one entry of the presence list.
type LiveUser struct {
	UserID   string    `json:"userId"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	LastSeen time.Time `json:"lastSeen"`
}

// Heartbeat marks the caller alive.
func (a *API) Heartbeat(ctx context.Context) error {
	return a.do(ctx, http.MethodPost, "/heartbeat", nil, nil)
}

// LiveUsers lists users seen within the server's heartbeat window.
func (a *API) LiveUsers(ctx context.Context) ([]LiveUser, error) {
	var resp struct {
		LiveUsers []LiveUser `json:"liveUsers"`
	}
	if err := a.do(ctx, http.MethodGet, "/heartbeat/live/users", nil, &resp); err != nil {
		return nil, err
	}
	return resp.LiveUsers, nil
}
