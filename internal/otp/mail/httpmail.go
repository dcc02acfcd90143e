// Package mail delivers one-time codes through an HTTP transactional mail API.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"inotebook/backend/internal/otp/domain"
)

const (
	defaultTimeout = 15 * time.Second
	defaultBaseURL = "https://api.mailersend.com/v1/email"
)

// Client posts OTP emails as JSON to BaseURL with a bearer API key.
type Client struct {
	APIKey     string
	BaseURL    string
	Sender     string
	HTTPClient *http.Client
}

// NewClient returns a client that uses the given API key and optional base URL/sender.
func NewClient(apiKey, baseURL, sender string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if sender == "" {
		sender = "no-reply@inotebook.local"
	}
	return &Client{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		Sender:     sender,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

type message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// SendOTP emails code to the given address. Does not log the code.
func (c *Client) SendOTP(ctx context.Context, to, code string, purpose domain.Purpose) error {
	if c.APIKey == "" {
		return fmt.Errorf("mail: API key not configured")
	}
	subject, text := render(code, purpose)
	raw, err := json.Marshal(message{From: c.Sender, To: to, Subject: subject, Text: text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("mail: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}

func render(code string, purpose domain.Purpose) (subject, text string) {
	switch purpose {
	case domain.PurposePasswordReset:
		subject = "Reset your iNotebook password"
		text = "Use this code to reset your password: " + code
	default:
		subject = "Verify your iNotebook email"
		text = "Your verification code is: " + code
	}
	return subject, text + "\n\nThe code expires shortly and can be used once."
}
