// Package handler serves the messages API. Clients send bodies RSA-OAEP encrypted for the server's
// transport key; the server decrypts, re-encrypts with the at-rest cipher, and stores the result.
package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"inotebook/backend/internal/audit"
	auditdomain "inotebook/backend/internal/audit/domain"
	"inotebook/backend/internal/message/domain"
	messagerepo "inotebook/backend/internal/message/repository"
	"inotebook/backend/internal/server/httpx"
	"inotebook/backend/internal/server/middleware"
	"inotebook/backend/internal/telemetry"
	teldomain "inotebook/backend/internal/telemetry/domain"
	userdomain "inotebook/backend/internal/user/domain"
)

const (
	inboxLimit  = 100
	maxBodyLen  = 4 << 10
	eventSource = "messages"
)

// TransportDecrypter opens payloads encrypted in transit. Implemented by *security.TransportKey.
type TransportDecrypter interface {
	Decrypt(b64 string) (string, error)
}

// PayloadCipher is the at-rest cipher. Implemented by *security.Cipher.
type PayloadCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(combined string) (string, error)
}

// UserFinder resolves recipients.
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
}

// Handler serves /messages. Every route runs behind AuthenticateUser.
type Handler struct {
	repo      messagerepo.Repository
	users     UserFinder
	transport TransportDecrypter
	cipher    PayloadCipher
	audit     audit.AuditLogger
	events    telemetry.EventEmitter
}

// NewHandler returns a messages handler. auditLogger and events may be nil.
func NewHandler(repo messagerepo.Repository, users UserFinder, transport TransportDecrypter, cipher PayloadCipher, auditLogger audit.AuditLogger, events telemetry.EventEmitter) *Handler {
	return &Handler{repo: repo, users: users, transport: transport, cipher: cipher, audit: auditLogger, events: events}
}

type sendRequest struct {
	RecipientEmail string `json:"recipientEmail"`
	Body           string `json:"body"`
}

type messageView struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"senderId"`
	RecipientID string    `json:"recipientId"`
	Body        string    `json:"body"`
	Unreadable  bool      `json:"unreadable,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type sendResponse struct {
	Status int    `json:"status"`
	ID     string `json:"id"`
}

type inboxResponse struct {
	Status   int           `json:"status"`
	Messages []messageView `json:"messages"`
}

// Send handles POST /messages. body is base64 RSA-OAEP ciphertext.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	senderID, _ := middleware.GetUserID(r.Context())
	var req sendRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.RecipientEmail))
	if email == "" || req.Body == "" {
		httpx.WriteError(w, http.StatusBadRequest, "recipientEmail and body are required")
		return
	}
	plain, err := h.transport.Decrypt(req.Body)
	if err != nil {
		if h.audit != nil {
			h.audit.LogEvent(r.Context(), senderID, auditdomain.ActionMessageDecryptErr, "message", "")
		}
		ev := teldomain.NewSecurityEvent(teldomain.EventDecryptFailed, eventSource, senderID, nil)
		ev.IP = middleware.ClientIPFromContext(r.Context())
		telemetry.EmitAsync(h.events, ev)
		httpx.WriteError(w, http.StatusBadRequest, "message could not be decrypted")
		return
	}
	if len(plain) > maxBodyLen {
		httpx.WriteError(w, http.StatusBadRequest, "message is too long")
		return
	}
	recipient, err := h.users.GetByEmail(r.Context(), email)
	if err != nil {
		log.Printf("message: lookup recipient: %v", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to send message")
		return
	}
	if recipient == nil {
		httpx.WriteError(w, http.StatusNotFound, "recipient not found")
		return
	}
	enc, err := h.cipher.Encrypt(plain)
	if err != nil {
		log.Printf("message: encrypt body: %v", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to send message")
		return
	}
	m := &domain.Message{
		ID:          uuid.New().String(),
		SenderID:    senderID,
		RecipientID: recipient.ID,
		BodyEnc:     enc,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.repo.Create(r.Context(), m); err != nil {
		log.Printf("message: create: %v", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to send message")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, sendResponse{Status: 1, ID: m.ID})
}

// Inbox handles GET /messages: the caller's received messages, newest first, decrypted.
func (h *Handler) Inbox(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	msgs, err := h.repo.ListInbox(r.Context(), userID, inboxLimit)
	if err != nil {
		log.Printf("message: inbox: %v", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}
	out := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		v := messageView{ID: m.ID, SenderID: m.SenderID, RecipientID: m.RecipientID, CreatedAt: m.CreatedAt}
		if body, err := h.cipher.Decrypt(m.BodyEnc); err != nil {
			log.Printf("message: body of %s unreadable: %v", m.ID, err)
			v.Unreadable = true
		} else {
			v.Body = body
		}
		out = append(out, v)
	}
	httpx.WriteJSON(w, http.StatusOK, inboxResponse{Status: 1, Messages: out})
}
