// Package handler serves the notes API. Bodies are encrypted with the at-rest cipher before they
// reach the repository and decrypted on the way out.
package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"inotebook/backend/internal/note/domain"
	noterepo "inotebook/backend/internal/note/repository"
	"inotebook/backend/internal/server/httpx"
	"inotebook/backend/internal/server/middleware"
)

// PayloadCipher is the at-rest cipher. Implemented by *security.Cipher.
type PayloadCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(combined string) (string, error)
}

// Handler serves /notes. Every route runs behind AuthenticateUser.
type Handler struct {
	repo   noterepo.Repository
	cipher PayloadCipher
}

// NewHandler returns a notes handler.
func NewHandler(repo noterepo.Repository, cipher PayloadCipher) *Handler {
	return &Handler{repo: repo, cipher: cipher}
}

type createNoteRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// noteView is the decrypted representation. Unreadable is set when the stored body could not be
// decrypted (wrong key, corrupted row); Body is then empty.
type noteView struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Unreadable bool      `json:"unreadable,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type noteResponse struct {
	Status int      `json:"status"`
	Note   noteView `json:"note"`
}

type listResponse struct {
	Status int        `json:"status"`
	Notes  []noteView `json:"notes"`
}

// Create handles POST /notes.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	var req createNoteRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := domain.ValidateInput(req.Title, req.Body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	enc, err := h.cipher.Encrypt(req.Body)
	if err != nil {
		log.Printf("note: encrypt body: %v", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to save note")
		return
	}
	now := time.Now().UTC()
	n := &domain.Note{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     req.Title,
		BodyEnc:   enc,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.repo.Create(r.Context(), n); err != nil {
		log.Printf("note: create: %v", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to save note")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, noteResponse{Status: 1, Note: h.view(n)})
}

// List handles GET /notes.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	notes, err := h.repo.ListByUser(r.Context(), userID)
	if err != nil {
		log.Printf("note: list: %v", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load notes")
		return
	}
	out := make([]noteView, 0, len(notes))
	for _, n := range notes {
		out = append(out, h.view(n))
	}
	httpx.WriteJSON(w, http.StatusOK, listResponse{Status: 1, Notes: out})
}

// Get handles GET /notes/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	n, err := h.repo.GetByID(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		log.Printf("note: get: %v", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load note")
		return
	}
	if n == nil {
		httpx.WriteError(w, http.StatusNotFound, "note not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, noteResponse{Status: 1, Note: h.view(n)})
}

// Delete handles DELETE /notes/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	ok, err := h.repo.Delete(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		log.Printf("note: delete: %v", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to delete note")
		return
	}
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "note not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, struct {
		Status int `json:"status"`
	}{Status: 1})
}

func (h *Handler) view(n *domain.Note) noteView {
	v := noteView{ID: n.ID, Title: n.Title, CreatedAt: n.CreatedAt, UpdatedAt: n.UpdatedAt}
	body, err := h.cipher.Decrypt(n.BodyEnc)
	if err != nil {
		log.Printf("note: body of %s unreadable: %v", n.ID, err)
		v.Unreadable = true
		return v
	}
	v.Body = body
	return v
}
