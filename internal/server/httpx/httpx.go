// Package httpx holds the JSON envelope helpers shared by the HTTP handlers.
//
// Successful responses carry "status": 1, failures carry "status": 0 and a generic "error" string.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
)

const maxBodyBytes = 1 << 20

// ErrBadBody is returned by Decode for an unreadable or oversized request body.
var ErrBadBody = errors.New("invalid request body")

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
}

// WriteJSON writes data as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("httpx: encode response: %v", err)
	}
}

// WriteError writes {"status":0,"error":msg}. msg must be safe to show to clients.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorResponse{Status: 0, Error: msg})
}

// Decode reads a JSON request body into v, limited to 1 MiB.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return ErrBadBody
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return ErrBadBody
	}
	return nil
}
