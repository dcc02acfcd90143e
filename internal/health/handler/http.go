// Package handler serves GET /healthz for load balancers and orchestration.
package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"inotebook/backend/internal/server/httpx"
)

const checkTimeout = 2 * time.Second

// Pinger checks database connectivity. Implemented by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker checks the permissions policy engine. Implemented by *engine.OPAEvaluator.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler reports readiness. Nil checkers are skipped.
type Handler struct {
	db     Pinger
	policy PolicyChecker
}

// NewHandler returns a health handler. db and policy may be nil.
func NewHandler(db Pinger, policy PolicyChecker) *Handler {
	return &Handler{db: db, policy: policy}
}

type healthResponse struct {
	Status  int               `json:"status"`
	Serving bool              `json:"serving"`
	Checks  map[string]string `json:"checks"`
}

// Healthz handles GET /healthz: 200 when every configured check passes, 503 otherwise.
// Check failures are reported as "fail" only; causes are logged.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	resp := healthResponse{Status: 1, Serving: true, Checks: map[string]string{}}
	run := func(name string, check func(context.Context) error) {
		if err := check(ctx); err != nil {
			log.Printf("health: %s check failed: %v", name, err)
			resp.Checks[name] = "fail"
			resp.Serving = false
			return
		}
		resp.Checks[name] = "ok"
	}
	if h.db != nil {
		run("database", h.db.PingContext)
	}
	if h.policy != nil {
		run("policy", h.policy.HealthCheck)
	}

	code := http.StatusOK
	if !resp.Serving {
		resp.Status = 0
		code = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, code, resp)
}
