package api

import (
	"net/http"
	"time"

	"course-membership/internal/domain"
)

func (s *Server) handleAdminSweep(w http.ResponseWriter, r *http.Request) {
	rep, err := s.d.Sweeper.SweepAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleAdminInvariants(w http.ResponseWriter, r *http.Request) {
	v := s.d.Sweeper.CheckInvariants(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"ok": len(v) == 0, "violations": v})
}

// handleAdminReconcile resolves every payment-pending order immediately.
func (s *Server) handleAdminReconcile(w http.ResponseWriter, r *http.Request) {
	var stale time.Duration
	if raw := r.URL.Query().Get("stale_after"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			s.writeError(w, r, domain.ErrInvalidArgument)
			return
		}
		stale = d
	}
	n, err := s.d.Checkout.ReconcilePending(r.Context(), stale)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"resolved": n})
}
