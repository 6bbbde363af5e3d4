package api

import (
	"context"
	"net/http"

	"course-membership/internal/domain"
	"course-membership/internal/domain/model"
	"course-membership/internal/infra/logging"
)

func (s *Server) handleListMemberships(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		s.writeError(w, r, domain.ErrInvalidArgument)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"memberships": s.d.Memberships.ListByUser(r.Context(), user)})
}

func (s *Server) handleGetMembership(w http.ResponseWriter, r *http.Request) {
	s.membershipOp(w, r, s.d.Memberships.GetMembership)
}

func (s *Server) handleActivateMembership(w http.ResponseWriter, r *http.Request) {
	s.membershipOp(w, r, s.d.Memberships.ActivateMembership)
}

func (s *Server) handleCancelMembership(w http.ResponseWriter, r *http.Request) {
	s.membershipOp(w, r, s.d.Memberships.CancelMembership)
}

func (s *Server) membershipOp(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id int64) (*model.Membership, error)) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := op(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type createSubscriptionRequest struct {
	CompanyID  string `json:"company_id"`
	PlanID     int64  `json:"plan_id"`
	SeatsTotal int    `json:"seats_total"`
	AmountPaid int64  `json:"amount_paid"`
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req createSubscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sub, err := s.d.Subscriptions.CreateSubscription(r.Context(), req.CompanyID, req.PlanID, req.SeatsTotal, req.AmountPaid)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	s.subscriptionOp(w, r, s.d.Subscriptions.GetSubscription)
}

func (s *Server) handleActivateSubscription(w http.ResponseWriter, r *http.Request) {
	s.subscriptionOp(w, r, s.d.Subscriptions.ActivateSubscription)
}

func (s *Server) subscriptionOp(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id int64) (*model.CorporateSubscription, error)) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sub, err := op(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.d.Subscriptions.GetSubscription(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": s.d.Members.ListMembers(r.Context(), id)})
}

type assignSeatRequest struct {
	SubscriptionID int64  `json:"subscription_id"`
	User           string `json:"user"`
}

func (s *Server) handleAssignSeat(w http.ResponseWriter, r *http.Request) {
	var req assignSeatRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	r = r.WithContext(logging.WithUserRef(r.Context(), req.User))
	m, err := s.d.Members.AssignSeat(r.Context(), req.SubscriptionID, req.User)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleGetMember(w http.ResponseWriter, r *http.Request) {
	s.memberOp(w, r, s.d.Members.GetMember)
}

func (s *Server) handleActivateMember(w http.ResponseWriter, r *http.Request) {
	s.memberOp(w, r, s.d.Members.ActivateMemberCard)
}

func (s *Server) memberOp(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id int64) (*model.CorporateMember, error)) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := op(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	removed, err := s.d.Members.RemoveMember(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}
