package api

import (
	"net/http"

	"course-membership/internal/domain"
	"course-membership/internal/domain/model"
	"course-membership/internal/infra/logging"
	"course-membership/internal/usecase"
)

type createOrderRequest struct {
	PlanID         int64       `json:"plan_id"`
	Buyer          model.Buyer `json:"buyer"`
	Quantity       int         `json:"quantity"`
	Amount         int64       `json:"amount"`
	SubscriptionID int64       `json:"subscription_id,omitempty"`
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx := logging.WithUserRef(r.Context(), req.Buyer.Ref())

	var (
		ord *model.Order
		err error
	)
	if req.SubscriptionID > 0 {
		var sub *model.CorporateSubscription
		sub, err = s.d.Subscriptions.GetSubscription(ctx, req.SubscriptionID)
		if err == nil {
			ord, err = s.d.Orders.CreateSeatOrder(ctx, sub, req.Buyer, req.Amount)
		}
	} else {
		if req.Quantity == 0 {
			req.Quantity = 1
		}
		ord, err = s.d.Orders.CreateOrder(ctx, req.PlanID, req.Buyer, req.Quantity, req.Amount)
	}
	if err != nil {
		s.writeError(w, r.WithContext(ctx), err)
		return
	}
	writeJSON(w, http.StatusCreated, ord)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ord, err := s.d.Orders.GetOrder(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ord)
}

type updateOrderRequest struct {
	Status    model.OrderStatus `json:"status"`
	PaymentID string            `json:"payment_id"`
}

// handleUpdateOrder completes through the provisioning path so a COMPLETED
// order always has its fulfilment record.
func (s *Server) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req updateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx := logging.WithOrderID(r.Context(), id)
	r = r.WithContext(ctx)

	var ord *model.Order
	switch req.Status {
	case model.OrderStatusCompleted:
		provision, perr := s.d.Checkout.ProvisionerFor(ctx, id)
		if perr != nil {
			s.writeError(w, r, perr)
			return
		}
		ord, err = s.d.Checkout.CompleteOrderAndProvision(ctx, id, req.PaymentID, provision)
	case model.OrderStatusCanceled, model.OrderStatusCreated:
		ord, err = s.d.Orders.UpdateStatus(ctx, id, req.Status, req.PaymentID)
	default:
		err = domain.ErrInvalidArgument
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ord)
}

type checkoutRequest struct {
	Description string `json:"description"`
	ReturnURL   string `json:"return_url"`
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req checkoutRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	r = r.WithContext(logging.WithOrderID(r.Context(), id))
	res, err := s.d.Checkout.Checkout(r.Context(), id, req.Description, req.ReturnURL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type createPaymentRequest struct {
	OrderID     int64  `json:"order_id"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	ReturnURL   string `json:"return_url"`
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	r = r.WithContext(logging.WithOrderID(r.Context(), req.OrderID))
	res, err := s.d.Checkout.CreatePayment(r.Context(), req.OrderID, req.Amount, req.Description, req.ReturnURL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.d.Plans.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": plans})
}

func (s *Server) handleAdminListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := usecase.OrderFilter{
		Status:   model.OrderStatus(q.Get("status")),
		BuyerRef: q.Get("buyer"),
		Pending:  q.Get("pending") == "true",
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": s.d.Orders.ListOrders(r.Context(), f)})
}
