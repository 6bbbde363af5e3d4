// File: internal/usecase/checkout_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"course-membership/internal/domain"
	"course-membership/internal/domain/model"
	"course-membership/internal/domain/ports/adapter"
	"course-membership/internal/domain/ports/repository"
	"course-membership/internal/infra/logging"
	"course-membership/internal/infra/metrics"
)

// ProvisionFunc creates the fulfilment record for a COMPLETED order.
type ProvisionFunc func(ctx context.Context, order *model.Order) error

// CheckoutResult is what a successful checkout hands back to the caller.
type CheckoutResult struct {
	Order   *model.Order         `json:"order"`
	Payment *model.PaymentResult `json:"payment"`
}

// CheckoutUseCase drives an order through payment into provisioning.
type CheckoutUseCase struct {
	orders      *OrderStore
	memberships *MembershipStore
	subs        *CorporateSubscriptionStore
	members     *CorporateMemberStore
	plans       repository.PlanCatalog
	gateway     adapter.PaymentGateway
	timeout     time.Duration
	now         func() time.Time
	events      adapter.EventPublisher
	log         *zerolog.Logger
}

func NewCheckoutUseCase(
	orders *OrderStore,
	memberships *MembershipStore,
	subs *CorporateSubscriptionStore,
	members *CorporateMemberStore,
	plans repository.PlanCatalog,
	gateway adapter.PaymentGateway,
	timeout time.Duration,
	opts ...Option,
) *CheckoutUseCase {
	o := buildOptions(opts)
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &CheckoutUseCase{
		orders:      orders,
		memberships: memberships,
		subs:        subs,
		members:     members,
		plans:       plans,
		gateway:     gateway,
		timeout:     timeout,
		now:         o.now,
		events:      o.events,
		log:         o.component("CheckoutUseCase"),
	}
}

// CompleteOrderAndProvision marks the order COMPLETED and runs provision. If
// provisioning fails the order is reverted to CANCELED before the error is
// returned; an order is never left COMPLETED without its fulfilment record.
// When the revert itself cannot be stored the error wraps
// domain.ErrCompensationFailed and an alert event is published.
func (uc *CheckoutUseCase) CompleteOrderAndProvision(ctx context.Context, orderID int64, paymentID string, provision ProvisionFunc) (*model.Order, error) {
	ctx = logging.WithOrderID(ctx, orderID)
	log := logging.With(ctx, uc.log)

	ord, err := uc.orders.UpdateStatus(ctx, orderID, model.OrderStatusCompleted, paymentID)
	if err != nil {
		return nil, err
	}

	perr := provision(ctx, ord)
	if perr == nil {
		metrics.AddPaymentRevenue(ord.Amount)
		return ord, nil
	}

	log.Warn().Err(perr).Msg("provisioning failed, compensating")
	// the caller may have given up; the revert must still run
	compCtx := context.WithoutCancel(ctx)
	reverted, cerr := uc.orders.Compensate(compCtx, orderID)
	if cerr != nil {
		metrics.IncCompensation("failed")
		log.Error().Err(cerr).AnErr("cause", perr).Msg("compensation failed, order left COMPLETED without fulfilment")
		uc.events.Publish(compCtx, model.Event{
			Type:       model.EventCompensationFailed,
			EntityID:   orderID,
			OccurredAt: uc.now(),
			Data: map[string]string{
				"payment_id": paymentID,
				"cause":      perr.Error(),
				"error":      cerr.Error(),
			},
		})
		return ord, fmt.Errorf("order %d: %w: %v (provisioning: %v)", orderID, domain.ErrCompensationFailed, cerr, perr)
	}
	metrics.IncCompensation("ok")
	return reverted, fmt.Errorf("order %d provisioning: %w", orderID, perr)
}

// Provisioner picks the fulfilment step for the order's plan: a membership
// for individual plans, a seat pool for corporate plans, or a single seat
// when the order targets an existing pool.
func (uc *CheckoutUseCase) Provisioner(plan *model.Plan) ProvisionFunc {
	return func(ctx context.Context, o *model.Order) error {
		switch {
		case o.SubscriptionID != nil:
			_, err := uc.members.AssignSeatForOrder(ctx, *o.SubscriptionID, o.Buyer.Ref(), o.ID)
			return err
		case plan.IsCorporate():
			_, err := uc.subs.CreateSubscriptionForOrder(ctx, o.Buyer.CompanyID, plan.ID, o.Quantity, o.Amount, o.ID)
			return err
		default:
			_, err := uc.memberships.CreateMembership(ctx, o.Buyer.Ref(), plan.ID, o.ID, o.Amount)
			return err
		}
	}
}

// ProvisionerFor resolves the order's plan and returns its provisioner.
func (uc *CheckoutUseCase) ProvisionerFor(ctx context.Context, orderID int64) (ProvisionFunc, error) {
	ord, err := uc.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	plan, err := uc.plans.FindByID(ctx, ord.PlanID)
	if err != nil {
		return nil, err
	}
	return uc.Provisioner(plan), nil
}

// Checkout charges the order and applies the outcome:
//   - declined: order CANCELED (payment_failed), ErrPaymentFailed
//   - unreachable: order untouched, ErrGatewayUnavailable
//   - timeout: order left PaymentPending, ErrPaymentOutcomeUnknown
//   - success: CompleteOrderAndProvision
//
// The order is flagged PaymentPending for the whole gateway call, so a
// sweep running meanwhile cannot cancel an order that is being charged.
func (uc *CheckoutUseCase) Checkout(ctx context.Context, orderID int64, description, returnURL string) (*CheckoutResult, error) {
	start := time.Now()
	outcome := "error"
	defer func() { metrics.ObserveCheckout(outcome, time.Since(start).Seconds()) }()

	ord, err := uc.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := uc.payable(ord); err != nil {
		return nil, err
	}
	plan, err := uc.plans.FindByID(ctx, ord.PlanID)
	if err != nil {
		return nil, err
	}

	res, err := uc.charge(ctx, orderID, description, returnURL)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentOutcomeUnknown) {
			outcome = "unknown"
		}
		return nil, err
	}
	if !res.Succeeded() {
		outcome = "declined"
		if _, cerr := uc.orders.CancelOrder(ctx, orderID, model.CancelReasonPaymentFailed, res.PaymentID); cerr != nil {
			return nil, cerr
		}
		return &CheckoutResult{Payment: res}, fmt.Errorf("order %d: %w", orderID, domain.ErrPaymentFailed)
	}

	completed, err := uc.CompleteOrderAndProvision(ctx, orderID, res.PaymentID, uc.Provisioner(plan))
	if errors.Is(err, domain.ErrInvalidStateTransition) {
		// the reconciler may have applied this very payment already
		if cur, gerr := uc.orders.GetOrder(ctx, orderID); gerr == nil &&
			cur.Status == model.OrderStatusCompleted && cur.PaymentID == res.PaymentID {
			completed, err = cur, nil
		}
	}
	if err != nil {
		outcome = "compensated"
		return nil, err
	}
	outcome = "completed"
	return &CheckoutResult{Order: completed, Payment: res}, nil
}

// CreatePayment asks the gateway to charge an order without applying the
// result. The caller completes or cancels the order afterwards. A successful
// charge leaves the order PaymentPending so the sweep cannot cancel it and
// the reconciler applies it if the caller never does.
func (uc *CheckoutUseCase) CreatePayment(ctx context.Context, orderID, amount int64, description, returnURL string) (*model.PaymentResult, error) {
	ord, err := uc.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if amount != ord.Amount {
		return nil, domain.ErrInvalidAmount
	}
	if err := uc.payable(ord); err != nil {
		return nil, err
	}
	res, err := uc.charge(ctx, orderID, description, returnURL)
	if err != nil {
		return nil, err
	}
	if !res.Succeeded() {
		// nothing was charged; the order may be paid again
		if _, cerr := uc.orders.ClearPaymentPending(context.WithoutCancel(ctx), orderID); cerr != nil {
			return nil, cerr
		}
	}
	return res, nil
}

func (uc *CheckoutUseCase) payable(ord *model.Order) error {
	if ord.Status != model.OrderStatusCreated || ord.Expired(uc.now()) {
		return domain.ErrInvalidStateTransition
	}
	if ord.PaymentPending {
		// a previous charge may have gone through
		return domain.ErrPaymentOutcomeUnknown
	}
	return nil
}

// charge claims the order with BeginPayment and calls the gateway under the
// checkout timeout. An unreachable gateway releases the claim. A timeout or
// an abandoned call keeps the order flagged for reconciliation instead of
// retrying. On an answer the flag stays until the caller applies it.
func (uc *CheckoutUseCase) charge(ctx context.Context, orderID int64, description, returnURL string) (*model.PaymentResult, error) {
	log := logging.With(logging.WithOrderID(ctx, orderID), uc.log)

	ord, err := uc.orders.BeginPayment(ctx, orderID)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	res, err := uc.gateway.CreatePayment(callCtx, model.PaymentRequest{
		OrderID:     ord.ID,
		Amount:      ord.Amount,
		Description: description,
		ReturnURL:   returnURL,
	})
	switch {
	case err == nil:
		metrics.IncPayment(uc.gateway.Name(), string(res.Status))
		log.Info().Str("payment_id", res.PaymentID).Str("status", string(res.Status)).Msg("gateway answered")
		return res, nil
	case errors.Is(err, domain.ErrGatewayUnavailable):
		metrics.IncPayment(uc.gateway.Name(), "unavailable")
		log.Warn().Err(err).Msg("gateway unreachable")
		if _, cerr := uc.orders.ClearPaymentPending(context.WithoutCancel(ctx), ord.ID); cerr != nil {
			return nil, cerr
		}
		return nil, err
	default:
		metrics.IncPayment(uc.gateway.Name(), "timeout")
		log.Warn().Err(err).Msg("gateway outcome unknown, flagging order for reconciliation")
		// restarts the staleness clock the reconciler waits on
		if _, merr := uc.orders.MarkPaymentPending(context.WithoutCancel(ctx), ord.ID); merr != nil {
			return nil, merr
		}
		return nil, fmt.Errorf("order %d: %w: %v", ord.ID, domain.ErrPaymentOutcomeUnknown, err)
	}
}

// ReconcileOrder applies the gateway's recorded outcome to a pending order.
// It reports whether the order reached a terminal state.
func (uc *CheckoutUseCase) ReconcileOrder(ctx context.Context, orderID int64) (bool, error) {
	ord, err := uc.orders.GetOrder(ctx, orderID)
	if err != nil {
		return false, err
	}
	if !ord.PaymentPending || ord.Status != model.OrderStatusCreated {
		return false, nil
	}

	res, err := uc.gateway.LookupByOrder(ctx, orderID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		now := uc.now()
		if ord.ExpiresAt.Before(now) && ord.UpdatedAt.Add(uc.timeout).Before(now) {
			// never charged, no longer payable and no call still in flight
			_, err := uc.orders.CancelOrder(ctx, orderID, model.CancelReasonExpired, "")
			return err == nil, err
		}
		return false, nil
	case err != nil:
		return false, err
	}

	if !res.Succeeded() {
		_, err := uc.orders.CancelOrder(ctx, orderID, model.CancelReasonPaymentFailed, res.PaymentID)
		return err == nil, err
	}
	provision, err := uc.ProvisionerFor(ctx, orderID)
	if err != nil {
		return false, err
	}
	if _, err = uc.CompleteOrderAndProvision(ctx, orderID, res.PaymentID, provision); err == nil {
		return true, nil
	}
	// a compensated order is terminal too
	cur, gerr := uc.orders.GetOrder(ctx, orderID)
	return gerr == nil && cur.IsTerminal(), err
}

// ReconcilePending resolves orders flagged PaymentPending for at least
// staleAfter. Individual failures are logged and skipped.
func (uc *CheckoutUseCase) ReconcilePending(ctx context.Context, staleAfter time.Duration) (resolved int, err error) {
	cutoff := uc.now().Add(-staleAfter)
	pending := uc.orders.ListOrders(ctx, OrderFilter{Status: model.OrderStatusCreated, Pending: true})
	var errs []error
	for _, o := range pending {
		if o.UpdatedAt.After(cutoff) {
			continue
		}
		done, rerr := uc.ReconcileOrder(ctx, o.ID)
		if rerr != nil {
			uc.log.Error().Err(rerr).Int64("order_id", o.ID).Msg("reconcile order")
			errs = append(errs, fmt.Errorf("order %s: %w", strconv.FormatInt(o.ID, 10), rerr))
		}
		if done {
			resolved++
		}
	}
	return resolved, errors.Join(errs...)
}
