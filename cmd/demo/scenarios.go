package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"course-membership/internal/domain"
	"course-membership/internal/domain/model"
)

func scenarioOrderToMembership(ctx context.Context, e *engine) error {
	ord, err := e.orders.CreateOrder(ctx, 1, model.Buyer{UserID: "user-1"}, 1, 3000)
	if err != nil {
		return err
	}
	fmt.Printf("   created order %d status=%s\n", ord.ID, ord.Status)

	provision, err := e.checkout.ProvisionerFor(ctx, ord.ID)
	if err != nil {
		return err
	}
	if _, err := e.checkout.CompleteOrderAndProvision(ctx, ord.ID, "pay_1", provision); err != nil {
		return err
	}
	got, err := e.orders.GetOrder(ctx, ord.ID)
	if err != nil {
		return err
	}
	m, err := e.memberships.FindByOrder(ctx, ord.ID)
	if err != nil {
		return err
	}
	fmt.Printf("   order %d status=%s payment=%s; membership %d status=%s\n", got.ID, got.Status, got.PaymentID, m.ID, m.Status)
	if got.Status != model.OrderStatusCompleted || m.Status != model.MembershipStatusPurchased {
		return errUnexpected
	}
	return nil
}

func scenarioSeatPool(ctx context.Context, e *engine) error {
	sub, err := e.subs.CreateSubscription(ctx, "acme", 2, 5, 5*2500)
	if err != nil {
		return err
	}
	var first *model.CorporateMember
	for i := 1; i <= 5; i++ {
		m, err := e.members.AssignSeat(ctx, sub.ID, fmt.Sprintf("employee-%d", i))
		if err != nil {
			return err
		}
		if first == nil {
			first = m
		}
	}
	_, err = e.members.AssignSeat(ctx, sub.ID, "employee-6")
	fmt.Printf("   6th assignment: %v\n", err)
	if !errors.Is(err, domain.ErrSeatExhausted) {
		return errUnexpected
	}
	if _, err := e.members.RemoveMember(ctx, first.ID); err != nil {
		return err
	}
	if _, err := e.members.AssignSeat(ctx, sub.ID, "employee-6"); err != nil {
		return err
	}
	got, err := e.subs.GetSubscription(ctx, sub.ID)
	if err != nil {
		return err
	}
	fmt.Printf("   seats used=%d available=%d total=%d\n", got.SeatsUsed, got.SeatsAvailable, got.SeatsTotal)
	return nil
}

func scenarioDeadline(ctx context.Context, e *engine) error {
	ord, err := e.orders.CreateOrder(ctx, 1, model.Buyer{GuestEmail: "guest@example.com"}, 1, 3000)
	if err != nil {
		return err
	}
	if _, err := e.orders.UpdateStatus(ctx, ord.ID, model.OrderStatusCompleted, "pay_2"); err != nil {
		return err
	}
	m, err := e.memberships.CreateMembership(ctx, model.Buyer{GuestEmail: "guest@example.com"}.Ref(), 1, ord.ID, ord.Amount)
	if err != nil {
		return err
	}
	fmt.Printf("   membership %d deadline=%s\n", m.ID, m.ActivationDeadline.Format(time.RFC3339))

	e.clk.Advance(m.ActivationDeadline.Sub(e.clk.Now()) + time.Second)
	_, err = e.memberships.ActivateMembership(ctx, m.ID)
	fmt.Printf("   activation one second late: %v\n", err)
	if !errors.Is(err, domain.ErrDeadlineExpired) {
		return errUnexpected
	}

	rep, err := e.sweeper.SweepAll(ctx)
	if err != nil {
		return err
	}
	got, err := e.memberships.GetMembership(ctx, m.ID)
	if err != nil {
		return err
	}
	fmt.Printf("   swept memberships=%d status=%s\n", rep.Memberships, got.Status)
	if got.Status != model.MembershipStatusExpired {
		return errUnexpected
	}
	return nil
}
