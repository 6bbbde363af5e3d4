package adapter

import (
	"context"

	"course-membership/internal/domain/model"
)

// PaymentGateway is the port for payment processors.
//
// CreatePayment returns a result with Status failed (and a nil error) when
// the processor declines; a non-nil error means the processor could not be
// reached (domain.ErrGatewayUnavailable) or the call was abandoned, in which
// case the outcome is unknown and LookupByOrder must be used to reconcile.
type PaymentGateway interface {
	Name() string
	CreatePayment(ctx context.Context, req model.PaymentRequest) (*model.PaymentResult, error)
	// LookupByOrder returns the latest processed payment for the order or domain.ErrNotFound.
	LookupByOrder(ctx context.Context, orderID int64) (*model.PaymentResult, error)
}
