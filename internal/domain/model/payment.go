package model

import "time"

type PaymentStatus string

const (
	PaymentStatusSuccessful PaymentStatus = "successful" // settled at the provider
	PaymentStatusFailed     PaymentStatus = "failed"     // declined by the provider
)

// PaymentRequest is what the checkout flow sends to the gateway.
type PaymentRequest struct {
	OrderID     int64
	Amount      int64
	Description string
	ReturnURL   string
}

// PaymentResult records the external payment outcome. It is advisory: the
// caller applies it to the order.
type PaymentResult struct {
	PaymentID   string        `json:"payment_id"`
	OrderID     int64         `json:"order_id"`
	Amount      int64         `json:"amount"`
	Status      PaymentStatus `json:"status"`
	Provider    string        `json:"provider"`
	Description string        `json:"description,omitempty"`
	ProcessedAt time.Time     `json:"processed_at"`
}

func (r *PaymentResult) Succeeded() bool {
	return r != nil && r.Status == PaymentStatusSuccessful
}
