package dto

import (
	"time"

	paymentssvc "github.com/kirosamy12/otrade-backend/internal/services/payments"
)

type InitPaymentRequest struct {
	PlanID           string `json:"plan_id"`
	SubscriptionType string `json:"subscription_type"`
}

type InitPaymentResponse struct {
	PaymentID   string    `json:"payment_id"`
	PlanID      string    `json:"plan_id"`
	AmountCents int       `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
}

func InitPaymentResponseFrom(res paymentssvc.InitResult, planID string) InitPaymentResponse {
	return InitPaymentResponse{
		PaymentID:   res.PaymentID.String(),
		PlanID:      planID,
		AmountCents: res.AmountCents,
		Currency:    res.Currency,
		Status:      paymentssvc.StatusPending,
		StartsAt:    res.StartsAt,
		EndsAt:      res.EndsAt,
	}
}

type VerifyPaymentRequest struct {
	PaymentID     string `json:"payment_id"`
	ProcessorCode string `json:"processor_code"`
}

type VerifyPaymentResponse struct {
	PaymentID    string     `json:"payment_id"`
	Status       string     `json:"status"`
	PlanUnlocked bool       `json:"plan_unlocked"`
	StartsAt     *time.Time `json:"starts_at,omitempty"`
	EndsAt       *time.Time `json:"ends_at,omitempty"`
}

func VerifyPaymentResponseFrom(res paymentssvc.ActivationResult) VerifyPaymentResponse {
	out := VerifyPaymentResponse{
		PaymentID:    res.PaymentID.String(),
		Status:       res.Status,
		PlanUnlocked: res.Unlocked,
	}
	if res.Unlocked {
		out.StartsAt = res.StartsAt
		out.EndsAt = res.EndsAt
	}
	return out
}

// PaymentCallbackRequest mirrors the processor's server-to-server payload.
type PaymentCallbackRequest struct {
	PaymentID      string `json:"payment_id"`
	ResponseStatus string `json:"response_status"`
	StatusTag      string `json:"status_tag"`
	TransactionID  string `json:"transaction_id"`
	IsTest         bool   `json:"is_test"`
}

// CallbackStatusUnknown acknowledges a notification for a payment this
// system cannot match. The processor stops retrying on any 200, so the
// mismatch is reported in the body rather than the status code.
const CallbackStatusUnknown = "unknown"

type PaymentCallbackResponse struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
}
