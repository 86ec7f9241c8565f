package go_atoapay

import (
	"strings"
)

// PaymentError is a business-level error parsed from a status snapshot:
//   - status.statusCode
//   - status.failureReason / status.description
//
// It is NOT an HTTP/transport error; those are represented by APIError/TransportError/etc.
type PaymentError struct {
	PaymentIdempotencyID string
	Status               PaymentStatus
	StatusCode           string
	FailureReason        string
}

func (e *PaymentError) Error() string {
	if e == nil {
		return ErrPaymentError.Error()
	}

	parts := []string{ErrPaymentError.Error()}

	if strings.TrimSpace(e.PaymentIdempotencyID) != "" {
		parts = append(parts, "paymentIdempotencyId="+strings.TrimSpace(e.PaymentIdempotencyID))
	}
	if strings.TrimSpace(string(e.Status)) != "" {
		parts = append(parts, "status="+strings.TrimSpace(string(e.Status)))
	}
	if strings.TrimSpace(e.StatusCode) != "" {
		parts = append(parts, "statusCode="+strings.TrimSpace(e.StatusCode))
	}
	if strings.TrimSpace(e.FailureReason) != "" {
		parts = append(parts, "reason="+strings.TrimSpace(e.FailureReason))
	}

	return strings.Join(parts, " ")
}

func (e *PaymentError) Is(target error) bool {
	return target == ErrPaymentError
}

// IsCancelled reports whether the failure is a consumer cancellation.
func (e *PaymentError) IsCancelled() bool {
	return e != nil && e.Status.IsCancelled()
}

// NewPaymentError builds a PaymentError from status snapshot fields.
// It returns nil for non-failure statuses.
func NewPaymentError(paymentIdempotencyID string, status PaymentStatus, statusCode string, failureReason string) *PaymentError {
	if !status.IsFailure() {
		return nil
	}

	reason := strings.TrimSpace(failureReason)
	if reason == "" {
		reason = "payment status is " + strings.ToLower(strings.TrimSpace(string(status)))
	}

	return &PaymentError{
		PaymentIdempotencyID: strings.TrimSpace(paymentIdempotencyID),
		Status:               status,
		StatusCode:           strings.TrimSpace(statusCode),
		FailureReason:        reason,
	}
}
