package go_atoapay

// PaymentError returns business-level payment error (if any) extracted from a status snapshot.
func (t *TransactionDetails) PaymentError() *PaymentError {
	if t == nil || t.Status == nil {
		return nil
	}
	var id, code, reason string
	if t.PaymentIdempotencyID != nil {
		id = *t.PaymentIdempotencyID
	}
	if t.Status.StatusCode != nil {
		code = *t.Status.StatusCode
	}
	if t.Status.FailureReason != nil {
		reason = *t.Status.FailureReason
	} else if t.Status.Description != nil {
		reason = *t.Status.Description
	}
	return NewPaymentError(id, t.Status.Status, code, reason)
}

// RequireNoPaymentError returns the payment error as an error value, or nil.
func (t *TransactionDetails) RequireNoPaymentError() error {
	if pe := t.PaymentError(); pe != nil {
		return pe
	}
	return nil
}
