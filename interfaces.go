package go_atoapay

import (
	"context"
	"time"

	"github.com/stremovskyy/go-atoapay/log"
)

// AtoaPay is the Payments Gateway: stateless calls against the payments backend.
//
// Supported flows:
//   - bank institution listing
//   - payment details lookup by payment request id
//   - bank authorisation URL exchange
//   - payment status lookup and polling
//   - best-effort cancellation callback
//
// Every call is a single round trip with no retries and no caching.
// Cancelling ctx aborts the in-flight request.
type AtoaPay interface {
	// ListBankInstitutions returns banks the consumer can pay from.
	ListBankInstitutions(ctx context.Context, opts ...RunOption) ([]BankInstitution, error)

	// GetPaymentDetails fetches merchant/consumer/amount metadata of a payment request.
	GetPaymentDetails(ctx context.Context, paymentRequestID string, opts ...RunOption) (*PaymentDetails, error)

	// RequestBankAuthorisation exchanges payment context for the bank's authorisation URL.
	RequestBankAuthorisation(ctx context.Context, request *AuthorisationRequest, opts ...RunOption) (*PaymentAuthResponse, error)

	// GetPaymentStatus returns a fresh status snapshot for an idempotency or request id.
	GetPaymentStatus(ctx context.Context, id string, params StatusParams, opts ...RunOption) (*TransactionDetails, error)
	// WaitForFinalStatus polls GetPaymentStatus every interval until the status is final or ctx is done.
	WaitForFinalStatus(ctx context.Context, id string, params StatusParams, interval time.Duration) (*TransactionDetails, error)

	// NotifyCancellation pings a merchant cancellation callback URL with GET.
	NotifyCancellation(ctx context.Context, callbackURL string) error

	// SetLogLevel changes SDK logging level.
	SetLogLevel(level log.Level)
}
