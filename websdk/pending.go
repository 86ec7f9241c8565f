package websdk

import (
	"context"
	"sync"
)

// Outcome is how a dialog session ended.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeClosed    Outcome = "closed"
	OutcomeError     Outcome = "error"
)

// Result is the settled value of a Pending.
type Result struct {
	Outcome          Outcome
	PaymentRequestID string

	Payload any
	Close   *CloseDetail
	Err     error
}

// Pending is the caller's handle on one ShowPaymentDialog call.
// It settles exactly once.
type Pending struct {
	once   sync.Once
	done   chan struct{}
	result Result
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func (p *Pending) settle(r Result) bool {
	settled := false
	p.once.Do(func() {
		p.result = r
		close(p.done)
		settled = true
	})
	return settled
}

// Done is closed once the session has ended.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Result returns the settled result, or false while the dialog is still open.
func (p *Pending) Result() (Result, bool) {
	select {
	case <-p.done:
		return p.result, true
	default:
		return Result{}, false
	}
}

// Wait blocks until the session ends or ctx is done. An error outcome is
// returned as both Result.Err and the error value. Listeners for the ending
// event may not have run yet when Wait returns; SDK.Flush waits for them.
func (p *Pending) Wait(ctx context.Context) (Result, error) {
	select {
	case <-p.done:
		return p.result, p.result.Err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
