// Package headless provides an in-memory Host and dialog Element for tests
// and for hosts without a rendering surface.
package headless

import (
	"context"
	"errors"
	"slices"
	"sync"

	go_atoapay "github.com/stremovskyy/go-atoapay"
	"github.com/stremovskyy/go-atoapay/websdk"
)

var (
	ErrAlreadyAttached = errors.New("headless: element already attached")
	ErrNotAttached     = errors.New("headless: element not attached")
	ErrNoGateway       = errors.New("headless: dialog has no gateway")
)

var (
	_ websdk.Host    = (*Document)(nil)
	_ websdk.Element = (*Dialog)(nil)
)

// Document is a websdk.Host that keeps attached elements in memory.
type Document struct {
	mu        sync.Mutex
	attached  []websdk.Element
	appendErr error
	appends   int
	removes   int
}

func NewDocument() *Document {
	return &Document{}
}

// FailAppend makes every following Append return err. A nil err clears it.
func (d *Document) FailAppend(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.appendErr = err
}

func (d *Document) Append(el websdk.Element) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.appendErr != nil {
		return d.appendErr
	}
	if d.indexOf(el) >= 0 {
		return ErrAlreadyAttached
	}
	d.attached = append(d.attached, el)
	d.appends++
	return nil
}

func (d *Document) Remove(el websdk.Element) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.indexOf(el)
	if i < 0 {
		return ErrNotAttached
	}
	d.attached = append(d.attached[:i], d.attached[i+1:]...)
	d.removes++
	return nil
}

func (d *Document) indexOf(el websdk.Element) int {
	for i, a := range d.attached {
		if a == el {
			return i
		}
	}
	return -1
}

// AttachedCount returns the number of currently attached elements.
func (d *Document) AttachedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.attached)
}

// Stats returns how many appends and removes succeeded.
func (d *Document) Stats() (appends, removes int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.appends, d.removes
}

// Dialog returns the first attached *Dialog, or nil.
func (d *Document) Dialog() *Dialog {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, el := range d.attached {
		if dlg, ok := el.(*Dialog); ok {
			return dlg
		}
	}
	return nil
}

// Dialog is a websdk.Element without a UI. Dispatch stands in for the user.
type Dialog struct {
	mu        sync.Mutex
	props     websdk.DialogProperties
	listeners map[websdk.EventKind][]func(websdk.ElementEvent)
	propsErr  error
}

func NewDialog() *Dialog {
	return &Dialog{listeners: make(map[websdk.EventKind][]func(websdk.ElementEvent))}
}

func (d *Dialog) SetProperties(props websdk.DialogProperties) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.propsErr != nil {
		return d.propsErr
	}
	d.props = props
	return nil
}

func (d *Dialog) Properties() websdk.DialogProperties {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.props
}

func (d *Dialog) AddEventListener(kind websdk.EventKind, listener func(websdk.ElementEvent)) {
	if listener == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[kind] = append(d.listeners[kind], listener)
}

func (d *Dialog) ListenerCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, ls := range d.listeners {
		n += len(ls)
	}
	return n
}

// Dispatch delivers ev to the listeners of ev.Type in registration order.
func (d *Dialog) Dispatch(ev websdk.ElementEvent) {
	d.mu.Lock()
	ls := slices.Clone(d.listeners[ev.Type])
	d.mu.Unlock()

	for _, l := range ls {
		l(ev)
	}
}

func (d *Dialog) Succeed(payload any) {
	d.Dispatch(websdk.ElementEvent{Type: websdk.EventSuccess, Payload: payload})
}

func (d *Dialog) Fail(message string, details any) {
	d.Dispatch(websdk.ElementEvent{Type: websdk.EventError, Error: &websdk.ErrorDetail{Message: message, Details: details}})
}

func (d *Dialog) Close(status, paymentIdempotencyID string) {
	d.Dispatch(websdk.ElementEvent{
		Type:  websdk.EventClose,
		Close: &websdk.CloseDetail{Status: status, PaymentIdempotencyID: paymentIdempotencyID},
	})
}

// Cancel closes the dialog the way a user pressing cancel does.
func (d *Dialog) Cancel(paymentIdempotencyID string) {
	d.Close(string(go_atoapay.StatusCancelled), paymentIdempotencyID)
}

func (d *Dialog) ReportStatus(status string, details any) {
	d.Dispatch(websdk.ElementEvent{Type: websdk.EventStatus, Status: &websdk.StatusChange{Status: status, StatusDetails: details}})
}

// Authorise runs the bank step of the dialog: it loads the payment details,
// asks the gateway for an authorisation URL for bank and reports a pending
// status. Gateway failures are dispatched as error events and returned.
func (d *Dialog) Authorise(ctx context.Context, bank *go_atoapay.BankInstitution, device go_atoapay.DeviceInfo) (*go_atoapay.PaymentAuthResponse, error) {
	props := d.Properties()
	if props.Gateway == nil {
		d.Fail(ErrNoGateway.Error(), nil)
		return nil, ErrNoGateway
	}

	details, err := props.Gateway.GetPaymentDetails(ctx, props.PaymentRequestID)
	if err != nil {
		d.Fail("cannot load payment details", err.Error())
		return nil, err
	}

	req := go_atoapay.NewAuthorisationRequest(details, bank).WithPaymentRequestID(props.PaymentRequestID)
	if device != nil {
		req = req.WithDevice(device)
	}

	resp, err := props.Gateway.RequestBankAuthorisation(ctx, req)
	if err != nil {
		d.Fail("bank authorisation failed", err.Error())
		return nil, err
	}

	d.ReportStatus(string(go_atoapay.StatusPending), resp)
	return resp, nil
}

// Factory returns a websdk.ElementFactory producing fresh *Dialog values and
// a func reporting the most recently produced one.
func Factory() (websdk.ElementFactory, func() *Dialog) {
	var (
		mu   sync.Mutex
		last *Dialog
	)
	factory := func() (websdk.Element, error) {
		dlg := NewDialog()
		mu.Lock()
		last = dlg
		mu.Unlock()
		return dlg, nil
	}
	lastFn := func() *Dialog {
		mu.Lock()
		defer mu.Unlock()
		return last
	}
	return factory, lastFn
}

// FailingFactory returns a factory producing dialogs whose SetProperties fails with err.
func FailingFactory(err error) websdk.ElementFactory {
	return func() (websdk.Element, error) {
		dlg := NewDialog()
		dlg.propsErr = err
		return dlg, nil
	}
}
