package websdk

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/getsentry/sentry-go"

	go_atoapay "github.com/stremovskyy/go-atoapay"
	"github.com/stremovskyy/go-atoapay/log"
)

var logger = log.NewLogger("AtoaPay WebSDK:")

// session is one attached dialog.
type session struct {
	element  Element
	attached bool
	pending  *Pending
}

// SDK wraps a single payment dialog. Create it with New.
type SDK struct {
	mu       sync.Mutex
	cfg      *Configuration
	host     Host
	opts     *sdkConfig
	bus      *eventBus
	current  *session
	disposed bool
}

// New validates cfg and returns an SDK bound to host. Nothing touches the
// host until ShowPaymentDialog is called.
func New(cfg *Configuration, host Host, opts ...Option) (*SDK, error) {
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration: %v", err)
		return nil, err
	}
	if host == nil {
		return nil, &ConfigurationError{Field: "host", Msg: "is required"}
	}

	o := defaultSDKConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.gateway == nil {
		o.gateway = go_atoapay.NewDefaultClient()
	}

	s := &SDK{
		cfg:  cfg.normalized(),
		host: host,
		opts: o,
	}
	s.bus = newEventBus(s.reportListenerPanic)

	for kind, h := range map[EventKind]Handler{
		EventError:   s.cfg.OnError,
		EventSuccess: s.cfg.OnSuccess,
		EventClose:   s.cfg.OnClose,
		EventCancel:  s.cfg.OnUserCancel,
		EventStatus:  s.cfg.OnPaymentStatusChange,
		EventInit:    s.cfg.OnInit,
	} {
		if err := s.bus.subscribe(kind, h); err != nil {
			s.bus.clear()
			return nil, &ConfigurationError{Field: string(kind), Msg: "cannot subscribe handler", Cause: err}
		}
	}

	logger.Debug("SDK created: payment_request_id=%s env=%s", s.cfg.PaymentRequestID, s.cfg.Environment)
	snapshot := *s.cfg
	s.bus.publish(Event{Kind: EventInit, PaymentRequestID: s.cfg.PaymentRequestID, Config: &snapshot})
	return s, nil
}

// ShowPaymentDialog renders the dialog and returns a handle that settles when
// it ends. A render failure is emitted on the error channel and also settles
// the returned Pending with a *DialogRenderError.
func (s *SDK) ShowPaymentDialog(ctx context.Context) (*Pending, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil, ErrDisposed
	}
	if s.current != nil {
		s.mu.Unlock()
		return nil, ErrDialogAlreadyOpen
	}
	sess := &session{pending: newPending()}
	s.current = sess
	cfg := s.cfg
	s.mu.Unlock()

	if err := s.render(ctx, sess, cfg); err != nil {
		s.mu.Lock()
		if s.current == sess {
			s.current = nil
		}
		s.mu.Unlock()

		logger.Error("Render dialog: %v", err)
		s.emitError(cfg.PaymentRequestID, err)
		sess.pending.settle(Result{Outcome: OutcomeError, PaymentRequestID: cfg.PaymentRequestID, Err: err})
		return sess.pending, nil
	}

	logger.Info("Dialog shown: payment_request_id=%s", cfg.PaymentRequestID)
	return sess.pending, nil
}

func (s *SDK) render(ctx context.Context, sess *session, cfg *Configuration) error {
	tag := s.opts.tag
	factory, ok := lookupFactory(tag)
	if !ok {
		return &DialogRenderError{Stage: "lookup", Tag: tag, Cause: errors.New("element is not registered")}
	}

	el, err := createElement(factory)
	if err != nil {
		return &DialogRenderError{Stage: "create", Tag: tag, Cause: err}
	}

	props := DialogProperties{
		PaymentRequestID: cfg.PaymentRequestID,
		Environment:      cfg.Environment,
		PaymentURL:       cfg.PaymentURL,
		QRCodeURL:        cfg.QRCodeURL,
		Gateway:          s.opts.gateway,
	}
	if err := guarded(func() error { return el.SetProperties(props) }); err != nil {
		return &DialogRenderError{Stage: "properties", Tag: tag, Cause: err}
	}

	err = guarded(func() error {
		for _, kind := range []EventKind{EventError, EventSuccess, EventClose, EventStatus} {
			el.AddEventListener(kind, func(ev ElementEvent) {
				if ev.Type == "" {
					ev.Type = kind
				}
				s.handleElementEvent(ctx, sess, ev)
			})
		}
		return nil
	})
	if err != nil {
		return &DialogRenderError{Stage: "listeners", Tag: tag, Cause: err}
	}

	s.mu.Lock()
	sess.element = el
	s.mu.Unlock()

	var appendPanicked bool
	err = guarded(func() error {
		appendPanicked = true
		err := s.host.Append(el)
		appendPanicked = false
		return err
	})
	if err != nil {
		if appendPanicked {
			// The host may have attached the element before panicking.
			s.removeElement(el)
		}
		return &DialogRenderError{Stage: "attach", Tag: tag, Cause: err}
	}

	s.mu.Lock()
	stale := s.current != sess
	if !stale {
		sess.attached = true
	}
	s.mu.Unlock()

	if stale {
		// Disposed, removed or finished while attaching.
		s.removeElement(el)
	}
	return nil
}

func createElement(factory ElementFactory) (Element, error) {
	var el Element
	err := guarded(func() error {
		var err error
		el, err = factory()
		return err
	})
	if err != nil {
		return nil, err
	}
	if el == nil {
		return nil, errors.New("factory returned nil element")
	}
	return el, nil
}

// guarded runs fn and turns a panic into an error.
func guarded(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panicked: %v", r)
		}
	}()
	return fn()
}

func (s *SDK) handleElementEvent(ctx context.Context, sess *session, ev ElementEvent) {
	s.mu.Lock()
	current := s.current == sess
	cfg := s.cfg
	s.mu.Unlock()

	if !current || cfg == nil {
		logger.Debug("Ignoring %s event from a detached dialog", ev.Type)
		return
	}
	id := cfg.PaymentRequestID

	switch ev.Type {
	case EventStatus:
		s.bus.publish(Event{Kind: EventStatus, PaymentRequestID: id, Status: ev.Status})

	case EventError:
		if !s.detach(sess) {
			return
		}
		derr := &DialogError{}
		if ev.Error != nil {
			derr.Message, derr.Details = ev.Error.Message, ev.Error.Details
		}
		logger.Error("Dialog error: payment_request_id=%s err=%v", id, derr)
		s.emitError(id, derr)
		sess.pending.settle(Result{Outcome: OutcomeError, PaymentRequestID: id, Err: derr})

	case EventSuccess:
		if !s.detach(sess) {
			return
		}
		logger.Info("Payment succeeded: payment_request_id=%s", id)
		s.bus.publish(Event{Kind: EventSuccess, PaymentRequestID: id, Payload: ev.Payload})
		sess.pending.settle(Result{Outcome: OutcomeSuccess, PaymentRequestID: id, Payload: ev.Payload})

	case EventClose:
		if !s.detach(sess) {
			return
		}
		detail := ev.Close
		if detail == nil {
			detail = &CloseDetail{}
		}

		outcome := OutcomeClosed
		if detail.IsCancelled() {
			outcome = OutcomeCancelled
			logger.Info("Payment cancelled by user: payment_request_id=%s idempotency_id=%s", id, detail.PaymentIdempotencyID)
			s.bus.publish(Event{Kind: EventCancel, PaymentRequestID: id, Close: detail})
			s.notifyCancellation(ctx, cfg)
		}
		s.bus.publish(Event{Kind: EventClose, PaymentRequestID: id, Close: detail})
		sess.pending.settle(Result{Outcome: outcome, PaymentRequestID: id, Close: detail})

	default:
		logger.Warn("Unknown dialog event %q", ev.Type)
	}
}

// detach clears sess if it is still current and removes its element.
// It reports whether this call did the detaching.
func (s *SDK) detach(sess *session) bool {
	s.mu.Lock()
	if s.current != sess {
		s.mu.Unlock()
		return false
	}
	s.current = nil
	el, attached := sess.element, sess.attached
	sess.attached = false
	s.mu.Unlock()

	if attached {
		s.removeElement(el)
	}
	return true
}

func (s *SDK) removeElement(el Element) {
	if el == nil {
		return
	}
	if err := guarded(func() error { return s.host.Remove(el) }); err != nil {
		logger.Warn("Remove dialog: %v", err)
	}
}

func (s *SDK) notifyCancellation(ctx context.Context, cfg *Configuration) {
	callbackURL := cfg.CancellationCallbackURL
	if callbackURL == "" {
		return
	}

	gw, timeout, id := s.opts.gateway, s.opts.notifyTimeout, cfg.PaymentRequestID
	base := context.WithoutCancel(ctx)

	go func() {
		nctx, cancel := context.WithTimeout(base, timeout)
		defer cancel()

		if err := gw.NotifyCancellation(nctx, callbackURL); err != nil {
			nerr := &NotifyBestEffortError{URL: callbackURL, Cause: err}
			logger.Warn("Cancellation callback failed: %v", nerr)
			s.emitError(id, nerr)
			return
		}
		logger.Debug("Cancellation callback delivered: %s", callbackURL)
	}()
}

func (s *SDK) emitError(paymentRequestID string, err error) {
	if hub := s.sentryHub(paymentRequestID, EventError); hub != nil {
		hub.CaptureException(err)
	}
	s.bus.publish(Event{Kind: EventError, PaymentRequestID: paymentRequestID, Err: err})
}

// sentryHub returns a per-capture clone of the configured hub, or nil.
func (s *SDK) sentryHub(paymentRequestID string, kind EventKind) *sentry.Hub {
	if s.opts.hub == nil {
		return nil
	}
	hub := s.opts.hub.Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("payment_request_id", paymentRequestID)
		scope.SetTag("component", "websdk")
		scope.SetTag("event", string(kind))
	})
	return hub
}

func (s *SDK) reportListenerPanic(kind EventKind, paymentRequestID string, r any) {
	logger.Error("Listener for %s event panicked: %v", kind, r)
	if hub := s.sentryHub(paymentRequestID, kind); hub != nil {
		hub.Recover(r)
	}
}

// RemoveDialog detaches the open dialog, if any. The pending result of the
// removed dialog settles with OutcomeClosed.
func (s *SDK) RemoveDialog() {
	s.mu.Lock()
	sess := s.current
	s.mu.Unlock()

	if sess == nil || !s.detach(sess) {
		return
	}
	sess.pending.settle(Result{Outcome: OutcomeClosed, PaymentRequestID: s.paymentRequestID()})
}

func (s *SDK) paymentRequestID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg == nil {
		return ""
	}
	return s.cfg.PaymentRequestID
}

// IsOpen reports whether a dialog is currently shown.
func (s *SDK) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

func (s *SDK) on(kind EventKind, h Handler) {
	s.mu.Lock()
	disposed := s.disposed
	s.mu.Unlock()
	if disposed {
		return
	}
	if err := s.bus.subscribe(kind, h); err != nil {
		logger.Error("Subscribe %s listener: %v", kind, err)
	}
}

// OnError registers an additional error listener.
//
// Listeners of every On* method run on their own goroutines: two listeners
// of one event have no ordering between them, and a listener may still be
// running after the Pending of the same dialog has settled. Use Flush to wait.
func (s *SDK) OnError(h Handler) { s.on(EventError, h) }

func (s *SDK) OnSuccess(h Handler) { s.on(EventSuccess, h) }

func (s *SDK) OnClose(h Handler) { s.on(EventClose, h) }

// OnCancel listens for closes with a cancelled status.
func (s *SDK) OnCancel(h Handler) { s.on(EventCancel, h) }

func (s *SDK) OnStatusChange(h Handler) { s.on(EventStatus, h) }

// ListenerCount returns the number of registered listeners.
func (s *SDK) ListenerCount() int {
	return s.bus.count()
}

// Flush waits for in-flight listener calls. Do not call it from a listener.
func (s *SDK) Flush() {
	s.bus.wait()
}

// Dispose removes the dialog, drops every listener and clears the
// configuration. Calling it again is a no-op.
func (s *SDK) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	sess := s.current
	s.mu.Unlock()

	if sess != nil && s.detach(sess) {
		sess.pending.settle(Result{Outcome: OutcomeError, PaymentRequestID: s.paymentRequestID(), Err: ErrDisposed})
	}

	s.bus.clear()

	s.mu.Lock()
	s.cfg = nil
	s.mu.Unlock()

	logger.Debug("SDK disposed")
}
