package websdk

import (
	"sync"

	"github.com/asaskevich/EventBus"
)

// Event is delivered to SDK listeners.
type Event struct {
	Kind             EventKind
	PaymentRequestID string

	// Err is set for EventError.
	Err error
	// Payload is set for EventSuccess.
	Payload any
	// Close is set for EventClose and EventCancel.
	Close *CloseDetail
	// Status is set for EventStatus.
	Status *StatusChange
	// Config is a copy of the validated configuration, set for EventInit.
	Config *Configuration
}

// Handler receives SDK events.
type Handler func(Event)

func topic(kind EventKind) string {
	return "atoapay:" + string(kind)
}

// eventBus keeps the wrapped handlers it subscribed so they can be
// unsubscribed again; EventBus matches handlers by function identity.
type eventBus struct {
	mu      sync.Mutex
	bus     EventBus.Bus
	subs    map[EventKind][]func(Event)
	onPanic func(kind EventKind, paymentRequestID string, r any)
}

func newEventBus(onPanic func(kind EventKind, paymentRequestID string, r any)) *eventBus {
	return &eventBus{
		bus:     EventBus.New(),
		subs:    make(map[EventKind][]func(Event)),
		onPanic: onPanic,
	}
}

func (b *eventBus) subscribe(kind EventKind, h Handler) error {
	if h == nil {
		return nil
	}

	wrapped := func(ev Event) {
		defer func() {
			if r := recover(); r != nil {
				if b.onPanic != nil {
					b.onPanic(kind, ev.PaymentRequestID, r)
					return
				}
				logger.Error("Listener for %s event panicked: %v", kind, r)
			}
		}()
		h(ev)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Not transactional: a listener that publishes again would wait on itself.
	if err := b.bus.SubscribeAsync(topic(kind), wrapped, false); err != nil {
		return err
	}
	b.subs[kind] = append(b.subs[kind], wrapped)
	return nil
}

func (b *eventBus) publish(ev Event) {
	b.mu.Lock()
	n := len(b.subs[ev.Kind])
	b.mu.Unlock()
	if n == 0 {
		logger.Debug("No listeners for %s event", ev.Kind)
		return
	}
	b.bus.Publish(topic(ev.Kind), ev)
}

func (b *eventBus) wait() {
	b.bus.WaitAsync()
}

func (b *eventBus) clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for kind, handlers := range b.subs {
		for _, h := range handlers {
			if err := b.bus.Unsubscribe(topic(kind), h); err != nil {
				logger.Warn("Unsubscribe %s listener: %v", kind, err)
			}
		}
	}
	b.subs = make(map[EventKind][]func(Event))
}

func (b *eventBus) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, handlers := range b.subs {
		n += len(handlers)
	}
	return n
}
