package websdk

import (
	"errors"
	"strings"
	"sync"

	go_atoapay "github.com/stremovskyy/go-atoapay"
)

// DialogTag is the tag the SDK renders unless WithDialogTag says otherwise.
const DialogTag = "atoa-pay-sdk-dialog"

// EventKind names a dialog or SDK event.
type EventKind string

const (
	EventError   EventKind = "error"
	EventSuccess EventKind = "success"
	EventClose   EventKind = "close"
	EventCancel  EventKind = "cancel"
	EventStatus  EventKind = "status"
	// EventInit fires once from New after validation.
	EventInit    EventKind = "init"
)

// ErrorDetail is the payload of a dialog error event.
type ErrorDetail struct {
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// CloseDetail is the payload of a dialog close event.
type CloseDetail struct {
	Status               string `json:"status"`
	PaymentIdempotencyID string `json:"paymentIdempotencyId,omitempty"`
}

// IsCancelled reports whether the user closed the dialog by cancelling.
func (d *CloseDetail) IsCancelled() bool {
	return d != nil && go_atoapay.PaymentStatus(d.Status).IsCancelled()
}

// StatusChange is the payload of a non-terminal status event.
type StatusChange struct {
	Status        string `json:"status"`
	StatusDetails any    `json:"statusDetails,omitempty"`
}

// ElementEvent is what a dialog element dispatches to its listeners.
type ElementEvent struct {
	Type    EventKind
	Error   *ErrorDetail
	Payload any
	Close   *CloseDetail
	Status  *StatusChange
}

// DialogProperties are copied onto the element before it is attached.
type DialogProperties struct {
	PaymentRequestID string
	Environment      go_atoapay.Environment
	PaymentURL       string
	QRCodeURL        string

	// Gateway is the client the dialog uses for bank listing and authorisation.
	Gateway go_atoapay.AtoaPay
}

// Element is a rendered dialog.
type Element interface {
	SetProperties(props DialogProperties) error
	AddEventListener(kind EventKind, listener func(ElementEvent))
}

// Host is the document the dialog is attached to.
type Host interface {
	Append(el Element) error
	Remove(el Element) error
}

// ElementFactory creates a fresh element for one dialog session.
type ElementFactory func() (Element, error)

var registry = struct {
	mu        sync.RWMutex
	factories map[string]ElementFactory
}{factories: make(map[string]ElementFactory)}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// Register binds tag to factory for the whole process. Registering a tag that
// is already bound keeps the first factory and returns nil.
func Register(tag string, factory ElementFactory) error {
	tag = normalizeTag(tag)
	if tag == "" {
		return errors.New("atoapay websdk: element tag is required")
	}
	if factory == nil {
		return errors.New("atoapay websdk: element factory is nil")
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()

	if _, ok := registry.factories[tag]; ok {
		logger.Debug("Element <%s> already registered", tag)
		return nil
	}
	registry.factories[tag] = factory
	logger.Debug("Element <%s> registered", tag)
	return nil
}

// RegisterDialog registers factory under DialogTag.
func RegisterDialog(factory ElementFactory) error {
	return Register(DialogTag, factory)
}

// IsRegistered reports whether tag has a factory.
func IsRegistered(tag string) bool {
	_, ok := lookupFactory(tag)
	return ok
}

func lookupFactory(tag string) (ElementFactory, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	f, ok := registry.factories[normalizeTag(tag)]
	return f, ok
}
