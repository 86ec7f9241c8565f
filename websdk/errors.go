package websdk

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration indicates invalid or missing SDK options.
	ErrConfiguration = errors.New("atoapay websdk: configuration error")
	// ErrDialogRender indicates the dialog element could not be created or attached.
	ErrDialogRender = errors.New("atoapay websdk: dialog render error")
	// ErrDialogAlreadyOpen is returned by ShowPaymentDialog while a dialog is attached.
	ErrDialogAlreadyOpen = errors.New("atoapay websdk: dialog already open")
	// ErrDisposed is returned by calls made after Dispose.
	ErrDisposed = errors.New("atoapay websdk: sdk disposed")
	// ErrDialog is the kind of errors reported by the dialog element itself.
	ErrDialog = errors.New("atoapay websdk: dialog error")
	// ErrNotify indicates the best-effort cancellation callback failed.
	ErrNotify = errors.New("atoapay websdk: cancellation notify failed")
)

// ConfigurationError is raised synchronously by New.
type ConfigurationError struct {
	Field string
	Msg   string
	Cause error
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return ErrConfiguration.Error()
	}
	base := ErrConfiguration.Error()
	if e.Field != "" {
		base += ": " + e.Field
	}
	if e.Msg != "" {
		base += ": " + e.Msg
	}
	return base
}

func (e *ConfigurationError) Unwrap() error { return e.Cause }
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// DialogRenderError wraps a failure while constructing or attaching the dialog.
type DialogRenderError struct {
	Stage string
	Tag   string
	Cause error
}

func (e *DialogRenderError) Error() string {
	if e == nil {
		return ErrDialogRender.Error()
	}
	parts := []string{ErrDialogRender.Error()}
	if e.Stage != "" {
		parts = append(parts, e.Stage)
	}
	if e.Tag != "" {
		parts = append(parts, "<"+e.Tag+">")
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *DialogRenderError) Unwrap() error { return e.Cause }
func (e *DialogRenderError) Is(target error) bool {
	return target == ErrDialogRender
}

// DialogError is an error reported by the dialog through its error event.
type DialogError struct {
	Message string
	Details any
}

func (e *DialogError) Error() string {
	if e == nil || strings.TrimSpace(e.Message) == "" {
		return ErrDialog.Error()
	}
	if e.Details != nil {
		return fmt.Sprintf("%s: %s (%v)", ErrDialog.Error(), strings.TrimSpace(e.Message), e.Details)
	}
	return fmt.Sprintf("%s: %s", ErrDialog.Error(), strings.TrimSpace(e.Message))
}

func (e *DialogError) Is(target error) bool {
	return target == ErrDialog
}

// NotifyBestEffortError reports a failed cancellation callback ping.
// It is delivered only through the error channel.
type NotifyBestEffortError struct {
	URL   string
	Cause error
}

func (e *NotifyBestEffortError) Error() string {
	if e == nil {
		return ErrNotify.Error()
	}
	base := ErrNotify.Error()
	if e.URL != "" {
		base += ": " + e.URL
	}
	if e.Cause != nil {
		base += ": " + e.Cause.Error()
	}
	return base
}

func (e *NotifyBestEffortError) Unwrap() error { return e.Cause }
func (e *NotifyBestEffortError) Is(target error) bool {
	return target == ErrNotify
}
