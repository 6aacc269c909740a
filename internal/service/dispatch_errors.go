package service

import (
	"errors"
	"fmt"
)

// DispatchKind classifies every failed dispatch.
type DispatchKind string

const (
	KindValidation  DispatchKind = "validation_error"
	KindNotReady    DispatchKind = "not_ready"
	KindNotFound    DispatchKind = "not_found"
	KindInternal    DispatchKind = "internal_error"
	KindSendFailure DispatchKind = "send_failure"
)

// Outcome labels used for successful dispatches in logs, metrics and events.
const (
	OutcomeSent    = "sent"
	OutcomeSkipped = "skipped"
)

// Transient reports whether the caller may retry the whole request later.
func (k DispatchKind) Transient() bool {
	return k == KindNotReady || k == KindSendFailure
}

// DispatchError is the only error type Dispatch returns.
type DispatchError struct {
	Kind    DispatchKind
	Message string
	// Detail carries the underlying failure text for diagnostics.
	Detail string
	// AvailableGroups is set for KindNotFound.
	AvailableGroups []string
	Err             error
}

func (e *DispatchError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a dispatch error. Anything unclassified is a send failure.
func KindOf(err error) DispatchKind {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindSendFailure
}

func newDispatchError(kind DispatchKind, message string, cause error) *DispatchError {
	de := &DispatchError{Kind: kind, Message: message, Err: cause}
	if cause != nil {
		de.Detail = cause.Error()
	}
	return de
}
