package engine

import (
	"errors"
	"fmt"
)

// ErrorKind classifies dispatch failures.
type ErrorKind string

const (
	// RemoteUnavailable marks a failed network call to the commerce,
	// location or transport collaborator. The conversation state is left
	// unchanged so the user's next message retries from the same step.
	RemoteUnavailable ErrorKind = "remote_unavailable"
	// InvalidUserInput marks a malformed inbound event that no handler
	// could act on.
	InvalidUserInput ErrorKind = "invalid_user_input"
	// PaymentPayloadMismatch marks a precheck whose payload does not
	// match the expected order tag. The precheck is declined and no
	// charge is attempted.
	PaymentPayloadMismatch ErrorKind = "payment_payload_mismatch"
)

// EngineError is the failure surface of HandleEvent.
type EngineError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *EngineError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("engine: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("engine: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// KindOf extracts the error kind, defaulting unclassified failures to
// RemoteUnavailable.
func KindOf(err error) ErrorKind {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return RemoteUnavailable
}

func remoteErr(op string, err error) error {
	return &EngineError{Kind: RemoteUnavailable, Op: op, Err: err}
}

func inputErr(op string, err error) error {
	return &EngineError{Kind: InvalidUserInput, Op: op, Err: err}
}
