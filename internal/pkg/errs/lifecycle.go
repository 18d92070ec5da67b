package errs

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable tag carried by every shipment lifecycle failure.
type Kind string

const (
	KindValidationFailed    Kind = "validation_failed"
	KindAllocationExhausted Kind = "allocation_exhausted"
	KindPersistenceFailed   Kind = "persistence_failed"
	KindDocumentStepFailed  Kind = "document_step_failed"
	KindCrossEditRejected   Kind = "cross_edit_rejected"
	KindInvalidTransition   Kind = "invalid_transition"
)

var (
	ErrValidationFailed    = errors.New("validation failed")
	ErrAllocationExhausted = errors.New("shipment id allocation exhausted")
	ErrPersistenceFailed   = errors.New("persistence failed")
	ErrDocumentStepFailed  = errors.New("document step failed")
	ErrCrossEditRejected   = errors.New("cross edit rejected")
	ErrInvalidTransition   = errors.New("invalid lifecycle transition")
)

var kindSentinels = map[Kind]error{
	KindValidationFailed:    ErrValidationFailed,
	KindAllocationExhausted: ErrAllocationExhausted,
	KindPersistenceFailed:   ErrPersistenceFailed,
	KindDocumentStepFailed:  ErrDocumentStepFailed,
	KindCrossEditRejected:   ErrCrossEditRejected,
	KindInvalidTransition:   ErrInvalidTransition,
}

// LifecycleError is a tagged failure surfaced to callers of the lifecycle engine.
// Message is always safe to show to a user as-is.
type LifecycleError struct {
	Kind    Kind
	Message string
	Step    string
	Cause   error
}

func NewValidationFailedError(reason string) *LifecycleError {
	return &LifecycleError{Kind: KindValidationFailed, Message: reason}
}

func NewAllocationExhaustedError(companyID string, attempts int) *LifecycleError {
	return &LifecycleError{
		Kind:    KindAllocationExhausted,
		Message: fmt.Sprintf("could not allocate a unique shipment id for %s after %d attempts", companyID, attempts),
	}
}

func NewAllocationExhaustedErrorWithCause(companyID string, attempts int, cause error) *LifecycleError {
	err := NewAllocationExhaustedError(companyID, attempts)
	err.Cause = cause
	return err
}

func NewPersistenceFailedError(cause error) *LifecycleError {
	msg := "shipment could not be saved"
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &LifecycleError{Kind: KindPersistenceFailed, Message: msg, Cause: cause}
}

func NewDocumentStepFailedError(step string, cause error) *LifecycleError {
	msg := step + " failed"
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &LifecycleError{Kind: KindDocumentStepFailed, Message: msg, Step: step, Cause: cause}
}

func NewCrossEditRejectedError(recordMethod, editor string) *LifecycleError {
	return &LifecycleError{
		Kind:    KindCrossEditRejected,
		Message: fmt.Sprintf("a %s shipment cannot be edited from the %s editor", recordMethod, editor),
	}
}

func NewInvalidTransitionError(from, to string) *LifecycleError {
	return &LifecycleError{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("shipment cannot move from %s to %s", from, to),
	}
}

func (e *LifecycleError) Error() string {
	if e.Cause != nil && e.Kind == KindAllocationExhausted {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *LifecycleError) Unwrap() error {
	if sentinel, ok := kindSentinels[e.Kind]; ok {
		return sentinel
	}
	return e.Cause
}

// AsLifecycleError extracts the lifecycle failure from err, if there is one.
func AsLifecycleError(err error) (*LifecycleError, bool) {
	var le *LifecycleError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}
