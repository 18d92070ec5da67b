// Package errs holds the error types shared by the freight engine.
//
// Value errors (ValueIsRequiredError, ValueIsInvalidError, ValueIsOutOfRangeError,
// VersionIsInvalidError, ObjectNotFoundError) report bad input and missing
// records. Each one has a sentinel, constructors with and without a cause, and
// unwraps to its sentinel so callers can use errors.Is.
//
// LifecycleError is the failure surfaced by the lifecycle engine itself. Its
// Kind is one of validation_failed, allocation_exhausted, persistence_failed,
// document_step_failed, cross_edit_rejected or invalid_transition, and its
// Message can be shown to a user as it is.
package errs
