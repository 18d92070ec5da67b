package commands

import (
	"errors"

	"freight/internal/core/domain/model/kernel"
	"freight/internal/pkg/guard"
)

var ErrRetryDocumentsCommandIsNotConstructed = errors.New(
	"RetryDocumentsCommand must be created via NewRetryDocumentsCommand constructor",
)

// RetryDocumentsCommand re-runs the document steps of a booked shipment that
// have not succeeded yet.
type RetryDocumentsCommand struct {
	recordKey kernel.UUID

	guard guard.ConstructorGuard
}

func NewRetryDocumentsCommand(recordKey kernel.UUID) (RetryDocumentsCommand, error) {
	if err := recordKey.Validate(); err != nil {
		return RetryDocumentsCommand{}, err
	}
	return RetryDocumentsCommand{recordKey: recordKey, guard: guard.NewConstructorGuard()}, nil
}

func (c RetryDocumentsCommand) Validate() error {
	return c.guard.Validate(ErrRetryDocumentsCommandIsNotConstructed)
}

func (c RetryDocumentsCommand) RecordKey() kernel.UUID {
	return c.recordKey
}
