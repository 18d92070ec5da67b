package ports

import (
	"context"
	"fmt"

	"freight/internal/core/domain/model/kernel"
	"freight/internal/core/domain/model/shipment"
	"freight/internal/pkg/errs"
)

// Field is a queryable attribute of a stored shipment.
type Field string

const (
	FieldShipmentID     Field = "shipment_id"
	FieldCompanyID      Field = "company_id"
	FieldStatus         Field = "status"
	FieldDocumentsState Field = "documents_state"
)

func (f Field) Validate() error {
	switch f {
	case FieldShipmentID, FieldCompanyID, FieldStatus, FieldDocumentsState:
		return nil
	default:
		return errs.NewValueIsInvalidErrorWithCause("field", fmt.Errorf("%q is not a queryable field", string(f)))
	}
}

// Criteria is a conjunction of field equalities.
type Criteria map[Field]string

func (c Criteria) Validate() error {
	if len(c) == 0 {
		return errs.NewValueIsRequiredError("criteria")
	}
	for f := range c {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// DraftStore persists shipment records, drafts and booked alike. Every write
// touches a single record and there are no transactions. Concurrent writers
// to the same record resolve as last write wins, except that a stored
// shipment id is never replaced and a booked record never leaves Booked.
type DraftStore interface {
	// FindByField returns up to limit shipments whose field equals value,
	// most recently updated first. limit <= 0 means no limit.
	FindByField(ctx context.Context, field Field, value string, limit int) ([]*shipment.Shipment, error)

	// FindWhere is FindByField with several equality conditions.
	FindWhere(ctx context.Context, criteria Criteria, limit int) ([]*shipment.Shipment, error)

	// FindDocumentRetries returns up to limit booked shipments whose documents
	// are not complete and that have had fewer than maxAttempts document runs.
	// Shipments waiting longest since their last run, or since booking when
	// there was none, come first.
	FindDocumentRetries(ctx context.Context, maxAttempts, limit int) ([]*shipment.Shipment, error)

	// CountByField counts shipments whose field equals value.
	CountByField(ctx context.Context, field Field, value string) (int64, error)

	// GetByKey loads one shipment. Returns errs.ObjectNotFoundError when absent.
	GetByKey(ctx context.Context, key kernel.UUID) (*shipment.Shipment, error)

	// Insert stores a new shipment and returns the record key assigned to it.
	// The store also sets the creation and update timestamps.
	Insert(ctx context.Context, s *shipment.Shipment) (kernel.UUID, error)

	// Update overwrites the mutable part of an existing shipment. Company,
	// creator, creation method and creation time are never touched.
	// Returns errs.ObjectNotFoundError when the key is unknown, and
	// errs.StaleWriteError when the stored record holds a different shipment
	// id or is booked while s is not.
	Update(ctx context.Context, s *shipment.Shipment) error
}
