package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"freight/internal/core/domain/model/kernel"
	"freight/internal/core/domain/model/shipment"
	"freight/internal/core/ports"
	"freight/internal/pkg/errs"
	"freight/internal/pkg/metrics"
)

// BookShipmentResult describes where a booking attempt ended.
type BookShipmentResult struct {
	// Shipment is the record as last seen by the handler. On failure after
	// validation it is a detached copy in status Error that was not stored.
	Shipment *shipment.Shipment
	State    shipment.LifecycleState
	// AlreadyBooked is set when the shipment id was booked before this call.
	AlreadyBooked bool
	// Summary is the user-facing result of the document steps.
	Summary string
}

// BookShipmentCommandHandler turns a draft into a booked shipment.
//
// Steps run strictly in order: validate, resolve the shipment id, load any
// existing record, write the booked record, publish the booking, generate
// documents, store their state and request the confirmation e-mail. Only a
// failed write is reported as persistence_failed. Nothing after the write can
// fail the booking, and from the write on the work is no longer cancelled
// with the caller's context.
type BookShipmentCommandHandler struct {
	store     ShipmentWriter
	validator ContentValidator
	allocator ShipmentIDAllocator
	pipeline  DocumentRunner
	publisher ports.EventPublisher
	notifier  ports.Notifier
	logger    *slog.Logger
	now       func() time.Time
}

func NewBookShipmentCommandHandler(
	store ShipmentWriter,
	validator ContentValidator,
	allocator ShipmentIDAllocator,
	pipeline DocumentRunner,
	publisher ports.EventPublisher,
	notifier ports.Notifier,
	logger *slog.Logger,
) BookShipmentCommandHandler {
	return BookShipmentCommandHandler{
		store:     store,
		validator: validator,
		allocator: allocator,
		pipeline:  pipeline,
		publisher: publisher,
		notifier:  notifier,
		logger:    logger.With("component", "BookShipmentCommandHandler"),
		now:       time.Now,
	}
}

func (h BookShipmentCommandHandler) Handle(ctx context.Context, cmd BookShipmentCommand) (BookShipmentResult, error) {
	if err := cmd.Validate(); err != nil {
		return BookShipmentResult{}, err
	}

	priorState := shipment.StateComposing
	if !cmd.RecordKey().IsZero() {
		priorState = shipment.StateDraftPersisted
	}

	if err := h.validator.ValidateForBooking(cmd.Content()); err != nil {
		metrics.RecordBooking(metrics.ResultInvalid)
		return BookShipmentResult{State: priorState}, err
	}

	existing, err := findExisting(ctx, h.store, cmd.CompanyID(), cmd.RecordKey(), kernel.ShipmentID{})
	if err != nil {
		return h.fail(nil, cmd, storeReadError(err))
	}

	id, err := h.resolveShipmentID(ctx, cmd, existing)
	if err != nil {
		return h.fail(existing, cmd, err)
	}

	// The record already holding this shipment id is authoritative.
	byID, err := findByShipmentID(ctx, h.store, cmd.CompanyID(), id)
	if err != nil {
		return h.fail(existing, cmd, storeReadError(err))
	}
	if byID != nil {
		existing = byID
	}

	if existing != nil && existing.Status() == shipment.Booked {
		return h.alreadyBooked(existing), nil
	}

	record, err := h.assemble(cmd, existing, id)
	if err != nil {
		return h.fail(existing, cmd, err)
	}

	// From here on the booking must run to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	if record.IsPersisted() {
		err = h.store.Update(ctx, record)
	} else {
		err = insert(ctx, h.store, record)
	}
	if errors.Is(err, errs.ErrStaleWrite) {
		if winner := h.concurrentBooking(ctx, record); winner != nil {
			return h.alreadyBooked(winner), nil
		}
	}
	if err != nil {
		h.logger.Error("booked shipment write failed", "shipment_id", id.String(), "error", err)
		return h.fail(existing, cmd, errs.NewPersistenceFailedError(err))
	}
	metrics.RecordBooking(metrics.ResultOK)
	h.logger.Info("shipment booked", "shipment_id", id.String(), "key", record.Key().String())
	publish(ctx, h.publisher, h.logger, newEvent(ports.EventBooked, record, "", h.now()))

	report := h.pipeline.Run(ctx, documentRequest(record))
	if err = applyReport(record, report, h.now()); err == nil {
		if err = h.store.Update(ctx, record); err != nil {
			h.logger.Warn("document state not stored, retry job will pick it up",
				"shipment_id", id.String(), "error", err)
		}
	}
	summary := report.Summary()
	publish(ctx, h.publisher, h.logger, newEvent(ports.EventDocumentsUpdated, record, summary, h.now()))

	h.notify(ctx, cmd, record, summary)

	return BookShipmentResult{Shipment: record, State: shipment.StateBooked, Summary: summary}, nil
}

func (h BookShipmentCommandHandler) alreadyBooked(s *shipment.Shipment) BookShipmentResult {
	metrics.RecordBooking(metrics.ResultIdempotent)
	h.logger.Info("shipment already booked", "shipment_id", s.ShipmentID().String())
	return BookShipmentResult{
		Shipment:      s,
		State:         shipment.StateBooked,
		AlreadyBooked: true,
		Summary:       summaryOf(s.Documents()),
	}
}

// concurrentBooking returns the stored record when a write was refused
// because another request booked it first, or nil otherwise.
func (h BookShipmentCommandHandler) concurrentBooking(ctx context.Context, record *shipment.Shipment) *shipment.Shipment {
	stored, err := h.store.GetByKey(ctx, record.Key())
	if err != nil {
		h.logger.Warn("reload after refused write failed", "key", record.Key().String(), "error", err)
		return nil
	}
	if stored.Status() != shipment.Booked {
		return nil
	}
	h.logger.Warn("booking lost to a concurrent request",
		"key", record.Key().String(),
		"discarded_shipment_id", record.ShipmentID().String(),
		"shipment_id", stored.ShipmentID().String())
	return stored
}

func (h BookShipmentCommandHandler) resolveShipmentID(
	ctx context.Context,
	cmd BookShipmentCommand,
	existing *shipment.Shipment,
) (kernel.ShipmentID, error) {
	if !cmd.ShipmentID().IsZero() {
		return cmd.ShipmentID(), nil
	}
	if existing != nil && !existing.ShipmentID().IsZero() {
		return existing.ShipmentID(), nil
	}
	allocate, err := NewAllocateShipmentIDCommand(cmd.CompanyID())
	if err != nil {
		return kernel.ShipmentID{}, err
	}
	return h.allocator.Handle(ctx, allocate)
}

// assemble builds the booked record on a copy so the loaded record and the
// caller's content stay untouched if anything fails.
func (h BookShipmentCommandHandler) assemble(
	cmd BookShipmentCommand,
	existing *shipment.Shipment,
	id kernel.ShipmentID,
) (*shipment.Shipment, error) {
	var record *shipment.Shipment
	if existing == nil {
		draft, err := shipment.NewDraft(cmd.CompanyID(), cmd.UserID(), cmd.Editor(), cmd.Content())
		if err != nil {
			return nil, err
		}
		record = draft
	} else {
		record = existing.Clone()
		if record.Status() == shipment.Error {
			if err := record.Reopen(); err != nil {
				return nil, err
			}
		}
		if err := record.Edit(cmd.Editor(), cmd.Content()); err != nil {
			return nil, err
		}
	}
	if err := record.Book(id, h.now()); err != nil {
		return nil, err
	}
	return record, nil
}

func (h BookShipmentCommandHandler) notify(
	ctx context.Context,
	cmd BookShipmentCommand,
	record *shipment.Shipment,
	summary string,
) {
	if h.notifier == nil {
		return
	}
	n := ports.BookingNotification{
		ShipmentID:       record.ShipmentID().String(),
		CompanyID:        record.CompanyID(),
		UserID:           cmd.UserID(),
		Carrier:          record.Content().Carrier,
		DocumentsSummary: summary,
		BookedAt:         *record.BookedAt(),
	}
	if err := h.notifier.NotifyBooked(ctx, n); err != nil {
		h.logger.Warn("booking notification failed", "shipment_id", n.ShipmentID, "error", err)
	}
}

// fail reports a booking that broke down after validation. The returned
// shipment is a copy marked Error; nothing is written.
func (h BookShipmentCommandHandler) fail(
	existing *shipment.Shipment,
	cmd BookShipmentCommand,
	err error,
) (BookShipmentResult, error) {
	switch {
	case errors.Is(err, errs.ErrAllocationExhausted):
		metrics.RecordBooking(metrics.ResultExhausted)
	default:
		metrics.RecordBooking(metrics.ResultError)
	}

	var failed *shipment.Shipment
	if existing != nil {
		failed = existing.Clone()
	} else if draft, draftErr := shipment.NewDraft(cmd.CompanyID(), cmd.UserID(), cmd.Editor(), cmd.Content()); draftErr == nil {
		failed = draft
	}
	if failed != nil && failed.Status() != shipment.Error && failed.Fail() != nil {
		failed = nil
	}
	return BookShipmentResult{Shipment: failed, State: shipment.StateError}, err
}

func storeReadError(err error) error {
	if errors.Is(err, errs.ErrObjectNotFound) {
		return err
	}
	return errs.NewPersistenceFailedError(err)
}

func summaryOf(d shipment.Documents) string {
	switch d.State() {
	case shipment.DocumentsComplete:
		return "Shipment already booked. All documents generated."
	case shipment.DocumentsNone:
		return "Shipment already booked."
	default:
		return "Shipment already booked. Some documents are still pending."
	}
}
