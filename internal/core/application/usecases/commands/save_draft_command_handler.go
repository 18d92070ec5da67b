package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"freight/internal/core/domain/model/shipment"
	"freight/internal/core/ports"
	"freight/internal/pkg/errs"
	"freight/internal/pkg/metrics"
)

// SaveDraftCommandHandler stores a draft without validating it for booking.
// The first save inserts the record; later saves of the same session update it.
type SaveDraftCommandHandler struct {
	store     ShipmentWriter
	publisher ports.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewSaveDraftCommandHandler(
	store ShipmentWriter,
	publisher ports.EventPublisher,
	logger *slog.Logger,
) SaveDraftCommandHandler {
	return SaveDraftCommandHandler{
		store:     store,
		publisher: publisher,
		logger:    logger.With("component", "SaveDraftCommandHandler"),
		now:       time.Now,
	}
}

// Handle returns the saved draft. Its LifecycleState is draft-persisted.
func (h SaveDraftCommandHandler) Handle(ctx context.Context, cmd SaveDraftCommand) (*shipment.Shipment, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	draft, err := h.loadOrCreate(ctx, cmd)
	if err != nil {
		metrics.RecordDraftSave(metrics.ResultInvalid)
		return nil, err
	}

	if err = draft.MarkDraftSaved(); err != nil {
		metrics.RecordDraftSave(metrics.ResultInvalid)
		return nil, err
	}

	if draft.IsPersisted() {
		err = h.store.Update(ctx, draft)
	} else {
		err = insert(ctx, h.store, draft)
	}
	if err != nil {
		metrics.RecordDraftSave(metrics.ResultError)
		h.logger.Error("draft save failed", "company_id", cmd.CompanyID(), "error", err)
		if errors.Is(err, errs.ErrObjectNotFound) {
			return nil, err
		}
		if errors.Is(err, errs.ErrStaleWrite) {
			return nil, errs.NewInvalidTransitionError(shipment.Booked.String(), shipment.Draft.String())
		}
		return nil, errs.NewPersistenceFailedError(err)
	}

	metrics.RecordDraftSave(metrics.ResultOK)
	h.logger.Info("draft saved",
		"key", draft.Key().String(), "company_id", draft.CompanyID(), "draft_version", draft.DraftVersion())
	publish(ctx, h.publisher, h.logger, newEvent(ports.EventDraftSaved, draft, "", h.now()))
	return draft, nil
}

func (h SaveDraftCommandHandler) loadOrCreate(ctx context.Context, cmd SaveDraftCommand) (*shipment.Shipment, error) {
	existing, err := findExisting(ctx, h.store, cmd.CompanyID(), cmd.RecordKey(), cmd.ShipmentID())
	if err != nil {
		return nil, err
	}

	if existing == nil {
		draft, err := shipment.NewDraft(cmd.CompanyID(), cmd.UserID(), cmd.Editor(), cmd.Content())
		if err != nil {
			return nil, err
		}
		if !cmd.ShipmentID().IsZero() {
			if err = draft.AssignShipmentID(cmd.ShipmentID()); err != nil {
				return nil, err
			}
		}
		return draft, nil
	}

	if existing.Status() == shipment.Booked {
		return nil, errs.NewInvalidTransitionError(shipment.Booked.String(), shipment.Draft.String())
	}
	if err = existing.Edit(cmd.Editor(), cmd.Content()); err != nil {
		return nil, err
	}
	if !cmd.ShipmentID().IsZero() {
		if err = existing.AssignShipmentID(cmd.ShipmentID()); err != nil {
			return nil, err
		}
	}
	return existing, nil
}
