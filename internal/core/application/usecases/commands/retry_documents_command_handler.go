package commands

import (
	"context"
	"log/slog"
	"time"

	"freight/internal/core/domain/model/shipment"
	"freight/internal/core/ports"
	"freight/internal/pkg/errs"
)

// RetryDocumentsCommandHandler re-runs pending document steps. Steps that
// already succeeded are never run again.
type RetryDocumentsCommandHandler struct {
	store     ShipmentWriter
	pipeline  DocumentRunner
	publisher ports.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewRetryDocumentsCommandHandler(
	store ShipmentWriter,
	pipeline DocumentRunner,
	publisher ports.EventPublisher,
	logger *slog.Logger,
) RetryDocumentsCommandHandler {
	return RetryDocumentsCommandHandler{
		store:     store,
		pipeline:  pipeline,
		publisher: publisher,
		logger:    logger.With("component", "RetryDocumentsCommandHandler"),
		now:       time.Now,
	}
}

// Handle returns the shipment with its updated document state.
func (h RetryDocumentsCommandHandler) Handle(ctx context.Context, cmd RetryDocumentsCommand) (*shipment.Shipment, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	record, err := h.store.GetByKey(ctx, cmd.RecordKey())
	if err != nil {
		return nil, err
	}
	if record.Status() != shipment.Booked {
		return nil, errs.NewInvalidTransitionError(record.Status().String(), "documents")
	}

	pending := record.Documents().Pending()
	if len(pending) == 0 {
		return record, nil
	}

	report := h.pipeline.RunPending(ctx, documentRequest(record), pending)
	if err = applyReport(record, report, h.now()); err != nil {
		return nil, err
	}
	if err = h.store.Update(ctx, record); err != nil {
		return nil, errs.NewPersistenceFailedError(err)
	}

	h.logger.Info("document steps retried",
		"shipment_id", record.ShipmentID().String(),
		"documents_state", record.DocumentsState(),
		"attempts", record.Documents().Attempts)
	publish(ctx, h.publisher, h.logger,
		newEvent(ports.EventDocumentsUpdated, record, report.Summary(), h.now()))
	return record, nil
}
