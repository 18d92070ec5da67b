package commands

import (
	"context"
	"log/slog"
	"time"

	"freight/internal/core/application/documents"
	"freight/internal/core/domain/model/kernel"
	"freight/internal/core/domain/model/shipment"
	"freight/internal/core/ports"
	"freight/internal/pkg/errs"
)

// findExisting resolves the record a command refers to: by key first, then by
// shipment id. Records of other companies are reported as not found.
func findExisting(
	ctx context.Context,
	store ShipmentWriter,
	companyID string,
	key kernel.UUID,
	id kernel.ShipmentID,
) (*shipment.Shipment, error) {
	if !key.IsZero() {
		s, err := store.GetByKey(ctx, key)
		if err != nil {
			return nil, err
		}
		if s.CompanyID() != companyID {
			return nil, errs.NewObjectNotFoundError("key", key.String())
		}
		return s, nil
	}

	if id.IsZero() {
		return nil, nil
	}
	return findByShipmentID(ctx, store, companyID, id)
}

func findByShipmentID(
	ctx context.Context,
	store ShipmentWriter,
	companyID string,
	id kernel.ShipmentID,
) (*shipment.Shipment, error) {
	found, err := store.FindByField(ctx, ports.FieldShipmentID, id.String(), 1)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 || found[0].CompanyID() != companyID {
		return nil, nil
	}
	return found[0], nil
}

func insert(ctx context.Context, store ShipmentWriter, s *shipment.Shipment) error {
	key, err := store.Insert(ctx, s)
	if err != nil {
		return err
	}
	return s.AssignKey(key)
}

func newEvent(t ports.EventType, s *shipment.Shipment, summary string, at time.Time) ports.ShipmentEvent {
	return ports.ShipmentEvent{
		Type:           t,
		RecordKey:      s.Key().String(),
		ShipmentID:     s.ShipmentID().String(),
		CompanyID:      s.CompanyID(),
		Status:         s.Status().String(),
		DraftVersion:   s.DraftVersion(),
		DocumentsState: string(s.DocumentsState()),
		Summary:        summary,
		OccurredAt:     at.UTC(),
	}
}

// publish is fire-and-forget: a lost event never fails the command.
func publish(ctx context.Context, publisher ports.EventPublisher, logger *slog.Logger, event ports.ShipmentEvent) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn("event publish failed", "type", event.Type, "key", event.RecordKey, "error", err)
	}
}

func documentRequest(s *shipment.Shipment) ports.DocumentRequest {
	return ports.DocumentRequest{
		ShipmentID:     s.ShipmentID(),
		RecordKey:      s.Key(),
		CarrierDetails: s.Content().CarrierDetails,
	}
}

// applyReport copies a pipeline run onto the record.
func applyReport(s *shipment.Shipment, report documents.Report, at time.Time) error {
	if err := s.BeginDocumentAttempt(at); err != nil {
		return err
	}
	for _, o := range report.Outcomes {
		s.RecordDocumentStep(o.Step, o.Err, at)
	}
	return nil
}
