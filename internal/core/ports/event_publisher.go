package ports

import (
	"context"
	"time"
)

type EventType string

const (
	EventDraftSaved       EventType = "shipment.draft_saved"
	EventBooked           EventType = "shipment.booked"
	EventDocumentsUpdated EventType = "shipment.documents_updated"
)

// ShipmentEvent is published after a shipment record changed.
type ShipmentEvent struct {
	Type           EventType `json:"type"`
	RecordKey      string    `json:"recordKey"`
	ShipmentID     string    `json:"shipmentId,omitempty"`
	CompanyID      string    `json:"companyId"`
	Status         string    `json:"status"`
	DraftVersion   int       `json:"draftVersion"`
	DocumentsState string    `json:"documentsState"`
	Summary        string    `json:"summary,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// EventPublisher delivers shipment events to interested services. Delivery is
// at most once from the point of view of the engine.
type EventPublisher interface {
	Publish(ctx context.Context, event ShipmentEvent) error
}
