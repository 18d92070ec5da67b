package ports

import (
	"context"

	"freight/internal/core/domain/model/kernel"
	"freight/internal/core/domain/model/shipment"
)

// DocumentRequest identifies the booked shipment a document is generated for.
type DocumentRequest struct {
	ShipmentID     kernel.ShipmentID
	RecordKey      kernel.UUID
	CarrierDetails shipment.CarrierDetails
}

// DocumentGenerator wraps the remote document services called after booking.
type DocumentGenerator interface {
	// GenerateBOL renders and stores the bill of lading.
	GenerateBOL(ctx context.Context, req DocumentRequest) error

	// GenerateCarrierConfirmation renders the carrier confirmation and sends it to the carrier.
	GenerateCarrierConfirmation(ctx context.Context, req DocumentRequest) error
}
