// Package commands contains the operations that change shipment records.
// Each command is a validated value built by its constructor and executed by
// a handler; handlers depend only on the narrow store views declared here.
package commands

import (
	"context"

	"freight/internal/core/application/documents"
	"freight/internal/core/domain/model/kernel"
	"freight/internal/core/domain/model/shipment"
	"freight/internal/core/ports"
)

type (
	// ShipmentIDIndex is the read side of the store used to pick unused shipment ids.
	ShipmentIDIndex interface {
		CountByField(ctx context.Context, field ports.Field, value string) (int64, error)
		FindByField(ctx context.Context, field ports.Field, value string, limit int) ([]*shipment.Shipment, error)
	}

	// ShipmentIDAllocator hands out a shipment id that no stored record uses yet.
	ShipmentIDAllocator interface {
		Handle(ctx context.Context, cmd AllocateShipmentIDCommand) (kernel.ShipmentID, error)
	}

	// ShipmentWriter is the store as seen by commands that load and save one record.
	ShipmentWriter interface {
		FindByField(ctx context.Context, field ports.Field, value string, limit int) ([]*shipment.Shipment, error)
		GetByKey(ctx context.Context, key kernel.UUID) (*shipment.Shipment, error)
		Insert(ctx context.Context, s *shipment.Shipment) (kernel.UUID, error)
		Update(ctx context.Context, s *shipment.Shipment) error
	}

	// DocumentRunner runs document steps for a booked shipment.
	DocumentRunner interface {
		Run(ctx context.Context, req ports.DocumentRequest) documents.Report
		RunPending(ctx context.Context, req ports.DocumentRequest, pending []shipment.DocumentStep) documents.Report
	}

	// ContentValidator decides whether content may be booked.
	ContentValidator interface {
		ValidateForBooking(c shipment.Content) error
	}
)
