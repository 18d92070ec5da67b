package queries

import (
	"context"

	"freight/internal/core/domain/model/shipment"
	"freight/internal/core/ports"
	"freight/internal/pkg/errs"
)

// ShipmentReader is the read half of ports.DraftStore.
type ShipmentReader interface {
	FindByField(ctx context.Context, field ports.Field, value string, limit int) ([]*shipment.Shipment, error)
	FindWhere(ctx context.Context, criteria ports.Criteria, limit int) ([]*shipment.Shipment, error)
}

type GetShipmentQueryHandler struct {
	store ShipmentReader
}

func NewGetShipmentQueryHandler(store ShipmentReader) GetShipmentQueryHandler {
	return GetShipmentQueryHandler{store: store}
}

// Handle returns errs.ObjectNotFoundError when the shipment id is unknown or
// belongs to another company.
func (h GetShipmentQueryHandler) Handle(ctx context.Context, query GetShipmentQuery) (*shipment.Shipment, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	id := query.ShipmentID().String()
	found, err := h.store.FindByField(ctx, ports.FieldShipmentID, id, 1)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 || found[0].CompanyID() != query.CompanyID() {
		return nil, errs.NewObjectNotFoundError("shipmentId", id)
	}
	return found[0], nil
}
