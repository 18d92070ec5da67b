package queries

import (
	"context"

	"freight/internal/core/domain/model/shipment"
	"freight/internal/core/ports"
)

type ListDraftsQueryHandler struct {
	store ShipmentReader
}

func NewListDraftsQueryHandler(store ShipmentReader) ListDraftsQueryHandler {
	return ListDraftsQueryHandler{store: store}
}

func (h ListDraftsQueryHandler) Handle(ctx context.Context, query ListDraftsQuery) ([]*shipment.Shipment, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	drafts, err := h.store.FindWhere(ctx, ports.Criteria{
		ports.FieldCompanyID: query.CompanyID(),
		ports.FieldStatus:    shipment.Draft.String(),
	}, query.Limit())
	if err != nil {
		return nil, err
	}
	if drafts == nil {
		drafts = make([]*shipment.Shipment, 0)
	}
	return drafts, nil
}
