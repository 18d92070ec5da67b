// Package queries holds the read side of the lifecycle engine. Queries never
// change a stored record.
package queries

import (
	"errors"
	"strings"

	"freight/internal/core/domain/model/kernel"
	"freight/internal/pkg/errs"
	"freight/internal/pkg/guard"
)

var ErrGetShipmentQueryIsNotConstructed = errors.New(
	"GetShipmentQuery must be created via NewGetShipmentQuery constructor",
)

// GetShipmentQuery loads one shipment of a company by its shipment id.
type GetShipmentQuery struct {
	companyID  string
	shipmentID kernel.ShipmentID

	guard guard.ConstructorGuard
}

func NewGetShipmentQuery(companyID string, shipmentID string) (GetShipmentQuery, error) {
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return GetShipmentQuery{}, errs.NewValueIsRequiredError("companyID")
	}
	id, err := kernel.ParseShipmentID(strings.TrimSpace(shipmentID))
	if err != nil {
		return GetShipmentQuery{}, err
	}
	return GetShipmentQuery{
		companyID:  companyID,
		shipmentID: id,
		guard:      guard.NewConstructorGuard(),
	}, nil
}

func (q GetShipmentQuery) Validate() error {
	return q.guard.Validate(ErrGetShipmentQueryIsNotConstructed)
}

func (q GetShipmentQuery) CompanyID() string {
	return q.companyID
}

func (q GetShipmentQuery) ShipmentID() kernel.ShipmentID {
	return q.shipmentID
}
