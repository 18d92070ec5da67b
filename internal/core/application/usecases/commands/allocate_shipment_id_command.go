package commands

import (
	"errors"
	"strings"

	"freight/internal/pkg/errs"
	"freight/internal/pkg/guard"
)

var ErrAllocateShipmentIDCommandIsNotConstructed = errors.New(
	"AllocateShipmentIDCommand must be created via NewAllocateShipmentIDCommand constructor",
)

// AllocateShipmentIDCommand asks for a fresh shipment id within one company.
type AllocateShipmentIDCommand struct {
	companyID string

	guard guard.ConstructorGuard
}

func NewAllocateShipmentIDCommand(companyID string) (AllocateShipmentIDCommand, error) {
	if strings.TrimSpace(companyID) == "" {
		return AllocateShipmentIDCommand{}, errs.NewValueIsRequiredError("companyID")
	}
	return AllocateShipmentIDCommand{companyID: companyID, guard: guard.NewConstructorGuard()}, nil
}

func (c AllocateShipmentIDCommand) Validate() error {
	return c.guard.Validate(ErrAllocateShipmentIDCommandIsNotConstructed)
}

func (c AllocateShipmentIDCommand) CompanyID() string {
	return c.companyID
}
