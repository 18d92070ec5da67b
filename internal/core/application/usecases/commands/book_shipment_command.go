package commands

import (
	"errors"

	"freight/internal/core/domain/model/kernel"
	"freight/internal/core/domain/model/shipment"
	"freight/internal/pkg/guard"
)

var ErrBookShipmentCommandIsNotConstructed = errors.New(
	"BookShipmentCommand must be created via NewBookShipmentCommand constructor",
)

// BookShipmentCommand books the editor's content. recordKey and shipmentID
// have the same meaning as in SaveDraftCommand.
type BookShipmentCommand struct {
	companyID  string
	userID     string
	editor     shipment.CreationMethod
	recordKey  kernel.UUID
	shipmentID kernel.ShipmentID
	content    shipment.Content

	guard guard.ConstructorGuard
}

func NewBookShipmentCommand(
	companyID, userID string,
	editor shipment.CreationMethod,
	recordKey kernel.UUID,
	shipmentID kernel.ShipmentID,
	content shipment.Content,
) (BookShipmentCommand, error) {
	// The draft command already enforces the same session and editor rules.
	draft, err := NewSaveDraftCommand(companyID, userID, editor, recordKey, shipmentID, content)
	if err != nil {
		return BookShipmentCommand{}, err
	}
	return BookShipmentCommand{
		companyID:  draft.companyID,
		userID:     draft.userID,
		editor:     draft.editor,
		recordKey:  draft.recordKey,
		shipmentID: draft.shipmentID,
		content:    draft.content,
		guard:      guard.NewConstructorGuard(),
	}, nil
}

func (c BookShipmentCommand) Validate() error {
	return c.guard.Validate(ErrBookShipmentCommandIsNotConstructed)
}

func (c BookShipmentCommand) CompanyID() string {
	return c.companyID
}

func (c BookShipmentCommand) UserID() string {
	return c.userID
}

func (c BookShipmentCommand) Editor() shipment.CreationMethod {
	return c.editor
}

func (c BookShipmentCommand) RecordKey() kernel.UUID {
	return c.recordKey
}

func (c BookShipmentCommand) ShipmentID() kernel.ShipmentID {
	return c.shipmentID
}

func (c BookShipmentCommand) Content() shipment.Content {
	return c.content.Clone()
}
