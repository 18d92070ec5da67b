package commands

import (
	"errors"
	"strings"

	"freight/internal/core/domain/model/kernel"
	"freight/internal/core/domain/model/shipment"
	"freight/internal/pkg/errs"
	"freight/internal/pkg/guard"
)

var ErrSaveDraftCommandIsNotConstructed = errors.New(
	"SaveDraftCommand must be created via NewSaveDraftCommand constructor",
)

// SaveDraftCommand persists the editor's current content as a draft. Company
// and user come from the caller's session; the engine does not authenticate them.
type SaveDraftCommand struct {
	companyID  string
	userID     string
	editor     shipment.CreationMethod
	recordKey  kernel.UUID
	shipmentID kernel.ShipmentID
	content    shipment.Content

	guard guard.ConstructorGuard
}

// NewSaveDraftCommand builds a save command. recordKey is the zero UUID for a
// draft that has never been saved; shipmentID is the zero ShipmentID unless one
// was allocated ahead of time.
func NewSaveDraftCommand(
	companyID, userID string,
	editor shipment.CreationMethod,
	recordKey kernel.UUID,
	shipmentID kernel.ShipmentID,
	content shipment.Content,
) (SaveDraftCommand, error) {
	cmd := SaveDraftCommand{
		recordKey:  recordKey,
		shipmentID: shipmentID,
		content:    content.Clone(),
		guard:      guard.NewConstructorGuard(),
	}
	if err := errors.Join(
		cmd.setSession(companyID, userID),
		cmd.setEditor(editor),
		validateShipmentIDOwner(shipmentID, companyID),
	); err != nil {
		return SaveDraftCommand{}, err
	}
	return cmd, nil
}

func (c SaveDraftCommand) Validate() error {
	return c.guard.Validate(ErrSaveDraftCommandIsNotConstructed)
}

func (c SaveDraftCommand) CompanyID() string {
	return c.companyID
}

func (c SaveDraftCommand) UserID() string {
	return c.userID
}

func (c SaveDraftCommand) Editor() shipment.CreationMethod {
	return c.editor
}

func (c SaveDraftCommand) RecordKey() kernel.UUID {
	return c.recordKey
}

func (c SaveDraftCommand) ShipmentID() kernel.ShipmentID {
	return c.shipmentID
}

func (c SaveDraftCommand) Content() shipment.Content {
	return c.content.Clone()
}

func (c *SaveDraftCommand) setSession(companyID, userID string) error {
	var out []error
	if strings.TrimSpace(companyID) == "" {
		out = append(out, errs.NewValueIsRequiredError("companyID"))
	}
	if strings.TrimSpace(userID) == "" {
		out = append(out, errs.NewValueIsRequiredError("userID"))
	}
	c.companyID = companyID
	c.userID = userID
	return errors.Join(out...)
}

func (c *SaveDraftCommand) setEditor(editor shipment.CreationMethod) error {
	if err := editor.Validate(); err != nil {
		return err
	}
	c.editor = editor
	return nil
}

func validateShipmentIDOwner(id kernel.ShipmentID, companyID string) error {
	if id.IsZero() || id.CompanyID() == companyID {
		return nil
	}
	return errs.NewValueIsInvalidError("shipmentID belongs to another company")
}
