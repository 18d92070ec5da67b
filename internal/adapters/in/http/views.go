package http

import (
	"time"

	"freight/internal/core/domain/model/kernel"
	"freight/internal/core/domain/model/shipment"
)

type shipmentRequest struct {
	RecordKey  string           `json:"recordKey"`
	ShipmentID string           `json:"shipmentId"`
	Editor     string           `json:"editor"`
	Content    shipment.Content `json:"content"`
}

// parse turns the optional identifiers into their zero values when absent.
func (r shipmentRequest) parse() (kernel.UUID, kernel.ShipmentID, shipment.CreationMethod, error) {
	var (
		key kernel.UUID
		id  kernel.ShipmentID
		err error
	)
	if r.RecordKey != "" {
		if key, err = kernel.UUIDFromString(r.RecordKey); err != nil {
			return kernel.UUID{}, kernel.ShipmentID{}, "", err
		}
	}
	if r.ShipmentID != "" {
		if id, err = kernel.ParseShipmentID(r.ShipmentID); err != nil {
			return kernel.UUID{}, kernel.ShipmentID{}, "", err
		}
	}
	editor, err := shipment.ParseCreationMethod(r.Editor)
	if err != nil {
		return kernel.UUID{}, kernel.ShipmentID{}, "", err
	}
	return key, id, editor, nil
}

type validationRequest struct {
	Content shipment.Content `json:"content"`
}

type conversionRequest struct {
	Content      shipment.Content  `json:"content"`
	UnitSystem   kernel.UnitSystem `json:"unitSystem"`
	PackageIndex *int              `json:"packageIndex"`
}

type conversionResponse struct {
	Content shipment.Content `json:"content"`
	Totals  shipment.Totals  `json:"totals"`
}

type shipmentView struct {
	RecordKey      string             `json:"recordKey,omitempty"`
	ShipmentID     string             `json:"shipmentId,omitempty"`
	CompanyID      string             `json:"companyId"`
	CreatedBy      string             `json:"createdBy"`
	CreationMethod string             `json:"creationMethod"`
	Status         string             `json:"status"`
	DraftVersion   int                `json:"draftVersion"`
	Content        shipment.Content   `json:"content"`
	Totals         shipment.Totals    `json:"totals"`
	Documents      shipment.Documents `json:"documents"`
	DocumentsState string             `json:"documentsState"`
	CreatedAt      *time.Time         `json:"createdAt,omitempty"`
	UpdatedAt      *time.Time         `json:"updatedAt,omitempty"`
	BookedAt       *time.Time         `json:"bookedAt,omitempty"`
}

func toView(s *shipment.Shipment) *shipmentView {
	if s == nil {
		return nil
	}
	snap := s.Snapshot()
	return &shipmentView{
		RecordKey:      keyString(snap.Key),
		ShipmentID:     snap.ShipmentID.String(),
		CompanyID:      snap.CompanyID,
		CreatedBy:      snap.CreatedBy,
		CreationMethod: snap.CreationMethod.String(),
		Status:         snap.Status.String(),
		DraftVersion:   snap.DraftVersion,
		Content:        snap.Content,
		Totals:         snap.Totals,
		Documents:      snap.Documents,
		DocumentsState: string(snap.Documents.State()),
		CreatedAt:      optionalTime(snap.CreatedAt),
		UpdatedAt:      optionalTime(snap.UpdatedAt),
		BookedAt:       snap.BookedAt,
	}
}

type draftResponse struct {
	Shipment *shipmentView `json:"shipment"`
	State    string        `json:"state"`
}

type bookingResponse struct {
	Shipment      *shipmentView `json:"shipment,omitempty"`
	State         string        `json:"state"`
	AlreadyBooked bool          `json:"alreadyBooked"`
	Summary       string        `json:"summary,omitempty"`
}

type draftListResponse struct {
	Drafts []*shipmentView `json:"drafts"`
}

func keyString(k kernel.UUID) string {
	if k.IsZero() {
		return ""
	}
	return k.String()
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
