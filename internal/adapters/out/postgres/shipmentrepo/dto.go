// Package shipmentrepo stores shipment records in PostgreSQL through GORM.
// Content, totals and document state are kept as JSON columns; the fields the
// engine filters on live in plain indexed columns.
package shipmentrepo

import (
	"time"

	"freight/internal/core/domain/model/kernel"
	"freight/internal/core/domain/model/shipment"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ShipmentDTO struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ShipmentID     *string   `gorm:"type:varchar(64);uniqueIndex"`
	CompanyID      string    `gorm:"type:varchar(64);not null;index"`
	CreatedBy      string    `gorm:"type:varchar(128);not null"`
	CreationMethod string    `gorm:"type:varchar(16);not null"`
	Status         string    `gorm:"type:varchar(16);not null;index"`
	DocumentsState string    `gorm:"type:varchar(16);not null;index"`
	DraftVersion   int       `gorm:"not null"`
	Content        datatypes.JSONType[shipment.Content]
	Totals         datatypes.JSONType[shipment.Totals]
	Documents      datatypes.JSONType[shipment.Documents]
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null;index"`
	BookedAt       *time.Time

	// Copies of Documents.Attempts and Documents.LastAttemptAt for the retry query.
	DocumentAttempts      int `gorm:"not null;default:0;index"`
	LastDocumentAttemptAt *time.Time
}

func (ShipmentDTO) TableName() string {
	return "shipments"
}

// mutableColumns are the columns Update may overwrite.
var mutableColumns = []string{
	"shipment_id", "status", "documents_state", "draft_version",
	"content", "totals", "documents", "updated_at", "booked_at",
	"document_attempts", "last_document_attempt_at",
}

func fromDomain(s *shipment.Shipment) ShipmentDTO {
	snap := s.Snapshot()

	var shipmentID *string
	if !snap.ShipmentID.IsZero() {
		id := snap.ShipmentID.String()
		shipmentID = &id
	}

	return ShipmentDTO{
		ID:             snap.Key.Bytes(),
		ShipmentID:     shipmentID,
		CompanyID:      snap.CompanyID,
		CreatedBy:      snap.CreatedBy,
		CreationMethod: snap.CreationMethod.String(),
		Status:         snap.Status.String(),
		DocumentsState: string(snap.Documents.State()),
		DraftVersion:   snap.DraftVersion,
		Content:        datatypes.NewJSONType(snap.Content),
		Totals:         datatypes.NewJSONType(snap.Totals),
		Documents:      datatypes.NewJSONType(snap.Documents),
		CreatedAt:      snap.CreatedAt,
		UpdatedAt:      snap.UpdatedAt,
		BookedAt:       snap.BookedAt,

		DocumentAttempts:      snap.Documents.Attempts,
		LastDocumentAttemptAt: snap.Documents.LastAttemptAt,
	}
}

func toDomain(dto ShipmentDTO) (*shipment.Shipment, error) {
	key, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}

	var id kernel.ShipmentID
	if dto.ShipmentID != nil {
		if id, err = kernel.ParseShipmentID(*dto.ShipmentID); err != nil {
			return nil, err
		}
	}

	status, err := shipment.ParseStatus(dto.Status)
	if err != nil {
		return nil, err
	}
	method, err := shipment.ParseCreationMethod(dto.CreationMethod)
	if err != nil {
		return nil, err
	}

	return shipment.RestoreShipment(shipment.Snapshot{
		Key:            key,
		ShipmentID:     id,
		CompanyID:      dto.CompanyID,
		CreatedBy:      dto.CreatedBy,
		CreationMethod: method,
		Status:         status,
		Content:        dto.Content.Data(),
		Totals:         dto.Totals.Data(),
		DraftVersion:   dto.DraftVersion,
		Documents:      dto.Documents.Data(),
		CreatedAt:      dto.CreatedAt,
		UpdatedAt:      dto.UpdatedAt,
		BookedAt:       dto.BookedAt,
	})
}
