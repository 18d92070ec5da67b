package shipmentrepo

import (
	"context"
	"errors"
	"time"

	"freight/internal/core/domain/model/kernel"
	"freight/internal/core/domain/model/shipment"
	"freight/internal/core/ports"
	"freight/internal/pkg/errs"

	"gorm.io/gorm"
)

var _ ports.DraftStore = (*GormShipmentRepository)(nil)

// GormShipmentRepository implements ports.DraftStore on PostgreSQL.
type GormShipmentRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormShipmentRepository(db *gorm.DB) *GormShipmentRepository {
	return &GormShipmentRepository{db: db, now: time.Now}
}

// Migrate creates or updates the shipments table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&ShipmentDTO{})
}

func (r *GormShipmentRepository) FindByField(
	ctx context.Context,
	field ports.Field,
	value string,
	limit int,
) ([]*shipment.Shipment, error) {
	return r.FindWhere(ctx, ports.Criteria{field: value}, limit)
}

func (r *GormShipmentRepository) FindWhere(
	ctx context.Context,
	criteria ports.Criteria,
	limit int,
) ([]*shipment.Shipment, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	q := r.db.WithContext(ctx).Where(conditions(criteria)).Order("updated_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	return find(q)
}

func (r *GormShipmentRepository) FindDocumentRetries(
	ctx context.Context,
	maxAttempts int,
	limit int,
) ([]*shipment.Shipment, error) {
	q := r.db.WithContext(ctx).
		Where("status = ?", shipment.Booked.String()).
		Where("documents_state IN ?", []string{
			string(shipment.DocumentsPending),
			string(shipment.DocumentsPartial),
			string(shipment.DocumentsFailed),
		}).
		Where("document_attempts < ?", maxAttempts).
		Order("COALESCE(last_document_attempt_at, booked_at, updated_at) ASC").
		Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return find(q)
}

func find(q *gorm.DB) ([]*shipment.Shipment, error) {
	var dtos []ShipmentDTO
	if err := q.Find(&dtos).Error; err != nil {
		return nil, err
	}

	shipments := make([]*shipment.Shipment, 0, len(dtos))
	for _, dto := range dtos {
		s, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		shipments = append(shipments, s)
	}
	return shipments, nil
}

func (r *GormShipmentRepository) CountByField(ctx context.Context, field ports.Field, value string) (int64, error) {
	if err := field.Validate(); err != nil {
		return 0, err
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&ShipmentDTO{}).
		Where(conditions(ports.Criteria{field: value})).
		Count(&count).Error
	return count, err
}

func (r *GormShipmentRepository) GetByKey(ctx context.Context, key kernel.UUID) (*shipment.Shipment, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	var dto ShipmentDTO
	if err := r.db.WithContext(ctx).First(&dto, "id = ?", key.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("shipment", key.String())
		}
		return nil, err
	}
	return toDomain(dto)
}

func (r *GormShipmentRepository) Insert(ctx context.Context, s *shipment.Shipment) (kernel.UUID, error) {
	if err := s.Validate(); err != nil {
		return kernel.UUID{}, err
	}
	if s.IsPersisted() {
		return kernel.UUID{}, errs.NewValueIsInvalidErrorWithCause("shipment", errors.New("already has a record key"))
	}

	key := kernel.NewUUID()
	now := r.now().UTC()
	dto := fromDomain(s)
	dto.ID = key.Bytes()
	dto.CreatedAt = now
	dto.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(&dto).Error; err != nil {
		return kernel.UUID{}, err
	}
	return key, nil
}

func (r *GormShipmentRepository) Update(ctx context.Context, s *shipment.Shipment) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := s.Key().Validate(); err != nil {
		return err
	}

	dto := fromDomain(s)
	dto.UpdatedAt = r.now().UTC()

	q := r.db.WithContext(ctx).
		Model(&ShipmentDTO{}).
		Where("id = ?", dto.ID).
		Where("(shipment_id IS NULL OR shipment_id = ?)", dto.ShipmentID)
	if dto.Status != shipment.Booked.String() {
		q = q.Where("status <> ?", shipment.Booked.String())
	}

	result := q.Select(mutableColumns).Updates(&dto)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var exists int64
	if err := r.db.WithContext(ctx).Model(&ShipmentDTO{}).Where("id = ?", dto.ID).Count(&exists).Error; err != nil {
		return err
	}
	if exists == 0 {
		return errs.NewObjectNotFoundError("shipment", s.Key().String())
	}
	return errs.NewStaleWriteError(s.Key().String())
}

func conditions(criteria ports.Criteria) map[string]any {
	out := make(map[string]any, len(criteria))
	for field, value := range criteria {
		out[string(field)] = value
	}
	return out
}
