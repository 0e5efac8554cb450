package alerts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MalayathiGeetha/Motor-Part/pkg/db/models"
	"github.com/MalayathiGeetha/Motor-Part/pkg/enums"
)

// Repository persists inventory alerts.
type Repository struct {
	db *gorm.DB
}

// NewRepository returns an alerts repository bound to the provided database.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, alert *models.InventoryAlert) error {
	return r.db.WithContext(ctx).Create(alert).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryAlert, error) {
	var alert models.InventoryAlert
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&alert).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}

// FindActiveByPart returns the OPEN or ACKNOWLEDGED alerts for a part.
func (r *Repository) FindActiveByPart(ctx context.Context, partID uuid.UUID) ([]models.InventoryAlert, error) {
	var alerts []models.InventoryAlert
	err := r.db.WithContext(ctx).
		Where("part_id = ? AND status IN ?", partID, enums.ActiveAlertStatuses).
		Order("detected_at DESC").
		Find(&alerts).Error
	return alerts, err
}

// ResolveActiveByPart marks every live alert for the part RESOLVED.
func (r *Repository) ResolveActiveByPart(ctx context.Context, partID uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.InventoryAlert{}).
		Where("part_id = ? AND status IN ?", partID, enums.ActiveAlertStatuses).
		Updates(map[string]any{
			"status":      enums.AlertStatusResolved,
			"resolved_at": now,
		})
	return result.RowsAffected, result.Error
}

// MarkAcknowledged moves an OPEN alert to ACKNOWLEDGED. It reports false when
// the alert was not OPEN.
func (r *Repository) MarkAcknowledged(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.InventoryAlert{}).
		Where("id = ? AND status = ?", id, enums.AlertStatusOpen).
		Updates(map[string]any{
			"status":          enums.AlertStatusAcknowledged,
			"acknowledged_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListByStatus returns alerts in the given statuses, newest detection first.
func (r *Repository) ListByStatus(ctx context.Context, statuses ...enums.AlertStatus) ([]models.InventoryAlert, error) {
	var alerts []models.InventoryAlert
	err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("detected_at DESC, id DESC").
		Find(&alerts).Error
	return alerts, err
}

func (r *Repository) ListByPart(ctx context.Context, partID uuid.UUID) ([]models.InventoryAlert, error) {
	var alerts []models.InventoryAlert
	err := r.db.WithContext(ctx).
		Where("part_id = ?", partID).
		Order("detected_at DESC, id DESC").
		Find(&alerts).Error
	return alerts, err
}

func (r *Repository) CountByStatus(ctx context.Context, status enums.AlertStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.InventoryAlert{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}
