package audit

import (
	"context"
	"strconv"

	"gorm.io/gorm"

	"github.com/MalayathiGeetha/Motor-Part/pkg/db/models"
	"github.com/MalayathiGeetha/Motor-Part/pkg/enums"
	"github.com/MalayathiGeetha/Motor-Part/pkg/pagination"
)

// Repository persists audit log entries. It exposes no update or delete.
type Repository struct {
	db *gorm.DB
}

// NewRepository returns an audit repository bound to the provided database.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, entry *models.AuditLogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByEntity returns every entry for one entity, newest first.
func (r *Repository) ListByEntity(ctx context.Context, entityType enums.AuditEntityType, entityID string) ([]models.AuditLogEntry, error) {
	var entries []models.AuditLogEntry
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("occurred_at DESC, id DESC").
		Find(&entries).Error
	return entries, err
}

type listParams struct {
	Limit  int
	Cursor *pagination.Cursor
}

// List pages through the whole log newest first. The returned cursor is nil on
// the last page.
func (r *Repository) List(ctx context.Context, params listParams) ([]models.AuditLogEntry, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.AuditLogEntry{})
	if params.Cursor != nil {
		id, err := strconv.ParseInt(params.Cursor.ID, 10, 64)
		if err != nil {
			return nil, nil, err
		}
		query = query.Where("occurred_at < ? OR (occurred_at = ? AND id <= ?)", params.Cursor.At, params.Cursor.At, id)
	}

	var entries []models.AuditLogEntry
	if err := query.Order("occurred_at DESC, id DESC").Limit(pagination.LimitWithBuffer(params.Limit)).Find(&entries).Error; err != nil {
		return nil, nil, err
	}

	page, next := pagination.Split(entries, params.Limit, func(e models.AuditLogEntry) pagination.Cursor {
		return pagination.Cursor{At: e.OccurredAt, ID: strconv.FormatInt(e.ID, 10)}
	})
	return page, next, nil
}
