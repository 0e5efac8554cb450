package models

import (
	"time"

	"github.com/MalayathiGeetha/Motor-Part/pkg/enums"
)

// AuditLogEntry is an immutable record of a state change. ID increases with
// insertion order and breaks ties between equal OccurredAt values.
type AuditLogEntry struct {
	ID         int64                 `gorm:"column:id;primaryKey;autoIncrement"`
	OccurredAt time.Time             `gorm:"column:occurred_at;not null;index:idx_audit_log_occurred"`
	Actor      string                `gorm:"column:actor;not null"`
	Action     enums.AuditAction     `gorm:"column:action;type:varchar(40);not null"`
	EntityType enums.AuditEntityType `gorm:"column:entity_type;type:varchar(30);not null;index:idx_audit_log_entity"`
	EntityID   string                `gorm:"column:entity_id;not null;index:idx_audit_log_entity"`
	Details    string                `gorm:"column:details;not null;default:''"`
	OldValue   *string               `gorm:"column:old_value"`
	NewValue   *string               `gorm:"column:new_value"`
}

func (AuditLogEntry) TableName() string { return "audit_log" }
