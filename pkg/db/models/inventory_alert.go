package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MalayathiGeetha/Motor-Part/pkg/enums"
)

// InventoryAlert records one low-stock episode for a part. PartID carries no
// foreign key so alert history outlives deleted parts.
type InventoryAlert struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	PartID         uuid.UUID         `gorm:"column:part_id;type:uuid;not null;index"`
	StockLevel     int               `gorm:"column:stock_level;not null"`
	Threshold      int               `gorm:"column:threshold;not null"`
	Status         enums.AlertStatus `gorm:"column:status;type:varchar(20);not null;index"`
	DetectedAt     time.Time         `gorm:"column:detected_at;not null"`
	AcknowledgedAt *time.Time        `gorm:"column:acknowledged_at"`
	ResolvedAt     *time.Time        `gorm:"column:resolved_at"`
}

func (InventoryAlert) TableName() string { return "inventory_alerts" }

func (a *InventoryAlert) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
