package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Part is a stock-keeping unit in the shop catalog. CurrentStock is written only
// by the inventory service.
type Part struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	PartCode         string          `gorm:"column:part_code;not null;uniqueIndex"`
	PartName         string          `gorm:"column:part_name;not null"`
	Description      *string         `gorm:"column:description"`
	UnitPrice        decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null;default:0"`
	CurrentStock     int             `gorm:"column:current_stock;not null;default:0;check:chk_parts_current_stock,current_stock >= 0"`
	ReorderThreshold int             `gorm:"column:reorder_threshold;not null;default:0;check:chk_parts_reorder_threshold,reorder_threshold >= 0"`
	RackLocation     *string         `gorm:"column:rack_location"`
	ImageURL         *string         `gorm:"column:image_url"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Part) TableName() string { return "parts" }

// BeforeCreate assigns an id when the caller did not.
func (p *Part) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsLow reports whether stock is at or below the reorder threshold.
func (p Part) IsLow() bool {
	return p.CurrentStock <= p.ReorderThreshold
}
