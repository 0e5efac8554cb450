package inventory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MalayathiGeetha/Motor-Part/pkg/db/models"
	"github.com/MalayathiGeetha/Motor-Part/pkg/enums"
)

// PartDTO represents the part payload returned to callers.
type PartDTO struct {
	ID               uuid.UUID         `json:"id"`
	PartCode         string            `json:"part_code"`
	PartName         string            `json:"part_name"`
	Description      *string           `json:"description,omitempty"`
	UnitPrice        decimal.Decimal   `json:"unit_price"`
	CurrentStock     int               `json:"current_stock"`
	ReorderThreshold int               `json:"reorder_threshold"`
	RackLocation     *string           `json:"rack_location,omitempty"`
	ImageURL         *string           `json:"image_url,omitempty"`
	StockStatus      enums.StockStatus `json:"stock_status"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// PartListResult wraps a page of parts and the cursor for the next page.
type PartListResult struct {
	Items  []PartDTO `json:"items"`
	Cursor string    `json:"cursor"`
}

// Stats summarises the catalog for the dashboard.
type Stats struct {
	TotalParts     int64           `json:"total_parts"`
	InventoryValue decimal.Decimal `json:"inventory_value"`
	LowStockAlerts int64           `json:"low_stock_alerts"`
}

func toPartDTO(part *models.Part) PartDTO {
	return PartDTO{
		ID:               part.ID,
		PartCode:         part.PartCode,
		PartName:         part.PartName,
		Description:      part.Description,
		UnitPrice:        part.UnitPrice,
		CurrentStock:     part.CurrentStock,
		ReorderThreshold: part.ReorderThreshold,
		RackLocation:     part.RackLocation,
		ImageURL:         part.ImageURL,
		StockStatus:      enums.StockStatusFor(part.CurrentStock, part.ReorderThreshold),
		CreatedAt:        part.CreatedAt,
		UpdatedAt:        part.UpdatedAt,
	}
}

func toPartDTOs(parts []models.Part) []PartDTO {
	out := make([]PartDTO, 0, len(parts))
	for i := range parts {
		out = append(out, toPartDTO(&parts[i]))
	}
	return out
}

// snapshot renders the fields an operator edits, for PART_UPDATED and
// PART_DELETED audit values.
func snapshot(part *models.Part) string {
	return fmt.Sprintf("Name:%s, Desc:%s, Price:%s, Stock:%d, Threshold:%d, Rack:%s",
		part.PartName,
		deref(part.Description),
		part.UnitPrice.StringFixed(2),
		part.CurrentStock,
		part.ReorderThreshold,
		deref(part.RackLocation),
	)
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
