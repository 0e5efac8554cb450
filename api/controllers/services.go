package controllers

import (
	"context"

	"github.com/google/uuid"

	"github.com/MalayathiGeetha/Motor-Part/internal/audit"
	"github.com/MalayathiGeetha/Motor-Part/internal/inventory"
	"github.com/MalayathiGeetha/Motor-Part/pkg/db/models"
	"github.com/MalayathiGeetha/Motor-Part/pkg/enums"
	"github.com/MalayathiGeetha/Motor-Part/pkg/pagination"
)

// PartService is the stock mutation engine surface used by the part handlers.
type PartService interface {
	CreatePart(ctx context.Context, actor string, input inventory.CreatePartInput) (*inventory.PartDTO, error)
	GetPart(ctx context.Context, partID uuid.UUID) (*inventory.PartDTO, error)
	ListParts(ctx context.Context, params pagination.Params) (*inventory.PartListResult, error)
	SearchParts(ctx context.Context, q string) ([]inventory.PartDTO, error)
	UpdatePartDetails(ctx context.Context, actor string, partID uuid.UUID, input inventory.UpdatePartInput) (*inventory.PartDTO, error)
	DeletePart(ctx context.Context, actor string, partID uuid.UUID) error
	ReceiveStock(ctx context.Context, actor string, partID uuid.UUID, qty int) (*inventory.PartDTO, error)
	DeductStock(ctx context.Context, actor string, partID uuid.UUID, qty int) (*inventory.PartDTO, error)
	ReorderPart(ctx context.Context, actor string, partID uuid.UUID, qty int) error
	Stats(ctx context.Context) (*inventory.Stats, error)
	GetPartAuditTrail(ctx context.Context, partID uuid.UUID) ([]models.AuditLogEntry, error)
}

// AlertService exposes alert reads and acknowledgement.
type AlertService interface {
	ListOpen(ctx context.Context) ([]models.InventoryAlert, error)
	ListActive(ctx context.Context) ([]models.InventoryAlert, error)
	ListForPart(ctx context.Context, partID uuid.UUID) ([]models.InventoryAlert, error)
	Acknowledge(ctx context.Context, actor string, alertID uuid.UUID) (*models.InventoryAlert, error)
}

// AuditService exposes the read side of the audit ledger.
type AuditService interface {
	QueryAll(ctx context.Context, params pagination.Params) (*audit.ListResult, error)
	QueryByEntity(ctx context.Context, entityType enums.AuditEntityType, entityID string) ([]models.AuditLogEntry, error)
}
