package enums

import (
	"fmt"
	"strings"
)

// AuditAction is the closed set of actions written to the audit log.
type AuditAction string

const (
	AuditActionPartCreated       AuditAction = "PART_CREATED"
	AuditActionPartUpdated       AuditAction = "PART_UPDATED"
	AuditActionPartDeleted       AuditAction = "PART_DELETED"
	AuditActionStockReceived     AuditAction = "STOCK_RECEIVED"
	AuditActionStockDeducted     AuditAction = "STOCK_DEDUCTED"
	AuditActionLowStockAlert     AuditAction = "LOW_STOCK_ALERT"
	AuditActionLowStockResolved  AuditAction = "LOW_STOCK_RESOLVED"
	AuditActionAlertAcknowledged AuditAction = "ALERT_ACKNOWLEDGED"
	AuditActionReorderRequested  AuditAction = "REORDER_REQUESTED"
)

var validAuditActions = []AuditAction{
	AuditActionPartCreated,
	AuditActionPartUpdated,
	AuditActionPartDeleted,
	AuditActionStockReceived,
	AuditActionStockDeducted,
	AuditActionLowStockAlert,
	AuditActionLowStockResolved,
	AuditActionAlertAcknowledged,
	AuditActionReorderRequested,
}

func (a AuditAction) String() string {
	return string(a)
}

func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// AuditEntityType names the kind of record an audit entry refers to.
type AuditEntityType string

const (
	AuditEntityPart          AuditEntityType = "PART"
	AuditEntityAlert         AuditEntityType = "ALERT"
	AuditEntitySale          AuditEntityType = "SALE"
	AuditEntityPurchaseOrder AuditEntityType = "PURCHASE_ORDER"
)

var validAuditEntityTypes = []AuditEntityType{
	AuditEntityPart,
	AuditEntityAlert,
	AuditEntitySale,
	AuditEntityPurchaseOrder,
}

func (e AuditEntityType) String() string {
	return string(e)
}

func (e AuditEntityType) IsValid() bool {
	for _, candidate := range validAuditEntityTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseAuditEntityType accepts the canonical upper-case form case-insensitively.
func ParseAuditEntityType(value string) (AuditEntityType, error) {
	normalized := AuditEntityType(strings.ToUpper(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid audit entity type %q", value)
}
