package controllers

import (
	"time"

	"github.com/google/uuid"

	"github.com/MalayathiGeetha/Motor-Part/pkg/db/models"
	"github.com/MalayathiGeetha/Motor-Part/pkg/enums"
)

type alertResponse struct {
	ID             uuid.UUID         `json:"id"`
	PartID         uuid.UUID         `json:"part_id"`
	StockLevel     int               `json:"stock_level"`
	Threshold      int               `json:"threshold"`
	Status         enums.AlertStatus `json:"status"`
	DetectedAt     time.Time         `json:"detected_at"`
	AcknowledgedAt *time.Time        `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time        `json:"resolved_at,omitempty"`
}

func toAlertResponse(alert models.InventoryAlert) alertResponse {
	return alertResponse{
		ID:             alert.ID,
		PartID:         alert.PartID,
		StockLevel:     alert.StockLevel,
		Threshold:      alert.Threshold,
		Status:         alert.Status,
		DetectedAt:     alert.DetectedAt,
		AcknowledgedAt: alert.AcknowledgedAt,
		ResolvedAt:     alert.ResolvedAt,
	}
}

func toAlertResponses(alerts []models.InventoryAlert) []alertResponse {
	out := make([]alertResponse, 0, len(alerts))
	for _, alert := range alerts {
		out = append(out, toAlertResponse(alert))
	}
	return out
}

type auditEntryResponse struct {
	ID         int64                 `json:"id"`
	OccurredAt time.Time             `json:"occurred_at"`
	Actor      string                `json:"actor"`
	Action     enums.AuditAction     `json:"action"`
	EntityType enums.AuditEntityType `json:"entity_type"`
	EntityID   string                `json:"entity_id"`
	Details    string                `json:"details"`
	OldValue   *string               `json:"old_value,omitempty"`
	NewValue   *string               `json:"new_value,omitempty"`
}

func toAuditEntryResponses(entries []models.AuditLogEntry) []auditEntryResponse {
	out := make([]auditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, auditEntryResponse{
			ID:         entry.ID,
			OccurredAt: entry.OccurredAt,
			Actor:      entry.Actor,
			Action:     entry.Action,
			EntityType: entry.EntityType,
			EntityID:   entry.EntityID,
			Details:    entry.Details,
			OldValue:   entry.OldValue,
			NewValue:   entry.NewValue,
		})
	}
	return out
}

type auditPageResponse struct {
	Items  []auditEntryResponse `json:"items"`
	Cursor string               `json:"cursor"`
}
