package audit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/MalayathiGeetha/Motor-Part/pkg/db/models"
	"github.com/MalayathiGeetha/Motor-Part/pkg/enums"
	pkgerrors "github.com/MalayathiGeetha/Motor-Part/pkg/errors"
	"github.com/MalayathiGeetha/Motor-Part/pkg/pagination"
)

// SystemActor stamps entries written without an authenticated user.
const SystemActor = "SYSTEM"

// Entry describes one action to append to the ledger.
type Entry struct {
	Actor      string
	Action     enums.AuditAction
	EntityType enums.AuditEntityType
	EntityID   string
	Details    string
	OldValue   *string
	NewValue   *string
}

// ListResult wraps a page of entries and the cursor for the next page.
type ListResult struct {
	Items  []models.AuditLogEntry `json:"items"`
	Cursor string                 `json:"cursor"`
}

// Service is the append-only audit ledger.
type Service struct {
	repo *Repository
	now  func() time.Time
}

// NewService wires the audit ledger.
func NewService(repo *Repository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &Service{repo: repo, now: time.Now}, nil
}

// ActorOrSystem substitutes SystemActor for a blank identity.
func ActorOrSystem(actor string) string {
	if trimmed := strings.TrimSpace(actor); trimmed != "" {
		return trimmed
	}
	return SystemActor
}

// Record appends entry. When tx is non-nil the write joins the caller's
// transaction so it commits or rolls back with the change it describes.
func (s *Service) Record(ctx context.Context, tx *gorm.DB, entry Entry) (*models.AuditLogEntry, error) {
	if !entry.Action.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown audit action %q", entry.Action)
	}
	if !entry.EntityType.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown audit entity type %q", entry.EntityType)
	}
	if strings.TrimSpace(entry.EntityID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "audit entity id required")
	}

	row := &models.AuditLogEntry{
		OccurredAt: s.now().UTC(),
		Actor:      ActorOrSystem(entry.Actor),
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Details:    entry.Details,
		OldValue:   entry.OldValue,
		NewValue:   entry.NewValue,
	}
	if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record audit entry")
	}
	return row, nil
}

// QueryByEntity returns the trail for one entity, newest first.
func (s *Service) QueryByEntity(ctx context.Context, entityType enums.AuditEntityType, entityID string) ([]models.AuditLogEntry, error) {
	if !entityType.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown audit entity type %q", entityType)
	}
	if strings.TrimSpace(entityID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entity id required")
	}
	entries, err := s.repo.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query audit trail")
	}
	return entries, nil
}

// QueryAll pages through the global log newest first.
func (s *Service) QueryAll(ctx context.Context, params pagination.Params) (*ListResult, error) {
	query := listParams{Limit: params.Limit}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		if _, err := strconv.ParseInt(cursor.ID, 10, 64); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit entries")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

// StockValue formats a stock level for the OldValue/NewValue columns.
func StockValue(stock int) *string {
	v := fmt.Sprintf("Stock:%d", stock)
	return &v
}

// StockChange formats a stock transition for the OldValue/NewValue columns.
func StockChange(oldStock, newStock int) (*string, *string) {
	return StockValue(oldStock), StockValue(newStock)
}
