package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/MalayathiGeetha/Motor-Part/internal/alerts"
	"github.com/MalayathiGeetha/Motor-Part/internal/audit"
	"github.com/MalayathiGeetha/Motor-Part/pkg/db"
	"github.com/MalayathiGeetha/Motor-Part/pkg/db/models"
	"github.com/MalayathiGeetha/Motor-Part/pkg/enums"
	pkgerrors "github.com/MalayathiGeetha/Motor-Part/pkg/errors"
	"github.com/MalayathiGeetha/Motor-Part/pkg/keylock"
	"github.com/MalayathiGeetha/Motor-Part/pkg/metrics"
	"github.com/MalayathiGeetha/Motor-Part/pkg/pagination"
)

const (
	opReceive = "receive"
	opDeduct  = "deduct"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type auditLedger interface {
	Record(ctx context.Context, tx *gorm.DB, entry audit.Entry) (*models.AuditLogEntry, error)
	QueryByEntity(ctx context.Context, entityType enums.AuditEntityType, entityID string) ([]models.AuditLogEntry, error)
}

type alertManager interface {
	Evaluate(ctx context.Context, tx *gorm.DB, actor string, snap alerts.Snapshot) (alerts.Outcome, error)
	Observe(outcomes ...alerts.Outcome)
	CountOpen(ctx context.Context) (int64, error)
}

// CreatePartInput holds the validated payload to register a part.
type CreatePartInput struct {
	PartCode         string
	PartName         string
	Description      *string
	UnitPrice        decimal.Decimal
	InitialStock     *int
	ReorderThreshold *int
	RackLocation     *string
	ImageURL         *string
}

// UpdatePartInput holds optional metadata changes. Stock is not editable here.
type UpdatePartInput struct {
	PartName         *string
	Description      *string
	UnitPrice        *decimal.Decimal
	ReorderThreshold *int
	RackLocation     *string
	ImageURL         *string
}

// LineItem is one part quantity inside a sale or purchase order.
type LineItem struct {
	PartID   uuid.UUID
	Quantity int
}

// Reference identifies the aggregate a batch of lines belongs to.
type Reference struct {
	Type enums.AuditEntityType
	ID   string
}

// ServiceParams configure the inventory service.
type ServiceParams struct {
	Repo                    *Repository
	Alerts                  alertManager
	Audit                   auditLedger
	Tx                      txRunner
	Locks                   *keylock.Locker
	Metrics                 *metrics.InventoryMetrics
	DefaultReorderThreshold int
}

// Service is the only writer of part stock. Every mutation runs in one
// transaction together with its audit entry and alert re-evaluation.
type Service struct {
	repo             *Repository
	alerts           alertManager
	audit            auditLedger
	tx               txRunner
	locks            *keylock.Locker
	metrics          *metrics.InventoryMetrics
	defaultThreshold int
}

// NewService builds the inventory service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("parts repository required")
	}
	if params.Alerts == nil {
		return nil, fmt.Errorf("alert manager required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit ledger required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	locks := params.Locks
	if locks == nil {
		locks = keylock.New()
	}
	// zero is a valid floor: alert only once stock runs out
	threshold := params.DefaultReorderThreshold
	if threshold < 0 {
		return nil, fmt.Errorf("default reorder threshold must not be negative, got %d", threshold)
	}
	return &Service{
		repo:             params.Repo,
		alerts:           params.Alerts,
		audit:            params.Audit,
		tx:               params.Tx,
		locks:            locks,
		metrics:          params.Metrics,
		defaultThreshold: threshold,
	}, nil
}

// CreatePart registers a part and opens an alert right away when it starts
// at or below its threshold.
func (s *Service) CreatePart(ctx context.Context, actor string, input CreatePartInput) (*PartDTO, error) {
	code := strings.TrimSpace(input.PartCode)
	name := strings.TrimSpace(input.PartName)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part code required")
	}
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part name required")
	}
	if input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}

	part := &models.Part{
		PartCode:         code,
		PartName:         name,
		Description:      input.Description,
		UnitPrice:        input.UnitPrice,
		ReorderThreshold: s.defaultThreshold,
		RackLocation:     input.RackLocation,
		ImageURL:         input.ImageURL,
	}
	if input.InitialStock != nil {
		if *input.InitialStock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "initial stock cannot be negative")
		}
		part.CurrentStock = *input.InitialStock
	}
	if input.ReorderThreshold != nil {
		if *input.ReorderThreshold < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "reorder threshold cannot be negative")
		}
		part.ReorderThreshold = *input.ReorderThreshold
	}

	var outcome alerts.Outcome
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		exists, err := repo.ExistsByCode(ctx, code)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check part code")
		}
		if exists {
			return pkgerrors.Newf(pkgerrors.CodeConflict, "part code %s already registered", code)
		}
		if err := repo.Create(ctx, part); err != nil {
			if isPartCodeViolation(err) {
				return pkgerrors.Wrapf(pkgerrors.CodeConflict, err, "part code %s already registered", code)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create part")
		}

		created := snapshot(part)
		if _, err := s.audit.Record(ctx, tx, audit.Entry{
			Actor:      actor,
			Action:     enums.AuditActionPartCreated,
			EntityType: enums.AuditEntityPart,
			EntityID:   part.ID.String(),
			Details:    fmt.Sprintf("Created part %s", part.PartCode),
			NewValue:   &created,
		}); err != nil {
			return err
		}

		outcome, err = s.alerts.Evaluate(ctx, tx, actor, snapshotOf(part))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.alerts.Observe(outcome)

	dto := toPartDTO(part)
	return &dto, nil
}

// UpdatePartDetails edits non-stock metadata. A threshold change re-evaluates
// the part's alert state in the same transaction.
func (s *Service) UpdatePartDetails(ctx context.Context, actor string, partID uuid.UUID, input UpdatePartInput) (*PartDTO, error) {
	if partID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part id required")
	}
	if input.PartName != nil && strings.TrimSpace(*input.PartName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part name cannot be blank")
	}
	if input.UnitPrice != nil && input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}
	if input.ReorderThreshold != nil && *input.ReorderThreshold < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reorder threshold cannot be negative")
	}

	release, err := s.locks.Lock(ctx, partID.String())
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		part    *models.Part
		outcome alerts.Outcome
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		part, err = s.loadForUpdate(ctx, repo, partID)
		if err != nil {
			return err
		}

		before := snapshot(part)
		thresholdChanged := input.ReorderThreshold != nil && *input.ReorderThreshold != part.ReorderThreshold
		applyUpdate(part, input)

		if err := repo.UpdateDetails(ctx, part); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update part")
		}

		after := snapshot(part)
		if _, err := s.audit.Record(ctx, tx, audit.Entry{
			Actor:      actor,
			Action:     enums.AuditActionPartUpdated,
			EntityType: enums.AuditEntityPart,
			EntityID:   part.ID.String(),
			Details:    fmt.Sprintf("Updated part %s", part.PartCode),
			OldValue:   &before,
			NewValue:   &after,
		}); err != nil {
			return err
		}

		if !thresholdChanged {
			return nil
		}
		outcome, err = s.alerts.Evaluate(ctx, tx, actor, snapshotOf(part))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.alerts.Observe(outcome)

	dto := toPartDTO(part)
	return &dto, nil
}

func applyUpdate(part *models.Part, input UpdatePartInput) {
	if input.PartName != nil {
		part.PartName = strings.TrimSpace(*input.PartName)
	}
	if input.Description != nil {
		part.Description = input.Description
	}
	if input.UnitPrice != nil {
		part.UnitPrice = *input.UnitPrice
	}
	if input.ReorderThreshold != nil {
		part.ReorderThreshold = *input.ReorderThreshold
	}
	if input.RackLocation != nil {
		part.RackLocation = input.RackLocation
	}
	if input.ImageURL != nil {
		part.ImageURL = input.ImageURL
	}
}

// DeletePart removes the part after recording its final state. Alerts and
// audit entries that reference it are kept.
func (s *Service) DeletePart(ctx context.Context, actor string, partID uuid.UUID) error {
	if partID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "part id required")
	}

	release, err := s.locks.Lock(ctx, partID.String())
	if err != nil {
		return err
	}
	defer release()

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		part, err := s.loadForUpdate(ctx, repo, partID)
		if err != nil {
			return err
		}

		final := snapshot(part)
		if _, err := s.audit.Record(ctx, tx, audit.Entry{
			Actor:      actor,
			Action:     enums.AuditActionPartDeleted,
			EntityType: enums.AuditEntityPart,
			EntityID:   part.ID.String(),
			Details:    fmt.Sprintf("Deleted part %s", part.PartCode),
			OldValue:   &final,
		}); err != nil {
			return err
		}

		deleted, err := repo.Delete(ctx, partID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete part")
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "part not found")
		}
		return nil
	})
}

// ReceiveStock adds qty units to a part.
func (s *Service) ReceiveStock(ctx context.Context, actor string, partID uuid.UUID, qty int) (*PartDTO, error) {
	parts, err := s.mutate(ctx, actor, opReceive, nil, []LineItem{{PartID: partID, Quantity: qty}})
	if err != nil {
		return nil, err
	}
	return &parts[0], nil
}

// DeductStock removes qty units from a part. It fails with INSUFFICIENT_STOCK,
// changing nothing, when qty exceeds the current stock.
func (s *Service) DeductStock(ctx context.Context, actor string, partID uuid.UUID, qty int) (*PartDTO, error) {
	parts, err := s.mutate(ctx, actor, opDeduct, nil, []LineItem{{PartID: partID, Quantity: qty}})
	if err != nil {
		return nil, err
	}
	return &parts[0], nil
}

// DeductLines deducts every line of a sale in one transaction. One failing
// line aborts the whole sale.
func (s *Service) DeductLines(ctx context.Context, actor string, ref Reference, lines []LineItem) ([]PartDTO, error) {
	if err := validateReference(ref); err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, opDeduct, &ref, lines)
}

// ReceiveLines books every line of a purchase-order receipt in one transaction.
func (s *Service) ReceiveLines(ctx context.Context, actor string, ref Reference, lines []LineItem) ([]PartDTO, error) {
	if err := validateReference(ref); err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, opReceive, &ref, lines)
}

func validateReference(ref Reference) error {
	if !ref.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "reference type required")
	}
	if strings.TrimSpace(ref.ID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reference id required")
	}
	return nil
}

// mutate locks every touched part in id order, in process and at row level,
// then applies the lines inside one transaction.
func (s *Service) mutate(ctx context.Context, actor, op string, ref *Reference, lines []LineItem) (result []PartDTO, err error) {
	units := 0
	defer func() { s.metrics.ObserveMutation(op, units, err) }()

	merged, err := mergeLines(lines)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(merged))
	for _, line := range merged {
		keys = append(keys, line.PartID.String())
	}

	release, err := s.locks.LockAll(ctx, keys)
	if err != nil {
		return nil, err
	}
	defer release()

	result = make([]PartDTO, 0, len(merged))
	outcomes := make([]alerts.Outcome, 0, len(merged))
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for _, line := range merged {
			part, outcome, err := s.applyLine(ctx, tx, actor, op, ref, line)
			if err != nil {
				return err
			}
			result = append(result, toPartDTO(part))
			outcomes = append(outcomes, outcome)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.alerts.Observe(outcomes...)
	for _, line := range merged {
		units += line.Quantity
	}
	return result, nil
}

func (s *Service) applyLine(ctx context.Context, tx *gorm.DB, actor, op string, ref *Reference, line LineItem) (*models.Part, alerts.Outcome, error) {
	repo := s.repo.WithTx(tx)

	part, err := s.loadForUpdate(ctx, repo, line.PartID)
	if err != nil {
		return nil, alerts.Outcome{}, err
	}
	oldStock := part.CurrentStock

	var (
		newStock int
		action   enums.AuditAction
		verb     string
	)
	switch op {
	case opReceive:
		newStock, err = repo.AddStock(ctx, part.ID, line.Quantity)
		if err != nil {
			return nil, alerts.Outcome{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add stock")
		}
		action, verb = enums.AuditActionStockReceived, "Received"
	case opDeduct:
		if line.Quantity > oldStock {
			return nil, alerts.Outcome{}, insufficientStock(part, line.Quantity)
		}
		var ok bool
		newStock, ok, err = repo.DeductStock(ctx, part.ID, line.Quantity)
		if err != nil {
			return nil, alerts.Outcome{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deduct stock")
		}
		if !ok {
			return nil, alerts.Outcome{}, insufficientStock(part, line.Quantity)
		}
		action, verb = enums.AuditActionStockDeducted, "Deducted"
	default:
		return nil, alerts.Outcome{}, pkgerrors.Newf(pkgerrors.CodeInternal, "unknown stock operation %q", op)
	}
	part.CurrentStock = newStock

	details := fmt.Sprintf("%s %d units of %s", verb, line.Quantity, part.PartCode)
	if ref != nil {
		details = fmt.Sprintf("%s (%s %s)", details, ref.Type, ref.ID)
	}
	oldValue, newValue := audit.StockChange(oldStock, newStock)
	if _, err := s.audit.Record(ctx, tx, audit.Entry{
		Actor:      actor,
		Action:     action,
		EntityType: enums.AuditEntityPart,
		EntityID:   part.ID.String(),
		Details:    details,
		OldValue:   oldValue,
		NewValue:   newValue,
	}); err != nil {
		return nil, alerts.Outcome{}, err
	}

	outcome, err := s.alerts.Evaluate(ctx, tx, actor, snapshotOf(part))
	if err != nil {
		return nil, alerts.Outcome{}, err
	}
	return part, outcome, nil
}

func insufficientStock(part *models.Part, requested int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock,
		fmt.Sprintf("insufficient stock for part %s: requested %d, available %d", part.PartCode, requested, part.CurrentStock)).
		WithDetails(map[string]any{
			"part_id":   part.ID,
			"part_code": part.PartCode,
			"requested": requested,
			"available": part.CurrentStock,
		})
}

// mergeLines validates lines, folds repeated parts together, and orders the
// result by part id so row locks are always taken in the same order.
func mergeLines(lines []LineItem) ([]LineItem, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line item required")
	}
	totals := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		if line.PartID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "part id required")
		}
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"part_id": line.PartID, "quantity": line.Quantity})
		}
		totals[line.PartID] += line.Quantity
	}
	merged := make([]LineItem, 0, len(totals))
	for id, qty := range totals {
		merged = append(merged, LineItem{PartID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].PartID.String() < merged[j].PartID.String()
	})
	return merged, nil
}

// ReorderPart records a reorder request for qty units. Stock is unchanged until
// the goods are received.
func (s *Service) ReorderPart(ctx context.Context, actor string, partID uuid.UUID, qty int) error {
	if partID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "part id required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		part, err := s.load(ctx, s.repo.WithTx(tx), partID)
		if err != nil {
			return err
		}
		_, err = s.audit.Record(ctx, tx, audit.Entry{
			Actor:      actor,
			Action:     enums.AuditActionReorderRequested,
			EntityType: enums.AuditEntityPart,
			EntityID:   part.ID.String(),
			Details:    fmt.Sprintf("Reorder requested: %d units of %s (stock %d, threshold %d)", qty, part.PartCode, part.CurrentStock, part.ReorderThreshold),
			OldValue:   audit.StockValue(part.CurrentStock),
		})
		return err
	})
}

// GetPart returns one part.
func (s *Service) GetPart(ctx context.Context, partID uuid.UUID) (*PartDTO, error) {
	if partID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part id required")
	}
	part, err := s.load(ctx, s.repo, partID)
	if err != nil {
		return nil, err
	}
	dto := toPartDTO(part)
	return &dto, nil
}

// ListParts pages through the catalog, newest first.
func (s *Service) ListParts(ctx context.Context, params pagination.Params) (*PartListResult, error) {
	query := listParams{Limit: params.Limit}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		if _, err := uuid.Parse(cursor.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list parts")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &PartListResult{Items: toPartDTOs(rows), Cursor: cursor}, nil
}

// SearchParts matches name, code, or rack location. A blank query matches nothing.
func (s *Service) SearchParts(ctx context.Context, q string) ([]PartDTO, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []PartDTO{}, nil
	}
	parts, err := s.repo.Search(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search parts")
	}
	return toPartDTOs(parts), nil
}

// Stats returns catalog totals and the number of OPEN alerts.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	total, value, err := s.repo.Valuation(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "compute inventory value")
	}
	open, err := s.alerts.CountOpen(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		TotalParts:     total,
		InventoryValue: value.Round(2),
		LowStockAlerts: open,
	}, nil
}

// GetPartAuditTrail returns the audit entries recorded against a part, newest
// first. It works for deleted parts too.
func (s *Service) GetPartAuditTrail(ctx context.Context, partID uuid.UUID) ([]models.AuditLogEntry, error) {
	if partID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part id required")
	}
	return s.audit.QueryByEntity(ctx, enums.AuditEntityPart, partID.String())
}

func (s *Service) load(ctx context.Context, repo *Repository, partID uuid.UUID) (*models.Part, error) {
	part, err := repo.FindByID(ctx, partID)
	return part, mapLoadError(err)
}

func (s *Service) loadForUpdate(ctx context.Context, repo *Repository, partID uuid.UUID) (*models.Part, error) {
	part, err := repo.FindByIDForUpdate(ctx, partID)
	return part, mapLoadError(err)
}

func mapLoadError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "part not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load part")
}

func snapshotOf(part *models.Part) alerts.Snapshot {
	return alerts.Snapshot{
		PartID:    part.ID,
		PartCode:  part.PartCode,
		Stock:     part.CurrentStock,
		Threshold: part.ReorderThreshold,
	}
}

func isPartCodeViolation(err error) bool {
	for _, name := range partCodeConstraints {
		if db.IsUniqueViolation(err, name) {
			return true
		}
	}
	return false
}
