package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MalayathiGeetha/Motor-Part/internal/audit"
	"github.com/MalayathiGeetha/Motor-Part/pkg/db"
	"github.com/MalayathiGeetha/Motor-Part/pkg/db/models"
	"github.com/MalayathiGeetha/Motor-Part/pkg/enums"
	pkgerrors "github.com/MalayathiGeetha/Motor-Part/pkg/errors"
	"github.com/MalayathiGeetha/Motor-Part/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type auditRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry audit.Entry) (*models.AuditLogEntry, error)
}

// Snapshot is the stock state an evaluation is based on. Callers take it while
// holding the part's row lock.
type Snapshot struct {
	PartID    uuid.UUID
	PartCode  string
	Stock     int
	Threshold int
}

// Outcome reports the transitions an evaluation performed.
type Outcome struct {
	Opened   *models.InventoryAlert
	Resolved []models.InventoryAlert
}

// ManagerParams configure the alert manager.
type ManagerParams struct {
	Repo    *Repository
	Audit   auditRecorder
	Tx      txRunner
	Metrics *metrics.InventoryMetrics
}

// Manager owns the low-stock alert lifecycle:
//
//	(none) -> OPEN -> ACKNOWLEDGED -> RESOLVED
//	          OPEN --------------------> RESOLVED
//
// At most one OPEN or ACKNOWLEDGED alert exists per part.
type Manager struct {
	repo    *Repository
	audit   auditRecorder
	tx      txRunner
	metrics *metrics.InventoryMetrics
	now     func() time.Time
}

// NewManager builds an alert manager.
func NewManager(params ManagerParams) (*Manager, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("alerts repository required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &Manager{
		repo:    params.Repo,
		audit:   params.Audit,
		tx:      params.Tx,
		metrics: params.Metrics,
		now:     time.Now,
	}, nil
}

// Evaluate reconciles alert state with snap inside the caller's transaction:
// a low part gets an OPEN alert unless one is already live, and a part above
// its threshold has every live alert resolved.
func (m *Manager) Evaluate(ctx context.Context, tx *gorm.DB, actor string, snap Snapshot) (Outcome, error) {
	if snap.Stock <= snap.Threshold {
		opened, err := m.OpenIfAbsent(ctx, tx, actor, snap)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Opened: opened}, nil
	}

	resolved, err := m.resolveActive(ctx, tx, actor, snap)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Resolved: resolved}, nil
}

// OpenIfAbsent is the detection branch of Evaluate. It returns nil when the
// part is not low or already has a live alert.
func (m *Manager) OpenIfAbsent(ctx context.Context, tx *gorm.DB, actor string, snap Snapshot) (*models.InventoryAlert, error) {
	if snap.Stock > snap.Threshold {
		return nil, nil
	}
	repo := m.repo.WithTx(tx)

	active, err := repo.FindActiveByPart(ctx, snap.PartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active alerts")
	}
	if len(active) > 0 {
		return nil, nil
	}

	alert := &models.InventoryAlert{
		PartID:     snap.PartID,
		StockLevel: snap.Stock,
		Threshold:  snap.Threshold,
		Status:     enums.AlertStatusOpen,
		DetectedAt: m.now().UTC(),
	}
	if err := repo.Create(ctx, alert); err != nil {
		if db.IsUniqueViolation(err, "ux_inventory_alerts_active_part") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "part already has an active alert")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create alert")
	}

	if _, err := m.audit.Record(ctx, tx, audit.Entry{
		Actor:      actor,
		Action:     enums.AuditActionLowStockAlert,
		EntityType: enums.AuditEntityAlert,
		EntityID:   alert.ID.String(),
		Details:    fmt.Sprintf("Part %s (%s): stock %d <= threshold %d", snap.PartCode, snap.PartID, snap.Stock, snap.Threshold),
		NewValue:   audit.StockValue(snap.Stock),
	}); err != nil {
		return nil, err
	}

	return alert, nil
}

func (m *Manager) resolveActive(ctx context.Context, tx *gorm.DB, actor string, snap Snapshot) ([]models.InventoryAlert, error) {
	repo := m.repo.WithTx(tx)

	active, err := repo.FindActiveByPart(ctx, snap.PartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active alerts")
	}
	if len(active) == 0 {
		return nil, nil
	}

	now := m.now().UTC()
	if _, err := repo.ResolveActiveByPart(ctx, snap.PartID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve alerts")
	}

	for i := range active {
		previous := string(active[i].Status)
		active[i].Status = enums.AlertStatusResolved
		active[i].ResolvedAt = &now

		resolved := string(enums.AlertStatusResolved)
		if _, err := m.audit.Record(ctx, tx, audit.Entry{
			Actor:      actor,
			Action:     enums.AuditActionLowStockResolved,
			EntityType: enums.AuditEntityAlert,
			EntityID:   active[i].ID.String(),
			Details:    fmt.Sprintf("Part %s (%s): stock %d > threshold %d", snap.PartCode, snap.PartID, snap.Stock, snap.Threshold),
			OldValue:   &previous,
			NewValue:   &resolved,
		}); err != nil {
			return nil, err
		}
	}
	return active, nil
}

// Acknowledge moves an OPEN alert to ACKNOWLEDGED. Alerts already ACKNOWLEDGED
// or RESOLVED are returned unchanged so operator retries are harmless.
func (m *Manager) Acknowledge(ctx context.Context, actor string, alertID uuid.UUID) (*models.InventoryAlert, error) {
	if alertID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "alert id required")
	}

	var (
		result       *models.InventoryAlert
		acknowledged bool
	)
	err := m.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := m.repo.WithTx(tx)

		alert, err := repo.FindByID(ctx, alertID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "alert not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load alert")
		}
		result = alert
		if alert.Status != enums.AlertStatusOpen {
			return nil
		}

		now := m.now().UTC()
		updated, err := repo.MarkAcknowledged(ctx, alertID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acknowledge alert")
		}
		if !updated {
			return nil
		}
		alert.Status = enums.AlertStatusAcknowledged
		alert.AcknowledgedAt = &now

		previous := string(enums.AlertStatusOpen)
		next := string(enums.AlertStatusAcknowledged)
		if _, err := m.audit.Record(ctx, tx, audit.Entry{
			Actor:      actor,
			Action:     enums.AuditActionAlertAcknowledged,
			EntityType: enums.AuditEntityAlert,
			EntityID:   alert.ID.String(),
			Details:    fmt.Sprintf("Alert for part %s acknowledged", alert.PartID),
			OldValue:   &previous,
			NewValue:   &next,
		}); err != nil {
			return err
		}
		acknowledged = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if acknowledged {
		m.metrics.IncAlertTransition(string(enums.AlertStatusAcknowledged))
	}
	return result, nil
}

// Observe counts the transitions in outcomes. Evaluate and OpenIfAbsent run
// in the caller's transaction, so callers report outcomes once it commits.
func (m *Manager) Observe(outcomes ...Outcome) {
	for _, out := range outcomes {
		if out.Opened != nil {
			m.metrics.IncAlertTransition(string(enums.AlertStatusOpen))
		}
		for range out.Resolved {
			m.metrics.IncAlertTransition(string(enums.AlertStatusResolved))
		}
	}
}

// ListOpen returns OPEN alerts, newest first.
func (m *Manager) ListOpen(ctx context.Context) ([]models.InventoryAlert, error) {
	alerts, err := m.repo.ListByStatus(ctx, enums.AlertStatusOpen)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list open alerts")
	}
	return alerts, nil
}

// ListActive returns OPEN and ACKNOWLEDGED alerts, newest first.
func (m *Manager) ListActive(ctx context.Context) ([]models.InventoryAlert, error) {
	alerts, err := m.repo.ListByStatus(ctx, enums.ActiveAlertStatuses...)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active alerts")
	}
	return alerts, nil
}

// ListForPart returns the full alert history of a part.
func (m *Manager) ListForPart(ctx context.Context, partID uuid.UUID) ([]models.InventoryAlert, error) {
	if partID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part id required")
	}
	alerts, err := m.repo.ListByPart(ctx, partID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list part alerts")
	}
	return alerts, nil
}

// CountOpen returns the number of OPEN alerts.
func (m *Manager) CountOpen(ctx context.Context) (int64, error) {
	count, err := m.repo.CountByStatus(ctx, enums.AlertStatusOpen)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count open alerts")
	}
	return count, nil
}
