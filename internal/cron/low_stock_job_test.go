package cron

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/MalayathiGeetha/Motor-Part/internal/alerts"
	"github.com/MalayathiGeetha/Motor-Part/internal/audit"
	"github.com/MalayathiGeetha/Motor-Part/internal/inventory"
	"github.com/MalayathiGeetha/Motor-Part/pkg/db"
	"github.com/MalayathiGeetha/Motor-Part/pkg/db/models"
	"github.com/MalayathiGeetha/Motor-Part/pkg/enums"
	"github.com/MalayathiGeetha/Motor-Part/pkg/logger"
	"github.com/MalayathiGeetha/Motor-Part/pkg/metrics"
)

type lowStockFixture struct {
	conn    *gorm.DB
	job     Job
	manager *alerts.Manager
	audit   *audit.Service
}

func newLowStockFixture(t *testing.T) *lowStockFixture {
	t.Helper()
	conn := openTestDB(t)
	client := db.NewFromConn(conn)
	auditSvc, err := audit.NewService(audit.NewRepository(conn))
	require.NoError(t, err)
	manager, err := alerts.NewManager(alerts.ManagerParams{
		Repo:  alerts.NewRepository(conn),
		Audit: auditSvc,
		Tx:    client,
	})
	require.NoError(t, err)
	job, err := NewLowStockJob(LowStockJobParams{
		Logger: logger.New(logger.Options{ServiceName: "cron-test"}),
		DB:     client,
		Parts:  inventory.NewRepository(conn),
		Alerts: manager,
	})
	require.NoError(t, err)
	return &lowStockFixture{conn: conn, job: job, manager: manager, audit: auditSvc}
}

// seedPart writes straight to the table, the way drift appears when stock was
// edited outside the engine.
func (f *lowStockFixture) seedPart(t *testing.T, code string, stock, threshold int) *models.Part {
	t.Helper()
	part := &models.Part{
		PartCode:         code,
		PartName:         "Part " + code,
		UnitPrice:        decimal.NewFromInt(5),
		CurrentStock:     stock,
		ReorderThreshold: threshold,
	}
	require.NoError(t, f.conn.Create(part).Error)
	return part
}

func TestLowStockJobOpensMissingAlerts(t *testing.T) {
	f := newLowStockFixture(t)
	ctx := context.Background()
	low := f.seedPart(t, "LS-1", 2, 5)
	f.seedPart(t, "LS-2", 50, 5)
	edge := f.seedPart(t, "LS-3", 5, 5)

	require.NoError(t, f.job.Run(ctx))

	open, err := f.manager.ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 2)
	partIDs := []uuid.UUID{open[0].PartID, open[1].PartID}
	assert.ElementsMatch(t, []uuid.UUID{low.ID, edge.ID}, partIDs)

	entries, err := f.audit.QueryByEntity(ctx, enums.AuditEntityAlert, open[0].ID.String())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.SystemActor, entries[0].Actor)
	assert.Equal(t, enums.AuditActionLowStockAlert, entries[0].Action)
}

func TestLowStockJobIsIdempotent(t *testing.T) {
	f := newLowStockFixture(t)
	ctx := context.Background()
	f.seedPart(t, "ID-1", 0, 3)

	require.NoError(t, f.job.Run(ctx))
	require.NoError(t, f.job.Run(ctx))

	active, err := f.manager.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	var auditCount int64
	require.NoError(t, f.conn.Model(&models.AuditLogEntry{}).
		Where("action = ?", enums.AuditActionLowStockAlert).
		Count(&auditCount).Error)
	assert.Equal(t, int64(1), auditCount)
}

func TestLowStockJobSkipsAcknowledgedParts(t *testing.T) {
	f := newLowStockFixture(t)
	ctx := context.Background()
	f.seedPart(t, "ACK-1", 1, 3)

	require.NoError(t, f.job.Run(ctx))
	open, err := f.manager.ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	_, err = f.manager.Acknowledge(ctx, "clerk", open[0].ID)
	require.NoError(t, err)

	require.NoError(t, f.job.Run(ctx))
	active, err := f.manager.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, enums.AlertStatusAcknowledged, active[0].Status)
}

type stubLister struct {
	ids []uuid.UUID
	err error
}

func (s stubLister) ListIDs(context.Context) ([]uuid.UUID, error) { return s.ids, s.err }

type stubReader struct {
	parts map[uuid.UUID]*models.Part
}

func (s stubReader) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*models.Part, error) {
	part, ok := s.parts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return part, nil
}

type flakyOpener struct {
	failFor uuid.UUID
	opened  []uuid.UUID
}

func (f *flakyOpener) OpenIfAbsent(_ context.Context, _ *gorm.DB, _ string, snap alerts.Snapshot) (*models.InventoryAlert, error) {
	if snap.PartID == f.failFor {
		return nil, errors.New("boom")
	}
	f.opened = append(f.opened, snap.PartID)
	return &models.InventoryAlert{PartID: snap.PartID}, nil
}

func (f *flakyOpener) Observe(...alerts.Outcome) {}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func TestLowStockJobContinuesPastFailures(t *testing.T) {
	bad, good, gone := uuid.New(), uuid.New(), uuid.New()
	reader := stubReader{parts: map[uuid.UUID]*models.Part{
		bad:  {ID: bad, PartCode: "BAD", CurrentStock: 0, ReorderThreshold: 1},
		good: {ID: good, PartCode: "GOOD", CurrentStock: 1, ReorderThreshold: 1},
	}}
	opener := &flakyOpener{failFor: bad}

	job, err := NewLowStockJob(LowStockJobParams{
		Logger:            logger.New(logger.Options{ServiceName: "cron-test"}),
		DB:                passthroughTx{},
		Parts:             stubLister{ids: []uuid.UUID{bad, gone, good}},
		Alerts:            opener,
		PartReaderFactory: func(*gorm.DB) lockedPartReader { return reader },
	})
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), bad.String())
	assert.Equal(t, []uuid.UUID{good}, opener.opened)
}

func TestLowStockJobListFailure(t *testing.T) {
	job, err := NewLowStockJob(LowStockJobParams{
		Logger: logger.New(logger.Options{ServiceName: "cron-test"}),
		DB:     passthroughTx{},
		Parts:  stubLister{err: errors.New("db down")},
		Alerts: &flakyOpener{},
	})
	require.NoError(t, err)
	assert.Error(t, job.Run(context.Background()))
}

func TestNewLowStockJobValidatesParams(t *testing.T) {
	_, err := NewLowStockJob(LowStockJobParams{})
	assert.Error(t, err)
}

type cancellingOpener struct {
	cancel context.CancelFunc
	opened []uuid.UUID
}

func (c *cancellingOpener) OpenIfAbsent(_ context.Context, _ *gorm.DB, _ string, snap alerts.Snapshot) (*models.InventoryAlert, error) {
	c.opened = append(c.opened, snap.PartID)
	c.cancel()
	return &models.InventoryAlert{PartID: snap.PartID}, nil
}

func (c *cancellingOpener) Observe(...alerts.Outcome) {}

func TestLowStockJobStopsBetweenPartsWhenCancelled(t *testing.T) {
	first, second, third := uuid.New(), uuid.New(), uuid.New()
	reader := stubReader{parts: map[uuid.UUID]*models.Part{
		first:  {ID: first, PartCode: "C-1", CurrentStock: 0, ReorderThreshold: 1},
		second: {ID: second, PartCode: "C-2", CurrentStock: 0, ReorderThreshold: 1},
		third:  {ID: third, PartCode: "C-3", CurrentStock: 0, ReorderThreshold: 1},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	opener := &cancellingOpener{cancel: cancel}

	job, err := NewLowStockJob(LowStockJobParams{
		Logger:            logger.New(logger.Options{ServiceName: "cron-test"}),
		DB:                passthroughTx{},
		Parts:             stubLister{ids: []uuid.UUID{first, second, third}},
		Alerts:            opener,
		PartReaderFactory: func(*gorm.DB) lockedPartReader { return reader },
	})
	require.NoError(t, err)

	err = job.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "stopped after 1 of 3 parts")
	assert.Equal(t, []uuid.UUID{first}, opener.opened)
}

func TestDeductionsRacingReconcileOpenOneAlert(t *testing.T) {
	conn := openTestDB(t)
	client := db.NewFromConn(conn)
	reg := prometheus.NewRegistry()
	auditSvc, err := audit.NewService(audit.NewRepository(conn))
	require.NoError(t, err)
	manager, err := alerts.NewManager(alerts.ManagerParams{
		Repo:    alerts.NewRepository(conn),
		Audit:   auditSvc,
		Tx:      client,
		Metrics: metrics.NewInventoryMetrics(reg),
	})
	require.NoError(t, err)
	// separate lockers, like the api and cron-worker processes
	svc, err := inventory.NewService(inventory.ServiceParams{
		Repo:                    inventory.NewRepository(conn),
		Alerts:                  manager,
		Audit:                   auditSvc,
		Tx:                      client,
		DefaultReorderThreshold: 10,
	})
	require.NoError(t, err)
	job, err := NewLowStockJob(LowStockJobParams{
		Logger: logger.New(logger.Options{ServiceName: "cron-test"}),
		DB:     client,
		Parts:  inventory.NewRepository(conn),
		Alerts: manager,
	})
	require.NoError(t, err)

	ctx := context.Background()
	stock, threshold := 20, 10
	part, err := svc.CreatePart(ctx, "clerk", inventory.CreatePartInput{
		PartCode:         "RACE-1",
		PartName:         "Race part",
		UnitPrice:        decimal.NewFromInt(3),
		InitialStock:     &stock,
		ReorderThreshold: &threshold,
	})
	require.NoError(t, err)

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.DeductStock(ctx, "clerk", part.ID, 2)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, job.Run(ctx))
		}()
	}
	wg.Wait()

	active, err := alerts.NewRepository(conn).FindActiveByPart(ctx, part.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(active), 1)
	require.Len(t, active, 1)

	var auditCount int64
	require.NoError(t, conn.Model(&models.AuditLogEntry{}).
		Where("action = ?", enums.AuditActionLowStockAlert).
		Count(&auditCount).Error)
	assert.Equal(t, int64(1), auditCount)
	assert.Equal(t, 1.0, alertTransitions(t, reg, string(enums.AlertStatusOpen)))
}

func alertTransitions(t *testing.T, reg *prometheus.Registry, status string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != "motorshop_low_stock_alert_transitions_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "status" && label.GetValue() == status {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
