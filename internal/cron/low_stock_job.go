package cron

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/MalayathiGeetha/Motor-Part/internal/alerts"
	"github.com/MalayathiGeetha/Motor-Part/internal/audit"
	"github.com/MalayathiGeetha/Motor-Part/internal/inventory"
	"github.com/MalayathiGeetha/Motor-Part/pkg/db/models"
	"github.com/MalayathiGeetha/Motor-Part/pkg/keylock"
	"github.com/MalayathiGeetha/Motor-Part/pkg/logger"
)

const lowStockJobName = "low-stock-reconcile"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type partLister interface {
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

type lockedPartReader interface {
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Part, error)
}

type alertOpener interface {
	OpenIfAbsent(ctx context.Context, tx *gorm.DB, actor string, snap alerts.Snapshot) (*models.InventoryAlert, error)
	Observe(outcomes ...alerts.Outcome)
}

type partReaderFactory func(tx *gorm.DB) lockedPartReader

// LowStockJobParams configure the low-stock reconciliation job.
type LowStockJobParams struct {
	Logger *logger.Logger
	DB     txRunner
	Parts  partLister
	Alerts alertOpener
	Locks  *keylock.Locker
	// PartReaderFactory binds the row-locking reader to a transaction.
	// Defaults to inventory.NewRepository.
	PartReaderFactory partReaderFactory
}

func defaultPartReader(tx *gorm.DB) lockedPartReader {
	return inventory.NewRepository(tx)
}

// NewLowStockJob builds the job that opens alerts for parts sitting at or
// below their threshold without an active alert.
func NewLowStockJob(params LowStockJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Parts == nil {
		return nil, fmt.Errorf("parts lister required")
	}
	if params.Alerts == nil {
		return nil, fmt.Errorf("alert manager required")
	}
	locks := params.Locks
	if locks == nil {
		locks = keylock.New()
	}
	factory := params.PartReaderFactory
	if factory == nil {
		factory = defaultPartReader
	}
	return &lowStockJob{
		logg:    params.Logger,
		db:      params.DB,
		parts:   params.Parts,
		alerts:  params.Alerts,
		locks:   locks,
		readers: factory,
	}, nil
}

type lowStockJob struct {
	logg    *logger.Logger
	db      txRunner
	parts   partLister
	alerts  alertOpener
	locks   *keylock.Locker
	readers partReaderFactory
}

func (j *lowStockJob) Name() string { return lowStockJobName }

// Run scans every part. Cancellation stops the scan between parts so a cycle
// never outlives its lock lease; unscanned parts are picked up next cycle.
func (j *lowStockJob) Run(ctx context.Context) error {
	ids, err := j.parts.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("list parts: %w", err)
	}

	var errs []error
	opened, scanned := 0, 0
	for _, id := range ids {
		if ctx.Err() != nil {
			errs = append(errs, fmt.Errorf("stopped after %d of %d parts: %w", scanned, len(ids), ctx.Err()))
			break
		}
		scanned++
		created, err := j.reconcilePart(ctx, id)
		if err != nil {
			partCtx := j.logg.WithPartID(ctx, id.String())
			j.logg.Error(partCtx, "low stock reconcile failed for part", err)
			errs = append(errs, fmt.Errorf("part %s: %w", id, err))
			continue
		}
		if created {
			opened++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"listed":  len(ids),
		"scanned": scanned,
		"opened":  opened,
		"failed":  len(errs),
	})
	j.logg.Info(logCtx, "low stock reconcile loop complete")
	return multierr.Combine(errs...)
}

func (j *lowStockJob) reconcilePart(ctx context.Context, partID uuid.UUID) (bool, error) {
	release, err := j.locks.Lock(ctx, partID.String())
	if err != nil {
		return false, err
	}
	defer release()

	var opened *models.InventoryAlert
	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		part, err := j.readers(tx).FindByIDForUpdate(ctx, partID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// deleted since the scan started
				return nil
			}
			return err
		}
		if !part.IsLow() {
			return nil
		}
		opened, err = j.alerts.OpenIfAbsent(ctx, tx, audit.SystemActor, alerts.Snapshot{
			PartID:    part.ID,
			PartCode:  part.PartCode,
			Stock:     part.CurrentStock,
			Threshold: part.ReorderThreshold,
		})
		return err
	})
	if err != nil || opened == nil {
		return false, err
	}
	j.alerts.Observe(alerts.Outcome{Opened: opened})
	return true, nil
}
