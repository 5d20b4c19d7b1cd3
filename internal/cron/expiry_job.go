package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/escrowmarket/internal/escrow"
	"github.com/angelmondragon/escrowmarket/pkg/logger"
)

const (
	defaultExpiryBatch = 200
	maxExpiryBatches   = 50
)

type overdueExpirer interface {
	ExpireOverdue(ctx context.Context, limit int) (escrow.ExpiryReport, error)
}

// OrderExpiryJobParams configure the order expiry sweep.
type OrderExpiryJobParams struct {
	Logger    *logger.Logger
	Escrow    overdueExpirer
	BatchSize int
}

// NewOrderExpiryJob builds the job that expires submitted orders whose
// payment window has passed.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Escrow == nil {
		return nil, fmt.Errorf("escrow service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatch
	}
	return &orderExpiryJob{logg: params.Logger, escrow: params.Escrow, batch: batch}, nil
}

type orderExpiryJob struct {
	logg   *logger.Logger
	escrow overdueExpirer
	batch  int
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

// Run sweeps in batches until a batch comes back short or expires nothing.
func (j *orderExpiryJob) Run(ctx context.Context) error {
	var total escrow.ExpiryReport
	var runErr error
	for i := 0; i < maxExpiryBatches; i++ {
		report, err := j.escrow.ExpireOverdue(ctx, j.batch)
		total.Scanned += report.Scanned
		total.Expired += report.Expired
		total.Skipped += report.Skipped
		if err != nil {
			runErr = fmt.Errorf("expire overdue orders: %w", err)
			break
		}
		if report.Scanned < j.batch || report.Expired == 0 {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"orders_scanned": total.Scanned,
		"orders_expired": total.Expired,
		"orders_skipped": total.Skipped,
	})
	j.logg.Info(logCtx, "order expiry sweep complete")
	return runErr
}
