package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/escrowmarket/internal/escrow"
	"github.com/angelmondragon/escrowmarket/pkg/logger"
)

type scriptedExpirer struct {
	reports []escrow.ExpiryReport
	errs    []error
	limits  []int
}

func (s *scriptedExpirer) ExpireOverdue(_ context.Context, limit int) (escrow.ExpiryReport, error) {
	i := len(s.limits)
	s.limits = append(s.limits, limit)
	var report escrow.ExpiryReport
	if i < len(s.reports) {
		report = s.reports[i]
	}
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return report, err
}

func newExpiryJob(t *testing.T, expirer overdueExpirer, batch int) Job {
	t.Helper()
	job, err := NewOrderExpiryJob(OrderExpiryJobParams{Logger: logger.Nop(), Escrow: expirer, BatchSize: batch})
	if err != nil {
		t.Fatalf("NewOrderExpiryJob: %v", err)
	}
	return job
}

func TestOrderExpiryJobDrainsFullBatches(t *testing.T) {
	expirer := &scriptedExpirer{reports: []escrow.ExpiryReport{
		{Scanned: 2, Expired: 2},
		{Scanned: 2, Expired: 1, Skipped: 1},
		{Scanned: 1, Expired: 1},
	}}
	job := newExpiryJob(t, expirer, 2)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(expirer.limits) != 3 {
		t.Fatalf("expected 3 sweeps, got %d", len(expirer.limits))
	}
	for _, limit := range expirer.limits {
		if limit != 2 {
			t.Fatalf("expected batch size 2, got %d", limit)
		}
	}
}

func TestOrderExpiryJobStopsWhenNothingExpires(t *testing.T) {
	expirer := &scriptedExpirer{reports: []escrow.ExpiryReport{{Scanned: 2, Skipped: 2}}}
	if err := newExpiryJob(t, expirer, 2).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(expirer.limits) != 1 {
		t.Fatalf("expected a single sweep, got %d", len(expirer.limits))
	}
}

func TestOrderExpiryJobReturnsSweepError(t *testing.T) {
	expirer := &scriptedExpirer{
		reports: []escrow.ExpiryReport{{Scanned: 1}},
		errs:    []error{errors.New("db down")},
	}
	if err := newExpiryJob(t, expirer, 10).Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
