package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/boothkeeper/boothkeeper/internal/shared"
	"github.com/boothkeeper/boothkeeper/jobs"
)

// CacheBumper advances the report cache version.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// InvalidationQueue defers a cache bump to the worker.
type InvalidationQueue interface {
	EnqueueReportInvalidate(ctx context.Context, payload jobs.ReportInvalidatePayload) error
}

// ReportInvalidator bumps the report cache after writes. When Redis rejects
// the bump inline it is handed to the worker for retry.
type ReportInvalidator struct {
	cache  CacheBumper
	queue  InvalidationQueue
	logger *slog.Logger
}

// NewReportInvalidator constructs a ReportInvalidator. queue may be nil.
func NewReportInvalidator(cache CacheBumper, queue InvalidationQueue, logger *slog.Logger) *ReportInvalidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportInvalidator{cache: cache, queue: queue, logger: logger}
}

// Bump implements the catalog and conventions invalidator contract.
func (i *ReportInvalidator) Bump(ctx context.Context) error {
	err := i.cache.Bump(ctx)
	if err == nil {
		return nil
	}
	if i.queue == nil {
		return err
	}
	i.logger.Warn("inline cache bump failed, deferring to worker", slog.Any("error", err))
	payload := jobs.ReportInvalidatePayload{OwnerID: shared.OwnerID(ctx), Reason: "write"}
	if qerr := i.queue.EnqueueReportInvalidate(ctx, payload); qerr != nil {
		return fmt.Errorf("bump report cache: %w (enqueue: %v)", err, qerr)
	}
	return nil
}
