package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/boothkeeper/boothkeeper/internal/jobs"
)

// CacheBumper advances the report cache version.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// ReportInvalidateJob retries cache bumps that failed inline.
type ReportInvalidateJob struct {
	Cache   CacheBumper
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewReportInvalidateJob constructs the invalidation handler.
func NewReportInvalidateJob(cache CacheBumper, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportInvalidateJob {
	return &ReportInvalidateJob{Cache: cache, Logger: logger, Metrics: metrics}
}

// Handle bumps the cache version.
func (j *ReportInvalidateJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Cache == nil {
		return errors.New("report invalidate: handler not configured")
	}
	var payload ReportInvalidatePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskReportInvalidate)

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	err := j.Cache.Bump(ctx)
	if err != nil {
		logger.Error("bump report cache", slog.String("owner_id", payload.OwnerID), slog.String("reason", payload.Reason), slog.Any("error", err))
	} else {
		logger.Debug("report cache bumped", slog.String("owner_id", payload.OwnerID), slog.String("reason", payload.Reason))
	}
	return tracker.End(err)
}
