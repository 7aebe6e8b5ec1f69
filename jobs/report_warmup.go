package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/boothkeeper/boothkeeper/internal/jobs"
	"github.com/boothkeeper/boothkeeper/internal/revenue"
	"github.com/boothkeeper/boothkeeper/internal/shared"
)

const (
	defaultWarmupDays = 7
	ownerTimeout      = 20 * time.Second
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// OwnerLister finds owners with conventions in a window.
type OwnerLister interface {
	ListActiveOwners(ctx context.Context, from, to time.Time) ([]string, error)
}

// PeriodStatsComputer computes and caches dashboard figures.
type PeriodStatsComputer interface {
	ComputePeriodStats(ctx context.Context, ownerID string, conventionID *int64, r revenue.DateRange) (revenue.PeriodStats, error)
}

// ReportWarmupJob pre-populates the report cache for owners with recent
// conventions so the first dashboard load of the day is served from Redis.
type ReportWarmupJob struct {
	Owners   OwnerLister
	Reports  PeriodStatsComputer
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	Location *time.Location
	clock    func() time.Time
}

// NewReportWarmupJob wires dependencies for the warmup handler.
func NewReportWarmupJob(owners OwnerLister, reports PeriodStatsComputer, logger *slog.Logger, metrics *jobmetrics.Metrics, loc *time.Location) *ReportWarmupJob {
	return &ReportWarmupJob{
		Owners:   owners,
		Reports:  reports,
		Logger:   logger,
		Metrics:  metrics,
		Location: loc,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes report warmup tasks. A failing owner is logged and
// skipped; the run fails only when owners cannot be listed.
func (j *ReportWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Owners == nil || j.Reports == nil {
		return errors.New("report warmup: handler not configured")
	}
	var payload ReportWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	days := payload.Days
	if days <= 0 {
		days = defaultWarmupDays
	}

	tracker := j.metrics().Track(TaskReportWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := j.now()
	today := shared.DayOf(start, j.Location)
	window := revenue.DateRange{Start: shared.AddDays(today, -(days - 1)), End: today}
	logger := j.logger().With(slog.String("range", window.String()))
	logger.Info("starting report warmup")

	owners, err := j.Owners.ListActiveOwners(ctx, window.Start, window.End)
	if err != nil {
		resultErr = err
		logger.Error("load warmup owners", slog.Any("error", err))
		return resultErr
	}
	if len(owners) == 0 {
		logger.Info("no owners discovered for warmup")
		return resultErr
	}

	warmed, failed := 0, 0
	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			resultErr = err
			break
		}
		if err := j.warmOwner(ctx, owner, window); err != nil {
			failed++
			logger.Warn("warm owner", slog.String("owner_id", owner), slog.Any("error", err))
			continue
		}
		warmed++
	}
	j.metrics().AddWarmed(TaskReportWarmup, true, warmed)
	j.metrics().AddWarmed(TaskReportWarmup, false, failed)

	logger.Info("completed report warmup", slog.Int("owners", warmed), slog.Int("failed", failed), slog.Duration("duration", j.now().Sub(start)))
	return resultErr
}

func (j *ReportWarmupJob) warmOwner(ctx context.Context, owner string, window revenue.DateRange) error {
	ownerCtx, cancel := context.WithTimeout(ctx, ownerTimeout)
	defer cancel()
	_, err := j.Reports.ComputePeriodStats(ownerCtx, owner, nil, window)
	return err
}

func (j *ReportWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportWarmup))
	}
	return slog.Default().With(slog.String("job", TaskReportWarmup))
}

func (j *ReportWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ReportWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
