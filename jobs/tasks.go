package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportWarmup precomputes dashboard figures for active owners.
	TaskReportWarmup = "report:warmup"
	// TaskReportInvalidate bumps the report cache version.
	TaskReportInvalidate = "report:invalidate"

	// ReportWarmupCron runs the warmup nightly.
	ReportWarmupCron = "15 3 * * *"

	invalidateUniqueWindow = 30 * time.Second
)

// ReportWarmupPayload configures the warmup window.
type ReportWarmupPayload struct {
	// Days is the length of the window ending today. Zero means seven.
	Days int `json:"days,omitempty"`
}

// ReportInvalidatePayload identifies why the cache is being bumped.
type ReportInvalidatePayload struct {
	OwnerID string `json:"owner_id,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// NewReportWarmupTask constructs the warmup task.
func NewReportWarmupTask(payload ReportWarmupPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportWarmup, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// NewReportInvalidateTask constructs a cache bump task. Bumps for the same
// owner are deduplicated for a short window.
func NewReportInvalidateTask(payload ReportInvalidatePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportInvalidate, body,
		asynq.Queue(QueueDefault),
		asynq.TaskID("invalidate-"+uuid.NewString()),
		asynq.Unique(invalidateUniqueWindow),
	), nil
}
