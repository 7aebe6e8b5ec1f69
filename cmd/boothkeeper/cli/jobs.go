// Package cli holds operator subcommands of the boothkeeper binary.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/hibiken/asynq"

	"github.com/boothkeeper/boothkeeper/jobs"
)

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) *JobsCLI {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	return &JobsCLI{client: asynq.NewClient(opts), inspector: asynq.NewInspector(opts)}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		err = errors.Join(err, c.inspector.Close())
	}
	if c.client != nil {
		err = errors.Join(err, c.client.Close())
	}
	return err
}

// BuildTask constructs a supported task by name. args tune the payload: the
// warmup accepts a window length in days.
func BuildTask(name string, args []string) (*asynq.Task, error) {
	switch name {
	case jobs.TaskReportWarmup:
		var payload jobs.ReportWarmupPayload
		if len(args) > 0 {
			days, err := strconv.Atoi(args[0])
			if err != nil || days < 1 {
				return nil, fmt.Errorf("jobs cli: invalid warmup days %q", args[0])
			}
			payload.Days = days
		}
		return jobs.NewReportWarmupTask(payload)
	case jobs.TaskReportInvalidate:
		return jobs.NewReportInvalidateTask(jobs.ReportInvalidatePayload{Reason: "manual"})
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
}

// Trigger enqueues a supported job by name.
func (c *JobsCLI) Trigger(ctx context.Context, name string, args []string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	task, err := BuildTask(name, args)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task)
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
	Failed    int
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Failed = info.Failed
	}
	return stats, nil
}

// RunJobs dispatches `jobs trigger <name> [args]` and `jobs stats`.
func RunJobs(ctx context.Context, redisAddr string, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("usage: jobs trigger <name> [days] | jobs stats")
	}
	c := NewJobsCLI(redisAddr)
	defer func() { _ = c.Close() }()

	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			return errors.New("usage: jobs trigger <name> [days]")
		}
		info, err := c.Trigger(ctx, args[1], args[2:])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return err
	case "stats":
		stats, err := c.InspectQueue(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY\tFAILED")
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Failed)
		return tw.Flush()
	default:
		return fmt.Errorf("jobs cli: unknown command %s", args[0])
	}
}
