package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/scrcr/scrcr-server/pkg/observability"
)

// RetentionJob deletes audit entries older than the retention window on a
// cron schedule.
type RetentionJob struct {
	recorder  Recorder
	retention time.Duration
	schedule  string
	logger    *observability.Logger
	cron      *cron.Cron
}

// NewRetentionJob builds the pruning job. retentionDays must be positive;
// schedule is a standard five-field cron expression.
func NewRetentionJob(recorder Recorder, retentionDays int, schedule string, logger *observability.Logger) (*RetentionJob, error) {
	if retentionDays <= 0 {
		return nil, fmt.Errorf("retention days must be positive, got %d", retentionDays)
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &RetentionJob{
		recorder:  recorder,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		schedule:  schedule,
		logger:    logger,
	}, nil
}

// Start registers and launches the cron schedule.
func (j *RetentionJob) Start() error {
	j.cron = cron.New()
	_, err := j.cron.AddFunc(j.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := j.RunOnce(ctx); err != nil {
			j.logger.WithError(err).Error("audit retention prune failed")
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling audit retention: %w", err)
	}
	j.cron.Start()
	j.logger.WithFields(map[string]interface{}{
		"schedule":       j.schedule,
		"retention_days": int(j.retention.Hours() / 24),
	}).Info("audit retention job started")
	return nil
}

// Stop halts the schedule and waits for a running prune to finish.
func (j *RetentionJob) Stop(ctx context.Context) error {
	if j.cron == nil {
		return nil
	}
	select {
	case <-j.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce prunes immediately, outside the schedule.
func (j *RetentionJob) RunOnce(ctx context.Context) error {
	cutoff := time.Now().Add(-j.retention)
	pruned, err := j.recorder.PruneOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	if pruned > 0 {
		j.logger.WithField("pruned", pruned).Info("pruned old login audit entries")
	}
	return nil
}
