package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Refresher republishes the snapshot of every live room.
type Refresher interface {
	RefreshActiveSnapshots(ctx context.Context) (int, error)
}

// SnapshotRefresherJob periodically republishes live room snapshots so clients that
// missed an event catch up without reconnecting.
type SnapshotRefresherJob struct {
	refresher Refresher
	schedule  string
	timeout   time.Duration
	cron      *cron.Cron
	logger    *zap.Logger
}

func NewSnapshotRefresherJob(refresher Refresher, schedule string, logger *zap.Logger) *SnapshotRefresherJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotRefresherJob{
		refresher: refresher,
		schedule:  schedule,
		timeout:   10 * time.Second,
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:    logger,
	}
}

// Start schedules the job and begins running it in the background.
func (j *SnapshotRefresherJob) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, func() { j.RunOnce() }); err != nil {
		return fmt.Errorf("failed to schedule snapshot refresh: %w", err)
	}
	j.cron.Start()
	j.logger.Info("snapshot refresher started", zap.String("schedule", j.schedule))
	return nil
}

// Stop waits for a running refresh to complete.
func (j *SnapshotRefresherJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("snapshot refresher stopped")
}

// RunOnce performs a single refresh and returns the number of rooms published.
func (j *SnapshotRefresherJob) RunOnce() int {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	count, err := j.refresher.RefreshActiveSnapshots(ctx)
	if err != nil {
		j.logger.Warn("snapshot refresh failed", zap.Error(err))
		return 0
	}
	j.logger.Debug("snapshots refreshed", zap.Int("rooms", count))
	return count
}
