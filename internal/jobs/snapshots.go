package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/taskforge/taskforge-backend/internal/logger"
	"github.com/taskforge/taskforge-backend/internal/services"
)

// SnapshotScheduler runs the nightly snapshot materialization. The default
// schedule fires just before midnight so the day's final card state is
// what gets frozen.
type SnapshotScheduler struct {
	log             *logger.Logger
	snapshotService services.SnapshotService
	schedule        string
	cron            *cron.Cron
}

func NewSnapshotScheduler(baseLog *logger.Logger, snapshotService services.SnapshotService, schedule string) *SnapshotScheduler {
	if schedule == "" {
		schedule = "59 23 * * *"
	}
	return &SnapshotScheduler{
		log:             baseLog.With("job", "SnapshotScheduler"),
		snapshotService: snapshotService,
		schedule:        schedule,
		cron:            cron.New(cron.WithLocation(time.UTC)),
	}
}

func (ss *SnapshotScheduler) Start() error {
	_, err := ss.cron.AddFunc(ss.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		started := time.Now()
		if err := ss.snapshotService.CreateDailySnapshots(ctx); err != nil {
			ss.log.Error("nightly snapshot run failed", "error", err)
			return
		}
		ss.log.Info("nightly snapshot run finished", "elapsed", time.Since(started).String())
	})
	if err != nil {
		return err
	}
	ss.cron.Start()
	ss.log.Info("snapshot scheduler started", "schedule", ss.schedule)
	return nil
}

// Stop waits for an in-flight run to finish.
func (ss *SnapshotScheduler) Stop() {
	<-ss.cron.Stop().Done()
}
