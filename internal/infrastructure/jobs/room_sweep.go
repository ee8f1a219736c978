package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/hilthontt/duet/internal/infrastructure/logging"
)

type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type RoomSweepJob struct {
	sweeper  Sweeper
	logger   logging.Logger
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewRoomSweepJob(sweeper Sweeper, logger logging.Logger, interval time.Duration) *RoomSweepJob {
	return &RoomSweepJob{
		sweeper:  sweeper,
		logger:   logger,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start sweeps once immediately and then on every tick until Stop is called
// or ctx is done. It blocks.
func (j *RoomSweepJob) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info(logging.Sweep, logging.Startup, "room sweep job started", map[logging.ExtraKey]any{
		"interval": j.interval.String(),
	})

	j.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			j.runSweep(ctx)
		case <-j.stopChan:
			j.logger.Info(logging.Sweep, logging.Shutdown, "room sweep job stopped", nil)
			return
		case <-ctx.Done():
			j.logger.Info(logging.Sweep, logging.Shutdown, "room sweep job context cancelled", nil)
			return
		}
	}
}

func (j *RoomSweepJob) Stop() {
	j.stopOnce.Do(func() { close(j.stopChan) })
}

func (j *RoomSweepJob) runSweep(ctx context.Context) {
	startTime := time.Now()

	deleted, err := j.sweeper.Sweep(ctx)
	if err != nil {
		j.logger.Error(logging.Sweep, logging.Delete, "room sweep finished with errors", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
			"deleted":            deleted,
			logging.Latency:      time.Since(startTime).String(),
		})
		return
	}

	j.logger.Debug(logging.Sweep, logging.Delete, "room sweep completed", map[logging.ExtraKey]any{
		"deleted":       deleted,
		logging.Latency: time.Since(startTime).String(),
	})
}
