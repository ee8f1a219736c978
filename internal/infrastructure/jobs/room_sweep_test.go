package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hilthontt/duet/internal/infrastructure/logging"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *countingSweeper) Sweep(ctx context.Context) (int, error) {
	s.calls.Add(1)
	return 0, s.err
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestRoomSweepJobRunsImmediatelyAndOnTick(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("boom")}
	job := NewRoomSweepJob(sweeper, logging.NewNop(), 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		job.Start(context.Background())
		close(done)
	}()

	waitFor(t, func() bool { return sweeper.calls.Load() >= 3 })

	job.Stop()
	job.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not stop")
	}
}

func TestRoomSweepJobStopsOnContextCancel(t *testing.T) {
	sweeper := &countingSweeper{}
	job := NewRoomSweepJob(sweeper, logging.NewNop(), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()

	waitFor(t, func() bool { return sweeper.calls.Load() == 1 })
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not stop")
	}
}
