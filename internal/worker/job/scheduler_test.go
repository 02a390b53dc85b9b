package job

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSchedulerRunsImmediatelyThenPeriodically(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	var runs atomic.Int32
	s.RegisterJob("tick", 20*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	s.Start(context.Background())
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)

	s.Stop(context.Background())
	stopped := runs.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, stopped, runs.Load())
}

func TestSchedulerKeepsRunningAfterFailure(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	var runs atomic.Int32
	s.RegisterJob("flaky", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("upstream unavailable")
	})

	s.Start(context.Background())
	defer s.Stop(context.Background())
	require.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestSchedulerJobTimeout(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	errCh := make(chan error, 1)
	s.RegisterJob("slow", time.Hour, func(ctx context.Context) error {
		<-ctx.Done()
		errCh <- ctx.Err()
		return ctx.Err()
	}, WithTimeout(20*time.Millisecond))

	s.Start(context.Background())
	defer s.Stop(context.Background())

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("job was not cancelled by its timeout")
	}
}

func TestSchedulerStopCancelsRunningJob(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	started := make(chan struct{})
	s.RegisterJob("blocking", time.Hour, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}, WithTimeout(0))

	s.Start(context.Background())
	<-started

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	begin := time.Now()
	s.Stop(stopCtx)
	assert.Less(t, time.Since(begin), 500*time.Millisecond)
}
