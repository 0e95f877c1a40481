package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oracare/fulfillment/internal/domain/syncstate"
)

func alwaysEnabled(ctx context.Context, workflow syncstate.Workflow) (bool, error) {
	return true, nil
}

func TestIntervalWorker_RunOnStartAndTick(t *testing.T) {
	var runs atomic.Int32
	job := func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}

	w := NewIntervalWorker(syncstate.WorkflowUnifiedSync, 20*time.Millisecond, true, job, alwaysEnabled, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	last := w.LastRun()
	require.NotNil(t, last)
	assert.NoError(t, last.Err)
	assert.False(t, last.Skipped)
}

func TestIntervalWorker_DisabledSkips(t *testing.T) {
	var runs atomic.Int32
	job := func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}
	disabled := func(ctx context.Context, workflow syncstate.Workflow) (bool, error) {
		return false, nil
	}

	w := NewIntervalWorker(syncstate.WorkflowCleanup, 10*time.Millisecond, true, job, disabled, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	w.Run(ctx)

	assert.Equal(t, int32(0), runs.Load())
	last := w.LastRun()
	require.NotNil(t, last)
	assert.True(t, last.Skipped)
}

func TestIntervalWorker_ControlFailureFailsOpen(t *testing.T) {
	var runs atomic.Int32
	job := func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}
	broken := func(ctx context.Context, workflow syncstate.Workflow) (bool, error) {
		return false, errors.New("redis down")
	}

	w := NewIntervalWorker(syncstate.WorkflowDuplicateScan, time.Hour, true, job, broken, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestIntervalWorker_JobErrorRecorded(t *testing.T) {
	jobErr := errors.New("boom")
	w := NewIntervalWorker(syncstate.WorkflowGhostBackfill, time.Hour, true,
		func(ctx context.Context) error { return jobErr },
		alwaysEnabled, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return w.LastRun() != nil }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.ErrorIs(t, w.LastRun().Err, jobErr)
}

func TestManager_StartStop(t *testing.T) {
	var runs atomic.Int32
	m := NewManager(zap.NewNop())
	m.Register(NewIntervalWorker(syncstate.WorkflowUnifiedSync, 10*time.Millisecond, true,
		func(ctx context.Context) error { runs.Add(1); return nil },
		alwaysEnabled, zap.NewNop()))

	m.Start(context.Background())
	require.Eventually(t, func() bool { return runs.Load() >= 1 }, time.Second, 5*time.Millisecond)
	m.Stop()

	after := runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, runs.Load())

	// Stop is idempotent
	m.Stop()
}
