package sync

import (
	"context"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldkit/fieldsync/internal/config"
	"github.com/fieldkit/fieldsync/internal/syncerr"
	"github.com/fieldkit/fieldsync/models"
)

// scriptRunner is a PassRunner with scripted results. Passes block on the
// optional gate so tests can hold a pass open while issuing commands.
type scriptRunner struct {
	mu      stdsync.Mutex
	passes  []bool
	requeue int
	results []error

	gate    chan struct{}
	started chan struct{}
}

func newScriptRunner(results ...error) *scriptRunner {
	return &scriptRunner{
		results: results,
		started: make(chan struct{}, 64),
	}
}

func (r *scriptRunner) RunPass(_ context.Context, full bool) error {
	r.mu.Lock()
	r.passes = append(r.passes, full)
	var res error
	if len(r.results) > 0 {
		res = r.results[0]
		r.results = r.results[1:]
	}
	gate := r.gate
	r.mu.Unlock()

	r.started <- struct{}{}
	if gate != nil {
		<-gate
	}
	return res
}

func (r *scriptRunner) RequeueFailed(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requeue++
	return nil
}

func (r *scriptRunner) passCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.passes)
}

func (r *scriptRunner) pass(i int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.passes[i]
}

func (r *scriptRunner) requeueCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requeue
}

func testSyncConfig() config.Sync {
	return config.Sync{
		Debounce:         10 * time.Millisecond,
		BreakerThreshold: 3,
		BreakerBase:      5 * time.Second,
		BreakerCap:       time.Minute,
	}
}

func shutdownCoordinator(t *testing.T, c *Coordinator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Shutdown(ctx))
}

func TestCoordinator_DebouncedRequestsCoalesce(t *testing.T) {
	runner := newScriptRunner()
	c := NewCoordinator(testSyncConfig(), runner, nil, nil)
	c.Start(context.Background())

	for i := 0; i < 5; i++ {
		c.RequestSync()
	}

	require.Eventually(t, func() bool { return runner.passCount() == 1 }, time.Second, 2*time.Millisecond)
	assert.False(t, runner.pass(0), "debounced pass is incremental")

	// Settle and confirm no stray extra pass fires.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, runner.passCount())
	assert.Equal(t, models.PhaseIdle, c.Status().Phase)
	assert.False(t, c.Status().LastSyncedAt.IsZero())

	shutdownCoordinator(t, c)
}

func TestCoordinator_RequestsDuringPassQueueOneFollowUp(t *testing.T) {
	runner := newScriptRunner()
	runner.gate = make(chan struct{})
	c := NewCoordinator(testSyncConfig(), runner, nil, nil)
	c.Start(context.Background())

	c.RequestSync()
	<-runner.started
	assert.True(t, c.Status().IsSyncing())
	assert.NotEmpty(t, c.Status().RunID)

	for i := 0; i < 4; i++ {
		c.RequestSync()
	}
	close(runner.gate)

	require.Eventually(t, func() bool { return runner.passCount() == 2 }, time.Second, 2*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, runner.passCount())

	shutdownCoordinator(t, c)
}

func TestCoordinator_FullSyncRunsImmediatelyWithFullFlag(t *testing.T) {
	runner := newScriptRunner()
	c := NewCoordinator(testSyncConfig(), runner, nil, nil)
	c.Start(context.Background())

	c.FullSync()

	require.Eventually(t, func() bool { return runner.passCount() == 1 }, time.Second, 2*time.Millisecond)
	assert.True(t, runner.pass(0))

	shutdownCoordinator(t, c)
}

func TestCoordinator_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	failure := syncerr.ErrServer
	runner := newScriptRunner(failure, failure)

	cfg := testSyncConfig()
	cfg.BreakerThreshold = 2
	cfg.BreakerBase = 250 * time.Millisecond
	c := NewCoordinator(cfg, runner, nil, nil)
	c.Start(context.Background())

	c.RequestSync()
	require.Eventually(t, func() bool {
		s := c.Status()
		return runner.passCount() == 1 && s.Phase == models.PhaseIdle && s.LastError != ""
	}, time.Second, 2*time.Millisecond)
	assert.True(t, c.Status().LastErrorRetryable)

	c.RequestSync()
	require.Eventually(t, func() bool {
		return c.Status().Phase == models.PhaseBreakerOpen
	}, time.Second, 2*time.Millisecond)
	assert.Equal(t, 250*time.Millisecond, c.Status().BreakerRemaining)

	// Requests while the breaker is open are dropped.
	c.RequestSync()
	assert.Equal(t, 2, runner.passCount())

	// When the window elapses the coordinator retries exactly once, and the
	// scripted runner succeeds from here on.
	require.Eventually(t, func() bool {
		return runner.passCount() == 3 && !c.Status().LastSyncedAt.IsZero()
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 3, runner.passCount())
	assert.Equal(t, models.PhaseIdle, c.Status().Phase)

	shutdownCoordinator(t, c)
}

func TestCoordinator_RetrySyncBypassesOpenBreaker(t *testing.T) {
	runner := newScriptRunner(syncerr.ErrServer)

	cfg := testSyncConfig()
	cfg.BreakerThreshold = 1
	cfg.BreakerBase = 10 * time.Second
	c := NewCoordinator(cfg, runner, nil, nil)
	c.Start(context.Background())

	c.RequestSync()
	require.Eventually(t, func() bool {
		return c.Status().Phase == models.PhaseBreakerOpen
	}, time.Second, 2*time.Millisecond)

	c.RetrySync()
	require.Eventually(t, func() bool {
		return runner.passCount() == 2 && runner.requeueCount() == 1
	}, time.Second, 2*time.Millisecond)

	require.Eventually(t, func() bool {
		return c.Status().Phase == models.PhaseIdle && !c.Status().LastSyncedAt.IsZero()
	}, time.Second, 2*time.Millisecond)

	shutdownCoordinator(t, c)
}

func TestCoordinator_RetrySyncDuringPassRequeuesBeforeFollowUp(t *testing.T) {
	runner := newScriptRunner()
	runner.gate = make(chan struct{})
	c := NewCoordinator(testSyncConfig(), runner, nil, nil)
	c.Start(context.Background())

	c.RequestSync()
	<-runner.started

	// The user taps Retry while a pass is active: the follow-up pass must
	// still re-queue failed records before it runs.
	c.RetrySync()
	close(runner.gate)

	require.Eventually(t, func() bool {
		return runner.passCount() == 2 && runner.requeueCount() == 1
	}, time.Second, 2*time.Millisecond)

	shutdownCoordinator(t, c)
}

type blockingRealtime struct {
	stopped chan struct{}
}

func (b *blockingRealtime) Run(ctx context.Context) error {
	<-ctx.Done()
	close(b.stopped)
	return ctx.Err()
}

func TestCoordinator_ShutdownStopsRealtimeAndWaitsForPass(t *testing.T) {
	runner := newScriptRunner()
	runner.gate = make(chan struct{})
	rt := &blockingRealtime{stopped: make(chan struct{})}

	c := NewCoordinator(testSyncConfig(), runner, rt, nil)
	c.Start(context.Background())

	c.FullSync()
	<-runner.started

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		done <- c.Shutdown(ctx)
	}()

	// Shutdown waits for the in-flight pass rather than aborting it.
	select {
	case err := <-done:
		t.Fatalf("shutdown returned before pass finished: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(runner.gate)
	require.NoError(t, <-done)

	select {
	case <-rt.stopped:
	default:
		t.Fatal("realtime runner not cancelled on shutdown")
	}

	// Commands after shutdown are no-ops.
	c.RequestSync()
	assert.Equal(t, 1, runner.passCount())
}

func TestCoordinator_PeriodicIntervalSchedulesPasses(t *testing.T) {
	runner := newScriptRunner()
	cfg := testSyncConfig()
	cfg.Interval = 25 * time.Millisecond
	c := NewCoordinator(cfg, runner, nil, nil)
	c.Start(context.Background())

	require.Eventually(t, func() bool { return runner.passCount() >= 2 }, 2*time.Second, 5*time.Millisecond)

	shutdownCoordinator(t, c)
}
