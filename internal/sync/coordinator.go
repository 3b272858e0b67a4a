package sync

import (
	"context"
	stdsync "sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/fieldkit/fieldsync/internal/config"
	"github.com/fieldkit/fieldsync/internal/logger"
	"github.com/fieldkit/fieldsync/internal/syncerr"
	"github.com/fieldkit/fieldsync/models"
)

// PassRunner executes sync passes. Implemented by *Worker; narrowed to an
// interface so coordinator tests can substitute a scripted runner.
type PassRunner interface {
	RunPass(ctx context.Context, full bool) error
	RequeueFailed(ctx context.Context) error
}

var _ PassRunner = (*Worker)(nil)

// RealtimeRunner is the subscription manager's lifecycle: Run blocks until
// the context is cancelled.
type RealtimeRunner interface {
	Run(ctx context.Context) error
}

type cmdKind int

const (
	cmdRequest cmdKind = iota
	cmdFull
	cmdRetry
	cmdShutdown
)

type passResult struct {
	runID string
	err   error
}

// Coordinator is the facade over the sync engine. It owns the published
// status, the circuit breaker and the debounce window, and serializes all
// sync activity through a single mailbox goroutine so that status checks
// and pass starts never race.
type Coordinator struct {
	cfg      config.Sync
	runner   PassRunner
	realtime RealtimeRunner
	log      *logger.Logger

	cmds     chan cmdKind
	passDone chan passResult

	status  atomic.Value
	updates chan models.SyncStatus

	loopDone chan struct{}
	rtDone   chan struct{}
	rtCancel context.CancelFunc
	passWG   stdsync.WaitGroup

	startOnce stdsync.Once
	stopOnce  stdsync.Once
}

// NewCoordinator wires the facade. realtime may be nil when the deployment
// has no push channel; everything else still works through polling passes.
func NewCoordinator(cfg config.Sync, runner PassRunner, realtime RealtimeRunner, log *logger.Logger) *Coordinator {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = 3
	}
	if cfg.BreakerBase <= 0 {
		cfg.BreakerBase = 5 * time.Second
	}
	if cfg.BreakerCap <= 0 {
		cfg.BreakerCap = 4 * time.Minute
	}

	c := &Coordinator{
		cfg:      cfg,
		runner:   runner,
		realtime: realtime,
		log:      log.Component("coordinator"),
		cmds:     make(chan cmdKind, 16),
		passDone: make(chan passResult, 1),
		updates:  make(chan models.SyncStatus, 1),
		loopDone: make(chan struct{}),
		rtDone:   make(chan struct{}),
	}
	c.status.Store(models.SyncStatus{Phase: models.PhaseIdle})
	return c
}

// Start launches the mailbox loop and, when configured, the realtime
// subscription manager. Safe to call once.
func (c *Coordinator) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		rtCtx, cancel := context.WithCancel(ctx)
		c.rtCancel = cancel

		if c.realtime != nil {
			go func() {
				defer close(c.rtDone)
				if err := c.realtime.Run(rtCtx); err != nil && rtCtx.Err() == nil {
					c.log.Error().Err(err).Msg("realtime manager exited")
				}
			}()
		} else {
			close(c.rtDone)
		}

		go c.loop(ctx)
	})
}

// RequestSync schedules a debounced sync pass. Calls arriving within the
// debounce window coalesce; calls arriving while a pass runs schedule
// exactly one follow-up pass. Non-blocking.
func (c *Coordinator) RequestSync() { c.send(cmdRequest) }

// FullSync requests an immediate full pull disregarding the incremental
// watermarks. Queues behind an active pass. Non-blocking.
func (c *Coordinator) FullSync() { c.send(cmdFull) }

// RetrySync is the user-initiated retry: it re-queues failed records and
// attempts one pass immediately, bypassing the circuit breaker's wait but
// not its failure counting. Non-blocking.
func (c *Coordinator) RetrySync() { c.send(cmdRetry) }

// Shutdown cancels the debounce timer and the realtime manager, lets an
// in-flight pass finish, and waits for all background work to settle or
// for ctx to expire.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.stopOnce.Do(func() {
		c.cmds <- cmdShutdown
	})

	settled := make(chan struct{})
	go func() {
		<-c.loopDone
		c.passWG.Wait()
		<-c.rtDone
		close(settled)
	}()

	select {
	case <-settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns the latest published status snapshot.
func (c *Coordinator) Status() models.SyncStatus {
	return c.status.Load().(models.SyncStatus)
}

// Updates returns a coalescing channel carrying status changes. Slow
// consumers observe the latest value, never a backlog. The ok and error
// phases are transitional and may be coalesced away; the idle status that
// follows carries the same run id, LastSyncedAt and LastError fields, so
// no information is lost with them.
func (c *Coordinator) Updates() <-chan models.SyncStatus {
	return c.updates
}

func (c *Coordinator) send(cmd cmdKind) {
	select {
	case c.cmds <- cmd:
	case <-c.loopDone:
	}
}

func (c *Coordinator) publish(s models.SyncStatus) {
	c.status.Store(s)
	for {
		select {
		case c.updates <- s:
			return
		default:
			select {
			case <-c.updates:
			default:
			}
		}
	}
}

// loop is the single serialized execution context owning all mutable sync
// state: the running flag, the follow-up marks, the breaker counter and
// the published status.
func (c *Coordinator) loop(ctx context.Context) {
	defer close(c.loopDone)

	var (
		running       bool
		shuttingDown  bool
		followUp      bool
		followUpFull  bool
		followUpRetry bool
		breakerOpen   bool
		failures      int

		lastSyncedAt time.Time
	)

	debounce := newStoppedTimer()
	defer debounce.Stop()
	breaker := newStoppedTimer()
	defer breaker.Stop()

	var tick <-chan time.Time
	if c.cfg.Interval > 0 {
		ticker := time.NewTicker(c.cfg.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	startPass := func(full, requeue bool) {
		running = true
		id := uuid.New().String()
		c.publish(models.SyncStatus{
			Phase:        models.PhaseSyncing,
			RunID:        id,
			LastSyncedAt: lastSyncedAt,
		})

		c.passWG.Add(1)
		go func() {
			defer c.passWG.Done()
			// Deliberately not tied to the loop context: an in-progress
			// push or pull finishes rather than aborting, so completion
			// always clears its in-flight marks.
			passCtx := context.Background()
			if requeue {
				if err := c.runner.RequeueFailed(passCtx); err != nil {
					c.log.Error().Err(err).Msg("requeue failed records")
				}
			}
			err := c.runner.RunPass(passCtx, full)
			c.passDone <- passResult{runID: id, err: err}
		}()
	}

	scheduleDebounced := func() {
		if shuttingDown || breakerOpen {
			return
		}
		if running {
			followUp = true
			return
		}
		resetTimer(debounce, c.cfg.Debounce)
	}

	for {
		select {
		case cmd := <-c.cmds:
			switch cmd {
			case cmdRequest:
				scheduleDebounced()

			case cmdFull:
				if shuttingDown {
					break
				}
				if running {
					followUp = true
					followUpFull = true
					break
				}
				if breakerOpen {
					breakerOpen = false
					breaker.Stop()
				}
				startPass(true, false)

			case cmdRetry:
				if shuttingDown {
					break
				}
				if running {
					followUp = true
					followUpRetry = true
					break
				}
				if breakerOpen {
					breakerOpen = false
					breaker.Stop()
				}
				startPass(false, true)

			case cmdShutdown:
				shuttingDown = true
				debounce.Stop()
				breaker.Stop()
				c.rtCancel()
				if !running {
					return
				}
			}

		case <-debounce.C:
			if running || shuttingDown || breakerOpen {
				if running {
					followUp = true
				}
				break
			}
			startPass(false, false)

		case <-tick:
			scheduleDebounced()

		case res := <-c.passDone:
			running = false

			if res.err == nil {
				failures = 0
				lastSyncedAt = time.Now()
				c.publish(models.SyncStatus{
					Phase:        models.PhaseOK,
					RunID:        res.runID,
					LastSyncedAt: lastSyncedAt,
				})
				c.publish(models.SyncStatus{
					Phase:        models.PhaseIdle,
					RunID:        res.runID,
					LastSyncedAt: lastSyncedAt,
				})
			} else {
				failures++
				classified := syncerr.Classify(res.err)
				c.log.Warn().
					Err(res.err).
					Int("consecutive_failures", failures).
					Str("run_id", res.runID).
					Msg("sync pass failed")

				if failures >= c.cfg.BreakerThreshold {
					window := c.breakerWindow(failures)
					breakerOpen = true
					resetTimer(breaker, window)
					c.publish(models.SyncStatus{
						Phase:              models.PhaseBreakerOpen,
						RunID:              res.runID,
						LastSyncedAt:       lastSyncedAt,
						LastError:          classified.Message,
						LastErrorRetryable: classified.Retryable,
						BreakerRemaining:   window,
					})
				} else {
					c.publish(models.SyncStatus{
						Phase:              models.PhaseError,
						RunID:              res.runID,
						LastSyncedAt:       lastSyncedAt,
						LastError:          classified.Message,
						LastErrorRetryable: classified.Retryable,
					})
					c.publish(models.SyncStatus{
						Phase:              models.PhaseIdle,
						RunID:              res.runID,
						LastSyncedAt:       lastSyncedAt,
						LastError:          classified.Message,
						LastErrorRetryable: classified.Retryable,
					})
				}
			}

			if shuttingDown {
				return
			}
			if followUp && !breakerOpen {
				full := followUpFull
				requeue := followUpRetry
				followUp, followUpFull, followUpRetry = false, false, false
				startPass(full, requeue)
			}

		case <-breaker.C:
			// Backoff elapsed: back to idle and exactly one automatic retry.
			breakerOpen = false
			c.publish(models.SyncStatus{
				Phase:        models.PhaseIdle,
				LastSyncedAt: lastSyncedAt,
			})
			if !running && !shuttingDown {
				startPass(false, false)
			}

		case <-ctx.Done():
			shuttingDown = true
			debounce.Stop()
			breaker.Stop()
			c.rtCancel()
			if !running {
				return
			}
		}
	}
}

// breakerWindow computes the open window after the given consecutive
// failure count: exponential from BreakerBase, doubling per failure beyond
// the threshold, capped at BreakerCap.
func (c *Coordinator) breakerWindow(failures int) time.Duration {
	window := c.cfg.BreakerBase
	for i := c.cfg.BreakerThreshold; i < failures; i++ {
		window *= 2
		if window >= c.cfg.BreakerCap {
			return c.cfg.BreakerCap
		}
	}
	if window > c.cfg.BreakerCap {
		return c.cfg.BreakerCap
	}
	return window
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		<-t.C
	}
	return t
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
