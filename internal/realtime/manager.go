package realtime

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/fieldkit/fieldsync/internal/config"
	"github.com/fieldkit/fieldsync/internal/logger"
	"github.com/fieldkit/fieldsync/models"
)

// Manager owns the realtime connection lifecycle: connected while the
// subscription is healthy, reconnecting with bounded backoff after a drop,
// degraded with a low-frequency background retry when the fast attempts
// are exhausted. Decoded events are forwarded into the worker's single
// apply path; the sync cycle keeps working in every state.
type Manager struct {
	transport Transport
	applier   RemoteApplier
	tables    []models.EntityType
	cfg       config.Realtime
	log       *logger.Logger

	onBroadcast func(models.BroadcastEvent)

	status  atomic.Value
	updates chan models.RealtimeStatus
}

// NewManager constructs the subscription manager for the given tables.
func NewManager(transport Transport, applier RemoteApplier, cfg config.Realtime, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = 5
	}
	if cfg.ReconnectBase <= 0 {
		cfg.ReconnectBase = time.Second
	}
	if cfg.ReconnectCap <= 0 {
		cfg.ReconnectCap = 30 * time.Second
	}
	if cfg.DegradedRetryInterval <= 0 {
		cfg.DegradedRetryInterval = time.Minute
	}

	m := &Manager{
		transport: transport,
		applier:   applier,
		tables:    models.EntityOrder,
		cfg:       cfg,
		log:       log.Component("realtime"),
		updates:   make(chan models.RealtimeStatus, 1),
	}
	m.status.Store(models.RealtimeStatus{State: models.RealtimeReconnecting, MaxAttempts: cfg.MaxReconnectAttempts})
	return m
}

// OnBroadcast registers the handler for non-table-scoped messages, e.g.
// the coordinator's RequestSync for a "resync" hint. Must be set before
// Run.
func (m *Manager) OnBroadcast(fn func(models.BroadcastEvent)) { m.onBroadcast = fn }

// Status returns the latest connection status snapshot.
func (m *Manager) Status() models.RealtimeStatus {
	return m.status.Load().(models.RealtimeStatus)
}

// Updates returns a coalescing channel of connection status changes.
func (m *Manager) Updates() <-chan models.RealtimeStatus { return m.updates }

// Run drives the subscription until ctx is cancelled. The returned error
// is ctx.Err(); transport failures never terminate the manager, they move
// it through reconnecting into degraded.
func (m *Manager) Run(ctx context.Context) error {
	for {
		sub, err := m.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			sub, err = m.degradedRetry(ctx)
			if err != nil {
				return err
			}
		}

		m.publish(models.RealtimeStatus{State: models.RealtimeConnected})
		m.log.Info().Msg("realtime subscription established")

		dropErr := m.consume(ctx, sub)
		_ = sub.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.log.Warn().Err(dropErr).Msg("realtime subscription dropped")
	}
}

// connect performs the bounded fast-reconnect loop: up to
// MaxReconnectAttempts subscription attempts with capped exponential
// backoff between them.
func (m *Manager) connect(ctx context.Context) (Subscription, error) {
	var (
		sub     Subscription
		attempt int
	)

	backoff := retry.WithMaxRetries(
		uint64(m.cfg.MaxReconnectAttempts-1),
		retry.WithCappedDuration(m.cfg.ReconnectCap, retry.NewExponential(m.cfg.ReconnectBase)),
	)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		s, subErr := m.transport.Subscribe(ctx, m.tables)
		if subErr != nil {
			m.publish(models.RealtimeStatus{
				State:       models.RealtimeReconnecting,
				Attempt:     attempt,
				MaxAttempts: m.cfg.MaxReconnectAttempts,
			})
			m.log.Debug().
				Err(subErr).
				Int("attempt", attempt).
				Int("max_attempts", m.cfg.MaxReconnectAttempts).
				Msg("subscription attempt failed")
			return retry.RetryableError(subErr)
		}
		sub = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// degradedRetry keeps trying at a low frequency, indefinitely, after the
// fast attempts are exhausted. Local reads/writes and manual sync continue
// while the engine sits here.
func (m *Manager) degradedRetry(ctx context.Context) (Subscription, error) {
	m.publish(models.RealtimeStatus{State: models.RealtimeDegraded, MaxAttempts: m.cfg.MaxReconnectAttempts})
	m.log.Warn().
		Dur("retry_interval", m.cfg.DegradedRetryInterval).
		Msg("realtime degraded, background retry continues")

	ticker := time.NewTicker(m.cfg.DegradedRetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			sub, err := m.transport.Subscribe(ctx, m.tables)
			if err == nil {
				return sub, nil
			}
			m.log.Debug().Err(err).Msg("degraded retry failed")
		}
	}
}

// consume drains one subscription until it drops or ctx is cancelled.
func (m *Manager) consume(ctx context.Context, sub Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-sub.Events():
			if !ok {
				return <-sub.Done()
			}
			if err := m.applier.ApplyRemote(ctx, ev); err != nil {
				m.log.Warn().
					Err(err).
					Str("entity", string(ev.Entity)).
					Str("id", ev.RecordID).
					Msg("applying realtime change failed")
			}

		case b, ok := <-sub.Broadcasts():
			if !ok {
				return <-sub.Done()
			}
			if m.onBroadcast != nil {
				m.onBroadcast(b)
			}

		case err := <-sub.Done():
			return err
		}
	}
}

func (m *Manager) publish(s models.RealtimeStatus) {
	m.status.Store(s)
	for {
		select {
		case m.updates <- s:
			return
		default:
			select {
			case <-m.updates:
			default:
			}
		}
	}
}
