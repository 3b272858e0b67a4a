// Package fieldsync is an offline-first synchronization engine. It keeps a
// local SQLite copy of business records in step with a remote backend:
// pushing pending local writes, pulling and merging remote changes,
// resolving conflicts, holding a live realtime subscription, and degrading
// gracefully behind a circuit breaker when the backend is unreachable.
//
// The engine is a library; the UI layer consumes the coordinator's
// published status and mutates records through the local store.
package fieldsync

import (
	"context"
	"errors"

	"github.com/fieldkit/fieldsync/internal/adapter"
	"github.com/fieldkit/fieldsync/internal/config"
	"github.com/fieldkit/fieldsync/internal/logger"
	"github.com/fieldkit/fieldsync/internal/realtime"
	"github.com/fieldkit/fieldsync/internal/store"
	"github.com/fieldkit/fieldsync/internal/sync"
	"github.com/fieldkit/fieldsync/models"
)

// Engine bundles the wired components. Store is the UI's mutation surface;
// Coordinator is the sync facade.
type Engine struct {
	Store       store.LocalStore
	Backend     adapter.Backend
	Coordinator *sync.Coordinator
	Realtime    *realtime.Manager
}

// LoadConfig reads the engine configuration from the environment and the
// optional CONFIG JSON file.
func LoadConfig() (*config.Config, error) {
	return config.Load()
}

// New assembles an Engine from configuration. The realtime manager is only
// wired when a realtime URL is configured; without it the engine works in
// pull-only mode.
func New(cfg *config.Config, log *logger.Logger) (*Engine, error) {
	if log == nil {
		log = logger.Nop()
	}

	st, err := store.Open(cfg.Storage.SQLitePath, log)
	if err != nil {
		return nil, err
	}

	backend := adapter.NewHTTPBackend(adapter.HTTPConfig{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
	})

	resolver := sync.NewResolver()
	worker := sync.NewWorker(st, backend, resolver, log)

	var (
		mgr    *realtime.Manager
		runner sync.RealtimeRunner
	)
	if cfg.Realtime.URL != "" {
		transport := realtime.NewWSTransport(realtime.WSConfig{
			URL:          cfg.Realtime.URL,
			PingInterval: cfg.Realtime.PingInterval,
			TokenFunc:    backend.Token,
		})
		mgr = realtime.NewManager(transport, worker, cfg.Realtime, log)
		runner = mgr
	}

	coord := sync.NewCoordinator(cfg.Sync, worker, runner, log)

	if mgr != nil {
		mgr.OnBroadcast(func(b models.BroadcastEvent) {
			if b.Topic == models.BroadcastResync {
				coord.FullSync()
				return
			}
			coord.RequestSync()
		})
	}

	return &Engine{
		Store:       st,
		Backend:     backend,
		Coordinator: coord,
		Realtime:    mgr,
	}, nil
}

// Start launches the coordinator and, when wired, the realtime manager.
func (e *Engine) Start(ctx context.Context) {
	e.Coordinator.Start(ctx)
}

// Shutdown stops all background work and closes the local store.
func (e *Engine) Shutdown(ctx context.Context) error {
	return errors.Join(
		e.Coordinator.Shutdown(ctx),
		e.Store.Close(),
	)
}
