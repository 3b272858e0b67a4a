// Package realtime maintains the live push-subscription to remote change
// events: a subscription per monitored table plus a generic broadcast
// channel, with a reconnect state machine independent of the sync cycle.
package realtime

import (
	"context"

	"github.com/fieldkit/fieldsync/models"
)

// Subscription is one live connection delivering change events and
// broadcasts until Done yields.
type Subscription interface {
	// Events delivers table-scoped change events.
	Events() <-chan models.ChangeEvent

	// Broadcasts delivers non-table-scoped messages.
	Broadcasts() <-chan models.BroadcastEvent

	// Done yields the terminal transport error once the connection drops.
	Done() <-chan error

	Close() error
}

// Transport is the persistent subscription primitive. Implementations
// report connection loss through the returned Subscription's Done channel.
type Transport interface {
	Subscribe(ctx context.Context, tables []models.EntityType) (Subscription, error)
}

// RemoteApplier is the worker-side entry point realtime events are fed
// into. Implemented by the entity sync worker.
type RemoteApplier interface {
	ApplyRemote(ctx context.Context, ev models.ChangeEvent) error
}
