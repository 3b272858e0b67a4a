// Package adapter provides the transport layer for talking to the fieldsync
// backend.
//
// The primary abstraction is [Backend], which decouples the sync engine from
// the wire protocol. The package ships an HTTP/REST implementation
// ([NewHTTPBackend]) built on resty. Transport failures are wrapped with the
// sentinel errors of internal/syncerr so the engine can classify them
// without inspecting HTTP details.
package adapter

import (
	"context"
	"time"

	"github.com/fieldkit/fieldsync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/backend_mock.go -package=mock

// Backend defines transport-agnostic communication with the fieldsync
// server. Implementations are responsible for serialisation, bearer-token
// management, and mapping transport-level failures to the sentinel errors in
// internal/syncerr.
type Backend interface {
	// SetToken stores the bearer token attached to all subsequent requests.
	// Called by the auth collaborator after sign-in or refresh.
	SetToken(token string)

	// Token returns the currently stored bearer token, empty if none.
	Token() string

	// TokenExpiresWithin reports whether the stored token's exp claim falls
	// inside the given window, so the auth collaborator can be asked to
	// refresh before a pass. A missing or unparsable token reports true.
	TokenExpiresWithin(window time.Duration) bool

	// FetchChanged returns all remote records of the given entity type
	// changed since the watermark, oldest first. A zero since requests the
	// full history.
	FetchChanged(ctx context.Context, entity models.EntityType, since time.Time) ([]models.ChangeEvent, error)

	// Upsert pushes one record. The operation is keyed by record id and is
	// safe to repeat.
	Upsert(ctx context.Context, rec models.Record) error
}
