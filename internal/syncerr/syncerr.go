// Package syncerr defines the error taxonomy of the sync engine and the
// single classification function everything downstream consults. Raw errors
// from the network, the backend, the codec and the local store are funneled
// through Classify; no other component inspects raw error types.
package syncerr

import (
	"context"
	"errors"
	"net"
	"os"
	"syscall"

	"github.com/fieldkit/fieldsync/models"
)

// Kind is a machine-readable error class. String-valued for debuggability
// and natural JSON serialization.
type Kind string

const (
	KindOffline          Kind = "OFFLINE"
	KindNetwork          Kind = "NETWORK_ERROR"
	KindRateLimited      Kind = "RATE_LIMITED"
	KindServerError      Kind = "SERVER_ERROR"
	KindBadRequest       Kind = "BAD_REQUEST"
	KindPermissionDenied Kind = "PERMISSION_DENIED"
	KindUnauthorized     Kind = "UNAUTHORIZED"
	KindCodec            Kind = "CODEC_FAILED"
	KindInvalidData      Kind = "INVALID_DATA"
	KindUnknown          Kind = "UNKNOWN"
)

// Sentinels the transport and codec layers wrap so classification can use
// errors.Is without depending on resty or database/sql internals.
var (
	ErrOffline          = errors.New("no connectivity")
	ErrRateLimited      = errors.New("rate limited")
	ErrServer           = errors.New("server error")
	ErrBadRequest       = errors.New("bad request")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnauthorized     = errors.New("unauthorized")
)

// Classified is the classification result every retry and state decision is
// based on.
type Classified struct {
	Kind      Kind
	Retryable bool
	Message   string

	// Table is set when the failure is scoped to one entity type, e.g. a
	// policy rejection on a single table.
	Table models.EntityType
}

// Classify maps a raw error onto the taxonomy. Unknown errors default to
// retryable so transient issues are not silently fatal.
func Classify(err error) Classified {
	if err == nil {
		return Classified{}
	}

	c := Classified{Kind: KindUnknown, Retryable: true, Message: err.Error()}

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		c.Kind = KindOffline
	case errors.Is(err, ErrOffline),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETUNREACH):
		c.Kind = KindOffline
	case errors.Is(err, ErrRateLimited):
		c.Kind = KindRateLimited
	case errors.Is(err, ErrServer):
		c.Kind = KindServerError
	case errors.Is(err, ErrUnauthorized):
		c.Kind = KindUnauthorized
		c.Retryable = false
	case errors.Is(err, ErrPermissionDenied):
		c.Kind = KindPermissionDenied
		c.Retryable = false
	case errors.Is(err, ErrBadRequest):
		c.Kind = KindBadRequest
		c.Retryable = false
	case errors.Is(err, models.ErrInvalidPayload):
		c.Kind = KindInvalidData
		c.Retryable = false
	case errors.Is(err, models.ErrUnknownEntity):
		c.Kind = KindCodec
		c.Retryable = false
	case isNetError(err):
		c.Kind = KindNetwork
	}

	var scoped *TableError
	if errors.As(err, &scoped) {
		c.Table = scoped.Table
	}

	return c
}

// Retryable reports whether err classifies as retryable.
func Retryable(err error) bool {
	return Classify(err).Retryable
}

// TableError scopes an error to a single entity type. Wrap push and pull
// failures with it so the classification keeps the table attribution.
type TableError struct {
	Table models.EntityType
	Err   error
}

func (e *TableError) Error() string { return string(e.Table) + ": " + e.Err.Error() }
func (e *TableError) Unwrap() error { return e.Err }

func isNetError(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) {
		return true
	}
	var operr *net.OpError
	return errors.As(err, &operr)
}
