package syncerr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fieldkit/fieldsync/models"
)

type fakeNetError struct{}

func (fakeNetError) Error() string   { return "dial tcp: i/o timeout" }
func (fakeNetError) Timeout() bool   { return true }
func (fakeNetError) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      Kind
		retryable bool
	}{
		{"nil", nil, "", false},
		{"deadline exceeded", context.DeadlineExceeded, KindOffline, true},
		{"connection refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), KindOffline, true},
		{"offline sentinel", fmt.Errorf("fetch: %w", ErrOffline), KindOffline, true},
		{"rate limited", ErrRateLimited, KindRateLimited, true},
		{"server error", fmt.Errorf("push: %w", ErrServer), KindServerError, true},
		{"unauthorized", ErrUnauthorized, KindUnauthorized, false},
		{"permission denied", ErrPermissionDenied, KindPermissionDenied, false},
		{"bad request", ErrBadRequest, KindBadRequest, false},
		{"invalid payload", fmt.Errorf("%w: notes record without id", models.ErrInvalidPayload), KindInvalidData, false},
		{"unknown entity", fmt.Errorf("%w: gadgets", models.ErrUnknownEntity), KindCodec, false},
		{"net error", fakeNetError{}, KindNetwork, true},
		{"op error", &net.OpError{Op: "read", Err: errors.New("reset")}, KindNetwork, true},
		{"unknown defaults retryable", errors.New("who knows"), KindUnknown, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(tt.err)
			assert.Equal(t, tt.kind, c.Kind)
			assert.Equal(t, tt.retryable, c.Retryable)
		})
	}
}

func TestClassify_TableAttribution(t *testing.T) {
	inner := &TableError{Table: models.EntityListing, Err: fmt.Errorf("push: %w", ErrServer)}
	c := Classify(errors.Join(inner))

	assert.Equal(t, KindServerError, c.Kind)
	assert.True(t, c.Retryable)
	assert.Equal(t, models.EntityListing, c.Table)
	assert.Contains(t, c.Message, "listings")
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(ErrServer))
	assert.False(t, Retryable(ErrPermissionDenied))
}

func TestClassify_TimeoutWrappedDeep(t *testing.T) {
	err := fmt.Errorf("pass: %w", &TableError{
		Table: models.EntityTask,
		Err:   fmt.Errorf("fetch: %w", os.ErrDeadlineExceeded),
	})
	c := Classify(err)
	assert.Equal(t, KindOffline, c.Kind)
	assert.True(t, c.Retryable)
	assert.Equal(t, models.EntityTask, c.Table)
}
