package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrategyFor(t *testing.T) {
	assert.Equal(t, LastWriteWins, StrategyFor(EntityUser))
	assert.Equal(t, LastWriteWins, StrategyFor(EntityProperty))
	assert.Equal(t, LastWriteWins, StrategyFor(EntityListing))
	assert.Equal(t, LastWriteWins, StrategyFor(EntityTask))
	assert.Equal(t, Manual, StrategyFor(EntityNote))
	assert.Equal(t, ServerWins, StrategyFor(EntityAuditEntry))
}

func TestEntityOrder_OwnersBeforeDependents(t *testing.T) {
	index := make(map[EntityType]int, len(EntityOrder))
	for i, e := range EntityOrder {
		index[e] = i
	}

	assert.Less(t, index[EntityUser], index[EntityProperty])
	assert.Less(t, index[EntityProperty], index[EntityListing])
	assert.Less(t, index[EntityListing], index[EntityTask])
	assert.Less(t, index[EntityListing], index[EntityNote])
}

func TestRecord_Fingerprint(t *testing.T) {
	a := &Record{Payload: []byte(`{"id":"l1","title":"house"}`)}
	b := &Record{Payload: []byte(`{"id":"l1","title":"house"}`)}
	c := &Record{Payload: []byte(`{"id":"l1","title":"flat"}`)}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.Len(t, a.Fingerprint(), 16)
}

func TestDecodePayload(t *testing.T) {
	updated := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	valid := fmt.Sprintf(`{"id":"l1","title":"house","updated_at":%q}`, updated.Format(time.RFC3339))

	t.Run("valid listing", func(t *testing.T) {
		rec, err := DecodePayload(EntityListing, []byte(valid))
		require.NoError(t, err)
		assert.Equal(t, "l1", rec.RecordID())
		assert.Equal(t, EntityListing, rec.EntityKind())
		assert.True(t, rec.ModifiedAt().Equal(updated))
		assert.Equal(t, LastWriteWins, rec.Strategy())
	})

	t.Run("unknown entity", func(t *testing.T) {
		_, err := DecodePayload("gadgets", []byte(valid))
		require.ErrorIs(t, err, ErrUnknownEntity)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := DecodePayload(EntityListing, []byte(`{broken`))
		require.ErrorIs(t, err, ErrInvalidPayload)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := DecodePayload(EntityListing, []byte(`{"title":"house","updated_at":"2026-06-01T08:00:00Z"}`))
		require.ErrorIs(t, err, ErrInvalidPayload)
	})

	t.Run("missing updated_at", func(t *testing.T) {
		_, err := DecodePayload(EntityNote, []byte(`{"id":"n1","body":"hi"}`))
		require.ErrorIs(t, err, ErrInvalidPayload)
	})
}
