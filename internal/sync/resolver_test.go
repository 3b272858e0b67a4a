package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fieldkit/fieldsync/models"
)

func localRecord(entity models.EntityType, id string, state models.SyncState, updatedAt time.Time) *models.Record {
	rec := &models.Record{
		ID:        id,
		Entity:    entity,
		Payload:   []byte(`{}`),
		UpdatedAt: updatedAt,
	}
	rec.State = state
	return rec
}

func TestResolver_InFlightSuppressesEverything(t *testing.T) {
	r := NewResolver()
	now := time.Now()

	r.MarkInFlight(models.EntityListing, []string{"l1"})

	local := localRecord(models.EntityListing, "l1", models.StatePending, now)
	verdict := r.ShouldApplyRemote(local, models.EntityListing, "l1", now.Add(time.Hour))
	assert.Equal(t, SkipInFlight, verdict)

	// Same id under a different entity type is not in flight.
	verdict = r.ShouldApplyRemote(local, models.EntityTask, "l1", now.Add(time.Hour))
	assert.Equal(t, ApplyRemote, verdict)

	r.ClearInFlight(models.EntityListing)
	assert.False(t, r.IsInFlight(models.EntityListing, "l1"))
}

func TestResolver_LastWriteWins(t *testing.T) {
	r := NewResolver()
	t1 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		state    models.SyncState
		incoming time.Time
		want     Verdict
	}{
		{"pending local, newer remote applies", models.StatePending, t1.Add(time.Second), ApplyRemote},
		{"pending local, equal remote skipped", models.StatePending, t1, SkipStale},
		{"pending local, older remote skipped", models.StatePending, t1.Add(-time.Second), SkipStale},
		{"synced local, any remote applies", models.StateSynced, t1.Add(-time.Hour), ApplyRemote},
		{"failed local treated as dirty", models.StateFailed, t1.Add(-time.Second), SkipStale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local := localRecord(models.EntityListing, "l1", tt.state, t1)
			assert.Equal(t, tt.want, r.ShouldApplyRemote(local, models.EntityListing, "l1", tt.incoming))
		})
	}
}

func TestResolver_UnknownLocalAlwaysApplies(t *testing.T) {
	r := NewResolver()
	verdict := r.ShouldApplyRemote(nil, models.EntityListing, "new", time.Now())
	assert.Equal(t, ApplyRemote, verdict)
}

func TestResolver_ServerWins(t *testing.T) {
	r := NewResolver()
	now := time.Now()

	// Audit entries are server-wins: even an older remote version over a
	// pending local copy applies.
	local := localRecord(models.EntityAuditEntry, "a1", models.StatePending, now)
	assert.Equal(t, ApplyRemote, r.ShouldApplyRemote(local, models.EntityAuditEntry, "a1", now.Add(-time.Hour)))

	// Unless the id is in flight.
	r.MarkInFlight(models.EntityAuditEntry, []string{"a1"})
	assert.Equal(t, SkipInFlight, r.ShouldApplyRemote(local, models.EntityAuditEntry, "a1", now.Add(time.Hour)))
}

func TestResolver_ManualFlagsConflictWhilePending(t *testing.T) {
	r := NewResolver()
	now := time.Now()

	local := localRecord(models.EntityNote, "n1", models.StatePending, now)
	assert.Equal(t, SkipConflict, r.ShouldApplyRemote(local, models.EntityNote, "n1", now.Add(time.Hour)))

	local.State = models.StateSynced
	assert.Equal(t, ApplyRemote, r.ShouldApplyRemote(local, models.EntityNote, "n1", now.Add(time.Hour)))
}
