package models

import "time"

// SyncPhase is the coordinator's published state machine position.
type SyncPhase string

const (
	PhaseIdle        SyncPhase = "idle"
	PhaseSyncing     SyncPhase = "syncing"
	PhaseOK          SyncPhase = "ok"
	PhaseError       SyncPhase = "error"
	PhaseBreakerOpen SyncPhase = "circuit_breaker_open"
)

// SyncStatus is the value the UI layer observes. RunID correlates a delayed
// failure with the request that triggered it, so a toast does not fire for a
// stale, superseded run.
type SyncStatus struct {
	Phase              SyncPhase
	RunID              string
	LastSyncedAt       time.Time
	LastError          string
	LastErrorRetryable bool
	BreakerRemaining   time.Duration
}

// IsSyncing reports whether a pass is physically executing.
func (s SyncStatus) IsSyncing() bool { return s.Phase == PhaseSyncing }

// RealtimeState is the subscription manager's connection state machine.
type RealtimeState string

const (
	RealtimeConnected    RealtimeState = "connected"
	RealtimeReconnecting RealtimeState = "reconnecting"
	RealtimeDegraded     RealtimeState = "degraded"
)

// RealtimeStatus is published by the subscription manager. Attempt and
// MaxAttempts are meaningful only while reconnecting.
type RealtimeStatus struct {
	State       RealtimeState
	Attempt     int
	MaxAttempts int
}
