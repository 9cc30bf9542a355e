package engine

import "github.com/driftbase/syncmw/internal/conflict"

// Phase tags which variant of SyncState is populated.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseIdle
	PhaseSyncing
	PhaseConflict
	PhaseError
)

// ErrorKind classifies a SyncState in PhaseError, mirroring the
// error taxonomy kinds at the state-machine level.
type ErrorKind string

// SyncState is the engine's observable state.
type SyncState struct {
	Phase    Phase
	Progress int // 0-100, meaningful only in PhaseSyncing
	ErrKind  ErrorKind
	ErrMsg   string
	Conflicts []conflict.Conflict
	// Auto is true only on the Idle an auto-sync tick emits when it
	// skips because the network is offline; states of the Sync a tick
	// runs, and Idle while the scheduler is running, leave it false.
	Auto     bool
}

func Idle() SyncState              { return SyncState{Phase: PhaseIdle} }
func Syncing(progress int) SyncState {
	return SyncState{Phase: PhaseSyncing, Progress: progress}
}
func ErrorState(kind ErrorKind, msg string) SyncState {
	return SyncState{Phase: PhaseError, ErrKind: kind, ErrMsg: msg}
}
func ConflictState(cs []conflict.Conflict) SyncState {
	return SyncState{Phase: PhaseConflict, Conflicts: cs}
}
