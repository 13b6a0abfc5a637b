package cloudsync

import "sync"

// Status is the last observed sync outcome.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusSynced  Status = "synced"
	StatusFailed  Status = "failed"
)

// State is the derived, in-memory-only sync state. It is rebuilt on every
// process start by asking the auth service for an existing session; nothing
// here is persisted.
type State struct {
	mu     sync.Mutex
	linked bool
	status Status
}

// NewState returns an idle, unlinked state.
func NewState() *State {
	return &State{status: StatusIdle}
}

// SetLinked records whether a cloud account session exists.
func (s *State) SetLinked(linked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.linked = linked
}

// SetStatus records the outcome of the latest sync attempt.
func (s *State) SetStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// Snapshot returns the current linked flag and status.
func (s *State) Snapshot() (linked bool, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linked, s.status
}
