package session

import "errors"

// ErrBackTransition is returned when a caller attempts to move a session's
// lifecycle backwards or sideways, violating the monotonic partial order
// INIT < ACTIVE < CLOSED.
var ErrBackTransition = errors.New("session: illegal lifecycle back-transition")

// ErrPlanHashLocked is returned when a caller attempts to overwrite an
// already-bound plan hash without going through RecordPlanOverwrite, which
// produces the auditable overwrite record the write-once rule requires.
var ErrPlanHashLocked = errors.New("session: plan hash is write-once")

// Store persists and retrieves per-session state. One state record exists
// per session; siblings hooks invoked within the same turn, and hooks
// invoked across turns of the same session, all read and mutate through this
// interface.
type Store interface {
	// Load returns the session state, or a fresh INIT state if none exists
	// yet; the fresh state is not persisted until Save is called.
	Load(sessionID string) (*State, error)
	// Save persists the given state. Implementations must write atomically.
	Save(state *State) error
}

// Transition moves the session to next, enforcing the monotonic partial
// order. It is a no-op error, not a panic, so mandatory hooks can map it
// directly to a block decision.
func (s *State) Transition(next Lifecycle) error {
	if !s.Lifecycle.CanTransition(next) {
		return ErrBackTransition
	}
	s.Lifecycle = next
	return nil
}

// BindPlanHash stores hash as the session's plan hash. It fails if a
// different hash is already bound; RecordPlanOverwrite must be used for an
// explicit, audited overwrite.
func (s *State) BindPlanHash(hash string) error {
	if s.PlanHash != "" && s.PlanHash != hash {
		return ErrPlanHashLocked
	}
	s.PlanHash = hash
	s.PlanContext = &PlanContext{Hash: hash, StoredAt: s.UpdatedAt}
	return nil
}

// RecordPlanOverwrite replaces the bound plan hash with newHash and appends
// an auditable overwrite record to the audit log; the plan hash is
// write-once unless that record is produced.
func (s *State) RecordPlanOverwrite(newHash string) {
	old := s.PlanHash
	s.AppendAudit("plan_hash_overwrite", map[string]any{
		"old_hash": old,
		"new_hash": newHash,
	})
	s.PlanHash = newHash
	s.PlanContext = &PlanContext{Hash: newHash}
}
