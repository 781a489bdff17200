package testutil

import "sync"

// ManualSignal is a connectivity signal tests drive by hand.
//
// SetOnline records the new state and delivers the transition to Events()
// without blocking (the buffer coalesces bursts, mirroring how platform
// connectivity callbacks behave).
type ManualSignal struct {
	mu     sync.Mutex
	online bool
	events chan bool
}

// NewManualSignal creates a signal starting in the given state.
func NewManualSignal(online bool) *ManualSignal {
	return &ManualSignal{
		online: online,
		events: make(chan bool, 8),
	}
}

// Online implements engine.Signal.
func (s *ManualSignal) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// Events implements engine.Signal.
func (s *ManualSignal) Events() <-chan bool {
	return s.events
}

// SetOnline flips the state and emits a transition event.
// Emitting is non-blocking; a full buffer drops the event, which is fine
// for tests that only care about the latest state.
func (s *ManualSignal) SetOnline(online bool) {
	s.mu.Lock()
	changed := s.online != online
	s.online = online
	s.mu.Unlock()

	if !changed {
		return
	}
	select {
	case s.events <- online:
	default:
	}
}
