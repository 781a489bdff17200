package engine

// Signal reports device connectivity to the engine.
//
// The engine never implements connectivity detection itself; an external
// collaborator (OS callbacks, a probe loop, a CLI flag) feeds it. Events()
// delivers transitions: true for offline-to-online, false for the reverse.
// The reconciler sweeps the pending queue on each true event.
type Signal interface {
	// Online reports the current belief about connectivity.
	Online() bool

	// Events returns a channel of connectivity transitions.
	// The channel is never closed by the engine.
	Events() <-chan bool
}

// StaticSignal is a Signal that never changes. Useful for one-shot CLI
// invocations where connectivity was decided before the command ran.
type StaticSignal struct {
	IsOnline bool
	events   chan bool
}

// NewStaticSignal creates a signal pinned to the given state.
func NewStaticSignal(online bool) *StaticSignal {
	return &StaticSignal{IsOnline: online, events: make(chan bool)}
}

// Online implements Signal.
func (s *StaticSignal) Online() bool { return s.IsOnline }

// Events implements Signal. The channel never delivers: a static signal has
// no transitions.
func (s *StaticSignal) Events() <-chan bool { return s.events }
