package server

import (
	"sync"
	"time"

	"github.com/conneroisu/switchboard/internal/errors"
)

// State is the process-wide server lifecycle state.
//
// Allowed transitions:
//
//	starting  -> listening | stopped
//	listening -> draining
//	draining  -> stopped
//
// Anything else is rejected by Lifecycle.
type State int32

const (
	StateStarting State = iota
	StateListening
	StateDraining
	StateStopped
)

// String returns the string representation of the State
func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateListening:
		return "listening"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

var allowedTransitions = map[State][]State{
	StateStarting:  {StateListening, StateStopped},
	StateListening: {StateDraining},
	StateDraining:  {StateStopped},
}

// Transition records one state change.
type Transition struct {
	From State
	To   State
	At   time.Time
}

// Lifecycle is the single owner of the server state. Observers are invoked
// synchronously, in subscription order, after the state has changed.
type Lifecycle struct {
	mu        sync.Mutex
	state     State
	observers []func(Transition)
	changed   chan struct{}
	stopped   chan struct{}
}

// NewLifecycle returns a lifecycle in StateStarting.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		state:   StateStarting,
		changed: make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Subscribe registers fn to be called on every subsequent transition.
func (l *Lifecycle) Subscribe(fn func(Transition)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, fn)
}

// Changed returns a channel that is closed on the next transition.
func (l *Lifecycle) Changed() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.changed
}

// Stopped returns a channel that is closed once the state reaches StateStopped.
func (l *Lifecycle) Stopped() <-chan struct{} {
	return l.stopped
}

// transition moves to next, or returns a lifecycle error if the move is not
// in allowedTransitions.
func (l *Lifecycle) transition(next State) error {
	l.mu.Lock()
	from := l.state
	if !canTransition(from, next) {
		l.mu.Unlock()
		return errors.NewLifecycleError(from, next)
	}
	l.state = next
	observers := make([]func(Transition), len(l.observers))
	copy(observers, l.observers)
	close(l.changed)
	l.changed = make(chan struct{})
	if next == StateStopped {
		close(l.stopped)
	}
	l.mu.Unlock()

	t := Transition{From: from, To: next, At: time.Now()}
	for _, fn := range observers {
		fn(t)
	}
	return nil
}

func canTransition(from, to State) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
