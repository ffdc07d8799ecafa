package vigil

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// sessionState is the supervisor's state machine: Configured -> Running ->
// Stopping -> Stopped. Adapted from core/concurrency/lifecycle.go's
// atomic-int32-plus-transition-table shape; its separate Starting/Failed
// states and signal-bus hook are dropped since this module has no async
// start phase and surfaces failures only through the aggregated exception
// callback, not a distinct state.
type sessionState int32

const (
	stateConfigured sessionState = iota
	stateRunning
	stateStopping
	stateStopped
)

func (s sessionState) String() string {
	switch s {
	case stateConfigured:
		return "configured"
	case stateRunning:
		return "running"
	case stateStopping:
		return "stopping"
	case stateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

var validLifecycleTransitions = map[sessionState][]sessionState{
	stateConfigured: {stateRunning},
	stateRunning:    {stateStopping},
	stateStopping:   {stateStopped},
	stateStopped:    {},
}

// lifecycle tracks session state and lets goroutines wait for a target
// state to be reached.
type lifecycle struct {
	state atomic.Int32

	mu      sync.Mutex
	waiters map[sessionState][]chan struct{}
}

func newLifecycle() *lifecycle {
	l := &lifecycle{waiters: make(map[sessionState][]chan struct{})}
	l.state.Store(int32(stateConfigured))
	return l
}

func (l *lifecycle) current() sessionState {
	return sessionState(l.state.Load())
}

// transition moves the lifecycle to next, validating against the table.
// It wakes any goroutine blocked in waitFor(next).
func (l *lifecycle) transition(next sessionState) error {
	cur := l.current()
	allowed := false
	for _, s := range validLifecycleTransitions[cur] {
		if s == next {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("vigil: invalid session state transition %s -> %s", cur, next)
	}
	l.state.Store(int32(next))

	l.mu.Lock()
	waiters := l.waiters[next]
	delete(l.waiters, next)
	l.mu.Unlock()

	for _, ch := range waiters {
		close(ch)
	}
	return nil
}

// waitFor blocks until the lifecycle reaches target, returning immediately
// if it has already been reached.
func (l *lifecycle) waitFor(target sessionState) <-chan struct{} {
	if l.current() == target {
		done := make(chan struct{})
		close(done)
		return done
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current() == target {
		done := make(chan struct{})
		close(done)
		return done
	}
	ch := make(chan struct{})
	l.waiters[target] = append(l.waiters[target], ch)
	return ch
}
