package vigil

import "sync/atomic"

// TerminationFlag is a set-once signal, safe to read and write from any
// goroutine. It serves two roles in a session: as the external termination
// trigger a caller can set to request a graceful stop, and as a downstream
// subprocess trigger the supervisor sets after every worker has joined, so
// an external process can poll or select on it.
type TerminationFlag struct {
	set  atomic.Bool
	done chan struct{}
}

// NewTerminationFlag returns an unset flag.
func NewTerminationFlag() *TerminationFlag {
	return &TerminationFlag{done: make(chan struct{})}
}

// Set marks the flag, idempotently. Safe to call more than once.
func (f *TerminationFlag) Set() {
	if f.set.CompareAndSwap(false, true) {
		close(f.done)
	}
}

// IsSet reports whether Set has been called.
func (f *TerminationFlag) IsSet() bool {
	return f.set.Load()
}

// Done returns a channel closed when Set is called, for use in a select
// alongside a context's Done channel.
func (f *TerminationFlag) Done() <-chan struct{} {
	return f.done
}
