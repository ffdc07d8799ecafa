package vigil

import "context"

// limiter caps the number of file workers running concurrently for one
// discipline (the file_limit knob). Generalized from
// core/concurrency/goroutine_budget.go's Acquire/Release semaphore core,
// trimmed of its per-agent-type pressure-weighted recalculation — this
// module has exactly one tenant per discipline, so there is nothing for
// that weighting to balance against. The acquire-blocks/release-signals
// shape is kept, implemented here as a buffered channel rather than the
// budget's sync.Cond, since there is no need to wake multiple distinct
// waiter classes.
//
// A nil or non-positive capacity means unbounded, matching thread.py's
// `if self._file_limit and self.n_running >= self._file_limit` check,
// which treats both None and 0 as "no limit" rather than raising.
type limiter struct {
	slots     chan struct{}
	unbounded bool
}

func newLimiter(capacity *int) *limiter {
	if capacity == nil || *capacity <= 0 {
		return &limiter{unbounded: true}
	}
	return &limiter{slots: make(chan struct{}, *capacity)}
}

// acquire blocks until a slot is free or ctx is done. An unbounded limiter
// never blocks on slots, only on ctx.
func (l *limiter) acquire(ctx context.Context) error {
	if l.unbounded {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// release frees a slot previously obtained from acquire.
func (l *limiter) release() {
	if l.unbounded {
		return
	}
	select {
	case <-l.slots:
	default:
	}
}
