package vigil

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// SupervisorConfig carries the session-wide knobs for a supervised run.
// Grounded on monitor.py's FileMonitor constructor parameter list.
type SupervisorConfig struct {
	// Interval between polling ticks, shared by discovery and file
	// workers.
	Interval time.Duration

	// FileLimit caps concurrently running file workers per discipline. A
	// nil FileLimit is unbounded, matching monitor.py's file_limit=None;
	// the documented default of 50 is applied by config.Default(), not by
	// a SupervisorConfig zero value.
	FileLimit *int

	// ExcludeGlobs are path patterns discovery skips even if a
	// registered glob pattern would otherwise match them.
	ExcludeGlobs []string

	// FlattenData collapses nested mappings in a parsed payload into a
	// single level, joining keys with "." before the tracked-values
	// filter runs. Defaults to false, matching monitor.py's
	// flatten_data default.
	FlattenData bool

	// LockCallbacks serializes every Callback/NotificationFunc
	// invocation behind one mutex, trading throughput for a caller that
	// need not be reentrant-safe (monitor.py's lock_callbacks).
	LockCallbacks bool

	// TerminateAllOnFail escalates any single worker failure into
	// termination of the whole session (monitor.py's
	// terminate_all_on_fail / _generate_exception_callback).
	TerminateAllOnFail bool

	// Timeout, if non-zero, terminates the session unconditionally once
	// elapsed.
	Timeout time.Duration

	// ExternalFlag, if set, is an additional cooperative-cancellation
	// signal alongside the Run context — a caller can hold a reference
	// to it and call Set from outside the goroutine that called Run.
	ExternalFlag *TerminationFlag

	// DownstreamTriggers are set, in order, strictly after every worker
	// has joined, so an external consumer never observes the flag before
	// the run has fully wound down.
	DownstreamTriggers []*TerminationFlag

	Notification NotificationFunc
	Exception    ExceptionFunc
}

// supervisor owns the full set of registered requests for one session run
// and drives their discovery and file workers to completion. Grounded on
// monitor.py's FileMonitor.__enter__/_close_processes ordering: join every
// worker first, only then fire downstream triggers and raise the
// aggregated exception.
type supervisor struct {
	cfg      SupervisorConfig
	requests []*ObservationRequest
	life     *lifecycle
	failures *failureRegistry

	callbackMu sync.Mutex

	limiters map[Discipline]*limiter
}

func newSupervisor(cfg SupervisorConfig, requests []*ObservationRequest) *supervisor {
	if cfg.Interval <= 0 {
		cfg.Interval = 100 * time.Millisecond
	}
	return &supervisor{
		cfg:      cfg,
		requests: requests,
		life:     newLifecycle(),
		failures: newFailureRegistry(),
		limiters: map[Discipline]*limiter{
			Snapshot:    newLimiter(cfg.FileLimit),
			Incremental: newLimiter(cfg.FileLimit),
		},
	}
}

// run blocks until every request's discovery worker and all of its spawned
// file workers have exited, via cancellation, timeout, the ExternalFlag,
// or a propagated failure under TerminateAllOnFail; static workers that
// finish do not end the run by themselves. It returns the
// aggregated failure, if any, matching monitor.py's __exit__ contract.
func (s *supervisor) run(ctx context.Context) error {
	if err := s.life.transition(stateRunning); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.cfg.Timeout > 0 {
		timer := time.AfterFunc(s.cfg.Timeout, cancel)
		defer timer.Stop()
	}

	if s.cfg.ExternalFlag != nil {
		go func() {
			select {
			case <-s.cfg.ExternalFlag.Done():
				cancel()
			case <-runCtx.Done():
			}
		}()
	}

	group, groupCtx := errgroup.WithContext(runCtx)
	var workers []*discoveryWorker

	fail := func(f *WorkerFailure) {
		s.failures.record(f)
		if s.cfg.TerminateAllOnFail {
			cancel()
		}
	}

	emit := func(req *ObservationRequest) func(Record) {
		return func(rec Record) {
			if req.Callback == nil {
				return
			}
			if s.cfg.LockCallbacks {
				s.callbackMu.Lock()
				defer s.callbackMu.Unlock()
			}
			req.Callback(rec)
		}
	}

	notify := func(path string) {
		if s.cfg.Notification == nil {
			return
		}
		if s.cfg.LockCallbacks {
			s.callbackMu.Lock()
			defer s.callbackMu.Unlock()
		}
		s.cfg.Notification(path)
	}

	for _, req := range s.requests {
		req := req
		limit := s.limiters[req.Discipline]
		emitFn := emit(req)

		var spawn func(ctx context.Context, path string)
		switch req.Discipline {
		case Snapshot:
			spawn = func(ctx context.Context, path string) {
				runSnapshotWorker(ctx, path, req, s.cfg.Interval, s.cfg.FlattenData, emitFn, fail)
			}
		case Incremental:
			spawn = func(ctx context.Context, path string) {
				runIncrementalWorker(ctx, path, req, s.cfg.Interval, s.cfg.FlattenData, emitFn, fail)
			}
		}

		worker, err := newDiscoveryWorker(req, s.cfg.Interval, s.cfg.ExcludeGlobs, notify, limit, spawn)
		if err != nil {
			s.failures.record(&WorkerFailure{Kind: DiscoveryFailure, Err: err})
			continue
		}
		workers = append(workers, worker)

		group.Go(func() error {
			if err := worker.run(groupCtx); err != nil {
				if wf, ok := err.(*WorkerFailure); ok {
					fail(wf)
				}
			}
			return nil
		})
	}

	// group.Wait joins the discovery workers themselves; each discovery
	// worker's own file-worker goroutines are joined explicitly below so
	// that no callback can fire, and no downstream trigger is set, while
	// any worker is still mid-tick.
	_ = group.Wait()

	if err := s.life.transition(stateStopping); err != nil {
		return err
	}

	for _, worker := range workers {
		worker.Wait()
	}

	for _, trigger := range s.cfg.DownstreamTriggers {
		trigger.Set()
	}

	if err := s.life.transition(stateStopped); err != nil {
		return err
	}

	failures := s.failures.snapshot()
	err := aggregate(failures)
	if err != nil && s.cfg.Exception != nil {
		s.cfg.Exception(err.Error())
	}
	return err
}
