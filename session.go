package vigil

import (
	"context"
	"sync"

	"github.com/arclight-dev/vigil/config"
)

// SupervisorConfigFromFile builds a SupervisorConfig from a session
// defaults YAML file on disk (or the built-in defaults if path does not
// exist), leaving Notification and Exception for the caller to set.
func SupervisorConfigFromFile(path string) (SupervisorConfig, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return SupervisorConfig{}, err
	}
	return SupervisorConfig{
		Interval:           cfg.Interval,
		FileLimit:          cfg.FileLimit,
		FlattenData:        cfg.FlattenData,
		ExcludeGlobs:       cfg.ExcludeGlobs,
		LockCallbacks:      cfg.LockCallbacks,
		TerminateAllOnFail: cfg.TerminateAllOnFail,
		Timeout:            cfg.Timeout,
	}, nil
}

// Session is the public façade: register snapshot (Track) and incremental
// (Tail) requests, then Run to start polling. Grounded on monitor.py's
// FileMonitor, whose __enter__/__exit__ context-manager pair corresponds
// here to constructing a Session and calling Run, with Terminate standing
// in for an external signal to unwind early.
type Session struct {
	cfg SupervisorConfig

	mu        sync.Mutex
	requests  []*ObservationRequest
	byPattern map[string]Discipline
	running   bool

	cancel context.CancelFunc
}

// NewSession constructs a Session in the Configured state. Nothing is
// polled until Run is called.
func NewSession(cfg SupervisorConfig) *Session {
	return &Session{
		cfg:       cfg,
		byPattern: make(map[string]Discipline),
	}
}

// Track registers a snapshot (re-parse-in-full) request over globs.
func (s *Session) Track(globs []string, opts ...Option) (*ObservationRequest, error) {
	return s.register(Snapshot, globs, opts)
}

// Tail registers an incremental (byte-delta) request over globs.
func (s *Session) Tail(globs []string, opts ...Option) (*ObservationRequest, error) {
	return s.register(Incremental, globs, opts)
}

// Exclude adds path-matching patterns that discovery skips across every
// registered request, regardless of discipline.
func (s *Session) Exclude(patterns ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.ExcludeGlobs = append(s.cfg.ExcludeGlobs, patterns...)
}

func (s *Session) register(d Discipline, globs []string, opts []Option) (*ObservationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil, ErrSessionRunning
	}

	req := &ObservationRequest{Discipline: d, Globs: globs}
	for _, opt := range opts {
		opt(req)
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	for _, g := range globs {
		if existing, ok := s.byPattern[g]; ok && existing != d {
			return nil, ErrDisciplineConflict
		}
	}
	for _, g := range globs {
		s.byPattern[g] = d
	}

	s.requests = append(s.requests, req)
	return req, nil
}

// Run starts polling every registered request and blocks until one of:
// ctx is cancelled, Terminate is called, the configured Timeout elapses,
// the ExternalFlag is set, or a worker fails under TerminateAllOnFail.
// Run does not return on its own when every registered request is a
// static Track whose files have all been parsed: discovery keeps polling
// until one of the causes above ends the run. It returns the aggregated
// failure from every worker that failed during the run, or nil.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSessionRunning
	}
	s.running = true
	requests := make([]*ObservationRequest, len(s.requests))
	copy(requests, s.requests)
	cfg := s.cfg
	s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	sup := newSupervisor(cfg, requests)
	return sup.run(runCtx)
}

// Terminate signals a running session to stop. It is safe to call before
// Run (a no-op) or after Run has already returned.
func (s *Session) Terminate() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
