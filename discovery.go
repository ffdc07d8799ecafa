package vigil

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/gobwas/glob"
)

// defaultExcludeDirs mirrors core/search/indexer/scanner.go's skip-list of
// directories that are never worth matching into, even if a glob pattern
// would otherwise technically reach them.
var defaultExcludeDirs = []string{
	".git", "node_modules", ".venv", "__pycache__", "vendor",
}

// discoveryWorker periodically expands one request's glob patterns into
// concrete paths and hands new ones to spawn. Grounded on
// core/search/watcher/periodic.go's PeriodicScanner: a ticker-driven scan
// loop plus a pause-free run/stop via context cancellation rather than an
// atomic.Bool pause flag, since this engine has no pause operation
// distinct from termination.
type discoveryWorker struct {
	req      *ObservationRequest
	interval time.Duration
	excludes []glob.Glob
	notify   NotificationFunc
	limit    *limiter
	spawn    func(ctx context.Context, path string)

	seen map[string]bool
	wg   sync.WaitGroup
}

func newDiscoveryWorker(req *ObservationRequest, interval time.Duration, excludePatterns []string, notify NotificationFunc, limit *limiter, spawn func(ctx context.Context, path string)) (*discoveryWorker, error) {
	excludes := make([]glob.Glob, 0, len(excludePatterns))
	for _, p := range excludePatterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, err
		}
		excludes = append(excludes, g)
	}
	return &discoveryWorker{
		req:      req,
		interval: interval,
		excludes: excludes,
		notify:   notify,
		limit:    limit,
		spawn:    spawn,
		seen:     make(map[string]bool),
	}, nil
}

// run blocks until ctx is cancelled, scanning on every tick.
func (d *discoveryWorker) run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	if err := d.scanOnce(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := d.scanOnce(ctx); err != nil {
				return err
			}
		}
	}
}

func (d *discoveryWorker) scanOnce(ctx context.Context) error {
	for _, pattern := range d.req.Globs {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return &WorkerFailure{Kind: DiscoveryFailure, Path: pattern, Err: err}
		}
		for _, m := range matches {
			if d.seen[m] || d.isExcluded(m) {
				continue
			}
			d.seen[m] = true
			path := m
			if abs, err := filepath.Abs(m); err == nil {
				path = abs
			}
			if d.notify != nil {
				d.notify(path)
			}
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				if err := d.limit.acquire(ctx); err != nil {
					return
				}
				defer d.limit.release()
				d.spawn(ctx, path)
			}()
		}
	}
	return nil
}

// Wait blocks until every file worker this discoveryWorker has ever spawned
// has returned. Grounded on core/search/watcher/coordinator.go's Stop(),
// which closes its stop channel and then calls wg.Wait() before returning,
// so no caller can observe termination while a worker is still mid-tick.
func (d *discoveryWorker) Wait() {
	d.wg.Wait()
}

func (d *discoveryWorker) isExcluded(path string) bool {
	for _, dir := range defaultExcludeDirs {
		if containsDirComponent(path, dir) {
			return true
		}
	}
	for _, g := range d.excludes {
		if g.Match(path) {
			return true
		}
	}
	return false
}

func containsDirComponent(path, dir string) bool {
	for {
		base := filepath.Base(path)
		if base == dir {
			return true
		}
		parent := filepath.Dir(path)
		if parent == path {
			return false
		}
		path = parent
	}
}
