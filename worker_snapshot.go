package vigil

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
)

// runSnapshotWorker polls one file's mtime, re-parsing the entire file and
// emitting a Record whenever it advances. Grounded on
// thread.py's _read_action closure: sleep(interval), continue if the file
// is gone, skip the tick if mtime is unchanged from the cached value,
// otherwise re-parse and flatten/filter before invoking the callback and
// breaking out of the loop for a static_read request. A static request
// keeps polling until its first successful parse-and-emit cycle, matching
// that same break-only-on-success behavior, rather than returning after a
// single attempt. A parser failure is reported once and ends the worker.
func runSnapshotWorker(ctx context.Context, path string, req *ObservationRequest, interval time.Duration, flattenData bool, emit func(Record), fail func(*WorkerFailure)) {
	workerID := uuid.NewString()
	var lastMod time.Time

	failed := false
	reportFailure := fail
	fail = func(f *WorkerFailure) {
		failed = true
		reportFailure(f)
	}

	tick := func() bool {
		info, err := os.Stat(path)
		if err != nil {
			// The file may have been removed between discovery and this
			// tick; that is not a failure, just nothing to do yet.
			return false
		}
		if !info.ModTime().After(lastMod) {
			return false
		}
		lastMod = info.ModTime()

		parser, err := resolveSnapshotParser(path, req, req.customSnapshot)
		if err != nil {
			fail(&WorkerFailure{Kind: ParserFailure, Path: path, Err: err})
			return false
		}

		extras, payload, err := parser.ParseSnapshot(path, req.ParserKwargs)
		if err != nil {
			fail(&WorkerFailure{Kind: ParserFailure, Path: path, Err: err})
			return false
		}

		data := extract(payload, req.TrackedValues, flattenData)
		if data == nil {
			return true
		}

		emit(Record{
			Data: data,
			Metadata: Metadata{
				FileName:  path,
				Timestamp: time.Now(),
				Extra:     extras,
				WorkerID:  workerID,
			},
		})
		return true
	}

	if req.Static {
		// A static request must complete exactly one successful
		// parse-and-emit cycle, not merely attempt one: if the file is
		// transiently missing right after discovery hands off the path,
		// thread.py's loop keeps polling (continue) rather than giving
		// up, and only breaks once a tick actually succeeds.
		if tick() || failed {
			return
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if tick() || failed {
					return
				}
			}
		}
	}

	tick()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for !failed {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick()
		}
	}
}
