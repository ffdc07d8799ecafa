package vigil

import (
	"path/filepath"
	"strings"
	"sync"
)

// SnapshotParser consumes a path plus static keyword arguments and returns
// parser-supplied metadata extras alongside the parsed payload.
type SnapshotParser interface {
	ParseSnapshot(path string, kwargs map[string]any) (extras map[string]any, payload map[string]any, err error)
}

// IncrementalParser consumes the bytes newly read since the previous tick
// and returns extras alongside either a single payload mapping or an
// ordered sequence of mappings, used when one delta covers multiple
// independent records that must be emitted separately.
type IncrementalParser interface {
	ParseIncrement(delta string, kwargs map[string]any) (extras map[string]any, payloads []map[string]any, err error)
}

// SnapshotParserFunc adapts a function to SnapshotParser.
type SnapshotParserFunc func(path string, kwargs map[string]any) (map[string]any, map[string]any, error)

// ParseSnapshot implements SnapshotParser.
func (f SnapshotParserFunc) ParseSnapshot(path string, kwargs map[string]any) (map[string]any, map[string]any, error) {
	return f(path, kwargs)
}

// IncrementalParserFunc adapts a function to IncrementalParser.
type IncrementalParserFunc func(delta string, kwargs map[string]any) (map[string]any, []map[string]any, error)

// ParseIncrement implements IncrementalParser.
func (f IncrementalParserFunc) ParseIncrement(delta string, kwargs map[string]any) (map[string]any, []map[string]any, error) {
	return f(delta, kwargs)
}

// registry maps a file suffix to the default snapshot parser for it.
// Dispatch order: explicit file-type override, then an explicit custom
// parser carried on the request, then suffix lookup here, then ErrNoParser.
type registry struct {
	mu    sync.RWMutex
	bySfx map[string]SnapshotParser
}

// Registry is the process-wide default snapshot-parser registry. Built-in
// reference parsers (see the builtin package) register themselves here by
// suffix.
var Registry = &registry{bySfx: make(map[string]SnapshotParser)}

// Register installs a snapshot parser for one or more suffixes (without the
// leading dot, e.g. "json", "yaml").
func (r *registry) Register(parser SnapshotParser, suffixes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range suffixes {
		r.bySfx[strings.ToLower(s)] = parser
	}
}

// Lookup returns the registered snapshot parser for suffix, if any.
func (r *registry) Lookup(suffix string) (SnapshotParser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.bySfx[strings.ToLower(suffix)]
	return p, ok
}

// resolveSnapshotParser implements the dispatch order above for snapshot
// requests.
func resolveSnapshotParser(path string, req *ObservationRequest, custom SnapshotParser) (SnapshotParser, error) {
	if req.FileType != "" {
		if p, ok := Registry.Lookup(req.FileType); ok {
			return p, nil
		}
		return nil, ErrNoParser
	}
	if custom != nil {
		return custom, nil
	}
	suffix := strings.TrimPrefix(filepath.Ext(path), ".")
	if p, ok := Registry.Lookup(suffix); ok {
		return p, nil
	}
	return nil, ErrNoParser
}

// resolveIncrementalParser implements the incremental-request half of the
// dispatch order above. Incremental requests cannot carry a FileType
// override (ErrFileTypeOnIncremental at registration time) or use
// suffix-based dispatch, since a byte delta has no file extension of its
// own to key off of — only an explicit parser, set via WithParser, applies.
func resolveIncrementalParser(req *ObservationRequest) (IncrementalParser, error) {
	if req.customIncremental != nil {
		return req.customIncremental, nil
	}
	return nil, ErrNoParser
}

func normalizePayloads(payload map[string]any, list []map[string]any) []map[string]any {
	if list != nil {
		return list
	}
	if payload == nil {
		return nil
	}
	return []map[string]any{payload}
}
