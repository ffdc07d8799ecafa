package vigil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type jsonLikeParser struct {
	mu    sync.Mutex
	calls int
}

func (p *jsonLikeParser) ParseSnapshot(path string, kwargs map[string]any) (map[string]any, map[string]any, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return nil, map[string]any{"raw": string(data)}, nil
}

func TestSnapshotWorkerEmitsOnMtimeAdvance(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "state.txt")
	if err := os.WriteFile(file, []byte("v1"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	parser := &jsonLikeParser{}
	req := &ObservationRequest{
		Globs:         []string{file},
		TrackedValues: []TrackedValue{ExactKey("raw")},
	}
	req.customSnapshot = parser

	var mu sync.Mutex
	var records []Record
	emit := func(r Record) {
		mu.Lock()
		records = append(records, r)
		mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	go runSnapshotWorker(ctx, file, req, 5*time.Millisecond, false, emit, func(*WorkerFailure) {})

	time.Sleep(15 * time.Millisecond)
	if err := os.WriteFile(file, []byte("v2"), 0o644); err != nil {
		t.Fatalf("rewriting fixture: %v", err)
	}
	// Ensure the mtime strictly advances on filesystems with coarse
	// mtime resolution.
	now := time.Now().Add(time.Second)
	os.Chtimes(file, now, now)

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	if len(records) < 2 {
		t.Fatalf("expected at least 2 records (initial + update), got %d", len(records))
	}
	last := records[len(records)-1]
	if last.Data["raw"] != "v2" {
		t.Fatalf("expected last record to reflect v2, got %v", last.Data)
	}
}

func TestSnapshotWorkerStaticParsesOnce(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "state.txt")
	if err := os.WriteFile(file, []byte("v1"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	parser := &jsonLikeParser{}
	req := &ObservationRequest{Globs: []string{file}, Static: true}
	req.customSnapshot = parser

	done := make(chan struct{})
	go func() {
		runSnapshotWorker(context.Background(), file, req, time.Millisecond, false, func(Record) {}, func(*WorkerFailure) {})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("static worker did not return promptly")
	}

	parser.mu.Lock()
	defer parser.mu.Unlock()
	if parser.calls != 1 {
		t.Fatalf("expected exactly one parse call for a static request, got %d", parser.calls)
	}
}
