package vigil_test

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/arclight-dev/vigil"
	"github.com/arclight-dev/vigil/builtin"
)

func TestIncrementalWorkerTracksOffsetAcrossTicks(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "log.txt")
	if err := os.WriteFile(file, []byte("a=1\n"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	req := &vigil.ObservationRequest{Globs: []string{file}}
	req.SetCustomIncrementalForTest(builtin.LineKeyValueParser)

	var mu sync.Mutex
	var records []vigil.Record
	emit := func(r vigil.Record) {
		mu.Lock()
		records = append(records, r)
		mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	go vigil.RunIncrementalWorker(ctx, file, req, 5*time.Millisecond, false, emit, func(*vigil.WorkerFailure) {})

	time.Sleep(15 * time.Millisecond)
	f, err := os.OpenFile(file, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("opening fixture for append: %v", err)
	}
	f.WriteString("b=2\n")
	f.Close()

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	if len(records) != 2 {
		t.Fatalf("expected 2 records (a=1 then b=2), got %d: %v", len(records), records)
	}
	if records[0].Data["a"] != "1" || records[1].Data["b"] != "2" {
		t.Fatalf("unexpected record contents: %v", records)
	}
}

func TestIncrementalWorkerResetsOffsetOnTruncation(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "log.txt")
	if err := os.WriteFile(file, []byte("a=1\nb=2\n"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	req := &vigil.ObservationRequest{Globs: []string{file}}
	req.SetCustomIncrementalForTest(builtin.LineKeyValueParser)

	var mu sync.Mutex
	var records []vigil.Record
	emit := func(r vigil.Record) {
		mu.Lock()
		records = append(records, r)
		mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	go vigil.RunIncrementalWorker(ctx, file, req, 5*time.Millisecond, false, emit, func(*vigil.WorkerFailure) {})

	time.Sleep(20 * time.Millisecond)
	if err := os.WriteFile(file, []byte("c=3\n"), 0o644); err != nil {
		t.Fatalf("truncating fixture: %v", err)
	}

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	found := false
	for _, r := range records {
		if r.Data["c"] == "3" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a record for the post-truncation line, got %v", records)
	}
}

func TestIncrementalWorkerSkipsFilteredLines(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "log.txt")
	if err := os.WriteFile(file, []byte(""), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	req := &vigil.ObservationRequest{
		Globs:     []string{file},
		SkipLines: []*regexp.Regexp{regexp.MustCompile(`^DEBUG`)},
	}
	req.SetCustomIncrementalForTest(builtin.LineKeyValueParser)

	var mu sync.Mutex
	var records []vigil.Record
	emit := func(r vigil.Record) {
		mu.Lock()
		records = append(records, r)
		mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	go vigil.RunIncrementalWorker(ctx, file, req, 5*time.Millisecond, false, emit, func(*vigil.WorkerFailure) {})

	time.Sleep(15 * time.Millisecond)
	f, _ := os.OpenFile(file, os.O_APPEND|os.O_WRONLY, 0o644)
	f.WriteString("DEBUG=skip\nkept=value\n")
	f.Close()

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	for _, r := range records {
		if _, ok := r.Data["DEBUG"]; ok {
			t.Fatalf("expected DEBUG line to be filtered, got %v", records)
		}
	}
}

func TestIncrementalWorkerFallsBackToRawLineMatchingWithoutParser(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "log.txt")
	if err := os.WriteFile(file, []byte(""), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	req := &vigil.ObservationRequest{
		Globs: []string{file},
		TrackedValues: []vigil.TrackedValue{
			vigil.LabeledRegex(regexp.MustCompile(`(\w+)=(\d+)`), ""),
		},
	}

	var mu sync.Mutex
	var records []vigil.Record
	emit := func(r vigil.Record) {
		mu.Lock()
		records = append(records, r)
		mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	go vigil.RunIncrementalWorker(ctx, file, req, 5*time.Millisecond, false, emit, func(*vigil.WorkerFailure) {})

	time.Sleep(15 * time.Millisecond)
	f, _ := os.OpenFile(file, os.O_APPEND|os.O_WRONLY, 0o644)
	f.WriteString("count=1 count=2\n")
	f.Close()

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	if len(records) != 1 {
		t.Fatalf("expected one record for the single surviving line, got %d: %v", len(records), records)
	}
	if records[0].Data["count_0"] != "1" || records[0].Data["count_1"] != "2" {
		t.Fatalf("expected suffixed count_0/count_1 labels from the no-parser fallback, got %v", records[0].Data)
	}
}

func TestIncrementalWorkerNoParserNoTrackedValuesEmitsNothing(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "log.txt")
	if err := os.WriteFile(file, []byte(""), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	req := &vigil.ObservationRequest{Globs: []string{file}}

	var mu sync.Mutex
	var failures int
	var emitted int
	fail := func(*vigil.WorkerFailure) {
		mu.Lock()
		failures++
		mu.Unlock()
	}
	emit := func(vigil.Record) {
		mu.Lock()
		emitted++
		mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	go vigil.RunIncrementalWorker(ctx, file, req, 5*time.Millisecond, false, emit, fail)

	f, _ := os.OpenFile(file, os.O_APPEND|os.O_WRONLY, 0o644)
	f.WriteString("anything\n")
	f.Close()

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	if failures != 0 {
		t.Fatalf("expected no worker failures when no parser and no tracked values are configured, got %d", failures)
	}
	if emitted != 0 {
		t.Fatalf("expected no records when no parser and no tracked values are configured, got %d", emitted)
	}
}
