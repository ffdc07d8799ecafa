package vigil

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// runIncrementalWorker polls one file's size, reading only bytes appended
// since the previous tick and emitting one Record per parsed payload.
// Grounded on tail.py's tail_file_n_bytes (seek-to-offset read) and
// _process_log_content (line filtering and literal/regex tracked-value
// matching against raw lines, independent of the structured parser).
//
// A shrink in file size relative to the tracked offset is treated as
// truncation or log rotation: the offset resets to 0 and any buffered
// partial line is discarded, since it can no longer be completed by bytes
// from the file that wrote it.
//
// A failure (open, read or parse) is reported once and ends the worker.
func runIncrementalWorker(ctx context.Context, path string, req *ObservationRequest, interval time.Duration, flattenData bool, emit func(Record), fail func(*WorkerFailure)) {
	workerID := uuid.NewString()
	var offset int64
	var pending string
	var lastMod time.Time

	failed := false
	reportFailure := fail
	fail = func(f *WorkerFailure) {
		failed = true
		reportFailure(f)
	}

	tick := func() {
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		size := info.Size()
		if size < offset {
			offset = 0
			pending = ""
		}
		// Skip when the file's mtime hasn't advanced since the last
		// processed tick and size >= offset (after the truncation reset
		// above, the size condition always holds here). A tick whose
		// mtime advanced is not skipped even when size == offset; it
		// then reads only the bytes past offset, which may be none.
		if !info.ModTime().After(lastMod) && size >= offset {
			return
		}
		lastMod = info.ModTime()

		f, err := os.Open(path)
		if err != nil {
			fail(&WorkerFailure{Kind: ParserFailure, Path: path, Err: err})
			return
		}
		defer f.Close()

		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			fail(&WorkerFailure{Kind: ParserFailure, Path: path, Err: err})
			return
		}
		buf := make([]byte, size-offset)
		if _, err := io.ReadFull(f, buf); err != nil {
			fail(&WorkerFailure{Kind: ParserFailure, Path: path, Err: err})
			return
		}
		offset = size

		text := pending + string(buf)
		lines := strings.Split(text, "\n")
		pending = lines[len(lines)-1]
		complete := lines[:len(lines)-1]

		surviving := filterSkippedLines(complete, req.SkipLines, req.SkipLiterals)
		if len(surviving) == 0 {
			return
		}

		parser, err := resolveIncrementalParser(req)
		if err != nil {
			if err == ErrNoParser {
				emitFallbackTrackedValueMatches(surviving, req.TrackedValues, path, workerID, emit)
				return
			}
			fail(&WorkerFailure{Kind: ParserFailure, Path: path, Err: err})
			return
		}

		delta := strings.Join(surviving, "\n") + "\n"
		extras, payload, payloads, err := invokeIncremental(parser, delta, req.ParserKwargs)
		if err != nil {
			fail(&WorkerFailure{Kind: ParserFailure, Path: path, Err: err})
			return
		}

		for _, p := range normalizePayloads(payload, payloads) {
			data := extract(p, req.TrackedValues, flattenData)
			if data == nil {
				continue
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
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	tick()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick()
		}
	}
}

func invokeIncremental(p IncrementalParser, delta string, kwargs map[string]any) (map[string]any, map[string]any, []map[string]any, error) {
	extras, payloads, err := p.ParseIncrement(delta, kwargs)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(payloads) == 1 {
		return extras, payloads[0], nil, nil
	}
	return extras, nil, payloads, nil
}

// filterSkippedLines drops lines matching any skip regex or exact literal,
// preserving order.
func filterSkippedLines(lines []string, skipRx []*regexp.Regexp, skipLiteral []string) []string {
	out := make([]string, 0, len(lines))
lineLoop:
	for _, line := range lines {
		for _, lit := range skipLiteral {
			if line == lit {
				continue lineLoop
			}
		}
		for _, rx := range skipRx {
			if rx.MatchString(line) {
				continue lineLoop
			}
		}
		out = append(out, line)
	}
	return out
}

// emitFallbackTrackedValueMatches handles tracked-values requests with no
// snapshot-style parser at all (no suffix dispatch applies to a byte delta,
// and no custom parser was given via WithParser). Mirrors tail.py's
// fallback when parser_func is absent: _process_log_content runs once per
// surviving line, matching every tracked value directly against that
// line's raw text and emitting one record per line that produced any
// matches. Multiple matches for the same tracked value within one line are
// suffixed _0, _1, ...; a single match keeps its bare label.
func emitFallbackTrackedValueMatches(lines []string, tracked []TrackedValue, path, workerID string, emit func(Record)) {
	if len(tracked) == 0 {
		return
	}
	for _, line := range lines {
		out := make(map[string]any)
		for _, tv := range tracked {
			matches := lineTrackedValueMatches(line, tv)
			if len(matches) > 1 {
				for i, m := range matches {
					out[fmt.Sprintf("%s_%d", m.label, i)] = m.value
				}
				continue
			}
			for _, m := range matches {
				out[m.label] = m.value
			}
		}
		if len(out) == 0 {
			continue
		}
		emit(Record{
			Data: out,
			Metadata: Metadata{
				FileName:  path,
				Timestamp: time.Now(),
				WorkerID:  workerID,
			},
		})
	}
}

// lineTrackedValueMatches matches a single tracked-values entry against one
// raw line, independent of any parser payload. kindExactKey has no meaning
// here since a raw line has no keys to look up; it yields nothing.
func lineTrackedValueMatches(line string, tv TrackedValue) []regexMatch {
	switch tv.kind {
	case kindLiteralLine:
		if line == tv.literal {
			return []regexMatch{{label: tv.overrideLabel, value: line}}
		}
		return nil

	case kindSingleCaptureRegex:
		var matches []regexMatch
		for _, r := range tv.pattern.FindAllStringSubmatch(line, -1) {
			if len(r) < 2 {
				continue
			}
			matches = append(matches, regexMatch{label: tv.overrideLabel, value: r[1]})
		}
		return matches

	case kindLabeledRegex:
		var matches []regexMatch
		for _, r := range tv.pattern.FindAllStringSubmatch(line, -1) {
			if len(r) < 3 {
				continue
			}
			label := r[1]
			if tv.overrideLabel != "" {
				label = tv.overrideLabel
			}
			matches = append(matches, regexMatch{label: label, value: r[2]})
		}
		return matches

	default:
		return nil
	}
}
