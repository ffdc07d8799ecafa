package vigil

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrLabelMismatch indicates a tracked-values entry lacks the label it
	// needs: a single-capture regex or literal line with no label, or an
	// exact-key entry with an empty key.
	ErrLabelMismatch = errors.New("vigil: tracked-values and labels are incompatible")

	// ErrStaticOnIncremental indicates Tail was asked for a static request,
	// which only Track (snapshot) supports.
	ErrStaticOnIncremental = errors.New("vigil: static is only valid for snapshot (track) requests")

	// ErrFileTypeOnIncremental indicates a file-type override was supplied
	// to Tail, which only Track (snapshot) supports.
	ErrFileTypeOnIncremental = errors.New("vigil: file type override is only valid for snapshot (track) requests")

	// ErrNoGlobs indicates a request was registered with no glob patterns.
	ErrNoGlobs = errors.New("vigil: at least one glob pattern is required")

	// ErrSessionRunning indicates a registration call arrived after Run.
	ErrSessionRunning = errors.New("vigil: cannot register requests after Run")

	// ErrDisciplineConflict indicates the same glob pattern was registered
	// under both disciplines.
	ErrDisciplineConflict = errors.New("vigil: glob pattern already registered under the other discipline")
)

// TrackedValue is a tagged variant over the four shapes the original
// tracked_values entries can take: an exact payload key, a regex with a
// single capture group (needs an external label), a regex with two capture
// groups (label, value), and — incremental only — a literal line to watch
// for verbatim.
type TrackedValue struct {
	kind          trackedValueKind
	key           string
	pattern       *regexp.Regexp
	literal       string
	overrideLabel string
}

type trackedValueKind int

const (
	kindExactKey trackedValueKind = iota
	kindSingleCaptureRegex
	kindLabeledRegex
	kindLiteralLine
)

// ExactKey tracks a payload key by exact string match. The label is the key
// itself.
func ExactKey(key string) TrackedValue {
	return TrackedValue{kind: kindExactKey, key: key}
}

// SingleCaptureRegex tracks values matched by a one-capture-group regex.
// label is required (validated at request-build time).
func SingleCaptureRegex(pattern *regexp.Regexp, label string) TrackedValue {
	return TrackedValue{kind: kindSingleCaptureRegex, pattern: pattern, overrideLabel: label}
}

// LabeledRegex tracks values matched by a two-capture-group regex; the
// first group is the label, the second the value. overrideLabel, if
// non-empty, replaces the captured label.
func LabeledRegex(pattern *regexp.Regexp, overrideLabel string) TrackedValue {
	return TrackedValue{kind: kindLabeledRegex, pattern: pattern, overrideLabel: overrideLabel}
}

// LiteralLine (incremental only) watches for a raw line of text and, when
// seen, emits the label mapped to the matched line text.
func LiteralLine(line, label string) TrackedValue {
	return TrackedValue{kind: kindLiteralLine, literal: line, overrideLabel: label}
}

func (v TrackedValue) validate() error {
	switch v.kind {
	case kindExactKey:
		if v.key == "" {
			return fmt.Errorf("%w: exact-key entry has an empty key", ErrLabelMismatch)
		}
	case kindSingleCaptureRegex:
		if v.overrideLabel == "" {
			return fmt.Errorf("%w: single-capture regex %q requires a label", ErrLabelMismatch, v.pattern)
		}
	case kindLiteralLine:
		if v.overrideLabel == "" {
			return fmt.Errorf("%w: literal line %q requires a label", ErrLabelMismatch, v.literal)
		}
	}
	return nil
}

// ObservationRequest is an immutable-after-registration description of a
// set of files to observe. Construct one with Track or Tail.
type ObservationRequest struct {
	Discipline    Discipline
	Globs         []string
	TrackedValues []TrackedValue
	Callback      Callback
	ParserName    string
	ParserKwargs  map[string]any
	Static        bool
	FileType      string
	SkipLines     []*regexp.Regexp
	SkipLiterals  []string

	// customSnapshot and customIncremental, when set via WithParser, take
	// priority over suffix-based dispatch but not over an explicit
	// FileType override.
	customSnapshot    SnapshotParser
	customIncremental IncrementalParser
}

// Option customizes an ObservationRequest at registration time.
type Option func(*ObservationRequest)

// WithParser supplies an explicit parser for this request, bypassing
// suffix-based dispatch unless FileType is also set.
func WithParser(p any) Option {
	return func(r *ObservationRequest) {
		switch parser := p.(type) {
		case SnapshotParser:
			r.customSnapshot = parser
		case IncrementalParser:
			r.customIncremental = parser
		}
	}
}

// WithSkipLines adds regexes whose matching lines are dropped before
// parsing (incremental requests only).
func WithSkipLines(patterns ...*regexp.Regexp) Option {
	return func(r *ObservationRequest) {
		r.SkipLines = append(r.SkipLines, patterns...)
	}
}

// WithSkipLiterals adds verbatim lines to drop before parsing (incremental
// requests only).
func WithSkipLiterals(lines ...string) Option {
	return func(r *ObservationRequest) {
		r.SkipLiterals = append(r.SkipLiterals, lines...)
	}
}

// WithFileType overrides suffix-based parser dispatch (snapshot requests
// only).
func WithFileType(fileType string) Option {
	return func(r *ObservationRequest) { r.FileType = fileType }
}

// WithStatic marks a snapshot request as static: its worker polls until one
// parse succeeds and then exits instead of watching for further changes.
func WithStatic() Option {
	return func(r *ObservationRequest) { r.Static = true }
}

// WithCallback sets the per-record callback invoked for this request.
func WithCallback(cb Callback) Option {
	return func(r *ObservationRequest) { r.Callback = cb }
}

// WithTrackedValues sets the tracked-values filter for this request.
func WithTrackedValues(values ...TrackedValue) Option {
	return func(r *ObservationRequest) { r.TrackedValues = append(r.TrackedValues, values...) }
}

// WithParserKwargs sets the keyword arguments passed through to the
// resolved parser.
func WithParserKwargs(kwargs map[string]any) Option {
	return func(r *ObservationRequest) { r.ParserKwargs = kwargs }
}

func (r *ObservationRequest) validate() error {
	if len(r.Globs) == 0 {
		return ErrNoGlobs
	}
	if r.Static && r.Discipline == Incremental {
		return ErrStaticOnIncremental
	}
	if r.FileType != "" && r.Discipline == Incremental {
		return ErrFileTypeOnIncremental
	}
	for _, tv := range r.TrackedValues {
		if err := tv.validate(); err != nil {
			return err
		}
	}
	return nil
}
