package vigil

// RunIncrementalWorker exposes runIncrementalWorker to external test files
// (package vigil_test) so they can exercise it without creating an import
// cycle through packages that depend on vigil (e.g. builtin).
var RunIncrementalWorker = runIncrementalWorker

// SetCustomIncrementalForTest sets the unexported customIncremental field
// for use by external test files.
func (r *ObservationRequest) SetCustomIncrementalForTest(p IncrementalParser) {
	r.customIncremental = p
}
