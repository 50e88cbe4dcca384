// Package metrics defines the minimal observability surface the pipeline
// emits into. The core depends only on Backend; concrete backends (Datadog)
// live in subpackages and are selected at startup. The default backend is a
// no-op, so library code can record unconditionally.
package metrics

import "sync"

// Labels are metric dimensions, e.g. {"stage": "clean", "table": "products"}.
type Labels map[string]string

// Backend receives recorded metrics.
type Backend interface {
	// IncCounter adds delta to a named counter.
	IncCounter(name string, delta float64, labels Labels)

	// ObserveHistogram records one sample of a named distribution.
	ObserveHistogram(name string, value float64, labels Labels)

	// Flush submits buffered metrics. Called at least once at shutdown.
	Flush() error
}

// Metric names emitted by the pipeline.
const (
	StageTotal           = "aurelion_stage_total"
	StageDurationSeconds = "aurelion_stage_duration_seconds"
	RowsTotal            = "aurelion_rows_total"
	OrphansTotal         = "aurelion_orphans_total"
)

var (
	mu      sync.RWMutex
	current Backend = nopBackend{}
)

// SetBackend installs b as the process-wide backend.
func SetBackend(b Backend) {
	if b == nil {
		b = nopBackend{}
	}
	mu.Lock()
	current = b
	mu.Unlock()
}

func backend() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// IncCounter records on the installed backend.
func IncCounter(name string, delta float64, labels Labels) {
	backend().IncCounter(name, delta, labels)
}

// ObserveHistogram records on the installed backend.
func ObserveHistogram(name string, value float64, labels Labels) {
	backend().ObserveHistogram(name, value, labels)
}

// Flush flushes the installed backend.
func Flush() error { return backend().Flush() }

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }
