package metrics

import "testing"

type recordingBackend struct {
	counters   map[string]float64
	histograms map[string][]float64
	flushed    int
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{
		counters:   map[string]float64{},
		histograms: map[string][]float64{},
	}
}

func (b *recordingBackend) IncCounter(name string, delta float64, labels Labels) {
	b.counters[name] += delta
}

func (b *recordingBackend) ObserveHistogram(name string, value float64, labels Labels) {
	b.histograms[name] = append(b.histograms[name], value)
}

func (b *recordingBackend) Flush() error {
	b.flushed++
	return nil
}

func TestPackageFuncsDelegateToBackend(t *testing.T) {
	rec := newRecordingBackend()
	SetBackend(rec)
	defer SetBackend(nil)

	IncCounter(StageTotal, 1, Labels{"stage": "clean"})
	IncCounter(StageTotal, 2, nil)
	ObserveHistogram(StageDurationSeconds, 0.25, nil)
	if err := Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if rec.counters[StageTotal] != 3 {
		t.Fatalf("counter = %v, want 3", rec.counters[StageTotal])
	}
	if len(rec.histograms[StageDurationSeconds]) != 1 {
		t.Fatalf("histogram samples = %v", rec.histograms)
	}
	if rec.flushed != 1 {
		t.Fatalf("flushed = %d", rec.flushed)
	}
}

func TestNilBackendIsNoop(t *testing.T) {
	SetBackend(nil)

	// Must not panic.
	IncCounter(RowsTotal, 1, nil)
	ObserveHistogram(StageDurationSeconds, 1, nil)
	if err := Flush(); err != nil {
		t.Fatalf("Flush on nop backend: %v", err)
	}
}
