package datadog

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"aurelion/internal/metrics"
)

type fakeSubmitter struct {
	mu       sync.Mutex
	payloads []datadogV2.MetricPayload
	err      error
}

func (f *fakeSubmitter) SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, body)
	return datadogV2.IntakePayloadAccepted{}, nil, f.err
}

func (f *fakeSubmitter) all() []datadogV2.MetricPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]datadogV2.MetricPayload(nil), f.payloads...)
}

func newTestBackend(t *testing.T, sub *fakeSubmitter) *Backend {
	t.Helper()
	b, err := NewBackend(context.Background(), Options{
		JobName: "test",
		now:     func() time.Time { return time.Unix(1700000000, 0) },
		// Ticker that never fires during the test.
		newTicker: func(time.Duration) *time.Ticker { return time.NewTicker(time.Hour) },
		submitter: sub,
	})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	return b
}

func TestFlushSubmitsCountersAndResets(t *testing.T) {
	sub := &fakeSubmitter{}
	b := newTestBackend(t, sub)
	defer b.Close()

	b.IncCounter("aurelion_stage_total", 1, metrics.Labels{"stage": "clean"})
	b.IncCounter("aurelion_stage_total", 2, metrics.Labels{"stage": "clean"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	payloads := sub.all()
	if len(payloads) != 1 {
		t.Fatalf("payloads = %d, want 1", len(payloads))
	}
	series := payloads[0].Series
	if len(series) != 1 {
		t.Fatalf("series = %d, want 1", len(series))
	}
	s := series[0]
	if s.Metric != "aurelion.stage.total" {
		t.Fatalf("metric = %q, want dotted name", s.Metric)
	}
	if *s.Type != datadogV2.METRICINTAKETYPE_COUNT {
		t.Fatalf("type = %v, want count", *s.Type)
	}
	if got := *s.Points[0].Value; got != 3 {
		t.Fatalf("value = %v, want 3 (accumulated)", got)
	}
	if !hasTag(s.Tags, "job:test") || !hasTag(s.Tags, "stage:clean") {
		t.Fatalf("tags = %v", s.Tags)
	}

	// Second flush with no new data submits nothing.
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := len(sub.all()); got != 1 {
		t.Fatalf("payloads after empty flush = %d, want 1", got)
	}
}

func TestFlushSubmitsHistogramPercentiles(t *testing.T) {
	sub := &fakeSubmitter{}
	b := newTestBackend(t, sub)
	defer b.Close()

	for _, v := range []float64{0.1, 0.2, 0.3, 0.4} {
		b.ObserveHistogram("aurelion_stage_duration_seconds", v, metrics.Labels{"stage": "load"})
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	series := sub.all()[0].Series
	byName := map[string]datadogV2.MetricSeries{}
	for _, s := range series {
		byName[s.Metric] = s
	}

	maxS, ok := byName["aurelion.stage.duration.seconds.max"]
	if !ok {
		t.Fatalf("missing .max series, got %v", keysOf(byName))
	}
	if got := *maxS.Points[0].Value; got != 0.4 {
		t.Fatalf("max = %v, want 0.4", got)
	}
	samples, ok := byName["aurelion.stage.duration.seconds.samples"]
	if !ok || *samples.Points[0].Value != 4 {
		t.Fatalf("samples series wrong: %+v", samples)
	}
	for _, suffix := range []string{".p50", ".p90", ".p95", ".p99"} {
		if _, ok := byName["aurelion.stage.duration.seconds"+suffix]; !ok {
			t.Fatalf("missing %s series", suffix)
		}
	}
}

func TestBuildSeriesDeterministicOrder(t *testing.T) {
	sub := &fakeSubmitter{}
	b := newTestBackend(t, sub)
	defer b.Close()

	snap := snapshot{
		counters: map[string]float64{
			seriesKey("b_metric", nil): 1,
			seriesKey("a_metric", nil): 1,
		},
		histograms: map[string][]float64{},
	}

	series := b.buildSeries(snap, 1700000000)
	if len(series) != 2 || series[0].Metric != "a.metric" || series[1].Metric != "b.metric" {
		t.Fatalf("series order = %v", []string{series[0].Metric, series[1].Metric})
	}
}

func TestSeriesKeyRoundTrip(t *testing.T) {
	k := seriesKey("m", metrics.Labels{"b": "2", "a": "1"})
	metric, tags := splitSeriesKey(k)
	if metric != "m" {
		t.Fatalf("metric = %q", metric)
	}
	if len(tags) != 2 || tags[0] != "a:1" || tags[1] != "b:2" {
		t.Fatalf("tags = %v, want sorted [a:1 b:2]", tags)
	}

	metric, tags = splitSeriesKey(seriesKey("bare", nil))
	if metric != "bare" || len(tags) != 0 {
		t.Fatalf("bare key = %q %v", metric, tags)
	}
}

func TestIgnoresNonPositiveAndNegativeValues(t *testing.T) {
	sub := &fakeSubmitter{}
	b := newTestBackend(t, sub)
	defer b.Close()

	b.IncCounter("m", 0, nil)
	b.IncCounter("m", -5, nil)
	b.ObserveHistogram("h", -1, nil)

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := len(sub.all()); got != 0 {
		t.Fatalf("payloads = %d, want 0", got)
	}
}

func TestPercentileNearestRank(t *testing.T) {
	s := []float64{1, 2, 3, 4, 5}
	cases := []struct {
		p    float64
		want float64
	}{
		{0, 1}, {0.5, 3}, {1, 5}, {0.9, 5}, {0.25, 2},
	}
	for _, c := range cases {
		if got := percentileNearestRank(s, c.p); got != c.want {
			t.Fatalf("p%v = %v, want %v", c.p, got, c.want)
		}
	}
	if got := percentileNearestRank(nil, 0.5); got != 0 {
		t.Fatalf("empty = %v, want 0", got)
	}
}

func TestParseTagsCSV(t *testing.T) {
	got := ParseTagsCSV(" env:prod , service:aurelion ,, ")
	if len(got) != 2 || got[0] != "env:prod" || got[1] != "service:aurelion" {
		t.Fatalf("got %v", got)
	}
	if ParseTagsCSV("") != nil {
		t.Fatalf("empty input: want nil")
	}
}

func TestCloseFlushesOnce(t *testing.T) {
	sub := &fakeSubmitter{}
	b := newTestBackend(t, sub)

	b.IncCounter("m", 1, nil)
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := len(sub.all()); got != 1 {
		t.Fatalf("payloads after close = %d, want 1", got)
	}
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}

func keysOf(m map[string]datadogV2.MetricSeries) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
