package sessionauth

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsIncAndSnapshot(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricRefreshFailure)

	snap := m.Snapshot()
	if snap.Counters[MetricLoginSuccess] != 2 || snap.Counters[MetricRefreshFailure] != 1 {
		t.Fatalf("unexpected counters %v", snap.Counters)
	}
	if _, ok := snap.Counters[MetricLoginLatency]; ok {
		t.Fatal("histogram ids must not appear as counters")
	}
	if len(snap.Histograms) != 0 {
		t.Fatal("histograms must be absent when latency is disabled")
	}
}

func TestMetricsDisabledIsNoop(t *testing.T) {
	m := NewMetrics(MetricsConfig{})
	m.Inc(MetricLoginSuccess)
	m.Observe(MetricLoginLatency, time.Millisecond)
	if m.Value(MetricLoginSuccess) != 0 {
		t.Fatal("disabled metrics must not count")
	}
	if len(m.Snapshot().Counters) != 0 {
		t.Fatal("disabled snapshot must be empty")
	}

	var nilMetrics *Metrics
	nilMetrics.Inc(MetricLoginSuccess)
	nilMetrics.Observe(MetricLoginLatency, time.Millisecond)
}

func TestMetricsHistogramBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	for _, d := range []time.Duration{
		time.Millisecond,
		7 * time.Millisecond,
		30 * time.Millisecond,
		2 * time.Second,
	} {
		m.Observe(MetricRefreshLatency, d)
	}
	m.Observe(MetricLoginSuccess, time.Millisecond)

	snap := m.Snapshot()
	got := snap.Histograms[MetricRefreshLatency]
	want := []uint64{1, 1, 0, 1, 0, 0, 0, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bucket %d: expected %d, got %d (%v)", i, want[i], got[i], got)
		}
	}
	if snap.HistogramSums[MetricRefreshLatency] != 2038*time.Millisecond {
		t.Fatalf("unexpected sum %v", snap.HistogramSums[MetricRefreshLatency])
	}
	if m.Value(MetricLoginSuccess) != 0 {
		t.Fatal("Observe on a counter id must be ignored")
	}
}

func TestMetricsConcurrentInc(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Inc(MetricLoginSuccess)
			}
		}()
	}
	wg.Wait()
	if m.Value(MetricLoginSuccess) != 8000 {
		t.Fatalf("expected 8000, got %d", m.Value(MetricLoginSuccess))
	}
}
