package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	sessionauth "github.com/baxter-io/sessionauth"
	"github.com/baxter-io/sessionauth/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() sessionauth.MetricsSnapshot
}

// Collector exposes engine metrics as a prometheus.Collector. Values are read
// from the engine snapshot on every scrape.
type Collector struct {
	source     metricsSource
	counters   []*prometheus.Desc
	histograms []*prometheus.Desc
}

// NewCollector returns a collector reading from engine.
func NewCollector(engine *sessionauth.Engine) *Collector {
	return NewCollectorFromSource(engine)
}

// NewCollectorFromSource returns a collector reading from any snapshot source.
func NewCollectorFromSource(source metricsSource) *Collector {
	c := &Collector{
		source:     source,
		counters:   make([]*prometheus.Desc, len(internaldefs.Counters)),
		histograms: make([]*prometheus.Desc, len(internaldefs.Histograms)),
	}
	for i, def := range internaldefs.Counters {
		c.counters[i] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	for i, def := range internaldefs.Histograms {
		c.histograms[i] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.counters {
		ch <- d
	}
	for _, d := range c.histograms {
		ch <- d
	}
}

// Collect implements prometheus.Collector. Histograms are skipped when the
// engine runs without latency histograms.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.source == nil {
		return
	}
	snap := c.source.MetricsSnapshot()

	for i, def := range internaldefs.Counters {
		ch <- prometheus.MustNewConstMetric(c.counters[i], prometheus.CounterValue, float64(snap.Counters[def.ID]))
	}

	for i, def := range internaldefs.Histograms {
		raw, ok := snap.Histograms[def.ID]
		if !ok {
			continue
		}
		cum := internaldefs.Cumulative(internaldefs.Normalize(raw))
		buckets := make(map[float64]uint64, len(internaldefs.UpperBounds))
		for j, bound := range internaldefs.UpperBounds {
			buckets[bound] = cum[j]
		}
		count := cum[internaldefs.BucketCount-1]
		sum := snap.HistogramSums[def.ID].Seconds()
		ch <- prometheus.MustNewConstHistogram(c.histograms[i], count, sum, buckets)
	}
}

// Handler registers a collector for engine on a private registry and returns
// the scrape handler. The default registry is left untouched.
func Handler(engine *sessionauth.Engine) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(engine))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
