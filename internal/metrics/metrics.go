// Package metrics exposes a session's region aggregates as Prometheus
// metrics.
package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"cycleprof/internal/profiler"
)

// Source is what the collector reads; *profiler.Session satisfies it.
type Source interface {
	Entries() []profiler.Entry
	Totals() (profiler.Totals, bool)
}

// RegionCollector implements prometheus.Collector over a Source. Values are
// read at scrape time.
type RegionCollector struct {
	source Source

	invocationsDesc *prometheus.Desc
	cyclesDesc      *prometheus.Desc
	sessionDesc     *prometheus.Desc
	frequencyDesc   *prometheus.Desc
}

// NewRegionCollector returns a collector for src. constLabels are attached
// to every metric, e.g. the session id.
func NewRegionCollector(src Source, namespace string, constLabels prometheus.Labels) *RegionCollector {
	return &RegionCollector{
		source: src,
		invocationsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "region", "invocations_total"),
			"Completed invocations per region.",
			[]string{"region"}, constLabels,
		),
		cyclesDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "region", "exclusive_cycles_total"),
			"Cycles spent in a region excluding nested regions.",
			[]string{"region"}, constLabels,
		),
		sessionDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "session", "cycles"),
			"Cycles in the session's root window.",
			nil, constLabels,
		),
		frequencyDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "session", "cycle_frequency_hertz"),
			"Estimated cycle counter frequency.",
			nil, constLabels,
		),
	}
}

// Describe implements the prometheus.Collector interface
func (c *RegionCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.invocationsDesc
	ch <- c.cyclesDesc
	ch <- c.sessionDesc
	ch <- c.frequencyDesc
}

// Collect implements the prometheus.Collector interface
func (c *RegionCollector) Collect(ch chan<- prometheus.Metric) {
	for _, e := range c.source.Entries() {
		ch <- prometheus.MustNewConstMetric(c.invocationsDesc, prometheus.CounterValue, float64(e.Count), e.Name)
		ch <- prometheus.MustNewConstMetric(c.cyclesDesc, prometheus.CounterValue, float64(e.Cycles), e.Name)
	}

	// root window figures only exist once the session is stopped
	if t, ok := c.source.Totals(); ok {
		ch <- prometheus.MustNewConstMetric(c.sessionDesc, prometheus.GaugeValue, float64(t.Cycles))
		ch <- prometheus.MustNewConstMetric(c.frequencyDesc, prometheus.GaugeValue, float64(t.Frequency))
	}
}

// WriteText gathers g and writes it in the Prometheus text format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// Export registers a collector for s on a fresh registry and writes the
// result to w.
func Export(w io.Writer, s *profiler.Session, namespace string) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(NewRegionCollector(s, namespace, prometheus.Labels{"session": s.ID().String()})); err != nil {
		return err
	}
	return WriteText(w, reg)
}
