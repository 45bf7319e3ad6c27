package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	ReportsFetched *prometheus.CounterVec
	ReportsPruned  prometheus.Counter
	ReportSize     prometheus.Histogram
	FormatFailures *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		ReportsFetched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crashmon_reports_fetched_total",
				Help: "Total number of crash reports read from the store",
			},
			[]string{"result"},
		),
		ReportsPruned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "crashmon_reports_pruned_total",
				Help: "Total number of crash reports evicted by retention",
			},
		),
		ReportSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crashmon_report_size_bytes",
				Help:    "Size of raw crash reports in bytes",
				Buckets: prometheus.ExponentialBuckets(1024, 2, 10),
			},
		),
		FormatFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crashmon_format_failures_total",
				Help: "Total number of crash reports that could not be formatted",
			},
			[]string{"reason"},
		),
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.ReportsFetched, m.ReportsPruned, m.ReportSize, m.FormatFailures} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// The helpers below accept a nil receiver so callers can leave metrics unset.

func (m *Metrics) ObserveFetch(result string, size int) {
	if m == nil {
		return
	}
	m.ReportsFetched.WithLabelValues(result).Inc()
	if size > 0 {
		m.ReportSize.Observe(float64(size))
	}
}

func (m *Metrics) ObservePruned(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ReportsPruned.Add(float64(n))
}

func (m *Metrics) ObserveFormatFailure(reason string) {
	if m == nil {
		return
	}
	m.FormatFailures.WithLabelValues(reason).Inc()
}
