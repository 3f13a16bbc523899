package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterMetrics exposes src's counters on reg under the session_cache
// namespace. Values are read from src at scrape time.
func RegisterMetrics(reg prometheus.Registerer, src MetricsSource) error {
	counter := func(name, help string, value func(Metrics) int64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "session_cache",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(value(src.GetMetrics())) })
	}
	gauge := func(name, help string, value func(Metrics) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "session_cache",
			Name:      name,
			Help:      help,
		}, func() float64 { return value(src.GetMetrics()) })
	}

	collectors := []prometheus.Collector{
		counter("hits_total", "Session lookups that found a record.", func(m Metrics) int64 { return m.Hits }),
		counter("misses_total", "Session lookups for absent or expired records.", func(m Metrics) int64 { return m.Misses }),
		counter("errors_total", "Session store operations that failed.", func(m Metrics) int64 { return m.Errors }),
		counter("expired_total", "Expired records purged by sweeps.", func(m Metrics) int64 { return m.Expired }),
		gauge("entries", "Records held in process memory.", func(m Metrics) float64 { return float64(m.Entries) }),
		gauge("hit_ratio", "Hits over hits plus misses.", func(m Metrics) float64 { return m.HitRatio }),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
