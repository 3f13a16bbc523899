package eventbus

import (
	"time"

	"github.com/annel0/game-hub/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/tomb.v2"
)

// MetricsExporter mirrors bus Stats into Prometheus collectors. It polls
// the bus on an interval; serving /metrics is left to the HTTP server.
type MetricsExporter struct {
	bus      EventBus
	interval time.Duration
	t        tomb.Tomb
	started  bool
	prev     Stats

	published prometheus.Counter
	consumed  prometheus.Counter
	dropped   prometheus.Counter
	inflight  prometheus.Gauge
}

// NewMetricsExporter creates the collectors and registers them with reg.
func NewMetricsExporter(bus EventBus, reg prometheus.Registerer, interval time.Duration) (*MetricsExporter, error) {
	if interval <= 0 {
		interval = time.Second
	}
	me := &MetricsExporter{
		bus:      bus,
		interval: interval,
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventbus",
			Name:      "messages_published_total",
			Help:      "Total number of published events.",
		}),
		consumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventbus",
			Name:      "messages_consumed_total",
			Help:      "Total number of events delivered to subscribers.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventbus",
			Name:      "messages_dropped_total",
			Help:      "Events dropped on errors or back-pressure.",
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "eventbus",
			Name:      "messages_inflight",
			Help:      "Events queued but not yet delivered.",
		}),
	}

	for _, c := range []prometheus.Collector{me.published, me.consumed, me.dropped, me.inflight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return me, nil
}

// Start runs the polling loop until Stop.
func (m *MetricsExporter) Start() {
	m.started = true
	m.t.Go(m.loop)
}

// Stop ends the loop and waits for it, flushing a final sample.
func (m *MetricsExporter) Stop() error {
	if !m.started {
		return nil
	}
	m.t.Kill(nil)
	return m.t.Wait()
}

func (m *MetricsExporter) loop() error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	logging.GetEventsLogger().Debug("event bus metrics exporter started (every %s)", m.interval)

	for {
		select {
		case <-ticker.C:
			m.sample()
		case <-m.t.Dying():
			m.sample()
			return nil
		}
	}
}

// sample adds the delta since the previous poll to the counters.
func (m *MetricsExporter) sample() {
	stats := m.bus.Metrics()

	if d := stats.Published - m.prev.Published; d > 0 {
		m.published.Add(float64(d))
	}
	if d := stats.Consumed - m.prev.Consumed; d > 0 {
		m.consumed.Add(float64(d))
	}
	if d := stats.Dropped - m.prev.Dropped; d > 0 {
		m.dropped.Add(float64(d))
	}
	m.inflight.Set(float64(stats.InFlight))
	m.prev = stats
}
