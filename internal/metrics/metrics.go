// Package metrics exposes agent and collector counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pico"

// Agent holds the sampling and delivery metrics. Each Agent owns its registry
// so tests and multiple instances never collide.
type Agent struct {
	reg *prometheus.Registry

	cycles           prometheus.Counter
	pollFailures     *prometheus.CounterVec
	deliveries       prometheus.Counter
	attempts         prometheus.Counter
	failures         *prometheus.CounterVec
	lastSuccess      prometheus.Gauge
	deliveryDuration prometheus.Histogram
}

func NewAgent() *Agent {
	m := &Agent{
		reg: prometheus.NewRegistry(),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Completed sampling cycles.",
		}),
		pollFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_poll_failures_total",
			Help:      "Sensor polls that failed, by sensor.",
		}, []string{"sensor"}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Frames accepted by the collector.",
		}),
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_attempts_total",
			Help:      "HTTP attempts made to deliver frames, including retries.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_failures_total",
			Help:      "Frames that could not be delivered, by failure class.",
		}, []string{"class"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_delivery_success_timestamp_seconds",
			Help:      "Unix time of the last accepted frame.",
		}),
		deliveryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_duration_seconds",
			Help:      "Wall time spent delivering one frame, retries included.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
	m.reg.MustRegister(m.cycles, m.pollFailures, m.deliveries, m.attempts, m.failures, m.lastSuccess, m.deliveryDuration)
	return m
}

func (m *Agent) CycleCompleted() {
	m.cycles.Inc()
}

func (m *Agent) PollFailed(sensor string) {
	m.pollFailures.WithLabelValues(sensor).Inc()
}

// DeliverySucceeded records an accepted frame that took attempts tries.
func (m *Agent) DeliverySucceeded(attempts int, took time.Duration, at time.Time) {
	m.deliveries.Inc()
	m.attempts.Add(float64(attempts))
	m.deliveryDuration.Observe(took.Seconds())
	m.lastSuccess.Set(float64(at.Unix()))
}

func (m *Agent) DeliveryFailed(class string, attempts int, took time.Duration) {
	m.failures.WithLabelValues(class).Inc()
	m.attempts.Add(float64(attempts))
	m.deliveryDuration.Observe(took.Seconds())
}

func (m *Agent) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Collector holds the ingest side metrics.
type Collector struct {
	reg *prometheus.Registry

	ingested  *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	published *prometheus.CounterVec
}

func NewCollector() *Collector {
	m := &Collector{
		reg: prometheus.NewRegistry(),
		ingested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "readings_ingested_total",
			Help:      "Readings stored, by payload format.",
		}, []string{"format"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "readings_rejected_total",
			Help:      "Requests rejected before storage, by reason.",
		}, []string{"reason"}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "mqtt_publish_total",
			Help:      "MQTT republish attempts, by result.",
		}, []string{"result"}),
	}
	m.reg.MustRegister(m.ingested, m.rejected, m.published)
	return m
}

func (m *Collector) Ingested(format string) {
	m.ingested.WithLabelValues(format).Inc()
}

func (m *Collector) Rejected(reason string) {
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *Collector) Published(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.published.WithLabelValues(result).Inc()
}

func (m *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
