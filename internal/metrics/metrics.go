// Package metrics exposes controller measurements in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "etapas"

// Recorder implements workflow.Recorder on its own registry.
type Recorder struct {
	reg      *prometheus.Registry
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
	records  prometheus.Gauge
}

func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Controller operations by kind and outcome.",
		}, []string{"op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Gateway round-trip time of controller operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records",
			Help:      "Stages in the last successful list.",
		}),
	}
	r.reg.MustRegister(
		r.ops,
		r.duration,
		r.records,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) ObserveOp(op, outcome string, elapsed time.Duration) {
	r.ops.WithLabelValues(op, outcome).Inc()
	if elapsed > 0 {
		r.duration.WithLabelValues(op).Observe(elapsed.Seconds())
	}
}

func (r *Recorder) SetRecords(n int) { r.records.Set(float64(n)) }

func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// Handler serves the registry for scraping.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}
