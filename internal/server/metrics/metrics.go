// Package metrics exposes Prometheus counters and latency histograms for the
// auth operations served by the transports.
package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/msauth/internal/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const ResultOK = "ok"

type Metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// New creates a private registry holding the Go and process collectors plus
// the service metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "msauth_operations_total",
				Help: "Total number of auth operations by transport, operation and result",
			},
			[]string{"transport", "operation", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "msauth_operation_duration_seconds",
				Help:    "Latency of auth operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"transport", "operation"},
		),
	}
	reg.MustRegister(m.operations, m.duration)
	return m
}

// Observe records one finished operation. The result label is "ok" or the
// error kind in snake case.
func (m *Metrics) Observe(transport, operation string, started time.Time, err error) {
	m.operations.WithLabelValues(transport, operation, Result(err)).Inc()
	m.duration.WithLabelValues(transport, operation).Observe(time.Since(started).Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func Result(err error) string {
	if err == nil {
		return ResultOK
	}
	return strings.ReplaceAll(common.KindOf(err).String(), " ", "_")
}
