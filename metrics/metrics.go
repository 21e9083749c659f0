// Package metrics exports Prometheus collectors for pipeline execution.
//
// A nil *Metrics is valid and records nothing, so the pipeline package calls
// it unconditionally.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "glip"
	subsystem = "pipeline"
)

// Status label values.
const (
	StatusOK     = "ok"
	StatusError  = "error"
	StatusBroken = "broken"
)

// Metrics holds the collectors of one registry.
type Metrics struct {
	// Per pipeline instance name.
	processes       *prometheus.CounterVec   // pipeline, status
	processDuration *prometheus.HistogramVec // pipeline
	cells           *prometheus.GaugeVec     // pipeline

	// Per filter path.
	draws        *prometheus.CounterVec   // filter, status
	drawDuration *prometheus.HistogramVec // filter

	brokenFilters prometheus.Gauge
	liveSockets   prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg
// disables metrics and returns a nil *Metrics.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &Metrics{
		processes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "processes_total",
			Help:      "Total number of pipeline process calls",
		}, []string{"pipeline", "status"}),

		processDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "process_duration_seconds",
			Help:      "Pipeline process duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"pipeline"}),

		cells: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "buffer_cells",
			Help:      "Current number of buffer cells held by a pipeline",
		}, []string{"pipeline"}),

		draws: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "draws_total",
			Help:      "Total number of filter draws",
		}, []string{"filter", "status"}),

		drawDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "draw_duration_seconds",
			Help:      "Filter draw duration in seconds",
			Buckets:   []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}, []string{"filter"}),

		brokenFilters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "broken_filters",
			Help:      "Current number of filters in the broken state",
		}),

		liveSockets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "live_sockets",
			Help:      "Current number of live stream sockets",
		}),
	}

	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			m.Unregister(reg)
			return nil, fmt.Errorf("metrics: register: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.processes,
		m.processDuration,
		m.cells,
		m.draws,
		m.drawDuration,
		m.brokenFilters,
		m.liveSockets,
	}
}

// Unregister removes the collectors from reg.
func (m *Metrics) Unregister(reg prometheus.Registerer) {
	if m == nil || reg == nil {
		return
	}
	for _, c := range m.collectors() {
		reg.Unregister(c)
	}
}

// ObserveProcess records one process call of a pipeline.
func (m *Metrics) ObserveProcess(pipeline string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.processes.WithLabelValues(pipeline, status(err)).Inc()
	m.processDuration.WithLabelValues(pipeline).Observe(d.Seconds())
}

// ObserveDraw records one draw of a filter.
func (m *Metrics) ObserveDraw(filter string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.draws.WithLabelValues(filter, status(err)).Inc()
	if err == nil {
		m.drawDuration.WithLabelValues(filter).Observe(d.Seconds())
	}
}

// FilterBroken records a filter entering the broken state.
func (m *Metrics) FilterBroken(filter string) {
	if m == nil {
		return
	}
	m.draws.WithLabelValues(filter, StatusBroken).Inc()
	m.brokenFilters.Inc()
}

// BrokenFilterReleased records the release of a broken filter.
func (m *Metrics) BrokenFilterReleased() {
	if m == nil {
		return
	}
	m.brokenFilters.Dec()
}

// SetCells sets the number of buffer cells of a pipeline.
func (m *Metrics) SetCells(pipeline string, n int) {
	if m == nil {
		return
	}
	m.cells.WithLabelValues(pipeline).Set(float64(n))
}

// SetLiveSockets sets the number of live sockets.
func (m *Metrics) SetLiveSockets(n int) {
	if m == nil {
		return
	}
	m.liveSockets.Set(float64(n))
}

// Forget drops the series of a released pipeline and its filters.
func (m *Metrics) Forget(pipeline string, filters []string) {
	if m == nil {
		return
	}
	m.processes.DeletePartialMatch(prometheus.Labels{"pipeline": pipeline})
	m.processDuration.DeleteLabelValues(pipeline)
	m.cells.DeleteLabelValues(pipeline)
	for _, f := range filters {
		m.draws.DeletePartialMatch(prometheus.Labels{"filter": f})
		m.drawDuration.DeleteLabelValues(f)
	}
}

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}
