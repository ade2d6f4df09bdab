// Package metrics exposes a live view of a running experiment for prometheus
// scrapes. The exporter reads counters the pipeline already maintains, so
// scraping never touches the hot path.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rt-sensor-bench/pkg/diag"
	"rt-sensor-bench/pkg/record"
)

// Exporter tracks one experiment at a time and renders its live counters.
// It implements bench.Observer for the low-rate sensor signals.
type Exporter struct {
	registry *prometheus.Registry

	jitter       prometheus.Gauge
	filterWindow prometheus.Gauge
	hostCPU      prometheus.Gauge
	backendInfo  *prometheus.GaugeVec

	mu          sync.RWMutex
	recorder    record.Recorder
	diagnostics *diag.Diagnostics
	backend     string
}

// NewExporter constructs an exporter with an empty run slot.
func NewExporter() *Exporter {
	e := &Exporter{registry: prometheus.NewRegistry()}

	e.jitter = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bench_sensor_jitter_ns",
		Help: "Wake deviation of the sensor's last cycle in nanoseconds.",
	})
	e.filterWindow = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bench_sensor_filter_window",
		Help: "Current size of the sensor's moving-average window.",
	})
	e.hostCPU = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bench_host_cpu_ratio",
		Help: "Last sampled host CPU usage ratio.",
	})
	e.backendInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bench_backend_active",
		Help: "Set to 1 for the backend currently under measurement.",
	}, []string{"backend"})

	e.registry.MustRegister(
		e.jitter,
		e.filterWindow,
		e.hostCPU,
		e.backendInfo,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "bench_cycles_recorded",
			Help: "Cycle records stored by the active run's recorder.",
		}, func() float64 {
			return float64(e.recorderLen())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "bench_missed_deadlines",
			Help: "Deadline misses stored by the active run's recorder.",
		}, func() float64 {
			return float64(e.missedDeadlines())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "bench_anomalies",
			Help: "Sensor anomalies counted by the active run.",
		}, func() float64 {
			return float64(e.anomalies())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "bench_emergencies",
			Help: "Emergency feedback events counted by the active run.",
		}, func() float64 {
			return float64(e.emergencies())
		}),
	)

	return e
}

// ObserveRun points the exporter at a run about to start.
func (e *Exporter) ObserveRun(backend string, recorder record.Recorder, diagnostics *diag.Diagnostics) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.backend != "" {
		e.backendInfo.DeleteLabelValues(e.backend)
	}

	e.recorder = recorder
	e.diagnostics = diagnostics
	e.backend = backend
	e.backendInfo.WithLabelValues(backend).Set(1)
}

// ObserveJitter implements bench.Observer.
func (e *Exporter) ObserveJitter(d time.Duration) {
	e.jitter.Set(float64(d.Nanoseconds()))
}

// ObserveFilterWindow implements bench.Observer.
func (e *Exporter) ObserveFilterWindow(size int) {
	e.filterWindow.Set(float64(size))
}

// ObserveHostCPU records the latest host usage ratio in [0,1].
func (e *Exporter) ObserveHostCPU(usage float64) {
	if usage < 0 {
		usage = 0
	} else if usage > 1 {
		usage = 1
	}

	e.hostCPU.Set(usage)
}

// Handler returns the scrape endpoint.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

func (e *Exporter) recorderLen() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.recorder == nil {
		return 0
	}

	return e.recorder.Len()
}

func (e *Exporter) missedDeadlines() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.recorder == nil {
		return 0
	}

	return e.recorder.MissedDeadlines()
}

func (e *Exporter) anomalies() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.diagnostics == nil {
		return 0
	}

	return e.diagnostics.AnomalyCount()
}

func (e *Exporter) emergencies() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.diagnostics == nil {
		return 0
	}

	return e.diagnostics.EmergencyCount()
}
