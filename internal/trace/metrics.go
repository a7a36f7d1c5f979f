package trace

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsSink aggregates events into Prometheus collectors on a registry that
// belongs to one run. Nothing is registered globally, so concurrent runs in one
// process never collide.
type MetricsSink struct {
	registry *prometheus.Registry

	events          *prometheus.CounterVec
	passDuration    *prometheus.HistogramVec
	engineDuration  *prometheus.HistogramVec
	images          *prometheus.CounterVec
	decisions       *prometheus.CounterVec
	downscales      *prometheus.CounterVec
	pixelReduction  prometheus.Histogram
	redactionBoxes  *prometheus.CounterVec
	redactionPasses prometheus.Counter
}

// NewMetricsSink registers the adaptocr collectors on a fresh registry.
func NewMetricsSink() *MetricsSink {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &MetricsSink{
		registry: reg,
		events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "adaptocr_trace_events_total",
			Help: "Trace events emitted, by event name",
		}, []string{"event"}),
		passDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "adaptocr_ocr_pass_duration_seconds",
			Help:    "Wall time of recognition passes as seen by the orchestrator",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"pass", "outcome"}),
		engineDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "adaptocr_engine_duration_seconds",
			Help:    "Time spent inside the engine as reported by the worker",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"pass"}),
		images: f.NewCounterVec(prometheus.CounterOpts{
			Name: "adaptocr_images_total",
			Help: "Images finished, by final status",
		}, []string{"status", "error_kind"}),
		decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "adaptocr_two_pass_decisions_total",
			Help: "Two-pass recommendations, by outcome and deciding rule",
		}, []string{"enabled", "reason"}),
		downscales: f.NewCounterVec(prometheus.CounterOpts{
			Name: "adaptocr_downscale_total",
			Help: "Downscale decisions, by outcome and reason",
		}, []string{"triggered", "reason"}),
		pixelReduction: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "adaptocr_downscale_pixel_reduction_ratio",
			Help:    "Fraction of pixels removed by triggered downscales",
			Buckets: []float64{.1, .2, .3, .4, .5, .6, .7, .8, .9},
		}),
		redactionBoxes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "adaptocr_redaction_boxes_total",
			Help: "Redaction candidate boxes, by validation stage",
		}, []string{"stage"}),
		redactionPasses: f.NewCounter(prometheus.CounterOpts{
			Name: "adaptocr_redaction_passes_total",
			Help: "Images that entered the redaction word-box pass",
		}),
	}
}

// Registry exposes the per-run registry for gathering.
func (m *MetricsSink) Registry() *prometheus.Registry { return m.registry }

func (m *MetricsSink) Emit(ev Event) {
	m.events.WithLabelValues(ev.Name).Inc()
	switch ev.Name {
	case EventPass:
		pass := ev.String("pass_name")
		m.passDuration.WithLabelValues(pass, ev.String("outcome")).Observe(numberField(ev, "duration_ms") / 1000)
		if ms := numberField(ev, "engine_ms"); ms > 0 {
			m.engineDuration.WithLabelValues(pass).Observe(ms / 1000)
		}
	case EventImageResult:
		m.images.WithLabelValues(ev.String("status"), ev.String("error_kind")).Inc()
	case EventDecision:
		m.decisions.WithLabelValues(ev.String("enable_two_pass"), ev.String("reason")).Inc()
	case EventDownscale:
		triggered := ev.String("triggered")
		m.downscales.WithLabelValues(triggered, ev.String("reason")).Inc()
		if triggered == "true" {
			m.pixelReduction.Observe(numberField(ev, "pixel_reduction"))
		}
	case EventDownscaleError:
		m.downscales.WithLabelValues("false", "error").Inc()
	case EventRedactGate:
		m.redactionBoxes.WithLabelValues("detected").Add(numberField(ev, "candidates_in"))
		m.redactionBoxes.WithLabelValues("validated").Add(numberField(ev, "candidates_validated"))
		if ev.String("redaction_pass") == "true" {
			m.redactionPasses.Inc()
		}
	}
}

func (m *MetricsSink) Close() error { return nil }

// WriteTextfile writes the registry in the node_exporter textfile format.
func (m *MetricsSink) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// numberField reads a numeric field as float64; non-numeric values yield 0.
func numberField(ev Event, key string) float64 {
	v, ok := ev.Get(key)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err == nil {
			return f
		}
	}
	return 0
}
