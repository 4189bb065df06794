package player

import (
	"errors"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus collectors shared by the drivers. A nil
// *Metrics records nothing.
type Metrics struct {
	framesTotal          *prom.CounterVec
	frameDurationSeconds *prom.HistogramVec
	currentFrame         *prom.GaugeVec
	droppedTicksTotal    *prom.CounterVec
	exportErrorsTotal    *prom.CounterVec
}

// NewMetrics creates and registers the driver collectors. Collectors that
// are already registered on reg are reused.
func NewMetrics(namespace string, reg prom.Registerer) (*Metrics, error) {
	if namespace == "" {
		namespace = "ledmotion"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}

	framesVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "frames_total",
		Help:      "Total number of frames rendered.",
	}, []string{"mode"})
	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "frame_duration_seconds",
		Help:      "Time taken to advance, draw and export a frame.",
		Buckets:   []float64{.001, .0025, .005, .01, .02, .033, .05, .1, .25},
	}, []string{"mode"})
	frameVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "current_frame",
		Help:      "Current playback frame.",
	}, []string{"mode"})
	droppedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "dropped_ticks_total",
		Help:      "Total number of frames that took longer than the frame interval.",
	}, []string{"mode"})
	exportVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "export_errors_total",
		Help:      "Total number of frames an exporter failed to handle.",
	}, []string{"mode"})

	var err error
	if framesVec, err = registerCollector(reg, framesVec); err != nil {
		return nil, err
	}
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if frameVec, err = registerCollector(reg, frameVec); err != nil {
		return nil, err
	}
	if droppedVec, err = registerCollector(reg, droppedVec); err != nil {
		return nil, err
	}
	if exportVec, err = registerCollector(reg, exportVec); err != nil {
		return nil, err
	}

	return &Metrics{
		framesTotal:          framesVec,
		frameDurationSeconds: durationVec,
		currentFrame:         frameVec,
		droppedTicksTotal:    droppedVec,
		exportErrorsTotal:    exportVec,
	}, nil
}

// RecordFrame records a rendered frame.
func (m *Metrics) RecordFrame(mode string, frame float64, duration time.Duration) {
	if m == nil {
		return
	}
	mode = normalizeLabel(mode, "unknown")
	m.framesTotal.WithLabelValues(mode).Inc()
	m.frameDurationSeconds.WithLabelValues(mode).Observe(duration.Seconds())
	m.currentFrame.WithLabelValues(mode).Set(frame)
}

// RecordDroppedTick records a frame that overran its interval.
func (m *Metrics) RecordDroppedTick(mode string) {
	if m == nil {
		return
	}
	m.droppedTicksTotal.WithLabelValues(normalizeLabel(mode, "unknown")).Inc()
}

// RecordExportError records a frame the exporter failed on.
func (m *Metrics) RecordExportError(mode string) {
	if m == nil {
		return
	}
	m.exportErrorsTotal.WithLabelValues(normalizeLabel(mode, "unknown")).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
