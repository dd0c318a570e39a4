package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline and handler counters.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Pipeline counters
	FramesRead       atomic.Uint64
	FramesProcessed  atomic.Uint64 // passed the sampler and went through inference
	Predictions      atomic.Uint64 // frames with at least one detection, delivered
	Detections       atomic.Uint64
	InferenceErrors  atomic.Uint64
	DeliveryErrors   atomic.Uint64
	InferenceLatency atomic.Uint64 // last inference call, ms

	// Handler counters
	RequestsReceived atomic.Uint64
	RequestsStored   atomic.Uint64

	registry *prometheus.Registry
}

// New creates a Metrics instance with its own Prometheus registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	counters := []struct {
		name, help string
		v          *atomic.Uint64
	}{
		{"vodetect_frames_read_total", "Total frames read from the source", &m.FramesRead},
		{"vodetect_frames_processed_total", "Total sampled frames sent to inference", &m.FramesProcessed},
		{"vodetect_predictions_total", "Total frames delivered with detections", &m.Predictions},
		{"vodetect_detections_total", "Total detections delivered", &m.Detections},
		{"vodetect_inference_errors_total", "Total failed inference calls", &m.InferenceErrors},
		{"vodetect_delivery_errors_total", "Total failed deliveries", &m.DeliveryErrors},
		{"vodetect_handler_requests_total", "Total detection requests received by the handler", &m.RequestsReceived},
		{"vodetect_handler_stored_total", "Total detection requests persisted by the handler", &m.RequestsStored},
	}
	for _, c := range counters {
		v := c.v
		m.registry.MustRegister(prometheus.NewCounterFunc(
			prometheus.CounterOpts{Name: c.name, Help: c.help},
			func() float64 { return float64(v.Load()) },
		))
	}

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "vodetect_inference_latency_ms",
			Help: "Latency of the last inference call in milliseconds",
		},
		func() float64 { return float64(m.InferenceLatency.Load()) },
	))
}

// The recording helpers below are no-ops on a nil *Metrics.

func (m *Metrics) FrameRead() {
	if m != nil {
		m.FramesRead.Add(1)
	}
}

func (m *Metrics) FrameProcessed() {
	if m != nil {
		m.FramesProcessed.Add(1)
	}
}

// Delivered records one prediction carrying n detections.
func (m *Metrics) Delivered(n int) {
	if m != nil {
		m.Predictions.Add(1)
		m.Detections.Add(uint64(n))
	}
}

func (m *Metrics) InferenceFailed() {
	if m != nil {
		m.InferenceErrors.Add(1)
	}
}

func (m *Metrics) DeliveryFailed() {
	if m != nil {
		m.DeliveryErrors.Add(1)
	}
}

func (m *Metrics) RequestReceived() {
	if m != nil {
		m.RequestsReceived.Add(1)
	}
}

func (m *Metrics) RequestStored() {
	if m != nil {
		m.RequestsStored.Add(1)
	}
}

// ObserveInference records the duration of one inference call.
func (m *Metrics) ObserveInference(d time.Duration) {
	if m == nil {
		return
	}
	m.InferenceLatency.Store(uint64(d.Milliseconds()))
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Router serves /metrics and /healthz.
func (m *Metrics) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", m.Handler()).Methods("GET")
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":           "ok",
			"frames_read":      m.FramesRead.Load(),
			"frames_processed": m.FramesProcessed.Load(),
			"predictions":      m.Predictions.Load(),
		})
	}).Methods("GET")
	return r
}

// Serve runs the metrics server on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      m.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics server listening", "component", "metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
