// Package metrics holds the Prometheus collectors of the transcription pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "voicescribe"

// Request outcomes.
const (
	OutcomeOK              = "ok"
	OutcomeEmpty           = "empty"
	OutcomeUnsupported     = "unsupported"
	OutcomeDownloadFailed  = "download_failed"
	OutcomeTranscodeFailed = "transcode_failed"
	OutcomeBinaryMissing   = "binary_missing"
	OutcomeTimeout         = "timeout"
	OutcomeExecFailed      = "exec_failed"
)

// Pipeline stages.
const (
	StageDownload   = "download"
	StageTranscode  = "transcode"
	StageTranscribe = "transcribe"
	StageReply      = "reply"
)

// Recorder records pipeline metrics. A nil *Recorder is a no-op.
type Recorder struct {
	requests      *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	replies       *prometheus.CounterVec
	inFlight      prometheus.Gauge
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of handled messages by outcome",
			},
			[]string{"outcome"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of pipeline stages in seconds",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"stage"},
		),
		replies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "replies_total",
				Help:      "Total number of replies by delivery mode",
			},
			[]string{"mode"}, // mode: inline, document, notice
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Number of messages currently being handled",
			},
		),
	}

	reg.MustRegister(r.requests, r.stageDuration, r.replies, r.inFlight)

	return r
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// RequestStarted marks a message as in flight.
func (r *Recorder) RequestStarted() {
	if r == nil {
		return
	}
	r.inFlight.Inc()
}

// RequestDone records the outcome of a message and clears it from in-flight.
func (r *Recorder) RequestDone(outcome string) {
	if r == nil {
		return
	}
	r.inFlight.Dec()
	r.requests.WithLabelValues(outcome).Inc()
}

// ObserveStage records how long a stage took.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Reply counts a delivered reply.
func (r *Recorder) Reply(mode string) {
	if r == nil {
		return
	}
	r.replies.WithLabelValues(mode).Inc()
}
