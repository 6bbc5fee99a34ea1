package metrics

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	obserrors "github.com/target/reportfetch/internal/observability/errors"
)

const namespace = "reportfetch"

// PromRecorder keeps per-run Prometheus series in a private registry so they can be
// pushed to a Pushgateway when the run ends.
type PromRecorder struct {
	registry      *prometheus.Registry
	stageDuration *prometheus.HistogramVec
	stageResults  *prometheus.CounterVec
	pollAttempts  *prometheus.CounterVec
	pollRemaining prometheus.Gauge
}

var _ Recorder = (*PromRecorder)(nil)

// NewPromRecorder builds the collectors and registers them on a fresh registry.
func NewPromRecorder() *PromRecorder {
	r := &PromRecorder{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of each report pipeline stage.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 30, 60, 120, 300, 600, 900},
		}, []string{"stage", "result"}),
		stageResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage outcomes by error class.",
		}, []string{"stage", "result", "error_class"}),
		pollAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_attempts_total",
			Help:      "Job status requests issued by the poller.",
		}, []string{"result"}),
		pollRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "poll_remaining_attempts",
			Help:      "Retry budget left after the most recent status request.",
		}),
	}
	r.registry.MustRegister(r.stageDuration, r.stageResults, r.pollAttempts, r.pollRemaining)
	return r
}

// Registry exposes the underlying registry (tests and custom exporters).
func (r *PromRecorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveStage implements Recorder.
func (r *PromRecorder) ObserveStage(in StageMetric) {
	class := ""
	if in.Err != nil && in.Result == ResultError {
		class = obserrors.Classify(in.Err)
	}
	r.stageResults.WithLabelValues(in.Stage, in.Result, class).Inc()
	if in.Duration > 0 {
		r.stageDuration.WithLabelValues(in.Stage, in.Result).Observe(in.Duration.Seconds())
	}
}

// ObservePoll implements Recorder.
func (r *PromRecorder) ObservePoll(in PollMetric) {
	r.pollAttempts.WithLabelValues(in.Result).Inc()
	r.pollRemaining.Set(float64(in.Remaining))
}

// Push sends the registry to the Pushgateway at gatewayURL under the given job name,
// grouped by report template so concurrent schedules do not overwrite each other.
func (r *PromRecorder) Push(ctx context.Context, gatewayURL, job, templateID string) error {
	gatewayURL = strings.TrimSpace(gatewayURL)
	if gatewayURL == "" {
		return nil
	}
	pusher := push.New(gatewayURL, job).Gatherer(r.registry)
	if templateID != "" {
		pusher = pusher.Grouping("report_template", templateID)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
