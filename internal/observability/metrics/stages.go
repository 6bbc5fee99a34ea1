package metrics

import (
	"strconv"
	"time"

	obserrors "github.com/target/reportfetch/internal/observability/errors"
	"github.com/target/reportfetch/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultPending = "pending"
)

// Pipeline stage names.
const (
	StageAuthenticate = "authenticate"
	StageStartJob     = "start_job"
	StagePoll         = "poll"
	StageDownload     = "download"
	StageWrite        = "write"
	StageRun          = "run"
)

// StageMetric captures the outcome of one pipeline stage.
type StageMetric struct {
	Stage    string
	Result   string
	Duration time.Duration
	Err      error
}

// PollMetric captures one status request made by the poller.
type PollMetric struct {
	Attempt   int
	Remaining int
	Result    string
}

// Recorder receives pipeline observations. Implementations must be safe to call
// with zero-valued fields.
type Recorder interface {
	ObserveStage(in StageMetric)
	ObservePoll(in PollMetric)
}

// Nop discards everything.
type Nop struct{}

// ObserveStage implements Recorder.
func (Nop) ObserveStage(StageMetric) {}

// ObservePoll implements Recorder.
func (Nop) ObservePoll(PollMetric) {}

// Multi fans observations out to every non-nil recorder.
type Multi []Recorder

// ObserveStage implements Recorder.
func (m Multi) ObserveStage(in StageMetric) {
	for _, r := range m {
		if r != nil {
			r.ObserveStage(in)
		}
	}
}

// ObservePoll implements Recorder.
func (m Multi) ObservePoll(in PollMetric) {
	for _, r := range m {
		if r != nil {
			r.ObservePoll(in)
		}
	}
}

// StatsdRecorder translates observations into StatsD counters, gauges and timings.
type StatsdRecorder struct {
	sink statsd.Sink
}

// NewStatsdRecorder wraps sink. A nil sink yields a recorder that drops everything.
func NewStatsdRecorder(sink statsd.Sink) *StatsdRecorder {
	return &StatsdRecorder{sink: sink}
}

// ObserveStage emits stage.result and stage.duration.
func (r *StatsdRecorder) ObserveStage(in StageMetric) {
	if r == nil || r.sink == nil {
		return
	}

	tags := map[string]string{
		"stage":  in.Stage,
		"result": in.Result,
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	r.sink.Count("stage.result", 1, tags)
	if in.Duration > 0 {
		r.sink.Timing("stage.duration", in.Duration, CloneTags(tags))
	}
}

// ObservePoll emits poll.attempt and the remaining budget gauge.
func (r *StatsdRecorder) ObservePoll(in PollMetric) {
	if r == nil || r.sink == nil {
		return
	}
	r.sink.Count("poll.attempt", 1, map[string]string{
		"result":  in.Result,
		"attempt": strconv.Itoa(in.Attempt),
	})
	r.sink.Gauge("poll.remaining", float64(in.Remaining), nil)
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
