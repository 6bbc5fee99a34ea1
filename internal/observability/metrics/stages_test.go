package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/target/reportfetch/internal/errors"
)

type countCall struct {
	name string
	tags map[string]string
}

type fakeSink struct {
	counts  []countCall
	gauges  map[string]float64
	timings map[string]time.Duration
}

func newFakeSink() *fakeSink {
	return &fakeSink{gauges: map[string]float64{}, timings: map[string]time.Duration{}}
}

func (f *fakeSink) Count(name string, _ int64, tags map[string]string) {
	f.counts = append(f.counts, countCall{name: name, tags: tags})
}

func (f *fakeSink) Gauge(name string, value float64, _ map[string]string) {
	f.gauges[name] = value
}

func (f *fakeSink) Timing(name string, value time.Duration, _ map[string]string) {
	f.timings[name] = value
}

func TestStatsdRecorder_ObserveStage(t *testing.T) {
	sink := newFakeSink()
	rec := NewStatsdRecorder(sink)

	rec.ObserveStage(StageMetric{
		Stage:    StageDownload,
		Result:   ResultError,
		Duration: 250 * time.Millisecond,
		Err:      apperrors.Download("missing files.file"),
	})

	require.Len(t, sink.counts, 1)
	assert.Equal(t, "stage.result", sink.counts[0].name)
	assert.Equal(t, map[string]string{
		"stage":       StageDownload,
		"result":      ResultError,
		"error_class": "download",
	}, sink.counts[0].tags)
	assert.Equal(t, 250*time.Millisecond, sink.timings["stage.duration"])
}

func TestStatsdRecorder_SuccessOmitsErrorClass(t *testing.T) {
	sink := newFakeSink()
	NewStatsdRecorder(sink).ObserveStage(StageMetric{
		Stage:  StageStartJob,
		Result: ResultSuccess,
		Err:    errors.New("ignored on success"),
	})

	require.Len(t, sink.counts, 1)
	assert.NotContains(t, sink.counts[0].tags, "error_class")
	assert.Empty(t, sink.timings)
}

func TestStatsdRecorder_ObservePoll(t *testing.T) {
	sink := newFakeSink()
	NewStatsdRecorder(sink).ObservePoll(PollMetric{Attempt: 3, Remaining: 7, Result: ResultPending})

	require.Len(t, sink.counts, 1)
	assert.Equal(t, "poll.attempt", sink.counts[0].name)
	assert.Equal(t, "3", sink.counts[0].tags["attempt"])
	assert.InDelta(t, 7.0, sink.gauges["poll.remaining"], 0)
}

func TestStatsdRecorder_NilSink(t *testing.T) {
	rec := NewStatsdRecorder(nil)
	assert.NotPanics(t, func() {
		rec.ObserveStage(StageMetric{Stage: StageRun})
		rec.ObservePoll(PollMetric{})
	})
}

func TestMulti_FansOutAndSkipsNil(t *testing.T) {
	a, b := newFakeSink(), newFakeSink()
	m := Multi{NewStatsdRecorder(a), nil, NewStatsdRecorder(b), Nop{}}

	m.ObserveStage(StageMetric{Stage: StageRun, Result: ResultSuccess})
	m.ObservePoll(PollMetric{Attempt: 1, Result: ResultSuccess})

	assert.Len(t, a.counts, 2)
	assert.Len(t, b.counts, 2)
}

func TestCloneTags(t *testing.T) {
	assert.Nil(t, CloneTags(nil))

	src := map[string]string{"stage": "poll"}
	cp := CloneTags(src)
	cp["stage"] = "write"
	assert.Equal(t, "poll", src["stage"])
}
