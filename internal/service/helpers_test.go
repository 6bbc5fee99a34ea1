package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/target/reportfetch/internal/mocks"
	"github.com/target/reportfetch/internal/observability/metrics"
	"github.com/target/reportfetch/internal/observability/notify"
	"go.uber.org/mock/gomock"
)

const (
	testTokenURL   = "https://auth.example.com/token"
	testBaseURI    = "https://api.example.com/inContactAPI/"
	testReportURL  = testBaseURI + "services/v13.0/report-jobs/"
	testTemplateID = "1234"
	testJobID      = "job-42"
	testResultURL  = "https://files.example.com/report-42"
)

func intPtr(n int) *int { return &n }

func newMockTransport(t *testing.T) *mocks.MockTransport {
	t.Helper()
	return mocks.NewMockTransport(gomock.NewController(t))
}

// recordingMetrics captures every observation.
type recordingMetrics struct {
	mu     sync.Mutex
	stages []metrics.StageMetric
	polls  []metrics.PollMetric
}

func (r *recordingMetrics) ObserveStage(in metrics.StageMetric) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, in)
}

func (r *recordingMetrics) ObservePoll(in metrics.PollMetric) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.polls = append(r.polls, in)
}

func (r *recordingMetrics) stageResults() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.stages))
	for _, s := range r.stages {
		out[s.Stage] = s.Result
	}
	return out
}

// recordingNotifier captures run failure payloads.
type recordingNotifier struct {
	mu       sync.Mutex
	payloads []notify.RunFailurePayload
}

func (n *recordingNotifier) NotifyRunFailure(_ context.Context, payload notify.RunFailurePayload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payloads = append(n.payloads, payload)
}

func (n *recordingNotifier) only(t *testing.T) notify.RunFailurePayload {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.Len(t, n.payloads, 1)
	return n.payloads[0]
}
