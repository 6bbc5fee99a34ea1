package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/target/reportfetch/internal/core"
	"github.com/target/reportfetch/internal/domain/model"
	apperrors "github.com/target/reportfetch/internal/errors"
	"github.com/target/reportfetch/internal/observability/metrics"
	"github.com/target/reportfetch/internal/util"
)

const (
	// DefaultPollMaxAttempts is the retry budget used when none is configured.
	DefaultPollMaxAttempts = 10
	// DefaultPollInterval is the wait between status requests used when none is configured.
	DefaultPollInterval = 60 * time.Second
)

// PollerConfig bounds the polling loop.
type PollerConfig struct {
	// MaxAttempts is the number of retries after the first request. Zero means a
	// single request. Nil selects DefaultPollMaxAttempts.
	MaxAttempts *int
	// Interval is the fixed wait between requests. Non-positive selects DefaultPollInterval.
	Interval time.Duration
	// Clock drives the wait. Nil selects core.RealClock.
	Clock core.Clock
}

// JobPollerOptions groups dependencies for JobPoller.
type JobPollerOptions struct {
	Transport core.Transport   // Required: API transport
	Config    PollerConfig     // Optional: budget, interval and clock
	Metrics   metrics.Recorder // Optional: per-attempt metrics
	Logger    *slog.Logger     // Optional: structured logger
}

// JobPoller waits for a report job to produce a result file URL.
type JobPoller struct {
	transport   core.Transport
	maxAttempts int
	interval    time.Duration
	clock       core.Clock
	metrics     metrics.Recorder
	logger      *slog.Logger
}

// NewJobPoller constructs a new JobPoller.
func NewJobPoller(opts JobPollerOptions) (*JobPoller, error) {
	if opts.Transport == nil {
		return nil, errors.New("transport is required")
	}

	maxAttempts := DefaultPollMaxAttempts
	if opts.Config.MaxAttempts != nil {
		maxAttempts = *opts.Config.MaxAttempts
	}
	if maxAttempts < 0 {
		return nil, errors.New("max attempts must be >= 0")
	}
	interval := opts.Config.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	var clock core.Clock = core.RealClock{}
	if opts.Config.Clock != nil {
		clock = opts.Config.Clock
	}
	var recorder metrics.Recorder = metrics.Nop{}
	if opts.Metrics != nil {
		recorder = opts.Metrics
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &JobPoller{
		transport:   opts.Transport,
		maxAttempts: maxAttempts,
		interval:    interval,
		clock:       clock,
		metrics:     recorder,
		logger:      logger.With("component", "job_poller"),
	}, nil
}

// MaxAttempts returns the configured retry budget.
func (p *JobPoller) MaxAttempts() int {
	return p.maxAttempts
}

// PollUntilReady requests the job status until jobResult.resultFileURL is non-empty.
//
// The loop issues at most MaxAttempts+1 requests and waits Interval between them.
// A transport failure or non-2xx status ends polling immediately with a poll
// transport error. Running out of budget yields a poll timeout error. Cancelling ctx
// aborts the wait and is reported as canceled.
func (p *JobPoller) PollUntilReady(ctx context.Context, jobID, reportURL string, session model.Session) (string, error) {
	if jobID == "" {
		return "", apperrors.Validation("job id is required")
	}

	attempt, err := model.FirstPollAttempt(p.maxAttempts)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeValidation, "poll job")
	}
	job := model.NewJob(jobID, "")
	statusURL := reportURL + jobID

	for {
		resultURL, err := p.requestStatus(ctx, statusURL, session)
		if err != nil {
			p.observe(attempt, metrics.ResultError)
			p.logger.WarnContext(ctx, "job status request failed",
				"job_id", jobID,
				"attempt", attempt.Number,
				"remaining", attempt.Remaining,
				"error", err,
			)
			return "", apperrors.Wrapf(err, apperrors.ErrCodePollTransport, "poll job %s", jobID)
		}

		job.Observe(resultURL)
		if job.Ready() {
			p.observe(attempt, metrics.ResultSuccess)
			p.logger.InfoContext(ctx, "report job ready",
				"job_id", jobID,
				"attempt", attempt.Number,
				"remaining", attempt.Remaining,
			)
			return job.ResultURL, nil
		}

		p.observe(attempt, metrics.ResultPending)
		next, err := attempt.Next()
		if errors.Is(err, model.ErrBudgetExhausted) {
			return "", apperrors.PollTimeoutf("job %s not ready after %d status requests", jobID, attempt.Number)
		}

		p.logger.InfoContext(ctx, "report job not ready",
			"job_id", jobID,
			"attempt", attempt.Number,
			"remaining", attempt.Remaining,
			"retry_in", util.FormatDuration(p.interval),
		)
		if err := p.clock.Sleep(ctx, p.interval); err != nil {
			return "", apperrors.Wrapf(err, apperrors.ErrCodeCanceled, "wait for job %s", jobID)
		}
		attempt = next
	}
}

// requestStatus performs one status GET and returns the result URL, which is empty
// while the job is still running.
func (p *JobPoller) requestStatus(ctx context.Context, statusURL string, session model.Session) (string, error) {
	resp, err := p.transport.Do(ctx, core.Request{
		Method: http.MethodGet,
		URL:    statusURL,
		Token:  session.Token,
	})
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", apperrors.Newf(apperrors.ErrCodePollTransport, "unexpected status %d", resp.StatusCode)
	}
	return fieldResultFileURL.String(resp.Body), nil
}

func (p *JobPoller) observe(attempt model.PollAttempt, result string) {
	p.metrics.ObservePoll(metrics.PollMetric{
		Attempt:   attempt.Number,
		Remaining: attempt.Remaining,
		Result:    result,
	})
}
