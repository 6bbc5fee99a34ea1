package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/target/reportfetch/internal/core"
	"github.com/target/reportfetch/internal/domain/model"
	apperrors "github.com/target/reportfetch/internal/errors"
	obserrors "github.com/target/reportfetch/internal/observability/errors"
	"github.com/target/reportfetch/internal/observability/metrics"
	"github.com/target/reportfetch/internal/observability/notify"
	"github.com/target/reportfetch/internal/util"
)

// Stage contracts consumed by ReportOrchestrator. The concrete services in this
// package satisfy them.
type (
	sessionIssuer interface {
		Authenticate(ctx context.Context, creds model.Credentials) (model.Session, error)
	}
	jobStarter interface {
		StartJob(ctx context.Context, templateID, reportURL string, session model.Session) (string, error)
	}
	readinessPoller interface {
		PollUntilReady(ctx context.Context, jobID, reportURL string, session model.Session) (string, error)
	}
	encodedReportFetcher interface {
		FetchEncodedReport(ctx context.Context, resultURL string, session model.Session) (string, error)
	}
	runFailureNotifier interface {
		NotifyRunFailure(ctx context.Context, payload notify.RunFailurePayload)
	}
)

// ReportStages are the pipeline steps in execution order plus the file writer.
type ReportStages struct {
	Authenticator sessionIssuer
	Launcher      jobStarter
	Poller        readinessPoller
	Fetcher       encodedReportFetcher
	Writer        core.ReportWriter
}

// ReportSettings are the fixed inputs of every run.
type ReportSettings struct {
	Credentials model.Credentials
	APIVersion  string
}

// ReportRuntime carries optional observability collaborators.
type ReportRuntime struct {
	Logger   *slog.Logger
	Metrics  metrics.Recorder
	Notifier runFailureNotifier
	Clock    core.Clock
}

// ReportOrchestratorOptions groups dependencies for ReportOrchestrator.
type ReportOrchestratorOptions struct {
	Stages   ReportStages   // Required: all stages and the writer
	Settings ReportSettings // Required: credentials and API version
	Runtime  ReportRuntime  // Optional: logging, metrics, failure notifications
}

// ReportOrchestrator runs authenticate, start, poll, download and write in order.
// Any stage failure aborts the run; nothing is retried across stages.
type ReportOrchestrator struct {
	stages     ReportStages
	creds      model.Credentials
	apiVersion string
	logger     *slog.Logger
	metrics    metrics.Recorder
	notifier   runFailureNotifier
	clock      core.Clock
}

// NewReportOrchestrator constructs a new ReportOrchestrator.
func NewReportOrchestrator(opts ReportOrchestratorOptions) (*ReportOrchestrator, error) {
	s := opts.Stages
	switch {
	case s.Authenticator == nil:
		return nil, errors.New("authenticator is required")
	case s.Launcher == nil:
		return nil, errors.New("job launcher is required")
	case s.Poller == nil:
		return nil, errors.New("job poller is required")
	case s.Fetcher == nil:
		return nil, errors.New("report fetcher is required")
	case s.Writer == nil:
		return nil, errors.New("report writer is required")
	}

	apiVersion := strings.Trim(strings.TrimSpace(opts.Settings.APIVersion), "/")
	if apiVersion == "" {
		return nil, errors.New("api version is required")
	}

	rt := opts.Runtime
	logger := rt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var recorder metrics.Recorder = metrics.Nop{}
	if rt.Metrics != nil {
		recorder = rt.Metrics
	}
	var clock core.Clock = core.RealClock{}
	if rt.Clock != nil {
		clock = rt.Clock
	}

	return &ReportOrchestrator{
		stages:     s,
		creds:      opts.Settings.Credentials,
		apiVersion: apiVersion,
		logger:     logger.With("component", "report_orchestrator"),
		metrics:    recorder,
		notifier:   rt.Notifier,
		clock:      clock,
	}, nil
}

// RunResult summarises a successful run.
type RunResult struct {
	RunID        string
	JobID        string
	OutputPath   string
	BytesWritten int64
}

// reportRun is the per-run state threaded through the stages.
type reportRun struct {
	id         string
	templateID string
	outputPath string
	stage      string
	session    model.Session
	reportURL  string
	jobID      string
	resultURL  string
	encoded    string
	written    int64
	logger     *slog.Logger
}

// Run executes one report run and writes the decoded file to outputPath.
func (o *ReportOrchestrator) Run(ctx context.Context, templateID, outputPath string) error {
	_, err := o.Execute(ctx, templateID, outputPath)
	return err
}

// Execute is Run with a summary of what was produced.
func (o *ReportOrchestrator) Execute(ctx context.Context, templateID, outputPath string) (RunResult, error) {
	run := &reportRun{
		id:         uuid.NewString(),
		templateID: strings.TrimSpace(templateID),
		outputPath: strings.TrimSpace(outputPath),
		stage:      metrics.StageRun,
	}
	run.logger = o.logger.With("run_id", run.id, "report_template_id", run.templateID)

	start := o.clock.Now()
	run.logger.InfoContext(ctx, "report run started", "output_path", run.outputPath)

	err := o.execute(ctx, run)
	elapsed := o.clock.Now().Sub(start)
	o.metrics.ObserveStage(metrics.StageMetric{
		Stage:    metrics.StageRun,
		Result:   resultOf(err),
		Duration: elapsed,
		Err:      err,
	})
	if err != nil {
		o.fail(ctx, run, err)
		return RunResult{RunID: run.id, JobID: run.jobID}, err
	}

	run.logger.InfoContext(ctx, "report run completed",
		"job_id", run.jobID,
		"output_path", run.outputPath,
		"bytes", run.written,
		"duration", util.FormatDuration(elapsed),
	)
	return RunResult{
		RunID:        run.id,
		JobID:        run.jobID,
		OutputPath:   run.outputPath,
		BytesWritten: run.written,
	}, nil
}

func (o *ReportOrchestrator) execute(ctx context.Context, run *reportRun) error {
	if run.templateID == "" {
		return apperrors.Validation("report template id is required")
	}
	if run.outputPath == "" {
		return apperrors.Validation("output path is required")
	}

	steps := []struct {
		name string
		fn   func(context.Context, *reportRun) error
	}{
		{metrics.StageAuthenticate, o.authenticate},
		{metrics.StageStartJob, o.startJob},
		{metrics.StagePoll, o.poll},
		{metrics.StageDownload, o.download},
		{metrics.StageWrite, o.write},
	}
	for _, step := range steps {
		if err := o.runStage(ctx, run, step.name, step.fn); err != nil {
			return err
		}
	}
	return nil
}

func (o *ReportOrchestrator) runStage(
	ctx context.Context,
	run *reportRun,
	name string,
	fn func(context.Context, *reportRun) error,
) error {
	run.stage = name
	start := o.clock.Now()
	err := fn(ctx, run)
	elapsed := o.clock.Now().Sub(start)

	o.metrics.ObserveStage(metrics.StageMetric{
		Stage:    name,
		Result:   resultOf(err),
		Duration: elapsed,
		Err:      err,
	})
	if err == nil {
		run.logger.InfoContext(ctx, "stage completed",
			"stage", name,
			"job_id", run.jobID,
			"duration_ms", elapsed.Milliseconds(),
		)
	}
	return err
}

func (o *ReportOrchestrator) authenticate(ctx context.Context, run *reportRun) error {
	session, err := o.stages.Authenticator.Authenticate(ctx, o.creds)
	if err != nil {
		return err
	}
	run.session = session
	run.reportURL = session.ReportJobsURL(o.apiVersion)
	return nil
}

func (o *ReportOrchestrator) startJob(ctx context.Context, run *reportRun) error {
	jobID, err := o.stages.Launcher.StartJob(ctx, run.templateID, run.reportURL, run.session)
	if err != nil {
		return err
	}
	run.jobID = jobID
	return nil
}

func (o *ReportOrchestrator) poll(ctx context.Context, run *reportRun) error {
	resultURL, err := o.stages.Poller.PollUntilReady(ctx, run.jobID, run.reportURL, run.session)
	if err != nil {
		return err
	}
	run.resultURL = resultURL
	return nil
}

func (o *ReportOrchestrator) download(ctx context.Context, run *reportRun) error {
	encoded, err := o.stages.Fetcher.FetchEncodedReport(ctx, run.resultURL, run.session)
	if err != nil {
		return err
	}
	run.encoded = encoded
	return nil
}

// write streams the base64 decode straight into the writer. A malformed payload is a
// download error; anything else the writer reports is a write error.
func (o *ReportOrchestrator) write(ctx context.Context, run *reportRun) error {
	src := &decodeTracker{r: model.ReportFile{EncodedContent: run.encoded}.Decoder()}
	n, err := o.stages.Writer.WriteReport(ctx, run.outputPath, src)
	switch {
	case src.err != nil:
		return apperrors.Wrap(src.err, apperrors.ErrCodeDownload, "decode report payload")
	case err != nil && apperrors.GetCode(err) == "":
		return apperrors.Wrapf(err, apperrors.ErrCodeWrite, "write report to %s", run.outputPath)
	case err != nil:
		return err
	}
	run.written = n
	run.encoded = ""
	return nil
}

// fail logs the terminal error once and fans it out to the failure notifier.
func (o *ReportOrchestrator) fail(ctx context.Context, run *reportRun, err error) {
	code := apperrors.GetCode(err)
	run.logger.ErrorContext(ctx, "report run failed",
		"stage", run.stage,
		"job_id", run.jobID,
		"error", err,
		"error_code", string(code),
	)
	if o.notifier == nil {
		return
	}

	severity := notify.SeverityCritical
	if code == apperrors.ErrCodePollTimeout || code == apperrors.ErrCodeCanceled {
		severity = notify.SeverityError
	}
	// Notifications still go out when the run was cancelled.
	o.notifier.NotifyRunFailure(context.WithoutCancel(ctx), notify.RunFailurePayload{
		RunID:            run.id,
		ReportTemplateID: run.templateID,
		JobID:            run.jobID,
		Stage:            run.stage,
		Error:            err.Error(),
		ErrorClass:       obserrors.Classify(err),
		Severity:         severity,
		OccurredAt:       o.clock.Now().UTC(),
		Metadata: map[string]string{
			"output_path": run.outputPath,
		},
	})
}

func resultOf(err error) string {
	if err != nil {
		return metrics.ResultError
	}
	return metrics.ResultSuccess
}

// decodeTracker remembers the first decode error so it can be told apart from
// errors raised by the writer.
type decodeTracker struct {
	r   io.Reader
	err error
}

func (d *decodeTracker) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && d.err == nil {
		d.err = err
	}
	return n, err
}

