package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/target/reportfetch/internal/core"
	"github.com/target/reportfetch/internal/domain/model"
	apperrors "github.com/target/reportfetch/internal/errors"
)

// JobLauncherOptions groups dependencies for JobLauncher.
type JobLauncherOptions struct {
	Transport  core.Transport    // Required: API transport
	JobOptions *model.JobOptions // Optional: defaults to model.DefaultJobOptions
	Logger     *slog.Logger      // Optional: structured logger
}

// JobLauncher starts report jobs.
type JobLauncher struct {
	transport core.Transport
	options   model.JobOptions
	logger    *slog.Logger
}

// NewJobLauncher constructs a new JobLauncher.
func NewJobLauncher(opts JobLauncherOptions) (*JobLauncher, error) {
	if opts.Transport == nil {
		return nil, errors.New("transport is required")
	}
	options := model.DefaultJobOptions()
	if opts.JobOptions != nil {
		options = *opts.JobOptions
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &JobLauncher{
		transport: opts.Transport,
		options:   options,
		logger:    logger.With("component", "job_launcher"),
	}, nil
}

// StartJob POSTs to reportURL+templateID and returns the server-assigned job ID.
// A numeric jobId is accepted and rendered as text. Single attempt.
func (l *JobLauncher) StartJob(ctx context.Context, templateID, reportURL string, session model.Session) (string, error) {
	templateID = strings.TrimSpace(templateID)
	if templateID == "" {
		return "", apperrors.Validation("report template id is required")
	}

	resp, err := l.transport.Do(ctx, core.Request{
		Method: http.MethodPost,
		URL:    reportURL + templateID,
		Body:   l.options,
		Token:  session.Token,
	})
	if err != nil {
		return "", apperrors.Wrapf(err, apperrors.ErrCodeJobStart, "start report job for template %s", templateID)
	}
	if !resp.OK() {
		return "", apperrors.Newf(apperrors.ErrCodeJobStart,
			"start report job for template %s: unexpected status %d", templateID, resp.StatusCode)
	}

	jobID := fieldJobID.String(resp.Body)
	if jobID == "" {
		return "", apperrors.JobStart("start report job: response missing jobId")
	}

	l.logger.DebugContext(ctx, "report job accepted", "report_template_id", templateID, "job_id", jobID)
	return jobID, nil
}
