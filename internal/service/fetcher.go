package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/target/reportfetch/internal/core"
	"github.com/target/reportfetch/internal/domain/model"
	apperrors "github.com/target/reportfetch/internal/errors"
)

// ReportFetcherOptions groups dependencies for ReportFetcher.
type ReportFetcherOptions struct {
	Transport core.Transport // Required: API transport
	Logger    *slog.Logger   // Optional: structured logger
}

// ReportFetcher downloads the encoded report content.
type ReportFetcher struct {
	transport core.Transport
	logger    *slog.Logger
}

// NewReportFetcher constructs a new ReportFetcher.
func NewReportFetcher(opts ReportFetcherOptions) (*ReportFetcher, error) {
	if opts.Transport == nil {
		return nil, errors.New("transport is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportFetcher{
		transport: opts.Transport,
		logger:    logger.With("component", "report_fetcher"),
	}, nil
}

// FetchEncodedReport GETs resultURL and returns the base64 text in files.file.
// It has no side effects, so repeated calls against the same response are identical.
func (f *ReportFetcher) FetchEncodedReport(ctx context.Context, resultURL string, session model.Session) (string, error) {
	if resultURL == "" {
		return "", apperrors.Validation("result file URL is required")
	}

	resp, err := f.transport.Do(ctx, core.Request{
		Method: http.MethodGet,
		URL:    resultURL,
		Token:  session.Token,
	})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeDownload, "download report")
	}
	if !resp.OK() {
		return "", apperrors.Newf(apperrors.ErrCodeDownload, "download report: unexpected status %d", resp.StatusCode)
	}

	// An empty payload is a valid empty report.
	encoded, ok := fieldReportFile.Lookup(resp.Body)
	if !ok {
		return "", apperrors.Download("download report: response missing files.file")
	}

	f.logger.DebugContext(ctx, "report downloaded", "encoded_bytes", len(encoded))
	return encoded, nil
}
