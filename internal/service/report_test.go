package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/reportfetch/internal/adapters/httptransport"
	"github.com/target/reportfetch/internal/core"
	"github.com/target/reportfetch/internal/data"
	apperrors "github.com/target/reportfetch/internal/errors"
	"github.com/target/reportfetch/internal/mocks"
	"github.com/target/reportfetch/internal/observability/metrics"
	"github.com/target/reportfetch/internal/observability/notify"
	"github.com/target/reportfetch/internal/testutil"
	"go.uber.org/mock/gomock"
)

type orchestratorFixture struct {
	transport *mocks.MockTransport
	clock     *testutil.FakeClock
	metrics   *recordingMetrics
	notifier  *recordingNotifier
	output    string
}

func newOrchestratorFixture(t *testing.T) *orchestratorFixture {
	t.Helper()
	return &orchestratorFixture{
		transport: newMockTransport(t),
		clock:     testutil.NewFakeClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)),
		metrics:   &recordingMetrics{},
		notifier:  &recordingNotifier{},
		output:    testutil.OutputPath(t, "report.csv"),
	}
}

func (f *orchestratorFixture) build(t *testing.T, writer core.ReportWriter) *ReportOrchestrator {
	t.Helper()
	logger := testutil.DiscardLogger()

	auth, err := NewAuthenticator(AuthenticatorOptions{Transport: f.transport, TokenURL: testTokenURL, Logger: logger})
	require.NoError(t, err)
	launcher, err := NewJobLauncher(JobLauncherOptions{Transport: f.transport, Logger: logger})
	require.NoError(t, err)
	poller, err := NewJobPoller(JobPollerOptions{
		Transport: f.transport,
		Config:    PollerConfig{MaxAttempts: intPtr(10), Interval: testInterval, Clock: f.clock},
		Metrics:   f.metrics,
		Logger:    logger,
	})
	require.NoError(t, err)
	fetcher, err := NewReportFetcher(ReportFetcherOptions{Transport: f.transport, Logger: logger})
	require.NoError(t, err)

	if writer == nil {
		writer = data.NewFileReportWriter(data.FileReportWriterOptions{Logger: logger})
	}

	o, err := NewReportOrchestrator(ReportOrchestratorOptions{
		Stages: ReportStages{
			Authenticator: auth,
			Launcher:      launcher,
			Poller:        poller,
			Fetcher:       fetcher,
			Writer:        writer,
		},
		Settings: ReportSettings{Credentials: testCredentials(), APIVersion: "v13.0"},
		Runtime: ReportRuntime{
			Logger:   logger,
			Metrics:  f.metrics,
			Notifier: f.notifier,
			Clock:    f.clock,
		},
	})
	require.NoError(t, err)
	return o
}

// routeByURL answers each request from a per-URL script.
func routeByURL(t *testing.T, routes map[string][]*core.Response) func(context.Context, core.Request) (*core.Response, error) {
	t.Helper()
	return func(_ context.Context, req core.Request) (*core.Response, error) {
		script := routes[req.URL]
		if len(script) == 0 {
			t.Fatalf("unexpected request %s %s", req.Method, req.URL)
		}
		routes[req.URL] = script[1:]
		return script[0], nil
	}
}

func TestReportOrchestrator_RunWritesDecodedFile(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.transport.EXPECT().Do(gomock.Any(), gomock.Any()).DoAndReturn(routeByURL(t, map[string][]*core.Response{
		testTokenURL:                   {testutil.TokenResponse("T", testBaseURI)},
		testReportURL + testTemplateID: {testutil.JobStartedResponse(testJobID)},
		testReportURL + testJobID:      {
			testutil.JobPendingResponse(),
			testutil.JobPendingResponse(),
			testutil.JobReadyResponse(testResultURL),
		},
		testResultURL:                  {testutil.ReportFileResponse("aGVsbG8=")},
	})).Times(6)

	result, err := f.build(t, nil).Execute(context.Background(), testTemplateID, f.output)
	require.NoError(t, err)

	got, err := os.ReadFile(f.output)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	assert.Equal(t, testJobID, result.JobID)
	assert.Equal(t, int64(5), result.BytesWritten)
	assert.NotEmpty(t, result.RunID)
	assert.Len(t, f.clock.Sleeps(), 2)
	assert.Empty(t, f.notifier.payloads)

	assert.Equal(t, map[string]string{
		metrics.StageAuthenticate: metrics.ResultSuccess,
		metrics.StageStartJob:     metrics.ResultSuccess,
		metrics.StagePoll:         metrics.ResultSuccess,
		metrics.StageDownload:     metrics.ResultSuccess,
		metrics.StageWrite:        metrics.ResultSuccess,
		metrics.StageRun:          metrics.ResultSuccess,
	}, f.metrics.stageResults())
}

func TestReportOrchestrator_EmptyReportWritesEmptyFile(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.transport.EXPECT().Do(gomock.Any(), gomock.Any()).DoAndReturn(routeByURL(t, map[string][]*core.Response{
		testTokenURL:                   {testutil.TokenResponse("T", testBaseURI)},
		testReportURL + testTemplateID: {testutil.JobStartedResponse(testJobID)},
		testReportURL + testJobID:      {testutil.JobReadyResponse(testResultURL)},
		testResultURL:                  {testutil.ReportFileResponse("")},
	})).Times(4)

	result, err := f.build(t, nil).Execute(context.Background(), testTemplateID, f.output)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.BytesWritten)

	got, err := os.ReadFile(f.output)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReportOrchestrator_RunIDsAreUnique(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.transport.EXPECT().Do(gomock.Any(), gomock.Any()).
		Return(testutil.StatusResponse(http.StatusUnauthorized), nil).Times(2)

	o := f.build(t, nil)
	first, err := o.Execute(context.Background(), testTemplateID, f.output)
	require.Error(t, err)
	second, err := o.Execute(context.Background(), testTemplateID, f.output)
	require.Error(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestReportOrchestrator_StageFailuresAbort(t *testing.T) {
	tests := []struct {
		name     string
		routes   map[string][]*core.Response
		calls    int
		stage    string
		check    func(error) bool
		jobID    string
		severity string
	}{
		{
			name:     "authentication",
			routes:   map[string][]*core.Response{testTokenURL: {testutil.OKResponse(map[string]any{"access_token": "T"})}},
			calls:    1,
			stage:    metrics.StageAuthenticate,
			check:    apperrors.IsAuthentication,
			severity: notify.SeverityCritical,
		},
		{
			name: "job start",
			routes: map[string][]*core.Response{
				testTokenURL:                   {testutil.TokenResponse("T", testBaseURI)},
				testReportURL + testTemplateID: {testutil.OKResponse(map[string]any{})},
			},
			calls:    2,
			stage:    metrics.StageStartJob,
			check:    apperrors.IsJobStart,
			severity: notify.SeverityCritical,
		},
		{
			name: "poll transport",
			routes: map[string][]*core.Response{
				testTokenURL:                   {testutil.TokenResponse("T", testBaseURI)},
				testReportURL + testTemplateID: {testutil.JobStartedResponse(testJobID)},
				testReportURL + testJobID:      {testutil.StatusResponse(http.StatusBadGateway)},
			},
			calls:    3,
			stage:    metrics.StagePoll,
			check:    apperrors.IsPollTransport,
			jobID:    testJobID,
			severity: notify.SeverityCritical,
		},
		{
			name: "download",
			routes: map[string][]*core.Response{
				testTokenURL:                   {testutil.TokenResponse("T", testBaseURI)},
				testReportURL + testTemplateID: {testutil.JobStartedResponse(testJobID)},
				testReportURL + testJobID:      {testutil.JobReadyResponse(testResultURL)},
				testResultURL:                  {testutil.OKResponse(map[string]any{"files": map[string]any{}})},
			},
			calls:    4,
			stage:    metrics.StageDownload,
			check:    apperrors.IsDownload,
			jobID:    testJobID,
			severity: notify.SeverityCritical,
		},
		{
			name: "malformed payload",
			routes: map[string][]*core.Response{
				testTokenURL:                   {testutil.TokenResponse("T", testBaseURI)},
				testReportURL + testTemplateID: {testutil.JobStartedResponse(testJobID)},
				testReportURL + testJobID:      {testutil.JobReadyResponse(testResultURL)},
				testResultURL:                  {testutil.ReportFileResponse("aGVs!!!bG8=")},
			},
			calls:    4,
			stage:    metrics.StageWrite,
			check:    apperrors.IsDownload,
			jobID:    testJobID,
			severity: notify.SeverityCritical,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrchestratorFixture(t)
			f.transport.EXPECT().Do(gomock.Any(), gomock.Any()).
				DoAndReturn(routeByURL(t, tt.routes)).Times(tt.calls)

			err := f.build(t, nil).Run(context.Background(), testTemplateID, f.output)
			require.Error(t, err)
			assert.True(t, tt.check(err), "got %v", err)

			_, statErr := os.Stat(f.output)
			assert.ErrorIs(t, statErr, os.ErrNotExist, "no output file on failure")
			assert.Empty(t, dirEntries(t, filepath.Dir(f.output)), "no temp files on failure")

			payload := f.notifier.only(t)
			assert.Equal(t, tt.stage, payload.Stage)
			assert.Equal(t, testTemplateID, payload.ReportTemplateID)
			assert.Equal(t, tt.jobID, payload.JobID)
			assert.Equal(t, tt.severity, payload.Severity)
			assert.Equal(t, string(apperrors.GetCode(err)), payload.ErrorClass)
			assert.Equal(t, f.output, payload.Metadata["output_path"])
			assert.NotEmpty(t, payload.RunID)

			assert.Equal(t, metrics.ResultError, f.metrics.stageResults()[tt.stage])
			assert.Equal(t, metrics.ResultError, f.metrics.stageResults()[metrics.StageRun])
		})
	}
}

func TestReportOrchestrator_PollTimeout(t *testing.T) {
	f := newOrchestratorFixture(t)
	pendingScript := make([]*core.Response, 11)
	for i := range pendingScript {
		pendingScript[i] = testutil.JobPendingResponse()
	}
	f.transport.EXPECT().Do(gomock.Any(), gomock.Any()).DoAndReturn(routeByURL(t, map[string][]*core.Response{
		testTokenURL:                   {testutil.TokenResponse("T", testBaseURI)},
		testReportURL + testTemplateID: {testutil.JobStartedResponse(testJobID)},
		testReportURL + testJobID:      pendingScript,
	})).Times(13)

	err := f.build(t, nil).Run(context.Background(), testTemplateID, f.output)
	require.Error(t, err)
	assert.True(t, apperrors.IsPollTimeout(err))
	assert.Len(t, f.clock.Sleeps(), 10)
	assert.Equal(t, notify.SeverityError, f.notifier.only(t).Severity)
}

func TestReportOrchestrator_WriterFailure(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.transport.EXPECT().Do(gomock.Any(), gomock.Any()).DoAndReturn(routeByURL(t, map[string][]*core.Response{
		testTokenURL:                   {testutil.TokenResponse("T", testBaseURI)},
		testReportURL + testTemplateID: {testutil.JobStartedResponse(testJobID)},
		testReportURL + testJobID:      {testutil.JobReadyResponse(testResultURL)},
		testResultURL:                  {testutil.ReportFileResponse("aGVsbG8=")},
	})).Times(4)

	writer := mocks.NewMockReportWriter(gomock.NewController(t))
	writer.EXPECT().WriteReport(gomock.Any(), f.output, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, content io.Reader) (int64, error) {
			b, err := io.ReadAll(content)
			require.NoError(t, err)
			assert.Equal(t, "hello", string(b))
			return 0, errors.New("no space left on device")
		})

	err := f.build(t, writer).Run(context.Background(), testTemplateID, f.output)
	require.Error(t, err)
	assert.True(t, apperrors.IsWrite(err), "got %v", err)
	assert.Equal(t, metrics.StageWrite, f.notifier.only(t).Stage)
}

func TestReportOrchestrator_ValidatesInputs(t *testing.T) {
	f := newOrchestratorFixture(t)
	o := f.build(t, nil)

	err := o.Run(context.Background(), " ", f.output)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	err = o.Run(context.Background(), testTemplateID, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestReportOrchestrator_CancelledRunStillNotifies(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.clock.SleepErr = context.Canceled
	f.transport.EXPECT().Do(gomock.Any(), gomock.Any()).DoAndReturn(routeByURL(t, map[string][]*core.Response{
		testTokenURL:                   {testutil.TokenResponse("T", testBaseURI)},
		testReportURL + testTemplateID: {testutil.JobStartedResponse(testJobID)},
		testReportURL + testJobID:      {testutil.JobPendingResponse()},
	})).Times(3)

	err := f.build(t, nil).Run(context.Background(), testTemplateID, f.output)
	require.Error(t, err)
	assert.True(t, apperrors.IsCanceled(err))

	payload := f.notifier.only(t)
	assert.Equal(t, metrics.StagePoll, payload.Stage)
	assert.Equal(t, notify.SeverityError, payload.Severity)
}

func TestNewReportOrchestrator_RequiresStages(t *testing.T) {
	_, err := NewReportOrchestrator(ReportOrchestratorOptions{
		Settings: ReportSettings{APIVersion: "v13.0"},
	})
	require.Error(t, err)

	f := newOrchestratorFixture(t)
	o := f.build(t, nil)
	stages := o.stages
	_, err = NewReportOrchestrator(ReportOrchestratorOptions{Stages: stages})
	require.Error(t, err, "api version is required")
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// TestReportOrchestrator_EndToEndOverHTTP drives the full pipeline through the
// net/http adapter against a fake vendor API.
func TestReportOrchestrator_EndToEndOverHTTP(t *testing.T) {
	var statusCalls atomic.Int32
	var server *httptest.Server
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	requireBearer := func(t *testing.T, r *http.Request) {
		t.Helper()
		assert.Equal(t, "Bearer T", r.Header.Get("Authorization"))
	}

	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Basic "))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "password", body["grant_type"])
		writeJSON(w, map[string]any{
			"access_token":             "T",
			"token_type":               "bearer",
			"expires_in":               3600,
			"resource_server_base_uri": server.URL + "/inContactAPI/",
		})
	})
	mux.HandleFunc("POST /inContactAPI/services/v13.0/report-jobs/1234", func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r)
		var opts map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&opts))
		assert.Equal(t, "CSV", opts["fileType"])
		assert.Equal(t, "7", opts["deleteAfter"])
		w.WriteHeader(http.StatusAccepted)
		writeJSON(w, map[string]any{"jobId": 5521})
	})
	mux.HandleFunc("GET /inContactAPI/services/v13.0/report-jobs/5521", func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r)
		if statusCalls.Add(1) < 3 {
			writeJSON(w, map[string]any{"jobResult": map[string]any{}})
			return
		}
		writeJSON(w, map[string]any{"jobResult": map[string]any{"resultFileURL": server.URL + "/files/5521"}})
	})
	mux.HandleFunc("GET /files/5521", func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r)
		writeJSON(w, map[string]any{"files": map[string]any{"file": "YWdlbnQsY2FsbHMNCmFsaWNlLDMNCg=="}})
	})
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)

	logger := testutil.DiscardLogger()
	transport := httptransport.New(httptransport.Config{Timeout: 5 * time.Second, Logger: logger})
	clock := testutil.NewFakeClock(time.Now())

	auth, err := NewAuthenticator(AuthenticatorOptions{Transport: transport, TokenURL: server.URL + "/token"})
	require.NoError(t, err)
	launcher, err := NewJobLauncher(JobLauncherOptions{Transport: transport})
	require.NoError(t, err)
	poller, err := NewJobPoller(JobPollerOptions{
		Transport: transport,
		Config:    PollerConfig{Interval: time.Minute, Clock: clock},
	})
	require.NoError(t, err)
	fetcher, err := NewReportFetcher(ReportFetcherOptions{Transport: transport})
	require.NoError(t, err)

	o, err := NewReportOrchestrator(ReportOrchestratorOptions{
		Stages: ReportStages{
			Authenticator: auth,
			Launcher:      launcher,
			Poller:        poller,
			Fetcher:       fetcher,
			Writer:        data.NewFileReportWriter(data.FileReportWriterOptions{}),
		},
		Settings: ReportSettings{Credentials: testCredentials(), APIVersion: "v13.0"},
		Runtime:  ReportRuntime{Logger: logger, Clock: clock},
	})
	require.NoError(t, err)

	output := testutil.OutputPath(t, "calls.csv")
	result, err := o.Execute(context.Background(), testTemplateID, output)
	require.NoError(t, err)
	assert.Equal(t, "5521", result.JobID)
	assert.Equal(t, int32(3), statusCalls.Load())
	assert.Len(t, clock.Sleeps(), 2)

	got, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "agent,calls\r\nalice,3\r\n", string(got))
}
