package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/reportfetch/config"
	"github.com/target/reportfetch/internal/adapters/httptransport"
	"github.com/target/reportfetch/internal/core"
	"github.com/target/reportfetch/internal/data"
	"github.com/target/reportfetch/internal/domain/model"
	"github.com/target/reportfetch/internal/service"
)

// PipelineDeps groups dependencies for building the report pipeline.
type PipelineDeps struct {
	Config        *config.AppConfig
	Observability ObservabilityContainer
	Logger        *slog.Logger
	// Transport overrides the net/http adapter (tests).
	Transport core.Transport
	// Clock overrides the wall clock (tests).
	Clock core.Clock
}

// NewPipeline wires the transport, stage services, file writer and orchestrator.
func NewPipeline(deps PipelineDeps) (*service.ReportOrchestrator, error) {
	if deps.Config == nil {
		return nil, errors.New("config is required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	transport := deps.Transport
	if transport == nil {
		transport = httptransport.New(httptransport.Config{
			Timeout: cfg.Vendor.RequestTimeout,
			Logger:  logger,
		})
	}

	auth, err := service.NewAuthenticator(service.AuthenticatorOptions{
		Transport: transport,
		TokenURL:  cfg.Vendor.TokenURL,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create authenticator: %w", err)
	}

	launcher, err := service.NewJobLauncher(service.JobLauncherOptions{
		Transport: transport,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create job launcher: %w", err)
	}

	maxAttempts := cfg.Poll.MaxAttempts
	poller, err := service.NewJobPoller(service.JobPollerOptions{
		Transport: transport,
		Config: service.PollerConfig{
			MaxAttempts: &maxAttempts,
			Interval:    cfg.Poll.Interval,
			Clock:       deps.Clock,
		},
		Metrics: deps.Observability.Recorder,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create job poller: %w", err)
	}

	fetcher, err := service.NewReportFetcher(service.ReportFetcherOptions{
		Transport: transport,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create report fetcher: %w", err)
	}

	rt := service.ReportRuntime{
		Logger:  logger,
		Metrics: deps.Observability.Recorder,
		Clock:   deps.Clock,
	}
	if deps.Observability.FailureNotifier.Enabled() {
		rt.Notifier = deps.Observability.FailureNotifier
	}

	orchestrator, err := service.NewReportOrchestrator(service.ReportOrchestratorOptions{
		Stages: service.ReportStages{
			Authenticator: auth,
			Launcher:      launcher,
			Poller:        poller,
			Fetcher:       fetcher,
			Writer:        data.NewFileReportWriter(data.FileReportWriterOptions{Logger: logger}),
		},
		Settings: service.ReportSettings{
			Credentials: CredentialsFromConfig(cfg.Vendor),
			APIVersion:  cfg.Vendor.APIVersion,
		},
		Runtime: rt,
	})
	if err != nil {
		return nil, fmt.Errorf("create report orchestrator: %w", err)
	}
	return orchestrator, nil
}

// CredentialsFromConfig maps vendor configuration onto the credentials model.
func CredentialsFromConfig(cfg config.VendorConfig) model.Credentials {
	return model.Credentials{
		Application:  cfg.Application,
		Vendor:       cfg.Vendor,
		BusinessUnit: cfg.BusinessUnit,
		Username:     cfg.Username,
		Password:     cfg.Password,
	}
}
