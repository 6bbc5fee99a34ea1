package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/target/reportfetch/config"
	"github.com/target/reportfetch/internal/bootstrap"
)

// flushTimeout bounds the metrics push after the run has finished.
const flushTimeout = 10 * time.Second

type options struct {
	templateID string
	outputPath string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:])
	stop()
	if code := exitCode(os.Stderr, err); code != 0 {
		os.Exit(code) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

// exitCode prints a one-line exit reason for err and returns the process status.
// Run failures are already logged by the orchestrator, so nothing is logged here.
func exitCode(w io.Writer, err error) int {
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return 0
	}
	_, _ = fmt.Fprintf(w, "reportfetch: %v\n", err)
	return 1
}

func run(ctx context.Context, args []string) error {
	opts, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger := bootstrap.InitLogger(cfg.Log)

	logStartupInfo(ctx, logger, &cfg)

	obs := bootstrap.BuildObservability(logger, cfg.Observability)
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
		defer cancel()
		obs.Flush(flushCtx, logger, cfg.Job.TemplateID)
	}()

	pipeline, err := bootstrap.NewPipeline(bootstrap.PipelineDeps{
		Config:        &cfg,
		Observability: obs,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	if err := pipeline.Run(ctx, cfg.Job.TemplateID, cfg.Job.OutputPath); err != nil {
		return fmt.Errorf("report run: %w", err)
	}
	return nil
}

// parseFlags reads optional overrides for the report template and output path.
func parseFlags(args []string, output io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("reportfetch", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&opts.templateID, "template", "", "report template id (overrides REPORT_TEMPLATE_ID)")
	fs.StringVar(&opts.outputPath, "output", "", "output file path (overrides REPORT_OUTPUT_PATH)")
	fs.Usage = func() {
		_, _ = fmt.Fprintf(fs.Output(), "Usage: reportfetch [-template id] [-output path]\n\n")
		_, _ = fmt.Fprintf(fs.Output(), "Runs a vendor report and writes the decoded file. Configuration is read from\n")
		_, _ = fmt.Fprintf(fs.Output(), "REPORT_* environment variables and an optional .env file.\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

// loadConfig reads the environment, applies flag overrides and only then
// requires the job values, so flags can stand in for REPORT_TEMPLATE_ID and
// REPORT_OUTPUT_PATH.
func loadConfig(opts options) (config.AppConfig, error) {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return cfg, err
	}
	applyOverrides(&cfg, opts)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func applyOverrides(cfg *config.AppConfig, opts options) {
	if opts.templateID != "" {
		cfg.Job.TemplateID = opts.templateID
	}
	if opts.outputPath != "" {
		cfg.Job.OutputPath = opts.outputPath
	}
	cfg.Job.Sanitize()
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting reportfetch",
		"credentials", bootstrap.CredentialsFromConfig(cfg.Vendor).String(),
		"token_url", cfg.Vendor.TokenURL,
		"api_version", cfg.Vendor.APIVersion,
		"report_template_id", cfg.Job.TemplateID,
		"output_path", cfg.Job.OutputPath,
		"poll_max_attempts", cfg.Poll.MaxAttempts,
		"poll_interval", cfg.Poll.Interval.String(),
	)
}
