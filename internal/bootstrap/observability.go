package bootstrap

import (
	"context"
	"log/slog"

	"github.com/target/reportfetch/config"
	"github.com/target/reportfetch/internal/observability/metrics"
	"github.com/target/reportfetch/internal/observability/notify/pagerduty"
	"github.com/target/reportfetch/internal/observability/notify/slack"
	"github.com/target/reportfetch/internal/observability/statsd"
	"github.com/target/reportfetch/internal/service/failurenotifier"
)

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink     *statsd.Client
	Prometheus      *metrics.PromRecorder
	Recorder        metrics.Recorder
	FailureNotifier *failurenotifier.Service
	Pushgateway     config.PushgatewayConfig
}

// BuildObservability configures metrics and notification adapters. Sinks that fail to
// initialise are logged and skipped; a run never fails because of observability.
func BuildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	recorders := metrics.Multi{}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  statsd.DefaultPrefix,
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
			recorders = append(recorders, metrics.NewStatsdRecorder(client))
		}
	}

	var prom *metrics.PromRecorder
	if cfg.Pushgateway.IsEnabled() {
		prom = metrics.NewPromRecorder()
		recorders = append(recorders, prom)
	}

	var recorder metrics.Recorder = metrics.Nop{}
	if len(recorders) > 0 {
		recorder = recorders
	}

	return ObservabilityContainer{
		MetricsSink:     metricsSink,
		Prometheus:      prom,
		Recorder:        recorder,
		FailureNotifier: buildFailureNotifier(obsLogger, cfg.Notifications),
		Pushgateway:     cfg.Pushgateway,
	}
}

// Flush pushes per-run Prometheus metrics and closes the StatsD socket.
func (o ObservabilityContainer) Flush(ctx context.Context, logger *slog.Logger, templateID string) {
	if logger == nil {
		logger = slog.Default()
	}
	if o.Prometheus != nil {
		if err := o.Prometheus.Push(ctx, o.Pushgateway.URL, o.Pushgateway.Job, templateID); err != nil {
			logger.WarnContext(ctx, "push metrics failed", "error", err)
		}
	}
	if o.MetricsSink != nil {
		if err := o.MetricsSink.Close(); err != nil {
			logger.WarnContext(ctx, "close statsd client failed", "error", err)
		}
	}
}

func buildFailureNotifier(logger *slog.Logger, cfg config.ObservabilityNotificationsConfig) *failurenotifier.Service {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = slog.Default()
	}

	if !cfg.Enabled {
		return failurenotifier.NewService(failurenotifier.Options{Logger: baseLogger})
	}

	sinks := make([]failurenotifier.SinkRegistration, 0, 2)

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL: cfg.Slack.WebhookURL,
			Channel:    cfg.Slack.Channel,
			Username:   cfg.Slack.Username,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			baseLogger.Error("failed to initialise slack notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{
				Name: "slack",
				Sink: client,
			})
		}
	}

	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Endpoint:   cfg.PagerDuty.Endpoint,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			baseLogger.Error("failed to initialise pagerduty notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{
				Name: "pagerduty",
				Sink: client,
			})
		}
	}

	return failurenotifier.NewService(failurenotifier.Options{
		Logger: baseLogger,
		Sinks:  sinks,
	})
}
