// plantwised is the plantwise prediction daemon. It loads the model
// bundle, serves health and status endpoints, and retrains the models
// from accumulated user feedback on a fixed cadence.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/plantwise/plantwise/pkg/config"
	"github.com/plantwise/plantwise/pkg/features"
	"github.com/plantwise/plantwise/pkg/health"
	"github.com/plantwise/plantwise/pkg/learning"
	"github.com/plantwise/plantwise/pkg/logx"
	"github.com/plantwise/plantwise/pkg/metrics"
	"github.com/plantwise/plantwise/pkg/models"
	"github.com/plantwise/plantwise/pkg/mqtt"
	"github.com/plantwise/plantwise/pkg/seasonal"
	"github.com/plantwise/plantwise/pkg/service"
	"github.com/plantwise/plantwise/pkg/status"
	"github.com/plantwise/plantwise/pkg/store"
	"github.com/plantwise/plantwise/pkg/telem"
	"github.com/plantwise/plantwise/pkg/weather"
)

var version = "dev"

func main() {
	var (
		configPath  = flag.String("config", "/etc/plantwise/plantwise.yaml", "path to configuration file")
		logLevel    = flag.String("log-level", "", "override log level (debug|info|warn|error)")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("plantwised %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "plantwised: %v\n", err)
		os.Exit(1)
	}
	level := cfg.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	logger := logx.New(level)

	if !cfg.Enable {
		logger.Info("plantwised disabled in configuration, exiting")
		return
	}

	logger.Info("starting plantwised",
		"version", version,
		"config", *configPath,
		"database", cfg.DatabasePath,
		"model_dir", cfg.ModelDir)

	if err := run(cfg, logger); err != nil {
		logger.Error("plantwised failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logx.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.Open(cfg.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	modelStore, err := models.New(cfg.ModelDir, logger)
	if err != nil {
		return fmt.Errorf("open model store: %w", err)
	}
	logger.Info("model bundle ready",
		"version", modelStore.Version(),
		"source", modelStore.Source())

	telemetry := telem.NewStore(telem.Config{
		MaxRecordsPerPlant: cfg.HistoryMaxPerPlant,
		MaxEvents:          cfg.HistoryMaxEvents,
		RetentionHours:     cfg.HistoryRetentionHrs,
		MaxRAMMB:           cfg.HistoryMaxRAMMB,
	})

	env := weather.NewClient(cfg.WeatherBaseURL, cfg.WeatherTimeout(), logger)
	fx := features.NewExtractor(db, db, logger)

	publisher := mqtt.NewClient(&mqtt.Config{
		Broker:      cfg.MQTTBroker,
		Port:        cfg.MQTTPort,
		ClientID:    "plantwised",
		Username:    cfg.MQTTUsername,
		Password:    cfg.MQTTPassword,
		TopicPrefix: cfg.MQTTTopicPrefix,
		QoS:         1,
		Enabled:     cfg.MQTTEnabled,
	}, logger)
	if err := publisher.Connect(); err != nil {
		// broker outages must not block predictions
		logger.Warn("mqtt connect failed, continuing without publisher", "error", err)
	}
	defer publisher.Disconnect()

	var metricsServer *metrics.Server
	if cfg.MetricsListener {
		metricsServer = metrics.NewServer(modelStore, telemetry, logger)
		if err := metricsServer.Start(cfg.MetricsPort); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer metricsServer.Stop()
	}

	var statusServer *status.Server
	if cfg.StatusListener {
		statusServer = status.NewServer(modelStore, telemetry, logger)
		if err := statusServer.Start(cfg.StatusPort); err != nil {
			return fmt.Errorf("start status server: %w", err)
		}
		defer statusServer.Stop()
	}

	svc := service.New(service.Deps{
		Health:    health.NewPredictor(fx, modelStore, db, db, db, logger),
		Seasonal:  seasonal.NewPredictor(fx, modelStore, db, env, logger),
		Loop:      learning.NewLoop(db, modelStore, logger),
		Features:  fx,
		Models:    modelStore,
		Plants:    db,
		DB:        db,
		Telemetry: telemetry,
		Metrics:   metricsServer,
		Publisher: publisher,
		Logger:    logger,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	retrainTicker := time.NewTicker(cfg.RetrainInterval())
	defer retrainTicker.Stop()
	housekeepTicker := time.NewTicker(5 * time.Minute)
	defer housekeepTicker.Stop()
	heartbeatTicker := time.NewTicker(30 * time.Second)
	defer heartbeatTicker.Stop()

	logger.Info("plantwised running",
		"retrain_interval", cfg.RetrainInterval().String(),
		"feedback_lookback_days", cfg.FeedbackLookbackDays)

	for {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig.String())
			cancel()
			return nil

		case <-retrainTicker.C:
			result, err := svc.TrainModelsFromFeedback(ctx, cfg.FeedbackLookbackDays)
			if err != nil {
				logger.Error("feedback retrain failed", "error", err)
				continue
			}
			logger.Info("feedback retrain finished",
				"status", result.Status,
				"samples", result.Samples,
				"model_version", result.Version)

		case <-housekeepTicker.C:
			telemetry.Cleanup()
			if metricsServer != nil {
				metricsServer.UpdateMetrics()
			}

		case <-heartbeatTicker.C:
			logger.Debug("heartbeat",
				"model_version", modelStore.Version(),
				"mqtt_connected", publisher.IsConnected())
			if cfg.MQTTEnabled {
				if err := publisher.PublishStatus(map[string]interface{}{
					"status":        "running",
					"version":       version,
					"model_version": modelStore.Version(),
					"model_source":  modelStore.Source(),
				}); err != nil {
					logger.Warn("status publish failed", "error", err)
				}
			}
		}
	}
}
