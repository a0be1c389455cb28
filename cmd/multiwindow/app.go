package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"multiwindow-go/application"
	"multiwindow-go/core/eventbus"
	"multiwindow-go/domain/report"
	"multiwindow-go/domain/scenario"
	"multiwindow-go/infrastructure/browser"
	"multiwindow-go/infrastructure/config"
	"multiwindow-go/infrastructure/logging"
	"multiwindow-go/infrastructure/repository"
	"multiwindow-go/resources"
)

// app holds everything a command needs. close releases it in reverse order.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	scenarios *scenario.Registry
	reports   report.Repository
	eventBus  eventbus.EventBus
	journal   *application.Journal

	closers []func()
}

// newApp loads configuration, applies command-line overrides and wires the
// logging, scenario, persistence and event layers.
func newApp(ctx context.Context, flags *globalFlags) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if err := applyOverrides(cfg, flags); err != nil {
		return nil, err
	}

	// dev: console only, prod: rotating file
	logger, closeLog, err := logging.Setup(cfg.LoggingConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}
	a.closers = append(a.closers, func() { _ = closeLog() })

	a.scenarios = scenario.NewRegistry()
	loader := scenario.NewLoader(a.scenarios)
	if err := loader.LoadFromFS(resources.ScenarioFiles, resources.ScenarioDir); err != nil {
		a.close()
		return nil, fmt.Errorf("failed to load built-in scenarios: %w", err)
	}
	if flags.scenarioDir != "" {
		if err := loader.LoadFromFS(os.DirFS(flags.scenarioDir), "."); err != nil {
			a.close()
			return nil, fmt.Errorf("failed to load scenarios from %s: %w", flags.scenarioDir, err)
		}
	}
	logger.Debug("Scenarios loaded", "count", a.scenarios.Count())

	if cfg.Mongo.Enabled {
		mongoDB, err := repository.NewMongoDB(ctx, cfg.MongoDBConfig(), logger)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to initialize MongoDB: %w", err)
		}
		a.closers = append(a.closers, func() { _ = mongoDB.Close(context.Background()) })
		reports := repository.NewMongoReportRepository(mongoDB, logger)
		if err := reports.EnsureIndexes(ctx); err != nil {
			a.close()
			return nil, err
		}
		a.reports = reports
	} else {
		a.reports = repository.NewMemoryReportRepository()
	}

	a.eventBus = eventbus.New(cfg.Runner.EventBuffer, eventbus.WithLogger(logger))
	a.closers = append(a.closers, a.eventBus.Close)
	a.journal = application.NewJournal(a.eventBus, logger)
	a.closers = append(a.closers, a.journal.Stop)

	return a, nil
}

func applyOverrides(cfg *config.Config, flags *globalFlags) error {
	if flags.driver != "" {
		cfg.Driver.Kind = flags.driver
	}
	if flags.headlessSet {
		cfg.Driver.Headless = flags.headless
	}
	if flags.parallel > 0 {
		cfg.Runner.Parallel = flags.parallel
	}
	if flags.artifactsDir != "" {
		cfg.Artifacts.Dir = flags.artifactsDir
	}
	return cfg.Validate()
}

func (a *app) newRunner() *application.Runner {
	return application.NewRunner(&application.RunnerConfig{
		Scenarios: a.scenarios,
		Reports:   a.reports,
		EventBus:  a.eventBus,
		DriverFactory: func() (browser.Driver, error) {
			return browser.New(a.cfg.BrowserConfig())
		},
		DriverName: a.cfg.Driver.Kind,
		Timeouts:   a.cfg.BrowserTimeouts(),
		Waits: application.WaitDefaults{
			Timeout:  a.cfg.Wait.Timeout,
			Interval: a.cfg.Wait.Interval,
		},
		Parallel:            a.cfg.Runner.Parallel,
		ArtifactsDir:        a.cfg.Artifacts.Dir,
		ScreenshotOnFailure: a.cfg.Artifacts.ScreenshotOnFailure,
		Logger:              a.logger,
	})
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
