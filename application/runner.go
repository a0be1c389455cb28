// Package application runs scenarios: one session per scenario, reports
// saved to the configured repository.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"multiwindow-go/application/session"
	"multiwindow-go/core/event"
	"multiwindow-go/core/eventbus"
	"multiwindow-go/core/wait"
	"multiwindow-go/domain/report"
	"multiwindow-go/domain/scenario"
	"multiwindow-go/infrastructure/browser"
	"multiwindow-go/infrastructure/logging"
)

// DriverFactory creates a fresh browser driver for each session.
type DriverFactory func() (browser.Driver, error)

// RunnerConfig holds configuration for the Runner.
type RunnerConfig struct {
	Scenarios     *scenario.Registry
	Reports       report.Repository
	EventBus      eventbus.EventBus
	DriverFactory DriverFactory
	DriverName    string
	Timeouts      browser.Timeouts
	Waits         WaitDefaults
	// Clock drives waits and report timestamps; wall time when nil.
	Clock wait.Clock
	// Parallel bounds how many scenarios RunAll runs at once.
	Parallel            int
	ArtifactsDir        string
	ScreenshotOnFailure bool
	Logger              *slog.Logger
}

// Runner executes scenarios, each in its own session.
type Runner struct {
	cfg    RunnerConfig
	clock  wait.Clock
	logger *slog.Logger

	// active maps session IDs to the cancel func of their run.
	active   map[string]context.CancelFunc
	activeMu sync.RWMutex
}

// NewRunner creates a runner.
func NewRunner(cfg *RunnerConfig) *Runner {
	c := *cfg
	if c.Logger == nil {
		c.Logger = logging.L()
	}
	if c.Scenarios == nil {
		c.Scenarios = scenario.NewRegistry()
	}
	if c.Parallel < 1 {
		c.Parallel = 1
	}
	if c.DriverFactory == nil {
		c.DriverFactory = func() (browser.Driver, error) {
			return browser.New(nil)
		}
	}

	clock := c.Clock
	if clock == nil {
		clock = wait.SystemClock()
	}

	return &Runner{
		cfg:    c,
		clock:  clock,
		logger: c.Logger,
		active: make(map[string]context.CancelFunc),
	}
}

// Scenarios returns the scenario registry.
func (r *Runner) Scenarios() *scenario.Registry {
	return r.cfg.Scenarios
}

// ActiveSessions returns the number of sessions currently open.
func (r *Runner) ActiveSessions() int {
	r.activeMu.RLock()
	defer r.activeMu.RUnlock()
	return len(r.active)
}

// RunNamed looks the scenarios up and runs them with RunAll.
func (r *Runner) RunNamed(ctx context.Context, names ...string) ([]*report.Report, error) {
	scenarios, err := r.cfg.Scenarios.Lookup(names...)
	if err != nil {
		return nil, err
	}
	return r.RunAll(ctx, scenarios)
}

// RunAll runs the scenarios with at most Parallel of them at once and
// returns their reports in input order. A failing scenario does not stop
// the others; the returned error only reports reports that could not be
// saved.
func (r *Runner) RunAll(ctx context.Context, scenarios []*scenario.Scenario) ([]*report.Report, error) {
	reports := make([]*report.Report, len(scenarios))
	saveErrs := make([]error, len(scenarios))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Parallel)

	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			reports[i], saveErrs[i] = r.Run(gctx, sc)
			return nil
		})
	}
	_ = g.Wait()

	return reports, errors.Join(saveErrs...)
}

// Run executes one scenario in a fresh session and saves its report. The
// report is returned even when saving it fails.
func (r *Runner) Run(ctx context.Context, sc *scenario.Scenario) (*report.Report, error) {
	logger := r.logger.With("scenario", sc.Name)
	ctx = logging.With(ctx, logger)

	rep := &report.Report{
		ID:         uuid.NewString(),
		Scenario:   sc.Name,
		Driver:     r.cfg.DriverName,
		StartedAt:  r.clock.Now(),
		FailedStep: -1,
	}

	runErr := r.execute(ctx, sc, rep, logger)
	r.finish(rep, runErr)

	if rep.Passed() {
		logger.Info("Scenario passed", "duration", rep.Duration(), "steps", rep.StepsRun)
	} else {
		logger.Warn("Scenario did not pass",
			"status", rep.Status,
			"kind", rep.ErrorKind,
			"step", rep.FailedStep,
			"error", rep.Error)
	}

	if r.cfg.Reports != nil {
		if err := r.cfg.Reports.Save(context.WithoutCancel(ctx), rep); err != nil {
			logger.Error("Failed to save report", "id", rep.ID, "error", err)
			return rep, fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
	}
	return rep, nil
}

func (r *Runner) execute(ctx context.Context, sc *scenario.Scenario, rep *report.Report, logger *slog.Logger) error {
	if err := sc.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	driver, err := r.cfg.DriverFactory()
	if err != nil {
		return fmt.Errorf("failed to create driver: %w", err)
	}

	s, err := session.Open(ctx, &session.Config{
		Driver:       driver,
		DriverName:   r.cfg.DriverName,
		Timeouts:     r.cfg.Timeouts,
		Clock:        r.clock,
		EventBus:     r.cfg.EventBus,
		ArtifactsDir: r.cfg.ArtifactsDir,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	rep.SessionID = s.ID()
	ctx = logging.WithAttrs(ctx, "session_id", s.ID())

	r.track(s.ID(), cancel)
	defer r.untrack(s.ID())

	r.publish(event.NewScenarioStarted(s.ID(), sc.Name))

	exec := newExecutor(s, r.cfg.Waits, r.publish)
	runErr := s.Run(ctx, func(ctx context.Context) error {
		return exec.run(ctx, sc.Steps)
	})

	if runErr != nil && r.cfg.ScreenshotOnFailure && s.Registry().HasFocus() {
		path, err := s.Screenshot(context.WithoutCancel(ctx), "failure")
		if err != nil {
			logger.Warn("Failed to capture failure screenshot", "error", err)
		} else {
			exec.screenshots = append(exec.screenshots, path)
		}
	}

	rep.StepsRun = exec.stepsRun
	rep.Screenshots = exec.screenshots
	rep.WaitElapsed = s.WaitElapsed()
	for _, rec := range s.Registry().Snapshot() {
		rep.Windows = append(rep.Windows, report.WindowRecord{
			Handle: string(rec.Handle),
			State:  strings.ToLower(rec.State.String()),
		})
	}

	if err := s.Close(); err != nil {
		logger.Warn("Failed to close session", "error", err)
	}

	reason := event.StopReasonNormal
	switch {
	case ErrorKind(runErr) == report.KindCancelled:
		reason = event.StopReasonCancelled
	case runErr != nil:
		reason = event.StopReasonError
	}
	r.publish(event.NewScenarioStopped(s.ID(), sc.Name, reason, runErr))

	return runErr
}

func (r *Runner) finish(rep *report.Report, err error) {
	rep.FinishedAt = r.clock.Now()
	if err == nil {
		rep.Status = report.StatusPassed
		return
	}

	rep.ErrorKind = ErrorKind(err)
	rep.Status = report.StatusFailed
	if rep.ErrorKind == report.KindCancelled {
		rep.Status = report.StatusCancelled
	}
	rep.Error = err.Error()

	var step *StepError
	if errors.As(err, &step) {
		rep.FailedStep = step.Index
		rep.FailedCommand = step.Command
	}
}

// Stop cancels every running scenario. Their sessions close as the runs
// unwind and their reports are marked cancelled.
func (r *Runner) Stop() {
	r.activeMu.RLock()
	cancels := make([]context.CancelFunc, 0, len(r.active))
	for _, cancel := range r.active {
		cancels = append(cancels, cancel)
	}
	r.activeMu.RUnlock()

	for _, cancel := range cancels {
		cancel()
	}
	r.logger.Info("Runner stopped", "sessions", len(cancels))
}

func (r *Runner) track(sessionID string, cancel context.CancelFunc) {
	r.activeMu.Lock()
	defer r.activeMu.Unlock()
	r.active[sessionID] = cancel
}

func (r *Runner) untrack(sessionID string) {
	r.activeMu.Lock()
	defer r.activeMu.Unlock()
	delete(r.active, sessionID)
}

func (r *Runner) publish(e event.Event) {
	if r.cfg.EventBus != nil {
		r.cfg.EventBus.Publish(e)
	}
}
