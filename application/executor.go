package application

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/tidwall/gjson"

	"multiwindow-go/application/session"
	"multiwindow-go/core/command"
	"multiwindow-go/core/event"
	"multiwindow-go/core/wait"
	"multiwindow-go/core/window"
	"multiwindow-go/infrastructure/browser"
	"multiwindow-go/infrastructure/logging"
)

// WaitDefaults fill in explicit waits that omit a timeout or interval.
type WaitDefaults struct {
	Timeout  time.Duration
	Interval time.Duration
}

// executor runs the commands of one scenario against one session.
type executor struct {
	s        *session.Session
	defaults WaitDefaults
	publish  func(event.Event)

	vars        map[string]window.Handle
	stepsRun    int
	screenshots []string
}

func newExecutor(s *session.Session, defaults WaitDefaults, publish func(event.Event)) *executor {
	if publish == nil {
		publish = func(event.Event) {}
	}
	return &executor{
		s:        s,
		defaults: defaults,
		publish:  publish,
		vars:     make(map[string]window.Handle),
	}
}

// run executes the top-level steps in order and stops at the first failure,
// which is returned as a *StepError.
func (e *executor) run(ctx context.Context, steps []command.Command) error {
	clock := e.s.Waits().Clock()
	logger := logging.From(ctx)

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return &StepError{Index: i, Command: step.CommandName(), Err: err}
		}

		start := clock.Now()
		err := e.exec(ctx, step)
		elapsed := clock.Now().Sub(start)
		e.publish(event.NewStepExecuted(e.s.ID(), i, step.CommandName(), elapsed, err))

		if err != nil {
			logger.Warn("Step failed", "step", i, "command", step.CommandName(), "error", err)
			return &StepError{Index: i, Command: step.CommandName(), Err: err}
		}
		logger.Debug("Step done", "step", i, "command", step.CommandName(), "elapsed", elapsed)
	}
	return nil
}

func (e *executor) runNested(ctx context.Context, steps []command.Command) error {
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.exec(ctx, step); err != nil {
			return fmt.Errorf("%s: %w", step.CommandName(), err)
		}
	}
	return nil
}

// exec handles a single command.
func (e *executor) exec(ctx context.Context, cmd command.Command) error {
	if err := command.Validate(cmd); err != nil {
		return err
	}
	e.stepsRun++

	switch c := cmd.(type) {
	// Page operations
	case *command.Navigate:
		return e.s.Navigate(ctx, c.URL)
	case *command.Reload:
		return e.s.Reload(ctx)
	case *command.SetTimeouts:
		return e.setTimeouts(ctx, c)
	case *command.Execute:
		return e.execute(ctx, c)
	case *command.Screenshot:
		return e.screenshot(ctx, c)
	case *command.Sleep:
		return e.s.Sleep(ctx, c.Duration)

	// Element operations
	case *command.Click:
		return e.click(ctx, c)
	case *command.Type:
		loc, err := browser.ParseLocator(c.Target)
		if err != nil {
			return err
		}
		return e.s.SendKeys(ctx, loc, c.Text)
	case *command.Wait:
		return e.wait(ctx, c)

	// Window operations
	case *command.RememberWindow:
		h, err := e.s.CurrentHandle()
		if err != nil {
			return err
		}
		e.vars[c.As] = h
		return nil
	case *command.SwitchWindow:
		return e.switchWindow(ctx, c)
	case *command.ForEachWindow:
		return e.forEachWindow(ctx, c)
	case *command.CloseWindow:
		_, err := e.s.CloseCurrent(ctx)
		return err
	case *command.ExpectWindows:
		return e.s.ExpectWindows(ctx, c.Count)
	case *command.LogHandles:
		_, err := e.s.LogHandles(ctx)
		return err

	default:
		return fmt.Errorf("%w: unsupported command %T", command.ErrInvalidCommand, cmd)
	}
}

func (e *executor) setTimeouts(ctx context.Context, c *command.SetTimeouts) error {
	t := e.s.Timeouts()
	if c.PageLoad != nil {
		t.PageLoad = *c.PageLoad
	}
	if c.Script != nil {
		t.Script = *c.Script
	}
	if c.Implicit != nil {
		t.Implicit = *c.Implicit
	}
	return e.s.SetTimeouts(ctx, t)
}

func (e *executor) click(ctx context.Context, c *command.Click) error {
	loc, err := browser.ParseLocator(c.Target)
	if err != nil {
		return err
	}
	times := max(c.Times, 1)

	clicks := func(ctx context.Context) error {
		for i := 0; i < times; i++ {
			if i > 0 && c.Pause > 0 {
				if err := e.s.Sleep(ctx, c.Pause); err != nil {
					return err
				}
			}
			if err := e.s.Click(ctx, loc); err != nil {
				return err
			}
		}
		return nil
	}

	if !c.TrackWindows {
		return clicks(ctx)
	}

	opened, err := e.s.OpenWindows(ctx, clicks)
	if err != nil {
		return err
	}
	logging.From(ctx).Info("Click opened windows", "target", loc.String(), "opened", opened)
	return nil
}

func (e *executor) wait(ctx context.Context, c *command.Wait) error {
	ignored, err := resolveIgnored(c.Ignore)
	if err != nil {
		return err
	}

	timeout := e.defaults.Timeout
	if c.Timeout != nil {
		timeout = *c.Timeout
	}
	interval := c.Interval
	if interval == 0 {
		interval = e.defaults.Interval
	}

	description := string(c.Condition)
	if c.Target != "" {
		description += " " + c.Target
	}
	p := wait.NewPolicy(timeout).Every(interval).Ignoring(ignored...).Describe(description)

	if c.Condition == command.ConditionPageLoaded {
		_, err := session.Await(ctx, e.s, e.s.PageLoaded(), p)
		return err
	}
	if c.Condition == command.ConditionWindowCount {
		_, err := session.Await(ctx, e.s, e.s.WindowCount(c.Count), p)
		return err
	}

	loc, err := browser.ParseLocator(c.Target)
	if err != nil {
		return err
	}
	var cond wait.Condition[*browser.Element]
	switch c.Condition {
	case command.ConditionPresent:
		cond = e.s.ElementPresent(loc)
	case command.ConditionVisible:
		cond = e.s.ElementVisible(loc)
	case command.ConditionClickable:
		cond = e.s.ElementClickable(loc)
	default:
		return fmt.Errorf("%w: unknown condition %q", command.ErrInvalidCommand, c.Condition)
	}
	_, err = session.Await(ctx, e.s, cond, p)
	return err
}

func (e *executor) switchWindow(ctx context.Context, c *command.SwitchWindow) error {
	if c.To != "" {
		h, ok := e.vars[c.To]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownVariable, c.To)
		}
		return e.s.Focus(ctx, h)
	}

	handles, err := e.s.Handles(ctx)
	if err != nil {
		return err
	}
	i := *c.Index
	if i < 0 {
		i += len(handles)
	}
	if i < 0 || i >= len(handles) {
		return fmt.Errorf("%w: no window at index %d of %d", window.ErrUnknownWindow, *c.Index, len(handles))
	}
	return e.s.Focus(ctx, handles[i])
}

func (e *executor) forEachWindow(ctx context.Context, c *command.ForEachWindow) error {
	handles, err := e.s.Handles(ctx)
	if err != nil {
		return err
	}

	var skip window.Handle
	if c.Except != "" {
		h, ok := e.vars[c.Except]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownVariable, c.Except)
		}
		skip = h
	}

	for _, h := range handles {
		if h == skip {
			continue
		}
		if err := e.s.Focus(ctx, h); err != nil {
			return err
		}
		if err := e.runNested(logging.WithAttrs(ctx, "handle", h), c.Steps); err != nil {
			return fmt.Errorf("window %s: %w", h, err)
		}
		if c.Last != "" {
			e.vars[c.Last] = h
		}
	}
	return nil
}

func (e *executor) execute(ctx context.Context, c *command.Execute) error {
	out, err := e.s.ExecuteScript(ctx, c.Script, c.Async)
	if err != nil {
		return err
	}
	if c.Expect == "" {
		return nil
	}

	got := gjson.ParseBytes(out)
	if gjson.Valid(c.Expect) {
		if reflect.DeepEqual(got.Value(), gjson.Parse(c.Expect).Value()) {
			return nil
		}
	} else if got.Type == gjson.String && got.String() == c.Expect {
		return nil
	}
	return &AssertionError{What: "script result", Want: c.Expect, Got: string(out)}
}

func (e *executor) screenshot(ctx context.Context, c *command.Screenshot) error {
	path, err := e.s.Screenshot(ctx, c.Name)
	if err != nil {
		return err
	}
	e.screenshots = append(e.screenshots, path)
	return nil
}
