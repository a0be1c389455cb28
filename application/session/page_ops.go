package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"multiwindow-go/core/wait"
	"multiwindow-go/infrastructure/browser"
)

// Timeouts returns the timeouts in effect.
func (s *Session) Timeouts() browser.Timeouts {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.timeouts
}

// SetTimeouts replaces the session timeouts. Page-load and script limits
// are also handed to the driver; the implicit wait is applied by the
// session itself around every element lookup.
func (s *Session) SetTimeouts(ctx context.Context, t browser.Timeouts) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if t.Implicit < 0 {
		return fmt.Errorf("implicit wait must not be negative: %s", t.Implicit)
	}

	s.stateMu.Lock()
	s.timeouts = t
	s.stateMu.Unlock()

	if err := s.driver.SetTimeouts(ctx, s.driverTimeouts()); err != nil {
		return s.failed("set_timeouts", fmt.Errorf("failed to set timeouts: %w", err))
	}
	s.logger.Debug("Timeouts set", "page_load", t.PageLoad, "script", t.Script, "implicit", t.Implicit)
	return nil
}

func (s *Session) driverTimeouts() browser.Timeouts {
	t := s.Timeouts()
	t.Implicit = 0
	return t
}

// Navigate loads url in the focused window within the page-load timeout.
func (s *Session) Navigate(ctx context.Context, url string) error {
	h, err := s.focused()
	if err != nil {
		return err
	}

	err = s.within(ctx, s.Timeouts().PageLoad, func(ctx context.Context) error {
		return s.driver.Navigate(ctx, url)
	})
	if err != nil {
		return s.failed("navigate", fmt.Errorf("failed to navigate to %s: %w", url, err))
	}
	s.logger.Info("Navigated", "handle", h, "url", url)
	return nil
}

// Reload reloads the focused window within the page-load timeout.
func (s *Session) Reload(ctx context.Context) error {
	if _, err := s.focused(); err != nil {
		return err
	}

	err := s.within(ctx, s.Timeouts().PageLoad, s.driver.Reload)
	if err != nil {
		return s.failed("reload", fmt.Errorf("failed to reload: %w", err))
	}
	return nil
}

// within runs fn under timeout and adds the time it took to WaitElapsed,
// so page loads and scripts count toward the reported wait.
func (s *Session) within(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	clock := s.waits.Clock()
	start := clock.Now()
	err := s.waits.Within(ctx, timeout, fn)
	s.addWaitElapsed(clock.Now().Sub(start))
	return err
}

// Title returns the focused window's title.
func (s *Session) Title(ctx context.Context) (string, error) {
	if _, err := s.focused(); err != nil {
		return "", err
	}
	return s.driver.Title(ctx)
}

// CurrentURL returns the focused window's location.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	if _, err := s.focused(); err != nil {
		return "", err
	}
	return s.driver.CurrentURL(ctx)
}

// ReadyState returns document.readyState of the focused window.
func (s *Session) ReadyState(ctx context.Context) (string, error) {
	if _, err := s.focused(); err != nil {
		return "", err
	}
	return s.driver.ReadyState(ctx)
}

// ExecuteScript runs script in the focused window within the script
// timeout and returns its JSON-encoded result.
func (s *Session) ExecuteScript(ctx context.Context, script string, async bool) ([]byte, error) {
	if _, err := s.focused(); err != nil {
		return nil, err
	}

	var out []byte
	err := s.within(ctx, s.Timeouts().Script, func(ctx context.Context) error {
		var err error
		out, err = s.driver.ExecuteScript(ctx, script, async)
		return err
	})
	if err != nil {
		return nil, s.failed("execute_script", fmt.Errorf("script failed: %w", err))
	}
	return out, nil
}

// FindElement looks loc up in the focused window, retrying for up to the
// implicit wait while the element is missing.
func (s *Session) FindElement(ctx context.Context, loc browser.Locator) (*browser.Element, error) {
	var el *browser.Element
	err := s.implicitly(ctx, loc, func(ctx context.Context) error {
		var err error
		el, err = s.driver.FindElement(ctx, loc)
		return err
	})
	return el, err
}

// Click clicks loc in the focused window, honouring the implicit wait.
func (s *Session) Click(ctx context.Context, loc browser.Locator) error {
	err := s.implicitly(ctx, loc, func(ctx context.Context) error {
		return s.driver.ClickElement(ctx, loc)
	})
	return s.failed("click", err)
}

// SendKeys types text into loc in the focused window, honouring the
// implicit wait.
func (s *Session) SendKeys(ctx context.Context, loc browser.Locator, text string) error {
	err := s.implicitly(ctx, loc, func(ctx context.Context) error {
		return s.driver.SendKeys(ctx, loc, text)
	})
	return s.failed("send_keys", err)
}

// implicitly runs an element operation, retrying it while the element is
// missing for up to the implicit wait. Like a browser's implicit wait, an
// expired wait reports the lookup failure rather than a timeout.
func (s *Session) implicitly(ctx context.Context, loc browser.Locator, op func(ctx context.Context) error) error {
	if _, err := s.focused(); err != nil {
		return err
	}

	implicit := s.Timeouts().Implicit
	if implicit <= 0 {
		return op(ctx)
	}

	policy := wait.NewPolicy(implicit).
		Ignoring(browser.ErrNoSuchElement).
		Describe("element " + loc.String())

	start := s.waits.Clock().Now()
	err := wait.Poll(ctx, s.waits, func(ctx context.Context) (bool, error) {
		if err := op(ctx); err != nil {
			return false, err
		}
		return true, nil
	}, policy)
	s.addWaitElapsed(s.waits.Clock().Now().Sub(start))

	var te *wait.TimeoutError
	if errors.As(err, &te) && te.Last != nil {
		return te.Last
	}
	return err
}
