package session

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multiwindow-go/core/event"
	"multiwindow-go/core/eventbus"
	"multiwindow-go/core/state"
	"multiwindow-go/core/wait"
	"multiwindow-go/core/window"
	"multiwindow-go/infrastructure/browser"
	"multiwindow-go/infrastructure/browser/browsertest"
)

// recorder is a synchronous EventBus that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) Publish(e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) Subscribe(eventbus.EventHandler, ...eventbus.Filter) string { return "" }
func (r *recorder) Unsubscribe(string)                                        {}
func (r *recorder) Dropped() uint64                                           { return 0 }
func (r *recorder) Close()                                                    {}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventName()
	}
	return out
}

func (r *recorder) closed() []*event.WindowClosed {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*event.WindowClosed
	for _, e := range r.events {
		if c, ok := e.(*event.WindowClosed); ok {
			out = append(out, c)
		}
	}
	return out
}

type fixture struct {
	session *Session
	driver  *browsertest.Driver
	clock   *clock.Mock
	events  *recorder
}

func open(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		driver: browsertest.New(browsertest.PracticeSite()),
		clock:  clock.NewMock(),
		events: &recorder{},
	}
	s, err := Open(testContext(t), &Config{
		ID:           "test",
		Driver:       f.driver,
		DriverName:   "sim",
		Timeouts:     browser.DefaultTimeouts(),
		Clock:        wait.MockClock(f.clock),
		EventBus:     f.events,
		ArtifactsDir: t.TempDir(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	f.session = s
	return f
}

func TestOpen_FocusesFirstWindow(t *testing.T) {
	f := open(t)

	h, err := f.session.CurrentHandle()
	require.NoError(t, err)
	assert.Equal(t, window.Handle("sim-0001"), h)
	assert.Equal(t, state.StateReady, f.session.State())
	assert.Equal(t, browser.Timeouts{PageLoad: 100 * time.Second, Script: 100 * time.Second}, f.driver.Timeouts())
	assert.Contains(t, f.events.names(), "SessionStarted")
}

func TestOpen_DriverFailure(t *testing.T) {
	d := browsertest.New(nil)
	d.FailNext("Start", errors.New("no chrome"))

	_, err := Open(testContext(t), &Config{Driver: d})
	require.Error(t, err)
	assert.False(t, d.IsRunning())
}

func TestSession_ParentAndThreeChildren(t *testing.T) {
	f := open(t)
	s := f.session
	ctx := testContext(t)

	parent, err := s.CurrentHandle()
	require.NoError(t, err)
	require.NoError(t, s.Navigate(ctx, browsertest.SwitchWindowsURL))

	opened, err := s.OpenWindows(ctx, func(ctx context.Context) error {
		for i := 0; i < 3; i++ {
			if err := s.Click(ctx, browser.ID("button1")); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	require.Len(t, opened, 3)
	assert.NotContains(t, opened, parent)

	all, err := s.AllHandles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, all.Len())

	cur, _ := s.CurrentHandle()
	assert.Equal(t, parent, cur, "opening windows does not move focus")

	// Visit every child; the last one visited is closed.
	var last window.Handle
	for _, h := range opened {
		require.NoError(t, s.Focus(ctx, h))
		title, err := s.Title(ctx)
		require.NoError(t, err)
		assert.Equal(t, "sample", title)
		last = h
	}

	closed, err := s.CloseCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, last, closed)

	_, err = s.CurrentHandle()
	assert.ErrorIs(t, err, window.ErrNoFocusedWindow)
	assert.ErrorIs(t, s.Navigate(ctx, browsertest.GoogleURL), window.ErrNoFocusedWindow)
	_, err = s.CloseCurrent(ctx)
	assert.ErrorIs(t, err, window.ErrNoFocusedWindow)

	err = s.Focus(ctx, last)
	var unknown *window.UnknownWindowError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, window.StateClosed, unknown.State)

	require.NoError(t, s.Focus(ctx, parent))
	require.NoError(t, s.ExpectWindows(ctx, 3))
	require.NoError(t, s.Navigate(ctx, browsertest.GoogleURL))
	assert.Equal(t, browsertest.GoogleURL, f.driver.URL(string(parent)))
}

func TestSession_HandlesInObservationOrder(t *testing.T) {
	f := open(t)
	s := f.session
	ctx := testContext(t)

	second := f.driver.OpenExternal(browsertest.ToolsQAURL)
	third := f.driver.OpenExternal(browsertest.GoogleURL)

	handles, err := s.LogHandles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []window.Handle{"sim-0001", window.Handle(second), window.Handle(third)}, handles)
	assert.Contains(t, f.events.names(), "HandlesListed")
}

func TestSession_FocusNeedsObservedWindow(t *testing.T) {
	f := open(t)
	s := f.session
	ctx := testContext(t)

	other := window.Handle(f.driver.OpenExternal(browsertest.GoogleURL))

	err := s.Focus(ctx, other)
	assert.ErrorIs(t, err, window.ErrUnknownWindow, "not observed yet")

	require.NoError(t, s.Refresh(ctx))
	require.NoError(t, s.Focus(ctx, other))

	assert.ErrorIs(t, s.Focus(ctx, "nope"), window.ErrUnknownWindow)
}

func TestSession_ExternalClose(t *testing.T) {
	f := open(t)
	s := f.session
	ctx := testContext(t)

	other := f.driver.OpenExternal(browsertest.GoogleURL)
	require.NoError(t, s.Refresh(ctx))
	require.NoError(t, s.Focus(ctx, window.Handle(other)))

	f.driver.CloseExternal(other)

	// The registry learns about it on the next refresh.
	require.NoError(t, s.Refresh(ctx))
	assert.Equal(t, window.StateClosed, s.Registry().State(window.Handle(other)))
	_, err := s.CurrentHandle()
	assert.ErrorIs(t, err, window.ErrNoFocusedWindow)

	closed := f.events.closed()
	require.Len(t, closed, 1)
	assert.True(t, closed[0].External)
}

func TestSession_FocusWindowClosedBehindOurBack(t *testing.T) {
	f := open(t)
	s := f.session
	ctx := testContext(t)

	other := f.driver.OpenExternal(browsertest.GoogleURL)
	require.NoError(t, s.Refresh(ctx))
	f.driver.CloseExternal(other)

	err := s.Focus(ctx, window.Handle(other))
	var unknown *window.UnknownWindowError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, window.StateClosed, unknown.State)
}

func TestSession_ImplicitWait(t *testing.T) {
	f := open(t)
	s := f.session
	ctx := testContext(t)

	require.NoError(t, s.Navigate(ctx, browsertest.AdminHomeURL))

	err := s.Click(ctx, browser.ID("myDynamicElement"))
	assert.ErrorIs(t, err, browser.ErrNoSuchElement, "no implicit wait by default")

	// Reload resets the element's timing.
	require.NoError(t, s.Reload(ctx))
	tm := s.Timeouts()
	tm.Implicit = 10 * time.Second
	require.NoError(t, s.SetTimeouts(ctx, tm))
	assert.Zero(t, f.driver.Timeouts().Implicit, "implicit wait stays in the session")

	require.NoError(t, s.Click(ctx, browser.ID("myDynamicElement")))
	assert.Equal(t, 3*wait.DefaultInterval, s.WaitElapsed())
}

func TestSession_ImplicitWaitExpires(t *testing.T) {
	f := open(t)
	s := f.session
	ctx := testContext(t)

	require.NoError(t, s.SetTimeouts(ctx, browser.Timeouts{Implicit: 2 * time.Second}))

	_, err := s.FindElement(ctx, browser.ID("absent"))
	assert.ErrorIs(t, err, browser.ErrNoSuchElement)
	assert.NotErrorIs(t, err, wait.ErrTimeout)
	assert.Equal(t, 2*time.Second, s.WaitElapsed())

	assert.Error(t, s.SetTimeouts(ctx, browser.Timeouts{Implicit: -time.Second}))
}

func TestAwait_ElementClickable(t *testing.T) {
	f := open(t)
	s := f.session
	ctx := testContext(t)
	require.NoError(t, s.Navigate(ctx, browsertest.AdminLoginURL))

	p := wait.NewPolicy(10*time.Second).
		Every(500*time.Millisecond).
		Ignoring(browser.ErrNoSuchElement).
		Describe("clickable name=wp-submit")

	el, err := Await(ctx, s, s.ElementClickable(browser.Name("wp-submit")), p)
	require.NoError(t, err)
	assert.True(t, el.Clickable())
	assert.Equal(t, 2*time.Second, s.WaitElapsed(), "two missing and two disabled polls")
	assert.Contains(t, f.events.names(), "WaitSatisfied")

	require.NoError(t, s.Click(ctx, browser.Name("wp-submit")))
}

func TestAwait_UnignoredFailurePropagates(t *testing.T) {
	f := open(t)
	s := f.session
	ctx := testContext(t)
	require.NoError(t, s.Navigate(ctx, browsertest.AdminLoginURL))

	_, err := Await(ctx, s, s.ElementPresent(browser.Name("wp-submit")), wait.NewPolicy(10*time.Second))
	assert.ErrorIs(t, err, browser.ErrNoSuchElement)
	assert.NotErrorIs(t, err, wait.ErrTimeout)
	assert.Zero(t, s.WaitElapsed())
	assert.Contains(t, f.events.names(), "WaitFailed")
}

func TestAwait_Timeout(t *testing.T) {
	f := open(t)
	s := f.session
	ctx := testContext(t)

	p := wait.NewPolicy(30 * time.Second).Every(5 * time.Second).Ignoring(browser.ErrNoSuchElement)
	_, err := Await(ctx, s, s.ElementVisible(browser.ID("foo")), p)

	var te *wait.TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 7, te.Polls)
	assert.ErrorIs(t, te.Last, browser.ErrNoSuchElement)
}

func TestAwait_PageLoadedAndWindowCount(t *testing.T) {
	f := open(t)
	s := f.session
	ctx := testContext(t)
	require.NoError(t, s.Navigate(ctx, browsertest.AdminHomeURL))

	ready, err := Await(ctx, s, s.PageLoaded(), wait.NewPolicy(time.Minute).Every(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "complete", ready)
	assert.Equal(t, 2*time.Second, s.WaitElapsed())

	f.driver.OpenExternal(browsertest.GoogleURL)
	handles, err := Await(ctx, s, s.WindowCount(2), wait.NewPolicy(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 2, handles.Len())

	var wc *WindowCountError
	require.ErrorAs(t, s.ExpectWindows(ctx, 1), &wc)
	assert.Equal(t, 2, wc.Got)
}

func TestSession_NoFocusStopsConditions(t *testing.T) {
	f := open(t)
	s := f.session
	ctx := testContext(t)

	_, err := s.CloseCurrent(ctx)
	require.NoError(t, err)

	p := wait.NewPolicy(time.Minute).Ignoring(browser.ErrNoSuchElement)
	_, err = Await(ctx, s, s.ElementPresent(browser.ID("x")), p)
	assert.ErrorIs(t, err, window.ErrNoFocusedWindow)
}

func TestSession_ExecuteScript(t *testing.T) {
	f := open(t)
	s := f.session
	ctx := testContext(t)

	f.driver.SetScriptResult("return document.title;", []byte(`"Google"`))
	out, err := s.ExecuteScript(ctx, "return document.title;", false)
	require.NoError(t, err)
	assert.Equal(t, `"Google"`, string(out))

	boom := errors.New("boom")
	f.driver.FailNext("ExecuteScript", boom)
	_, err = s.ExecuteScript(ctx, "x", true)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, f.events.names(), "OperationFailed")
}

func TestSession_DeadlinesCountTowardWaitElapsed(t *testing.T) {
	limit := 30 * time.Millisecond
	s, err := Open(testContext(t), &Config{
		ID:           "deadlines",
		Driver:       browsertest.New(browsertest.PracticeSite()),
		Timeouts:     browser.Timeouts{PageLoad: limit, Script: limit},
		ArtifactsDir: t.TempDir(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	ctx := testContext(t)

	err = s.Navigate(ctx, browsertest.HangingURL)
	assert.ErrorIs(t, err, wait.ErrTimeout)
	var te *wait.TimeoutError
	require.ErrorAs(t, err, &te)
	assert.ErrorIs(t, te.Last, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, s.WaitElapsed(), limit)

	require.NoError(t, s.Navigate(ctx, browsertest.ToolsQAURL))
	_, err = s.ExecuteScript(ctx, browsertest.HangingScript, true)
	assert.ErrorIs(t, err, wait.ErrTimeout)
	assert.GreaterOrEqual(t, s.WaitElapsed(), 2*limit)
}

func TestSession_Screenshot(t *testing.T) {
	f := open(t)

	path, err := f.session.Screenshot(testContext(t), "after click")
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Contains(t, path, "test-after_click.png")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestSession_Sleep(t *testing.T) {
	f := open(t)
	start := f.clock.Now()

	require.NoError(t, f.session.Sleep(testContext(t), 3*time.Second))
	assert.Equal(t, 3*time.Second, f.clock.Now().Sub(start))
}

func TestSession_Run(t *testing.T) {
	f := open(t)
	s := f.session

	err := s.Run(testContext(t), func(ctx context.Context) error {
		assert.Equal(t, state.StateRunning, s.State())
		assert.Error(t, s.Run(ctx, func(context.Context) error { return nil }), "runs do not nest")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, state.StateReady, s.State())
}

func TestSession_Close(t *testing.T) {
	f := open(t)
	s := f.session
	ctx := testContext(t)

	f.driver.OpenExternal(browsertest.GoogleURL)
	require.NoError(t, s.Refresh(ctx))

	require.NoError(t, s.Close())
	assert.Equal(t, state.StateStopped, s.State())
	assert.False(t, f.driver.IsRunning())
	assert.Len(t, f.events.closed(), 2)
	for _, rec := range s.Registry().Snapshot() {
		assert.Equal(t, window.StateClosed, rec.State)
	}

	assert.ErrorIs(t, s.Navigate(ctx, browsertest.GoogleURL), ErrClosed)
	_, err := s.CurrentHandle()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.AllHandles(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Run(ctx, func(context.Context) error { return nil }), ErrClosed)
	assert.NoError(t, s.Close(), "closing twice is a no-op")
}

func TestWith_ClosesOnError(t *testing.T) {
	d := browsertest.New(nil)
	boom := errors.New("boom")

	var seen *Session
	err := With(testContext(t), &Config{Driver: d}, func(s *Session) error {
		seen = s
		return boom
	})
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, seen)
	assert.Equal(t, state.StateStopped, seen.State())
	assert.False(t, d.IsRunning())
	assert.NotEmpty(t, seen.ID(), "ID is generated")
}
