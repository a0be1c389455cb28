package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// ChromeDPDriver implements Driver over the Chrome DevTools Protocol.
// Every page target is a window; its target ID is the window handle.
type ChromeDPDriver struct {
	config      *DriverConfig
	allocCtx    context.Context
	allocCancel context.CancelFunc
	// browserCtx belongs to the first tab and owns the browser process.
	browserCtx context.Context
	cancel     context.CancelFunc
	mu         sync.Mutex
	running    bool

	tabs     map[string]*tab
	current  string
	timeouts Timeouts
}

type tab struct {
	ctx    context.Context
	cancel context.CancelFunc // nil for the first tab
}

// NewChromeDPDriver creates a new ChromeDP-based browser driver.
func NewChromeDPDriver(config *DriverConfig) *ChromeDPDriver {
	if config == nil {
		config = DefaultDriverConfig()
	}
	return &ChromeDPDriver{
		config:   config,
		tabs:     make(map[string]*tab),
		timeouts: DefaultTimeouts(),
	}
}

// buildExecAllocatorOptions builds chromedp options from config.
func (d *ChromeDPDriver) buildExecAllocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.config.Headless),
		chromedp.Flag("hide-scrollbars", d.config.HideScrollbars),
		chromedp.Flag("mute-audio", d.config.MuteAudio),
		chromedp.Flag("disable-gpu", d.config.DisableGPU),
		chromedp.Flag("disable-popup-blocking", d.config.DisablePopupBlocking),
		chromedp.Flag("disable-infobars", true),
		chromedp.WindowSize(d.config.WindowWidth, d.config.WindowHeight),
	)

	if d.config.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(d.config.UserDataDir))
	}
	if d.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(d.config.ExecPath))
	}

	return opts
}

// Start launches the browser and attaches to its first tab.
func (d *ChromeDPDriver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("browser already running")
	}

	// The browser outlives the caller's context; Stop tears it down.
	d.allocCtx, d.allocCancel = chromedp.NewExecAllocator(
		context.Background(),
		d.buildExecAllocatorOptions()...,
	)
	d.browserCtx, d.cancel = chromedp.NewContext(d.allocCtx)

	if err := runBound(ctx, d.browserCtx); err != nil {
		d.cleanup()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	c := chromedp.FromContext(d.browserCtx)
	if c == nil || c.Target == nil {
		d.cleanup()
		return fmt.Errorf("failed to launch browser: no initial target")
	}

	handle := string(c.Target.TargetID)
	d.tabs[handle] = &tab{ctx: d.browserCtx}
	d.current = handle
	d.running = true
	return nil
}

// Stop closes the browser and releases resources.
func (d *ChromeDPDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}

	d.cleanup()
	return nil
}

func (d *ChromeDPDriver) cleanup() {
	d.running = false
	for handle, t := range d.tabs {
		if t.cancel != nil {
			t.cancel()
		}
		delete(d.tabs, handle)
	}
	d.current = ""
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.allocCancel != nil {
		d.allocCancel()
		d.allocCancel = nil
	}
	d.browserCtx = nil
	d.allocCtx = nil
}

// IsRunning returns true if the browser is active.
func (d *ChromeDPDriver) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// currentTab snapshots the context of the current window.
func (d *ChromeDPDriver) currentTab() (context.Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running || d.browserCtx == nil {
		return nil, ErrNotRunning
	}
	t, ok := d.tabs[d.current]
	if !ok {
		return nil, ErrNoSuchWindow
	}
	return t.ctx, nil
}

func (d *ChromeDPDriver) browser() (context.Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running || d.browserCtx == nil {
		return nil, ErrNotRunning
	}
	return d.browserCtx, nil
}

// run executes actions in the current window, bounded by ctx.
func (d *ChromeDPDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	tabCtx, err := d.currentTab()
	if err != nil {
		return err
	}
	return runBound(ctx, tabCtx, actions...)
}

// runBound runs actions on a chromedp context while honouring the deadline
// and cancellation of the caller's ctx. Cancelling the derived context does
// not close the tab.
func runBound(ctx, tabCtx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	execCtx, cancel := context.WithCancel(tabCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		execCtx, cancelDeadline = context.WithDeadline(execCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(execCtx, actions...)
	if ctxErr := ctx.Err(); ctxErr != nil && err != nil {
		return ctxErr
	}
	return err
}

// Navigate navigates to the specified URL.
func (d *ChromeDPDriver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, chromedp.Navigate(url))
}

// Reload refreshes the current page.
func (d *ChromeDPDriver) Reload(ctx context.Context) error {
	return d.run(ctx, chromedp.Reload())
}

// CurrentURL returns the location of the current window.
func (d *ChromeDPDriver) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := d.run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// Title returns the document title.
func (d *ChromeDPDriver) Title(ctx context.Context) (string, error) {
	var title string
	if err := d.run(ctx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

// FindElement probes the document once for loc.
func (d *ChromeDPDriver) FindElement(ctx context.Context, loc Locator) (*Element, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}

	var info elementInfo
	if err := d.run(ctx, chromedp.Evaluate(loc.probeScript(), &info)); err != nil {
		return nil, &LookupError{Locator: loc, Err: err}
	}
	if !info.Found {
		return nil, &LookupError{Locator: loc, Err: ErrNoSuchElement}
	}

	return &Element{
		Locator: loc,
		TagName: info.Tag,
		Text:    info.Text,
		Visible: info.Visible,
		Enabled: info.Enabled,
	}, nil
}

// queryOptions maps a locator onto a chromedp selector and query option.
func queryOptions(loc Locator) (string, chromedp.QueryOption) {
	if sel, ok := loc.CSSSelector(); ok {
		return sel, chromedp.ByQuery
	}
	return loc.Value, chromedp.BySearch
}

// interactable looks loc up and rejects hidden or disabled elements, so
// that a click never blocks inside chromedp waiting for visibility.
func (d *ChromeDPDriver) interactable(ctx context.Context, loc Locator) error {
	el, err := d.FindElement(ctx, loc)
	if err != nil {
		return err
	}
	if !el.Clickable() {
		return &LookupError{Locator: loc, Err: ErrNotInteractable}
	}
	return nil
}

// ClickElement clicks on an element by locator.
func (d *ChromeDPDriver) ClickElement(ctx context.Context, loc Locator) error {
	if err := d.interactable(ctx, loc); err != nil {
		return err
	}
	sel, by := queryOptions(loc)
	return d.run(ctx, chromedp.Click(sel, by))
}

// SendKeys sends keystrokes to an element.
func (d *ChromeDPDriver) SendKeys(ctx context.Context, loc Locator, text string) error {
	if err := d.interactable(ctx, loc); err != nil {
		return err
	}
	sel, by := queryOptions(loc)
	return d.run(ctx, chromedp.SendKeys(sel, text, by))
}

// ExecuteScript evaluates a function body. The result is serialised in the
// page so that undefined and null both come back as JSON null.
func (d *ChromeDPDriver) ExecuteScript(ctx context.Context, script string, async bool) ([]byte, error) {
	var expr string
	var opts []chromedp.EvaluateOption
	if async {
		expr = "(async () => { const r = await (async function() {\n" + script + "\n})(); const s = JSON.stringify(r); return s === undefined ? 'null' : s; })()"
		opts = append(opts, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		})
	} else {
		expr = "(() => { const r = (function() {\n" + script + "\n})(); const s = JSON.stringify(r); return s === undefined ? 'null' : s; })()"
	}

	var out string
	if err := d.run(ctx, chromedp.Evaluate(expr, &out, opts...)); err != nil {
		return nil, fmt.Errorf("script failed: %w", err)
	}
	if !json.Valid([]byte(out)) {
		return nil, fmt.Errorf("script returned invalid JSON")
	}
	return []byte(out), nil
}

// ReadyState returns document.readyState.
func (d *ChromeDPDriver) ReadyState(ctx context.Context) (string, error) {
	var state string
	if err := d.run(ctx, chromedp.Evaluate(`document.readyState`, &state)); err != nil {
		return "", err
	}
	return state, nil
}

// CaptureScreen captures the current browser screen.
func (d *ChromeDPDriver) CaptureScreen(ctx context.Context) (image.Image, error) {
	var buf []byte
	if err := d.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}

	img, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}

	return img, nil
}

// WindowHandle returns the target ID of the current window.
func (d *ChromeDPDriver) WindowHandle(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return "", ErrNotRunning
	}
	if d.current == "" {
		return "", ErrNoSuchWindow
	}
	return d.current, nil
}

// WindowHandles lists every page target of the browser.
func (d *ChromeDPDriver) WindowHandles(ctx context.Context) ([]string, error) {
	browserCtx, err := d.browser()
	if err != nil {
		return nil, err
	}

	var infos []*target.Info
	err = runBound(ctx, browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		infos, err = chromedp.Targets(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}

	handles := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.Type == "page" {
			handles = append(handles, string(info.TargetID))
		}
	}
	return handles, nil
}

// SwitchToWindow attaches to the target behind handle and makes it current.
func (d *ChromeDPDriver) SwitchToWindow(ctx context.Context, handle string) error {
	handles, err := d.WindowHandles(ctx)
	if err != nil {
		return err
	}
	found := false
	for _, h := range handles {
		if h == handle {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNoSuchWindow, handle)
	}

	d.mu.Lock()
	t, attached := d.tabs[handle]
	browserCtx := d.browserCtx
	d.mu.Unlock()

	if !attached {
		tabCtx, cancel := chromedp.NewContext(browserCtx, chromedp.WithTargetID(target.ID(handle)))
		t = &tab{ctx: tabCtx, cancel: cancel}
	}

	if err := runBound(ctx, t.ctx, target.ActivateTarget(target.ID(handle))); err != nil {
		if !attached {
			t.cancel()
		}
		return fmt.Errorf("failed to switch to window %s: %w", handle, err)
	}

	d.mu.Lock()
	d.tabs[handle] = t
	d.current = handle
	d.mu.Unlock()
	return nil
}

// CloseWindow closes the current window's page target.
func (d *ChromeDPDriver) CloseWindow(ctx context.Context) error {
	d.mu.Lock()
	handle := d.current
	t, ok := d.tabs[handle]
	running := d.running
	d.mu.Unlock()

	if !running {
		return ErrNotRunning
	}
	if !ok {
		return ErrNoSuchWindow
	}

	if err := runBound(ctx, t.ctx, page.Close()); err != nil {
		return fmt.Errorf("failed to close window %s: %w", handle, err)
	}

	d.mu.Lock()
	delete(d.tabs, handle)
	if d.current == handle {
		d.current = ""
	}
	d.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}
	return nil
}

// SetTimeouts records the timeouts. Page-load and script bounds are
// enforced by the caller's context; CDP has no server-side equivalent.
func (d *ChromeDPDriver) SetTimeouts(ctx context.Context, t Timeouts) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.timeouts = t
	return nil
}

// Timeouts returns the last timeouts set.
func (d *ChromeDPDriver) Timeouts() Timeouts {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timeouts
}

// Ensure ChromeDPDriver implements Driver
var _ Driver = (*ChromeDPDriver)(nil)
