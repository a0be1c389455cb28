package browsertest

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"slices"
	"sync"

	"multiwindow-go/infrastructure/browser"
)

type window struct {
	handle  string
	url     string
	page    *Page
	probes  map[browser.Locator]int
	values  map[browser.Locator]string
	loading int
}

// Driver is a simulated browser. The zero value is not usable; call New.
type Driver struct {
	mu       sync.Mutex
	site     Site
	running  bool
	seq      int
	windows  map[string]*window
	order    []string
	current  string
	timeouts browser.Timeouts
	scripts  map[string]json.RawMessage
	clicks   []string
	failures map[string]error
}

// New creates a simulated driver serving site.
func New(site Site) *Driver {
	if site == nil {
		site = Site{}
	}
	return &Driver{
		site:     site,
		windows:  make(map[string]*window),
		timeouts: browser.DefaultTimeouts(),
		scripts:  make(map[string]json.RawMessage),
		failures: make(map[string]error),
	}
}

// SetScriptResult makes ExecuteScript return result for script.
func (d *Driver) SetScriptResult(script string, result json.RawMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scripts[script] = result
}

// FailNext makes the next call of the named method return err.
func (d *Driver) FailNext(method string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[method] = err
}

func (d *Driver) injected(method string) error {
	err, ok := d.failures[method]
	if ok {
		delete(d.failures, method)
	}
	return err
}

// OpenExternal opens a window as if a page script did it.
func (d *Driver) OpenExternal(url string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open(url).handle
}

// CloseExternal closes a window behind the session's back.
func (d *Driver) CloseExternal(handle string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.remove(handle)
}

// Clicks returns the locators clicked so far, in order.
func (d *Driver) Clicks() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.clicks)
}

// URL returns the location of the window behind handle.
func (d *Driver) URL(handle string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if w, ok := d.windows[handle]; ok {
		return w.url
	}
	return ""
}

// Value returns the text typed into loc in the window behind handle.
func (d *Driver) Value(handle string, loc browser.Locator) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if w, ok := d.windows[handle]; ok {
		return w.values[loc]
	}
	return ""
}

// Timeouts returns the last timeouts set.
func (d *Driver) Timeouts() browser.Timeouts {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timeouts
}

func (d *Driver) open(url string) *window {
	d.seq++
	w := &window{
		handle: fmt.Sprintf("sim-%04d", d.seq),
		probes: make(map[browser.Locator]int),
		values: make(map[browser.Locator]string),
	}
	d.load(w, url)
	d.windows[w.handle] = w
	d.order = append(d.order, w.handle)
	return w
}

func (d *Driver) load(w *window, url string) {
	w.url = url
	w.page = d.site.page(url)
	w.loading = w.page.LoadingPolls
	clear(w.probes)
	clear(w.values)
}

func (d *Driver) remove(handle string) {
	delete(d.windows, handle)
	d.order = slices.DeleteFunc(d.order, func(h string) bool { return h == handle })
	if d.current == handle {
		d.current = ""
	}
}

// focused returns the current window. Callers hold d.mu.
func (d *Driver) focused(method string) (*window, error) {
	if !d.running {
		return nil, browser.ErrNotRunning
	}
	if err := d.injected(method); err != nil {
		return nil, err
	}
	w, ok := d.windows[d.current]
	if !ok {
		return nil, browser.ErrNoSuchWindow
	}
	return w, nil
}

// Start opens the first window on about:blank.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("browser already running")
	}
	if err := d.injected("Start"); err != nil {
		return err
	}
	d.running = true
	d.current = d.open("about:blank").handle
	return nil
}

// Stop closes every window.
func (d *Driver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.running = false
	clear(d.windows)
	d.order = nil
	d.current = ""
	return nil
}

// IsRunning returns true between Start and Stop.
func (d *Driver) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Navigate loads url in the current window. Navigating to a page that
// Hangs blocks until ctx is done and leaves the window where it was.
func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	w, err := d.focused("Navigate")
	if err != nil {
		d.mu.Unlock()
		return err
	}
	if d.site.page(url).Hangs {
		d.mu.Unlock()
		<-ctx.Done()
		return ctx.Err()
	}
	d.load(w, url)
	d.mu.Unlock()
	return nil
}

// Reload reloads the current page.
func (d *Driver) Reload(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	w, err := d.focused("Reload")
	if err != nil {
		return err
	}
	d.load(w, w.url)
	return nil
}

// CurrentURL returns the current window's location.
func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	w, err := d.focused("CurrentURL")
	if err != nil {
		return "", err
	}
	return w.url, nil
}

// Title returns the current page title.
func (d *Driver) Title(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	w, err := d.focused("Title")
	if err != nil {
		return "", err
	}
	return w.page.Title, nil
}

func (d *Driver) lookup(method string, loc browser.Locator) (*window, *ElementSpec, *browser.Element, error) {
	if err := loc.Validate(); err != nil {
		return nil, nil, nil, err
	}
	w, err := d.focused(method)
	if err != nil {
		return nil, nil, nil, err
	}

	spec, ok := w.page.element(loc)
	if !ok {
		return nil, nil, nil, &browser.LookupError{Locator: loc, Err: browser.ErrNoSuchElement}
	}
	w.probes[loc]++
	n := w.probes[loc]
	if n <= spec.AppearsAfter {
		return nil, nil, nil, &browser.LookupError{Locator: loc, Err: browser.ErrNoSuchElement}
	}

	el := &browser.Element{
		Locator: loc,
		TagName: spec.Tag,
		Text:    spec.Text,
		Visible: !spec.Hidden,
		Enabled: !spec.Disabled && n > spec.AppearsAfter+spec.EnabledAfter,
	}
	return w, spec, el, nil
}

// FindElement looks loc up once in the current window.
func (d *Driver) FindElement(ctx context.Context, loc browser.Locator) (*browser.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, _, el, err := d.lookup("FindElement", loc)
	return el, err
}

// ClickElement clicks loc. Elements with Opens set open a new window
// without moving focus, the way a browser opens a tab.
func (d *Driver) ClickElement(ctx context.Context, loc browser.Locator) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, spec, el, err := d.lookup("ClickElement", loc)
	if err != nil {
		return err
	}
	if !el.Clickable() {
		return &browser.LookupError{Locator: loc, Err: browser.ErrNotInteractable}
	}

	d.clicks = append(d.clicks, loc.String())
	if spec.Opens != "" {
		d.open(spec.Opens)
	}
	return nil
}

// SendKeys records text as the value of loc.
func (d *Driver) SendKeys(ctx context.Context, loc browser.Locator, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	w, _, el, err := d.lookup("SendKeys", loc)
	if err != nil {
		return err
	}
	if !el.Clickable() {
		return &browser.LookupError{Locator: loc, Err: browser.ErrNotInteractable}
	}
	w.values[loc] += text
	return nil
}

// ExecuteScript returns the result registered with SetScriptResult, or
// null. A script listed in the page's HangingScripts blocks until ctx is
// done.
func (d *Driver) ExecuteScript(ctx context.Context, script string, async bool) ([]byte, error) {
	d.mu.Lock()
	w, err := d.focused("ExecuteScript")
	if err != nil {
		d.mu.Unlock()
		return nil, err
	}
	if slices.Contains(w.page.HangingScripts, script) {
		d.mu.Unlock()
		<-ctx.Done()
		return nil, ctx.Err()
	}
	defer d.mu.Unlock()

	if res, ok := d.scripts[script]; ok {
		return slices.Clone(res), nil
	}
	return []byte("null"), nil
}

// ReadyState reports "loading" for the page's LoadingPolls calls, then
// "complete".
func (d *Driver) ReadyState(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	w, err := d.focused("ReadyState")
	if err != nil {
		return "", err
	}
	if w.loading > 0 {
		w.loading--
		return "loading", nil
	}
	return "complete", nil
}

// CaptureScreen returns a small solid image.
func (d *Driver) CaptureScreen(ctx context.Context) (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.focused("CaptureScreen"); err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, 16, 9))
	for y := 0; y < 9; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.White)
		}
	}
	return img, nil
}

// WindowHandle returns the current handle.
func (d *Driver) WindowHandle(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	w, err := d.focused("WindowHandle")
	if err != nil {
		return "", err
	}
	return w.handle, nil
}

// WindowHandles returns every open handle in opening order.
func (d *Driver) WindowHandles(ctx context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil, browser.ErrNotRunning
	}
	if err := d.injected("WindowHandles"); err != nil {
		return nil, err
	}
	return slices.Clone(d.order), nil
}

// SwitchToWindow focuses handle.
func (d *Driver) SwitchToWindow(ctx context.Context, handle string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return browser.ErrNotRunning
	}
	if err := d.injected("SwitchToWindow"); err != nil {
		return err
	}
	if _, ok := d.windows[handle]; !ok {
		return fmt.Errorf("%w: %s", browser.ErrNoSuchWindow, handle)
	}
	d.current = handle
	return nil
}

// CloseWindow closes the current window; nothing is current afterwards.
func (d *Driver) CloseWindow(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	w, err := d.focused("CloseWindow")
	if err != nil {
		return err
	}
	d.remove(w.handle)
	return nil
}

// SetTimeouts records t.
func (d *Driver) SetTimeouts(ctx context.Context, t browser.Timeouts) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return browser.ErrNotRunning
	}
	d.timeouts = t
	return nil
}

var _ browser.Driver = (*Driver)(nil)
