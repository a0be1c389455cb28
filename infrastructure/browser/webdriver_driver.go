package browser

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"
	"time"

	"github.com/parnurzeal/gorequest"
	"github.com/tidwall/gjson"
)

// elementKey is the W3C web element identifier key.
const elementKey = "element-6066-11e4-a52e-4f735466cecf"

// WebDriverDriver implements Driver against a W3C WebDriver endpoint such
// as chromedriver or msedgedriver.
type WebDriverDriver struct {
	config    *DriverConfig
	baseURL   string
	mu        sync.Mutex
	sessionID string
	running   bool
}

// NewWebDriverDriver creates a driver talking to config.RemoteURL.
func NewWebDriverDriver(config *DriverConfig) *WebDriverDriver {
	if config == nil {
		config = DefaultDriverConfig()
	}
	return &WebDriverDriver{
		config:  config,
		baseURL: strings.TrimRight(config.RemoteURL, "/"),
	}
}

// WebDriverError is an error reported by the remote end.
type WebDriverError struct {
	Code    string
	Message string
}

func (e *WebDriverError) Error() string {
	if e.Message == "" {
		return "webdriver: " + e.Code
	}
	return "webdriver: " + e.Code + ": " + e.Message
}

// Unwrap maps W3C error codes onto the package sentinels.
func (e *WebDriverError) Unwrap() error {
	switch e.Code {
	case "no such element", "stale element reference":
		return ErrNoSuchElement
	case "element not interactable", "element click intercepted":
		return ErrNotInteractable
	case "no such window":
		return ErrNoSuchWindow
	case "invalid selector", "invalid argument":
		return ErrInvalidLocator
	case "invalid session id":
		return ErrNotRunning
	case "timeout", "script timeout":
		return ErrTimeout
	default:
		return nil
	}
}

func jsonEncode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func (d *WebDriverDriver) buildCapabilities() map[string]any {
	args := []string{
		fmt.Sprintf("--window-size=%d,%d", d.config.WindowWidth, d.config.WindowHeight),
		"--disable-infobars",
	}
	if d.config.Headless {
		args = append(args, "--headless")
	}
	if d.config.DisableGPU {
		args = append(args, "--disable-gpu")
	}
	if d.config.MuteAudio {
		args = append(args, "--mute-audio")
	}
	if d.config.HideScrollbars {
		args = append(args, "--hide-scrollbars")
	}
	if d.config.DisablePopupBlocking {
		args = append(args, "--disable-popup-blocking")
	}
	if d.config.UserDataDir != "" {
		args = append(args, "--user-data-dir="+d.config.UserDataDir)
	}

	options := map[string]any{"args": args}
	if d.config.ExecPath != "" {
		options["binary"] = d.config.ExecPath
	}

	optionsKey := "goog:chromeOptions"
	if d.config.BrowserName == "msedge" {
		optionsKey = "ms:edgeOptions"
	}

	return map[string]any{
		"capabilities": map[string]any{
			"alwaysMatch": map[string]any{
				"browserName":      d.config.BrowserName,
				"pageLoadStrategy": "normal",
				optionsKey:         options,
			},
		},
	}
}

// do issues one request and returns the "value" member of the response.
// body is ignored for GET and DELETE.
func (d *WebDriverDriver) do(ctx context.Context, method, path string, body any) (gjson.Result, error) {
	if err := ctx.Err(); err != nil {
		return gjson.Result{}, err
	}

	url := d.baseURL + path
	req := gorequest.New()
	switch method {
	case "GET":
		req = req.Get(url)
	case "DELETE":
		req = req.Delete(url)
	default:
		if body == nil {
			body = map[string]any{}
		}
		req = req.Post(url)
		// Send the payload verbatim; an empty object must still be a body.
		req.BounceToRawString = true
		req = req.Type(gorequest.TypeJSON).Send(jsonEncode(body))
	}
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return gjson.Result{}, context.DeadlineExceeded
		}
		req = req.Timeout(remaining)
	}

	_, raw, errs := req.End()
	if len(errs) > 0 {
		if err := ctx.Err(); err != nil {
			return gjson.Result{}, err
		}
		return gjson.Result{}, fmt.Errorf("%s %s: %w", method, path, errs[0])
	}

	value := gjson.Get(raw, "value")
	if code := value.Get("error").String(); code != "" {
		return value, &WebDriverError{Code: code, Message: value.Get("message").String()}
	}
	return value, nil
}

func (d *WebDriverDriver) session() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return "", ErrNotRunning
	}
	return "/session/" + d.sessionID, nil
}

func (d *WebDriverDriver) call(ctx context.Context, method, path string, body any) (gjson.Result, error) {
	prefix, err := d.session()
	if err != nil {
		return gjson.Result{}, err
	}
	return d.do(ctx, method, prefix+path, body)
}

// Start creates a remote session.
func (d *WebDriverDriver) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("browser already running")
	}
	d.mu.Unlock()

	value, err := d.do(ctx, "POST", "/session", d.buildCapabilities())
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	id := value.Get("sessionId").String()
	if id == "" {
		return fmt.Errorf("failed to create session: no session id")
	}

	d.mu.Lock()
	d.sessionID = id
	d.running = true
	d.mu.Unlock()
	return nil
}

// Stop deletes the remote session, which closes all its windows.
func (d *WebDriverDriver) Stop() error {
	prefix, err := d.session()
	if err != nil {
		return nil
	}

	d.mu.Lock()
	d.running = false
	d.sessionID = ""
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := d.do(ctx, "DELETE", prefix, nil); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// IsRunning returns true if a session is open.
func (d *WebDriverDriver) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Navigate navigates to the specified URL.
func (d *WebDriverDriver) Navigate(ctx context.Context, url string) error {
	_, err := d.call(ctx, "POST", "/url", map[string]string{"url": url})
	return err
}

// Reload refreshes the current page.
func (d *WebDriverDriver) Reload(ctx context.Context) error {
	_, err := d.call(ctx, "POST", "/refresh", nil)
	return err
}

// CurrentURL returns the location of the current window.
func (d *WebDriverDriver) CurrentURL(ctx context.Context) (string, error) {
	v, err := d.call(ctx, "GET", "/url", nil)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// Title returns the document title.
func (d *WebDriverDriver) Title(ctx context.Context) (string, error) {
	v, err := d.call(ctx, "GET", "/title", nil)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

func (d *WebDriverDriver) findElementID(ctx context.Context, loc Locator) (string, error) {
	if err := loc.Validate(); err != nil {
		return "", err
	}
	using, value := loc.W3C()
	v, err := d.call(ctx, "POST", "/element", map[string]string{"using": using, "value": value})
	if err != nil {
		return "", &LookupError{Locator: loc, Err: err}
	}
	id := v.Get(elementKey).String()
	if id == "" {
		return "", &LookupError{Locator: loc, Err: ErrNoSuchElement}
	}
	return id, nil
}

// FindElement looks loc up once and reads its state.
func (d *WebDriverDriver) FindElement(ctx context.Context, loc Locator) (*Element, error) {
	id, err := d.findElementID(ctx, loc)
	if err != nil {
		return nil, err
	}

	el := &Element{Locator: loc}
	base := "/element/" + id
	reads := []struct {
		path  string
		apply func(gjson.Result)
	}{
		{"/name", func(v gjson.Result) { el.TagName = strings.ToLower(v.String()) }},
		{"/text", func(v gjson.Result) { el.Text = v.String() }},
		{"/displayed", func(v gjson.Result) { el.Visible = v.Bool() }},
		{"/enabled", func(v gjson.Result) { el.Enabled = v.Bool() }},
	}
	for _, r := range reads {
		v, err := d.call(ctx, "GET", base+r.path, nil)
		if err != nil {
			return nil, &LookupError{Locator: loc, Err: err}
		}
		r.apply(v)
	}
	return el, nil
}

// ClickElement clicks on an element by locator.
func (d *WebDriverDriver) ClickElement(ctx context.Context, loc Locator) error {
	id, err := d.findElementID(ctx, loc)
	if err != nil {
		return err
	}
	if _, err := d.call(ctx, "POST", "/element/"+id+"/click", nil); err != nil {
		return &LookupError{Locator: loc, Err: err}
	}
	return nil
}

// SendKeys sends keystrokes to an element.
func (d *WebDriverDriver) SendKeys(ctx context.Context, loc Locator, text string) error {
	id, err := d.findElementID(ctx, loc)
	if err != nil {
		return err
	}
	if _, err := d.call(ctx, "POST", "/element/"+id+"/value", map[string]string{"text": text}); err != nil {
		return &LookupError{Locator: loc, Err: err}
	}
	return nil
}

var asyncTemplate = `
var callback = arguments[arguments.length - 1];
(async function() {
%s
})().then(callback, function(e) { callback({"__error": String(e)}); });
`

// ExecuteScript runs a function body through /execute/sync or /execute/async.
func (d *WebDriverDriver) ExecuteScript(ctx context.Context, script string, async bool) ([]byte, error) {
	path := "/execute/sync"
	if async {
		path = "/execute/async"
		script = fmt.Sprintf(asyncTemplate, script)
	}

	v, err := d.call(ctx, "POST", path, map[string]any{
		"script": script,
		"args":   []any{},
	})
	if err != nil {
		return nil, fmt.Errorf("script failed: %w", err)
	}
	if msg := v.Get("__error"); msg.Exists() {
		return nil, fmt.Errorf("script failed: %s", msg.String())
	}
	if !v.Exists() {
		return []byte("null"), nil
	}
	return []byte(v.Raw), nil
}

// ReadyState returns document.readyState.
func (d *WebDriverDriver) ReadyState(ctx context.Context) (string, error) {
	raw, err := d.ExecuteScript(ctx, "return document.readyState;", false)
	if err != nil {
		return "", err
	}
	return gjson.ParseBytes(raw).String(), nil
}

// CaptureScreen captures the current window.
func (d *WebDriverDriver) CaptureScreen(ctx context.Context) (image.Image, error) {
	v, err := d.call(ctx, "GET", "/screenshot", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}

	buf, err := base64.StdEncoding.DecodeString(v.String())
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}
	return img, nil
}

// WindowHandle returns the current window handle.
func (d *WebDriverDriver) WindowHandle(ctx context.Context) (string, error) {
	v, err := d.call(ctx, "GET", "/window", nil)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// WindowHandles returns every window handle of the session.
func (d *WebDriverDriver) WindowHandles(ctx context.Context) ([]string, error) {
	v, err := d.call(ctx, "GET", "/window/handles", nil)
	if err != nil {
		return nil, err
	}
	var handles []string
	for _, h := range v.Array() {
		handles = append(handles, h.String())
	}
	return handles, nil
}

// SwitchToWindow makes handle the current window.
func (d *WebDriverDriver) SwitchToWindow(ctx context.Context, handle string) error {
	_, err := d.call(ctx, "POST", "/window", map[string]string{"handle": handle})
	if err != nil {
		return fmt.Errorf("failed to switch to window %s: %w", handle, err)
	}
	return nil
}

// CloseWindow closes the current window.
func (d *WebDriverDriver) CloseWindow(ctx context.Context) error {
	_, err := d.call(ctx, "DELETE", "/window", nil)
	return err
}

// SetTimeouts configures remote timeouts in milliseconds. Negative values
// are sent as null, which the W3C protocol treats as unbounded.
func (d *WebDriverDriver) SetTimeouts(ctx context.Context, t Timeouts) error {
	ms := func(v time.Duration) any {
		if v < 0 {
			return nil
		}
		return v.Milliseconds()
	}
	_, err := d.call(ctx, "POST", "/timeouts", map[string]any{
		"pageLoad": ms(t.PageLoad),
		"script":   ms(t.Script),
		// Lookups are retried by the session, so the remote end fails fast.
		"implicit": 0,
	})
	return err
}

// Ensure WebDriverDriver implements Driver
var _ Driver = (*WebDriverDriver)(nil)
