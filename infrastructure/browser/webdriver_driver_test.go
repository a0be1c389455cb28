package browser

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeRemote is a minimal W3C WebDriver endpoint with two windows.
type fakeRemote struct {
	mu       sync.Mutex
	handles  []string
	current  string
	timeouts map[string]any
	bodies   map[string]string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		handles: []string{"W-1", "W-2"},
		current: "W-1",
		bodies:  make(map[string]string),
	}
}

func (f *fakeRemote) body(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[key]
}

func (f *fakeRemote) timeout(name string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.timeouts[name]
	return v, ok
}

func (f *fakeRemote) reply(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"value": value})
}

func (f *fakeRemote) fail(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"value": map[string]any{"error": code, "message": code + " (fake)"},
	})
}

func (f *fakeRemote) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, _ := io.ReadAll(r.Body)
	key := r.Method + " " + r.URL.Path
	f.bodies[key] = string(body)

	if key == "POST /session" {
		f.reply(w, map[string]any{"sessionId": "S1", "capabilities": map[string]any{}})
		return
	}

	path, ok := strings.CutPrefix(r.URL.Path, "/session/S1")
	if !ok {
		f.fail(w, http.StatusNotFound, "invalid session id")
		return
	}

	switch r.Method + " " + path {
	case "DELETE ":
		f.reply(w, nil)
	case "POST /url", "POST /refresh":
		f.reply(w, nil)
	case "GET /title":
		f.reply(w, "ToolsQA")
	case "POST /element":
		var req map[string]string
		_ = json.Unmarshal(body, &req)
		if req["value"] != `[id="button1"]` {
			f.fail(w, http.StatusNotFound, "no such element")
			return
		}
		f.reply(w, map[string]string{elementKey: "E1"})
	case "GET /element/E1/name":
		f.reply(w, "BUTTON")
	case "GET /element/E1/text":
		f.reply(w, "New Tab")
	case "GET /element/E1/displayed", "GET /element/E1/enabled":
		f.reply(w, true)
	case "POST /element/E1/click":
		f.reply(w, nil)
	case "POST /execute/sync":
		f.reply(w, "complete")
	case "GET /window":
		f.reply(w, f.current)
	case "GET /window/handles":
		f.reply(w, f.handles)
	case "POST /window":
		var req map[string]string
		_ = json.Unmarshal(body, &req)
		for _, h := range f.handles {
			if h == req["handle"] {
				f.current = h
				f.reply(w, nil)
				return
			}
		}
		f.fail(w, http.StatusNotFound, "no such window")
	case "DELETE /window":
		kept := f.handles[:0]
		for _, h := range f.handles {
			if h != f.current {
				kept = append(kept, h)
			}
		}
		f.handles = kept
		f.current = ""
		f.reply(w, f.handles)
	case "POST /timeouts":
		_ = json.Unmarshal(body, &f.timeouts)
		f.reply(w, nil)
	default:
		f.fail(w, http.StatusNotFound, "unknown command")
	}
}

func startRemote(t *testing.T) (*fakeRemote, *WebDriverDriver) {
	t.Helper()

	remote := newFakeRemote()
	srv := httptest.NewServer(remote)
	t.Cleanup(srv.Close)

	config := DefaultDriverConfig()
	config.Kind = KindWebDriver
	config.RemoteURL = srv.URL + "/"
	d := NewWebDriverDriver(config)
	if err := d.Start(testContext(t)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return remote, d
}

func TestWebDriverDriver_Session(t *testing.T) {
	remote, d := startRemote(t)

	if !d.IsRunning() {
		t.Fatal("IsRunning() = false after Start()")
	}
	if !strings.Contains(remote.body("POST /session"), `"goog:chromeOptions"`) {
		t.Errorf("session request = %s, want chrome options", remote.body("POST /session"))
	}
	if err := d.Start(testContext(t)); err == nil {
		t.Error("second Start() should fail")
	}

	if err := d.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if d.IsRunning() {
		t.Error("IsRunning() = true after Stop()")
	}
	if _, err := d.Title(testContext(t)); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Title() after Stop error = %v, want ErrNotRunning", err)
	}
}

func TestWebDriverDriver_Navigation(t *testing.T) {
	remote, d := startRemote(t)
	ctx := testContext(t)

	if err := d.Navigate(ctx, "https://demoqa.com/browser-windows"); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if got := remote.body("POST /session/S1/url"); got != `{"url":"https://demoqa.com/browser-windows"}` {
		t.Errorf("url body = %s", got)
	}
	if err := d.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got := remote.body("POST /session/S1/refresh"); got != "{}" {
		t.Errorf("refresh body = %q, want {}", got)
	}

	title, err := d.Title(ctx)
	if err != nil || title != "ToolsQA" {
		t.Errorf("Title() = %q, %v, want ToolsQA", title, err)
	}
	state, err := d.ReadyState(ctx)
	if err != nil || state != "complete" {
		t.Errorf("ReadyState() = %q, %v, want complete", state, err)
	}
}

func TestWebDriverDriver_Elements(t *testing.T) {
	_, d := startRemote(t)
	ctx := testContext(t)

	el, err := d.FindElement(ctx, ID("button1"))
	if err != nil {
		t.Fatalf("FindElement() error = %v", err)
	}
	if el.TagName != "button" || el.Text != "New Tab" || !el.Clickable() {
		t.Errorf("FindElement() = %+v", el)
	}
	if err := d.ClickElement(ctx, ID("button1")); err != nil {
		t.Errorf("ClickElement() error = %v", err)
	}

	_, err = d.FindElement(ctx, Name("wp-submit"))
	if !errors.Is(err, ErrNoSuchElement) {
		t.Fatalf("FindElement(missing) error = %v, want ErrNoSuchElement", err)
	}
	var lookup *LookupError
	if !errors.As(err, &lookup) || lookup.Locator != Name("wp-submit") {
		t.Errorf("FindElement(missing) error = %v, want LookupError for name=wp-submit", err)
	}
}

func TestWebDriverDriver_Windows(t *testing.T) {
	_, d := startRemote(t)
	ctx := testContext(t)

	handles, err := d.WindowHandles(ctx)
	if err != nil || len(handles) != 2 {
		t.Fatalf("WindowHandles() = %v, %v, want 2 handles", handles, err)
	}

	if err := d.SwitchToWindow(ctx, "W-2"); err != nil {
		t.Fatalf("SwitchToWindow() error = %v", err)
	}
	if h, _ := d.WindowHandle(ctx); h != "W-2" {
		t.Errorf("WindowHandle() = %q, want W-2", h)
	}
	if err := d.SwitchToWindow(ctx, "W-9"); !errors.Is(err, ErrNoSuchWindow) {
		t.Errorf("SwitchToWindow(unknown) error = %v, want ErrNoSuchWindow", err)
	}

	if err := d.CloseWindow(ctx); err != nil {
		t.Fatalf("CloseWindow() error = %v", err)
	}
	handles, _ = d.WindowHandles(ctx)
	if len(handles) != 1 || handles[0] != "W-1" {
		t.Errorf("WindowHandles() after close = %v, want [W-1]", handles)
	}
}

func TestWebDriverDriver_SetTimeouts(t *testing.T) {
	remote, d := startRemote(t)

	err := d.SetTimeouts(testContext(t), Timeouts{PageLoad: 100 * time.Second, Script: -1, Implicit: 10 * time.Second})
	if err != nil {
		t.Fatalf("SetTimeouts() error = %v", err)
	}

	if got, _ := remote.timeout("pageLoad"); got != float64(100000) {
		t.Errorf("pageLoad = %v, want 100000", got)
	}
	if got, ok := remote.timeout("script"); !ok || got != nil {
		t.Errorf("script = %v, want null", got)
	}
	if got, _ := remote.timeout("implicit"); got != float64(0) {
		t.Errorf("implicit = %v, want 0", got)
	}
}

func TestWebDriverError_Unwrap(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{"no such element", ErrNoSuchElement},
		{"stale element reference", ErrNoSuchElement},
		{"element not interactable", ErrNotInteractable},
		{"no such window", ErrNoSuchWindow},
		{"invalid selector", ErrInvalidLocator},
		{"invalid session id", ErrNotRunning},
		{"timeout", ErrTimeout},
		{"script timeout", ErrTimeout},
	}

	for _, tt := range tests {
		err := error(&WebDriverError{Code: tt.code})
		if !errors.Is(err, tt.want) {
			t.Errorf("WebDriverError{%q} does not match %v", tt.code, tt.want)
		}
	}

	if errors.Is(&WebDriverError{Code: "unknown error"}, ErrNoSuchElement) {
		t.Error("unknown error should not match ErrNoSuchElement")
	}
}
