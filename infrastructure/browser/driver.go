// Package browser provides browser automation infrastructure.
package browser

import (
	"context"
	"image"
	"time"
)

// Driver defines the capability set a session needs from a browser
// automation backend. Element and window commands are routed to the
// driver's current window; after CloseWindow there is none until
// SwitchToWindow is called.
type Driver interface {
	// Start launches the browser and opens the session's first window.
	Start(ctx context.Context) error

	// Stop closes every window and releases the browser.
	Stop() error

	// IsRunning returns true if the browser is active.
	IsRunning() bool

	// Navigate loads url in the current window.
	Navigate(ctx context.Context, url string) error

	// Reload refreshes the current page.
	Reload(ctx context.Context) error

	// CurrentURL returns the URL of the current window.
	CurrentURL(ctx context.Context) (string, error)

	// Title returns the document title of the current window.
	Title(ctx context.Context) (string, error)

	// FindElement looks an element up once, without waiting. A missing
	// element yields an error matching ErrNoSuchElement.
	FindElement(ctx context.Context, loc Locator) (*Element, error)

	// ClickElement clicks the element matched by loc.
	ClickElement(ctx context.Context, loc Locator) error

	// SendKeys types text into the element matched by loc.
	SendKeys(ctx context.Context, loc Locator, text string) error

	// ExecuteScript runs a function body in the page and returns its result
	// as JSON. When async is true the body may await promises.
	ExecuteScript(ctx context.Context, script string, async bool) ([]byte, error)

	// ReadyState returns document.readyState of the current window.
	ReadyState(ctx context.Context) (string, error)

	// CaptureScreen captures the current window.
	CaptureScreen(ctx context.Context) (image.Image, error)

	// WindowHandle returns the handle of the current window.
	WindowHandle(ctx context.Context) (string, error)

	// WindowHandles returns the handles of every open window.
	WindowHandles(ctx context.Context) ([]string, error)

	// SwitchToWindow makes handle the current window.
	SwitchToWindow(ctx context.Context, handle string) error

	// CloseWindow closes the current window. Afterwards no window is current.
	CloseWindow(ctx context.Context) error

	// SetTimeouts configures backend-side timeouts.
	SetTimeouts(ctx context.Context, t Timeouts) error
}

// Element is a snapshot of a located element.
type Element struct {
	Locator Locator
	TagName string
	Text    string
	Visible bool
	Enabled bool
}

// Clickable reports whether the element is visible and enabled.
func (e *Element) Clickable() bool {
	return e != nil && e.Visible && e.Enabled
}

// Timeouts are the session-wide latency bounds. Negative PageLoad or Script
// values mean unbounded.
type Timeouts struct {
	// PageLoad bounds a navigation.
	PageLoad time.Duration `yaml:"pageLoad"`
	// Script bounds a script execution.
	Script time.Duration `yaml:"script"`
	// Implicit is applied to every element lookup.
	Implicit time.Duration `yaml:"implicit"`
}

// DefaultTimeouts returns the timeouts applied when a session starts.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		PageLoad: 100 * time.Second,
		Script:   100 * time.Second,
		Implicit: 0,
	}
}

// Kind selects a Driver implementation.
type Kind string

const (
	KindChromeDP  Kind = "chromedp"
	KindWebDriver Kind = "webdriver"
)

// DriverConfig holds configuration for browser drivers.
type DriverConfig struct {
	// Kind selects the backend.
	Kind Kind

	// Headless runs the browser without a visible window.
	Headless bool

	// WindowWidth is the browser window width.
	WindowWidth int

	// WindowHeight is the browser window height.
	WindowHeight int

	// DisableGPU disables GPU acceleration.
	DisableGPU bool

	// MuteAudio mutes browser audio.
	MuteAudio bool

	// HideScrollbars hides scrollbars.
	HideScrollbars bool

	// DisablePopupBlocking lets pages open new windows without a user gesture.
	DisablePopupBlocking bool

	// UserDataDir specifies a custom user data directory.
	UserDataDir string

	// ExecPath overrides the browser binary (chromedp).
	ExecPath string

	// RemoteURL is the WebDriver server endpoint (webdriver).
	RemoteURL string

	// BrowserName is the requested browserName capability (webdriver).
	BrowserName string
}

// DefaultDriverConfig returns default browser configuration.
func DefaultDriverConfig() *DriverConfig {
	return &DriverConfig{
		Kind:                 KindChromeDP,
		Headless:             true,
		WindowWidth:          1280,
		WindowHeight:         900,
		MuteAudio:            true,
		HideScrollbars:       true,
		DisablePopupBlocking: true,
		RemoteURL:            "http://localhost:9515",
		BrowserName:          "chrome",
	}
}

// New returns the Driver selected by config.Kind.
func New(config *DriverConfig) (Driver, error) {
	if config == nil {
		config = DefaultDriverConfig()
	}
	switch config.Kind {
	case KindChromeDP, "":
		return NewChromeDPDriver(config), nil
	case KindWebDriver:
		return NewWebDriverDriver(config), nil
	default:
		return nil, &UnsupportedKindError{Kind: config.Kind}
	}
}
