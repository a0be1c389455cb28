package browser

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultDriverConfig(t *testing.T) {
	config := DefaultDriverConfig()

	if config == nil {
		t.Fatal("DefaultDriverConfig returned nil")
	}

	if config.Kind != KindChromeDP {
		t.Errorf("Kind = %v, want %v", config.Kind, KindChromeDP)
	}

	if config.Headless != true {
		t.Errorf("Headless = %v, want true", config.Headless)
	}

	if config.WindowWidth != 1280 {
		t.Errorf("WindowWidth = %d, want 1280", config.WindowWidth)
	}

	if config.WindowHeight != 900 {
		t.Errorf("WindowHeight = %d, want 900", config.WindowHeight)
	}

	if config.DisablePopupBlocking != true {
		t.Errorf("DisablePopupBlocking = %v, want true", config.DisablePopupBlocking)
	}

	if config.RemoteURL != "http://localhost:9515" {
		t.Errorf("RemoteURL = %q, want http://localhost:9515", config.RemoteURL)
	}
}

func TestDefaultTimeouts(t *testing.T) {
	got := DefaultTimeouts()

	if got.PageLoad != 100*time.Second {
		t.Errorf("PageLoad = %v, want 100s", got.PageLoad)
	}
	if got.Script != 100*time.Second {
		t.Errorf("Script = %v, want 100s", got.Script)
	}
	if got.Implicit != 0 {
		t.Errorf("Implicit = %v, want 0", got.Implicit)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		kind    Kind
		want    string
		wantErr bool
	}{
		{"", "*browser.ChromeDPDriver", false},
		{KindChromeDP, "*browser.ChromeDPDriver", false},
		{KindWebDriver, "*browser.WebDriverDriver", false},
		{"selenium-grid", "", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			config := DefaultDriverConfig()
			config.Kind = tt.kind
			d, err := New(config)

			if tt.wantErr {
				var kindErr *UnsupportedKindError
				if !errors.As(err, &kindErr) {
					t.Fatalf("New() error = %v, want UnsupportedKindError", err)
				}
				if kindErr.Kind != tt.kind {
					t.Errorf("Kind = %v, want %v", kindErr.Kind, tt.kind)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			switch d.(type) {
			case *ChromeDPDriver:
				if tt.want != "*browser.ChromeDPDriver" {
					t.Errorf("New() = ChromeDPDriver, want %s", tt.want)
				}
			case *WebDriverDriver:
				if tt.want != "*browser.WebDriverDriver" {
					t.Errorf("New() = WebDriverDriver, want %s", tt.want)
				}
			default:
				t.Errorf("New() = %T, want %s", d, tt.want)
			}
		})
	}
}

func TestNewChromeDPDriver(t *testing.T) {
	t.Run("with nil config", func(t *testing.T) {
		driver := NewChromeDPDriver(nil)
		if driver == nil {
			t.Fatal("NewChromeDPDriver returned nil")
		}
		if driver.config == nil {
			t.Fatal("driver.config is nil")
		}
		if driver.Timeouts() != DefaultTimeouts() {
			t.Errorf("Timeouts() = %+v, want defaults", driver.Timeouts())
		}
	})

	t.Run("with custom config", func(t *testing.T) {
		config := &DriverConfig{
			Headless:     false,
			WindowWidth:  1920,
			WindowHeight: 1080,
			ExecPath:     "/opt/chrome/chrome",
		}
		driver := NewChromeDPDriver(config)
		if driver.config.Headless != false {
			t.Error("Custom config not applied")
		}
		if driver.config.WindowWidth != 1920 {
			t.Error("Custom config not applied")
		}
		if n := len(driver.buildExecAllocatorOptions()); n <= len(NewChromeDPDriver(nil).buildExecAllocatorOptions()) {
			t.Errorf("buildExecAllocatorOptions() len = %d, want ExecPath option added", n)
		}
	})
}

func TestChromeDPDriver_IsRunning_NotStarted(t *testing.T) {
	driver := NewChromeDPDriver(nil)

	if driver.IsRunning() {
		t.Error("IsRunning() should return false before Start()")
	}
}

func TestChromeDPDriver_Stop_NotStarted(t *testing.T) {
	driver := NewChromeDPDriver(nil)

	err := driver.Stop()
	if err != nil {
		t.Errorf("Stop() returned error: %v", err)
	}
}

func TestChromeDPDriver_CommandsBeforeStart(t *testing.T) {
	driver := NewChromeDPDriver(nil)
	ctx := testContext(t)

	if err := driver.Navigate(ctx, "about:blank"); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Navigate() error = %v, want ErrNotRunning", err)
	}
	if _, err := driver.WindowHandle(ctx); !errors.Is(err, ErrNotRunning) {
		t.Errorf("WindowHandle() error = %v, want ErrNotRunning", err)
	}
	if _, err := driver.WindowHandles(ctx); !errors.Is(err, ErrNotRunning) {
		t.Errorf("WindowHandles() error = %v, want ErrNotRunning", err)
	}
	if err := driver.CloseWindow(ctx); !errors.Is(err, ErrNotRunning) {
		t.Errorf("CloseWindow() error = %v, want ErrNotRunning", err)
	}
	if _, err := driver.FindElement(ctx, Locator{By: "tag", Value: "a"}); !errors.Is(err, ErrInvalidLocator) {
		t.Errorf("FindElement() error = %v, want ErrInvalidLocator", err)
	}
}

func TestElement_Clickable(t *testing.T) {
	tests := []struct {
		name string
		el   *Element
		want bool
	}{
		{"nil", nil, false},
		{"hidden", &Element{Visible: false, Enabled: true}, false},
		{"disabled", &Element{Visible: true, Enabled: false}, false},
		{"ready", &Element{Visible: true, Enabled: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.el.Clickable(); got != tt.want {
				t.Errorf("Clickable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLookupError(t *testing.T) {
	err := &LookupError{Locator: Name("wp-submit"), Err: ErrNoSuchElement}

	if !errors.Is(err, ErrNoSuchElement) {
		t.Error("LookupError should match ErrNoSuchElement")
	}
	if got, want := err.Error(), "name=wp-submit: no such element"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
