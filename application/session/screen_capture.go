package session

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"multiwindow-go/core/event"
	"multiwindow-go/infrastructure/browser"
)

// ScreenCapture writes screenshots of the focused window as PNG files.
type ScreenCapture struct {
	driver  browser.Driver
	logger  *slog.Logger
	saveDir string
}

// NewScreenCapture creates a capture service writing into dir. An empty dir
// selects "artifacts" under the working directory.
func NewScreenCapture(driver browser.Driver, dir string, logger *slog.Logger) *ScreenCapture {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		dir = "artifacts"
	}
	return &ScreenCapture{
		driver:  driver,
		logger:  logger,
		saveDir: dir,
	}
}

// Dir returns the directory screenshots are written to.
func (c *ScreenCapture) Dir() string {
	return c.saveDir
}

// Capture captures the current browser screen.
func (c *ScreenCapture) Capture(ctx context.Context) (image.Image, error) {
	if !c.driver.IsRunning() {
		return nil, browser.ErrNotRunning
	}
	return c.driver.CaptureScreen(ctx)
}

// Save writes img as <dir>/<name>.png and returns the path. An empty name
// is replaced by a millisecond timestamp.
func (c *ScreenCapture) Save(img image.Image, name string) (string, error) {
	if err := os.MkdirAll(c.saveDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create save directory: %w", err)
	}

	name = sanitizeName(name)
	if name == "" {
		name = fmt.Sprintf("%d", time.Now().UnixMilli())
	}
	filename := filepath.Join(c.saveDir, name+".png")

	f, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	c.logger.Debug("Screenshot saved", "filename", filename)
	return filename, nil
}

// sanitizeName keeps names usable as file names on every platform.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(name))
}

// Screenshot captures the focused window into the artifacts directory as
// <session id>-<name>.png and returns the path.
func (s *Session) Screenshot(ctx context.Context, name string) (string, error) {
	h, err := s.focused()
	if err != nil {
		return "", err
	}

	img, err := s.screens.Capture(ctx)
	if err != nil {
		return "", s.failed("screenshot", fmt.Errorf("failed to capture screen: %w", err))
	}

	if name == "" {
		name = string(h)
	}
	path, err := s.screens.Save(img, s.id+"-"+name)
	if err != nil {
		return "", s.failed("screenshot", err)
	}

	s.publishEvent(event.NewScreenCaptured(s.id, string(h), path))
	return path, nil
}
