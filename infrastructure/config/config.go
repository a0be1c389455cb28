// Package config loads harness configuration from defaults, an optional
// YAML file and MULTIWINDOW_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"multiwindow-go/infrastructure/browser"
	"multiwindow-go/infrastructure/logging"
	"multiwindow-go/infrastructure/repository"
)

// EnvPrefix prefixes every environment override, e.g. MULTIWINDOW_DRIVER_KIND.
const EnvPrefix = "MULTIWINDOW"

// Config is the harness configuration.
type Config struct {
	Driver    DriverConfig    `yaml:"driver"`
	Timeouts  TimeoutsConfig  `yaml:"timeouts"`
	Wait      WaitConfig      `yaml:"wait"`
	Logging   LoggingConfig   `yaml:"logging"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Runner    RunnerConfig    `yaml:"runner"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
}

// DriverConfig selects and tunes the browser backend.
type DriverConfig struct {
	Kind                 string `yaml:"kind"`
	Headless             bool   `yaml:"headless"`
	WindowWidth          int    `yaml:"windowWidth" split_words:"true"`
	WindowHeight         int    `yaml:"windowHeight" split_words:"true"`
	DisableGPU           bool   `yaml:"disableGPU" envconfig:"DISABLE_GPU"`
	MuteAudio            bool   `yaml:"muteAudio" split_words:"true"`
	HideScrollbars       bool   `yaml:"hideScrollbars" split_words:"true"`
	DisablePopupBlocking bool   `yaml:"disablePopupBlocking" split_words:"true"`
	UserDataDir          string `yaml:"userDataDir" split_words:"true"`
	ExecPath             string `yaml:"execPath" split_words:"true"`
	RemoteURL            string `yaml:"remoteURL" envconfig:"REMOTE_URL"`
	BrowserName          string `yaml:"browserName" split_words:"true"`
}

// TimeoutsConfig holds the timeouts a session starts with.
type TimeoutsConfig struct {
	PageLoad time.Duration `yaml:"pageLoad" split_words:"true"`
	Script   time.Duration `yaml:"script"`
	Implicit time.Duration `yaml:"implicit"`
}

// WaitConfig holds defaults for explicit waits that omit them.
type WaitConfig struct {
	Timeout  time.Duration `yaml:"timeout"`
	Interval time.Duration `yaml:"interval"`
}

// LoggingConfig mirrors logging.Config with a textual level.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Dir        string `yaml:"dir"`
	MaxSizeMB  int    `yaml:"maxSizeMB" envconfig:"MAX_SIZE_MB"`
	MaxBackups int    `yaml:"maxBackups" split_words:"true"`
	MaxAgeDays int    `yaml:"maxAgeDays" split_words:"true"`
	Compress   bool   `yaml:"compress"`
	AddSource  bool   `yaml:"addSource" split_words:"true"`
}

// MongoConfig enables report persistence in MongoDB.
type MongoConfig struct {
	Enabled        bool          `yaml:"enabled"`
	URI            string        `yaml:"uri"`
	Database       string        `yaml:"database"`
	ConnectTimeout time.Duration `yaml:"connectTimeout" split_words:"true"`
	PingTimeout    time.Duration `yaml:"pingTimeout" split_words:"true"`
}

// RunnerConfig tunes scenario execution.
type RunnerConfig struct {
	// Parallel is the number of scenarios run at once, each in its own session.
	Parallel int `yaml:"parallel"`
	// EventBuffer is the event bus queue length.
	EventBuffer int `yaml:"eventBuffer" split_words:"true"`
}

// ArtifactsConfig controls files written by runs.
type ArtifactsConfig struct {
	Dir                 string `yaml:"dir"`
	ScreenshotOnFailure bool   `yaml:"screenshotOnFailure" split_words:"true"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	d := browser.DefaultDriverConfig()
	t := browser.DefaultTimeouts()
	l := logging.DefaultConfig()
	m := repository.DefaultMongoDBConfig()

	return &Config{
		Driver: DriverConfig{
			Kind:                 string(d.Kind),
			Headless:             d.Headless,
			WindowWidth:          d.WindowWidth,
			WindowHeight:         d.WindowHeight,
			DisableGPU:           d.DisableGPU,
			MuteAudio:            d.MuteAudio,
			HideScrollbars:       d.HideScrollbars,
			DisablePopupBlocking: d.DisablePopupBlocking,
			RemoteURL:            d.RemoteURL,
			BrowserName:          d.BrowserName,
		},
		Timeouts: TimeoutsConfig{
			PageLoad: t.PageLoad,
			Script:   t.Script,
			Implicit: t.Implicit,
		},
		Wait: WaitConfig{
			Timeout:  10 * time.Second,
			Interval: 500 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:      l.Level.String(),
			Format:     l.Format,
			MaxSizeMB:  l.MaxSizeMB,
			MaxBackups: l.MaxBackups,
			MaxAgeDays: l.MaxAgeDays,
			Compress:   l.Compress,
		},
		Mongo: MongoConfig{
			URI:            m.URI,
			Database:       m.Database,
			ConnectTimeout: m.ConnectTimeout,
			PingTimeout:    m.PingTimeout,
		},
		Runner: RunnerConfig{
			Parallel:    1,
			EventBuffer: 256,
		},
		Artifacts: ArtifactsConfig{
			Dir:                 "artifacts",
			ScreenshotOnFailure: true,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch browser.Kind(c.Driver.Kind) {
	case browser.KindChromeDP, browser.KindWebDriver:
	default:
		add("driver.kind: unsupported %q", c.Driver.Kind)
	}
	if c.Driver.WindowWidth <= 0 || c.Driver.WindowHeight <= 0 {
		add("driver: window size must be positive")
	}
	if browser.Kind(c.Driver.Kind) == browser.KindWebDriver && c.Driver.RemoteURL == "" {
		add("driver.remoteURL: required for webdriver")
	}
	if c.Timeouts.Implicit < 0 {
		add("timeouts.implicit: must not be negative")
	}
	if c.Wait.Timeout < 0 {
		add("wait.timeout: must not be negative")
	}
	if c.Wait.Interval < 0 {
		add("wait.interval: must not be negative")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		add("logging.level: %v", err)
	}
	switch c.Logging.Format {
	case logging.FormatText, logging.FormatJSON:
	default:
		add("logging.format: unsupported %q", c.Logging.Format)
	}
	if c.Mongo.Enabled && (c.Mongo.URI == "" || c.Mongo.Database == "") {
		add("mongo: uri and database are required when enabled")
	}
	if c.Runner.Parallel < 1 {
		add("runner.parallel: must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// BrowserConfig converts the driver section.
func (c *Config) BrowserConfig() *browser.DriverConfig {
	return &browser.DriverConfig{
		Kind:                 browser.Kind(c.Driver.Kind),
		Headless:             c.Driver.Headless,
		WindowWidth:          c.Driver.WindowWidth,
		WindowHeight:         c.Driver.WindowHeight,
		DisableGPU:           c.Driver.DisableGPU,
		MuteAudio:            c.Driver.MuteAudio,
		HideScrollbars:       c.Driver.HideScrollbars,
		DisablePopupBlocking: c.Driver.DisablePopupBlocking,
		UserDataDir:          c.Driver.UserDataDir,
		ExecPath:             c.Driver.ExecPath,
		RemoteURL:            c.Driver.RemoteURL,
		BrowserName:          c.Driver.BrowserName,
	}
}

// BrowserTimeouts converts the timeouts section.
func (c *Config) BrowserTimeouts() browser.Timeouts {
	return browser.Timeouts{
		PageLoad: c.Timeouts.PageLoad,
		Script:   c.Timeouts.Script,
		Implicit: c.Timeouts.Implicit,
	}
}

// LoggingConfig converts the logging section. Call after Validate.
func (c *Config) LoggingConfig() *logging.Config {
	level, _ := logging.ParseLevel(c.Logging.Level)
	return &logging.Config{
		Level:      level,
		Format:     c.Logging.Format,
		Dir:        c.Logging.Dir,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
		Compress:   c.Logging.Compress,
		AddSource:  c.Logging.AddSource,
	}
}

// MongoDBConfig converts the mongo section.
func (c *Config) MongoDBConfig() *repository.MongoDBConfig {
	return &repository.MongoDBConfig{
		URI:            c.Mongo.URI,
		Database:       c.Mongo.Database,
		ConnectTimeout: c.Mongo.ConnectTimeout,
		PingTimeout:    c.Mongo.PingTimeout,
	}
}
