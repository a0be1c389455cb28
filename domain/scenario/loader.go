package scenario

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"time"

	"gopkg.in/yaml.v3"

	"multiwindow-go/core/command"
)

// yamlScenario is the YAML structure for scenario definitions.
type yamlScenario struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Version     string      `yaml:"version"`
	Author      string      `yaml:"author"`
	Steps       []yaml.Node `yaml:"steps"`
}

type yamlClick struct {
	Target       string   `yaml:"target"`
	Times        int      `yaml:"times"`
	Pause        duration `yaml:"pause"`
	TrackWindows bool     `yaml:"trackWindows"`
}

type yamlType struct {
	Target string `yaml:"target"`
	Text   string `yaml:"text"`
}

type yamlWait struct {
	For      string    `yaml:"for"`
	Target   string    `yaml:"target"`
	Count    int       `yaml:"count"`
	Timeout  *duration `yaml:"timeout"`
	Interval duration  `yaml:"interval"`
	Ignore   []string  `yaml:"ignore"`
}

type yamlTimeouts struct {
	PageLoad *duration `yaml:"pageLoad"`
	Script   *duration `yaml:"script"`
	Implicit *duration `yaml:"implicit"`
}

type yamlSwitch struct {
	To    string `yaml:"to"`
	Index *int   `yaml:"index"`
}

type yamlForEach struct {
	Except string      `yaml:"except"`
	Last   string      `yaml:"last"`
	Steps  []yaml.Node `yaml:"steps"`
}

type yamlExecute struct {
	Script string `yaml:"script"`
	Async  bool   `yaml:"async"`
	Expect string `yaml:"expect"`
}

// duration is a wrapper for time.Duration that handles YAML parsing.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

func (d *duration) ptr() *time.Duration {
	if d == nil {
		return nil
	}
	v := time.Duration(*d)
	return &v
}

// Loader handles loading scenario definitions from various sources.
type Loader struct {
	registry *Registry
}

// NewLoader creates a new scenario loader that populates the given registry.
func NewLoader(registry *Registry) *Loader {
	return &Loader{registry: registry}
}

// LoadFromFS loads every .yaml file in dir of fsys.
func (l *Loader) LoadFromFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to read scenarios directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".yaml" {
			continue
		}

		if err := l.loadFile(fsys, path.Join(dir, entry.Name())); err != nil {
			return err
		}
	}

	return nil
}

// LoadFile loads a scenario from the local filesystem and returns it.
func (l *Loader) LoadFile(name string) (*Scenario, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file %s: %w", name, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scenario file %s: %w", name, err)
	}
	l.registry.Register(s)
	return s, nil
}

// loadFile loads a single scenario definition file.
func (l *Loader) loadFile(fsys fs.FS, name string) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("failed to read scenario file %s: %w", name, err)
	}

	s, err := Parse(data)
	if err != nil {
		return fmt.Errorf("failed to parse scenario file %s: %w", name, err)
	}
	l.registry.Register(s)

	return nil
}

// Parse decodes and validates one YAML scenario document.
func Parse(data []byte) (*Scenario, error) {
	var ys yamlScenario
	if err := yaml.Unmarshal(data, &ys); err != nil {
		return nil, err
	}

	steps, err := convertYAMLSteps(ys.Steps)
	if err != nil {
		return nil, err
	}

	s := &Scenario{
		Name:        ys.Name,
		Description: ys.Description,
		Version:     ys.Version,
		Author:      ys.Author,
		Steps:       steps,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func convertYAMLSteps(nodes []yaml.Node) ([]command.Command, error) {
	steps := make([]command.Command, 0, len(nodes))
	for i := range nodes {
		step, err := convertYAMLStep(&nodes[i])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", nodes[i].Line, err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// convertYAMLStep converts a single-key mapping such as
// "navigate: https://..." into a command.
func convertYAMLStep(node *yaml.Node) (command.Command, error) {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return nil, fmt.Errorf("step must be a mapping with exactly one key")
	}
	kind := node.Content[0].Value
	value := node.Content[1]
	scalar := value.Kind == yaml.ScalarNode && value.Tag != "!!null"

	switch kind {
	case "navigate":
		return &command.Navigate{URL: value.Value}, nil

	case "reload":
		return &command.Reload{}, nil

	case "click":
		if scalar {
			return &command.Click{Target: value.Value, Times: 1}, nil
		}
		var yc yamlClick
		if err := value.Decode(&yc); err != nil {
			return nil, fmt.Errorf("click: %w", err)
		}
		if yc.Times == 0 {
			yc.Times = 1
		}
		return &command.Click{
			Target:       yc.Target,
			Times:        yc.Times,
			Pause:        time.Duration(yc.Pause),
			TrackWindows: yc.TrackWindows,
		}, nil

	case "type":
		var yt yamlType
		if err := value.Decode(&yt); err != nil {
			return nil, fmt.Errorf("type: %w", err)
		}
		return &command.Type{Target: yt.Target, Text: yt.Text}, nil

	case "wait":
		var yw yamlWait
		if err := value.Decode(&yw); err != nil {
			return nil, fmt.Errorf("wait: %w", err)
		}
		return &command.Wait{
			Condition: command.Condition(yw.For),
			Target:    yw.Target,
			Count:     yw.Count,
			Timeout:   yw.Timeout.ptr(),
			Interval:  time.Duration(yw.Interval),
			Ignore:    yw.Ignore,
		}, nil

	case "set_timeouts":
		var yt yamlTimeouts
		if err := value.Decode(&yt); err != nil {
			return nil, fmt.Errorf("set_timeouts: %w", err)
		}
		return &command.SetTimeouts{
			PageLoad: yt.PageLoad.ptr(),
			Script:   yt.Script.ptr(),
			Implicit: yt.Implicit.ptr(),
		}, nil

	case "remember_window":
		return &command.RememberWindow{As: value.Value}, nil

	case "switch_window":
		if scalar {
			return &command.SwitchWindow{To: value.Value}, nil
		}
		var ys yamlSwitch
		if err := value.Decode(&ys); err != nil {
			return nil, fmt.Errorf("switch_window: %w", err)
		}
		return &command.SwitchWindow{To: ys.To, Index: ys.Index}, nil

	case "for_each_window":
		var yf yamlForEach
		if err := value.Decode(&yf); err != nil {
			return nil, fmt.Errorf("for_each_window: %w", err)
		}
		nested, err := convertYAMLSteps(yf.Steps)
		if err != nil {
			return nil, fmt.Errorf("for_each_window: %w", err)
		}
		return &command.ForEachWindow{Except: yf.Except, Last: yf.Last, Steps: nested}, nil

	case "close_window":
		return &command.CloseWindow{}, nil

	case "expect_windows":
		var n int
		if err := value.Decode(&n); err != nil {
			return nil, fmt.Errorf("expect_windows: %w", err)
		}
		return &command.ExpectWindows{Count: n}, nil

	case "log_handles":
		return &command.LogHandles{}, nil

	case "execute":
		if scalar {
			return &command.Execute{Script: value.Value}, nil
		}
		var ye yamlExecute
		if err := value.Decode(&ye); err != nil {
			return nil, fmt.Errorf("execute: %w", err)
		}
		return &command.Execute{Script: ye.Script, Async: ye.Async, Expect: ye.Expect}, nil

	case "screenshot":
		if scalar {
			return &command.Screenshot{Name: value.Value}, nil
		}
		return &command.Screenshot{}, nil

	case "sleep":
		var d duration
		if err := value.Decode(&d); err != nil {
			return nil, fmt.Errorf("sleep: %w", err)
		}
		return &command.Sleep{Duration: time.Duration(d)}, nil

	default:
		return nil, fmt.Errorf("unknown step %q", kind)
	}
}
