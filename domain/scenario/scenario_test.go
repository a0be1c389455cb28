package scenario

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"multiwindow-go/core/command"
	"multiwindow-go/resources"
)

const windowCloseYAML = `
name: window_close
description: close the parent
steps:
  - navigate: http://toolsqa.com/automation-practice-switch-windows/
  - remember_window: parent
  - click:
      target: id=button1
      times: 3
      pause: 3s
      trackWindows: true
  - for_each_window:
      last: last
      steps:
        - navigate: http://google.com
  - switch_window: parent
  - close_window:
  - switch_window:
      index: -1
  - set_timeouts:
      pageLoad: -1s
      implicit: 10s
  - wait:
      for: clickable
      target: name=wp-submit
      timeout: 10s
      interval: 250ms
      ignore: [no_such_element]
  - execute:
      script: return document.title;
      async: true
  - sleep: 2s
  - log_handles:
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(windowCloseYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if s.Name != "window_close" {
		t.Errorf("Name = %v, want window_close", s.Name)
	}
	if len(s.Steps) != 12 {
		t.Fatalf("len(Steps) = %d, want 12", len(s.Steps))
	}
	if s.CountSteps() != 13 {
		t.Errorf("CountSteps() = %d, want 13", s.CountSteps())
	}

	click, ok := s.Steps[2].(*command.Click)
	if !ok {
		t.Fatalf("Steps[2] = %T, want *command.Click", s.Steps[2])
	}
	if click.Target != "id=button1" || click.Times != 3 || click.Pause != 3*time.Second || !click.TrackWindows {
		t.Errorf("click = %+v", click)
	}

	forEach, ok := s.Steps[3].(*command.ForEachWindow)
	if !ok {
		t.Fatalf("Steps[3] = %T, want *command.ForEachWindow", s.Steps[3])
	}
	if forEach.Last != "last" || len(forEach.Steps) != 1 {
		t.Errorf("for_each_window = %+v", forEach)
	}

	if sw, ok := s.Steps[4].(*command.SwitchWindow); !ok || sw.To != "parent" {
		t.Errorf("Steps[4] = %+v, want switch to parent", s.Steps[4])
	}
	if _, ok := s.Steps[5].(*command.CloseWindow); !ok {
		t.Errorf("Steps[5] = %T, want *command.CloseWindow", s.Steps[5])
	}
	if sw, ok := s.Steps[6].(*command.SwitchWindow); !ok || sw.Index == nil || *sw.Index != -1 {
		t.Errorf("Steps[6] = %+v, want switch to index -1", s.Steps[6])
	}

	timeouts := s.Steps[7].(*command.SetTimeouts)
	if timeouts.PageLoad == nil || *timeouts.PageLoad != -time.Second {
		t.Errorf("PageLoad = %v, want -1s", timeouts.PageLoad)
	}
	if timeouts.Script != nil {
		t.Errorf("Script = %v, want nil", *timeouts.Script)
	}

	wait := s.Steps[8].(*command.Wait)
	if wait.Condition != command.ConditionClickable || wait.Timeout == nil || *wait.Timeout != 10*time.Second || wait.Interval != 250*time.Millisecond {
		t.Errorf("wait = %+v", wait)
	}
	if len(wait.Ignore) != 1 || wait.Ignore[0] != "no_such_element" {
		t.Errorf("Ignore = %v, want [no_such_element]", wait.Ignore)
	}

	if exec := s.Steps[9].(*command.Execute); !exec.Async {
		t.Error("execute.async = false, want true")
	}
	if sleep := s.Steps[10].(*command.Sleep); sleep.Duration != 2*time.Second {
		t.Errorf("sleep = %v, want 2s", sleep.Duration)
	}
}

func TestParse_WaitTimeout(t *testing.T) {
	src := `
name: timeouts
steps:
  - wait:
      for: page_loaded
  - wait:
      for: page_loaded
      timeout: 0s
`
	s, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got := s.Steps[0].(*command.Wait).Timeout; got != nil {
		t.Errorf("omitted timeout = %v, want nil", *got)
	}
	got := s.Steps[1].(*command.Wait).Timeout
	if got == nil || *got != 0 {
		t.Errorf("timeout 0s = %v, want 0", got)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no name", "steps:\n  - reload:\n"},
		{"no steps", "name: x\n"},
		{"unknown step", "name: x\nsteps:\n  - teleport: mars\n"},
		{"two keys", "name: x\nsteps:\n  - navigate: a\n    reload:\n"},
		{"bad duration", "name: x\nsteps:\n  - sleep: soon\n"},
		{"negative wait timeout", "name: x\nsteps:\n  - wait:\n      for: page_loaded\n      timeout: -1s\n"},
		{"invalid command", "name: x\nsteps:\n  - navigate:\n"},
		{"invalid nested", "name: x\nsteps:\n  - for_each_window:\n      steps:\n        - click:\n"},
		{"not yaml", "name: [x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Error("Parse() error = nil, want error")
			}
		})
	}
}

func TestLoader_LoadFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"scenarios/a.yaml":        {Data: []byte("name: a\nsteps:\n  - reload:\n")},
		"scenarios/b.yaml":        {Data: []byte("name: b\nsteps:\n  - close_window:\n")},
		"scenarios/readme.md":     {Data: []byte("# ignored")},
		"scenarios/nested/c.yaml": {Data: []byte("name: c\nsteps:\n  - reload:\n")},
	}

	registry := NewRegistry()
	if err := NewLoader(registry).LoadFromFS(fsys, "scenarios"); err != nil {
		t.Fatalf("LoadFromFS() error = %v", err)
	}

	if got := registry.List(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("List() = %v, want [a b]", got)
	}
}

func TestLoader_LoadFile(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(name, []byte("name: custom\nsteps:\n  - navigate: http://google.com\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	registry := NewRegistry()
	s, err := NewLoader(registry).LoadFile(name)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if s.Name != "custom" || !registry.Exists("custom") {
		t.Errorf("LoadFile() = %v, registered = %v", s.Name, registry.Exists("custom"))
	}

	if _, err := NewLoader(registry).LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("LoadFile(missing) error = nil, want error")
	}
}

func TestBuiltinScenarios(t *testing.T) {
	registry := NewRegistry()
	if err := NewLoader(registry).LoadFromFS(resources.ScenarioFiles, resources.ScenarioDir); err != nil {
		t.Fatalf("LoadFromFS() error = %v", err)
	}

	want := []string{
		"expected_condition",
		"fluent_wait",
		"implicit_wait",
		"new_window",
		"window_close",
		"window_handles",
		"window_switch",
	}
	got := registry.List()
	if len(got) != len(want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRegistry_Lookup(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&Scenario{Name: "a"})
	registry.Register(&Scenario{Name: "b"})

	got, err := registry.Lookup("b", "a")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got[0].Name != "b" || got[1].Name != "a" {
		t.Errorf("Lookup() order = %v, %v, want b, a", got[0].Name, got[1].Name)
	}

	_, err = registry.Lookup("a", "zzz")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup(zzz) error = %v, want ErrNotFound", err)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Name != "zzz" {
		t.Errorf("Lookup(zzz) error = %v, want NotFoundError{zzz}", err)
	}

	if all := registry.All(); len(all) != 2 || all[0].Name != "a" {
		t.Errorf("All() = %v", all)
	}
	if registry.Count() != 2 {
		t.Errorf("Count() = %d, want 2", registry.Count())
	}
}
