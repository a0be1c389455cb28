package application

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multiwindow-go/core/eventbus"
	"multiwindow-go/core/wait"
	"multiwindow-go/domain/scenario"
	"multiwindow-go/infrastructure/browser"
	"multiwindow-go/infrastructure/browser/browsertest"
	"multiwindow-go/resources"
)

func TestJournal_CountsWindowActivity(t *testing.T) {
	registry := scenario.NewRegistry()
	require.NoError(t, scenario.NewLoader(registry).LoadFromFS(resources.ScenarioFiles, resources.ScenarioDir))

	bus := eventbus.New(256)
	journal := NewJournal(bus, nil)
	defer journal.Stop()

	runner := NewRunner(&RunnerConfig{
		Scenarios: registry,
		EventBus:  bus,
		DriverFactory: func() (browser.Driver, error) {
			return browsertest.New(browsertest.PracticeSite()), nil
		},
		Waits: WaitDefaults{Timeout: 10 * time.Second, Interval: 500 * time.Millisecond},
		Clock: wait.MockClock(clock.NewMock()),
	})

	reports, err := runner.RunNamed(testContext(t), "window_close")
	require.NoError(t, err)
	require.True(t, reports[0].Passed(), reports[0].Error)

	// Close waits for queued events to be delivered.
	bus.Close()

	stats := journal.Stats(reports[0].SessionID)
	assert.Equal(t, 3, stats.Observed, "the three popups")
	assert.Equal(t, 5, stats.Focused, "three children in the loop, parent, last")
	assert.Equal(t, 4, stats.Closed, "parent by the scenario, three on session close")
	assert.Zero(t, stats.External)
	assert.Equal(t, []string{"sim-0002", "sim-0003", "sim-0004"}, stats.LastHandles)
}

func TestJournal_UnknownSession(t *testing.T) {
	bus := eventbus.New(8)
	defer bus.Close()

	journal := NewJournal(bus, nil)
	journal.Stop()

	assert.Equal(t, WindowStats{}, journal.Stats("missing"))
}
