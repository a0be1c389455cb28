package event

import "time"

// ScenarioStarted is published when a scenario starts executing.
type ScenarioStarted struct {
	origin
	Scenario string
}

func NewScenarioStarted(sessionID, scenario string) *ScenarioStarted {
	return &ScenarioStarted{
		origin:   origin{sessionID: sessionID},
		Scenario: scenario,
	}
}

func (e *ScenarioStarted) EventName() string {
	return NameScenarioStarted
}

// StopReason indicates why a scenario stopped.
type StopReason int

const (
	// StopReasonNormal indicates every step completed.
	StopReasonNormal StopReason = iota
	// StopReasonCancelled indicates the run context was cancelled.
	StopReasonCancelled
	// StopReasonError indicates a step failed.
	StopReasonError
)

func (r StopReason) String() string {
	switch r {
	case StopReasonNormal:
		return "Normal"
	case StopReasonCancelled:
		return "Cancelled"
	case StopReasonError:
		return "Error"
	default:
		return "Unknown"
	}
}

// ScenarioStopped is published when a scenario stops executing.
type ScenarioStopped struct {
	origin
	Scenario string
	Reason   StopReason
	Error    error // Non-nil unless Reason is StopReasonNormal
}

func NewScenarioStopped(sessionID, scenario string, reason StopReason, err error) *ScenarioStopped {
	return &ScenarioStopped{
		origin:   origin{sessionID: sessionID},
		Scenario: scenario,
		Reason:   reason,
		Error:    err,
	}
}

func (e *ScenarioStopped) EventName() string {
	return NameScenarioStopped
}

// StepExecuted is published after each scenario step.
type StepExecuted struct {
	origin
	StepIndex int
	StepName  string
	Elapsed   time.Duration
	Error     error
}

func NewStepExecuted(sessionID string, stepIndex int, stepName string, elapsed time.Duration, err error) *StepExecuted {
	return &StepExecuted{
		origin:    origin{sessionID: sessionID},
		StepIndex: stepIndex,
		StepName:  stepName,
		Elapsed:   elapsed,
		Error:     err,
	}
}

func (e *StepExecuted) EventName() string {
	return NameStepExecuted
}

// ScreenCaptured is published when a screenshot was written to disk.
type ScreenCaptured struct {
	origin
	Handle string
	Path   string
}

func NewScreenCaptured(sessionID, handle, path string) *ScreenCaptured {
	return &ScreenCaptured{
		origin: origin{sessionID: sessionID},
		Handle: handle,
		Path:   path,
	}
}

func (e *ScreenCaptured) EventName() string {
	return NameScreenCaptured
}
