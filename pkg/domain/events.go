package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStepEnter EventType = "step_enter"
	EventStepLeave EventType = "step_leave"
	EventFault     EventType = "fault"
	EventSuspend   EventType = "suspend"
	EventFinish    EventType = "finish"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
}

// StepEvent represents entry into or exit from a contributor step.
type StepEvent struct {
	EventBase
	Contributor  Identity      `json:"contributor"`
	Position     int           `json:"position"`
	Continuation Continuation  `json:"continuation,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	Err          error         `json:"-"`
}

// RunEvent represents a run handing control back to its caller.
type RunEvent struct {
	EventBase
	Outcome  Outcome `json:"outcome"`
	Position int     `json:"position"`
	Err      error   `json:"-"`
}

// LifecycleHooks defines callbacks for pipeline observability.
type LifecycleHooks struct {
	OnStepEnter func(context.Context, *StepEvent)
	OnStepLeave func(context.Context, *StepEvent)
	OnFault     func(context.Context, *StepEvent)
	OnSuspend   func(context.Context, *RunEvent)
	OnFinish    func(context.Context, *RunEvent)
}
