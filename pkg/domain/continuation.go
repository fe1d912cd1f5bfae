package domain

// Continuation is the signal a step returns to steer the rest of the run.
type Continuation string

const (
	// ContinueSignal proceeds to the next step.
	ContinueSignal Continuation = "continue"
	// RenderNow skips the remaining processing steps and jumps to rendering.
	RenderNow Continuation = "render_now"
	// Abort stops the run; no further step executes.
	Abort Continuation = "abort"
)

// Valid reports whether c is one of the known signals.
func (c Continuation) Valid() bool {
	switch c {
	case ContinueSignal, RenderNow, Abort:
		return true
	}
	return false
}

// Outcome is the result of one call to Advance.
type Outcome string

const (
	OutcomeSuspended Outcome = "suspended"
	OutcomeCompleted Outcome = "completed"
	OutcomeAborted   Outcome = "aborted"
)

// RunStatus tracks where a run is in its lifecycle.
type RunStatus string

const (
	StatusPending   RunStatus = "pending"   // Created, nothing executed yet
	StatusActive    RunStatus = "active"    // Inside Advance
	StatusSuspended RunStatus = "suspended" // Stopped at the suspend marker, resumable
	StatusCompleted RunStatus = "completed"
	StatusAborted   RunStatus = "aborted"
)

// Terminal reports whether no further step can execute.
func (s RunStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusAborted
}

// Outcome maps a status to the outcome Advance reports for it.
func (s RunStatus) Outcome() Outcome {
	switch s {
	case StatusCompleted:
		return OutcomeCompleted
	case StatusAborted:
		return OutcomeAborted
	default:
		return OutcomeSuspended
	}
}
