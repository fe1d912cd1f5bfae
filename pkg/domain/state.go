package domain

// RunState is the per-request position in the ordered step list.
// It is owned by exactly one CommunicationContext.
type RunState struct {
	// Index is the position of the next step to execute.
	Index int `json:"index"`

	// Last is the most recent signal observed.
	Last Continuation `json:"last,omitempty"`

	// SuspendAfter, when set, makes the runner return control to the caller
	// once the step with this identity has completed. It is cleared when the
	// suspension happens.
	SuspendAfter Identity `json:"suspend_after,omitempty"`

	Status RunStatus `json:"status"`

	// Rendering is true once a RenderNow jump has happened.
	Rendering bool `json:"rendering,omitempty"`

	// Trace lists the contributors executed so far, in order.
	Trace []Identity `json:"trace,omitempty"`
}

// NewRunState returns a run positioned at the first step.
func NewRunState() *RunState {
	return &RunState{Status: StatusPending}
}

// Reset returns the run to its initial position, dropping any stale suspend
// marker or signal.
func (s *RunState) Reset() {
	*s = RunState{Status: StatusPending}
}

// Clone returns a deep copy.
func (s *RunState) Clone() *RunState {
	if s == nil {
		return nil
	}
	c := *s
	if s.Trace != nil {
		c.Trace = append([]Identity(nil), s.Trace...)
	}
	return &c
}
