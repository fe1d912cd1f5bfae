package domain

// Identity names a node of the pipeline: either a contributor step or a
// well-known stage.
type Identity string

// Well-known stages, in canonical order. A stage marker means the phase it
// names is complete: contributors implementing a phase are ordered before its
// marker and after the previous one.
const (
	StageBegin                     Identity = "begin"
	StageAuthentication            Identity = "authentication"
	StageURIMatching               Identity = "uri_matching"
	StageHandlerSelection          Identity = "handler_selection"
	StageOperationExecution        Identity = "operation_execution"
	StageOperationResultInvocation Identity = "operation_result_invocation"
	StageResponseCoding            Identity = "response_coding"
	StageEnd                       Identity = "end"
)

var knownStages = []Identity{
	StageBegin,
	StageAuthentication,
	StageURIMatching,
	StageHandlerSelection,
	StageOperationExecution,
	StageOperationResultInvocation,
	StageResponseCoding,
	StageEnd,
}

// KnownStages returns the well-known stages in canonical order.
func KnownStages() []Identity {
	out := make([]Identity, len(knownStages))
	copy(out, knownStages)
	return out
}

// IsKnownStage reports whether id is one of the well-known stages.
func IsKnownStage(id Identity) bool {
	for _, s := range knownStages {
		if s == id {
			return true
		}
	}
	return false
}

// StepInfo describes one position of a finalized step list.
type StepInfo struct {
	Position int      `json:"position"`
	ID       Identity `json:"id"`
	Stage    bool     `json:"stage"`
}
