package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPipelineFinalized is returned when a contributor registers after the
// step list has been computed.
var ErrPipelineFinalized = errors.New("pipeline already finalized")

// ErrRunCanceled is returned when the request context is done before the run
// finished.
var ErrRunCanceled = errors.New("run canceled")

// ErrRunNotFound is returned when a run ID cannot be found in the store.
var ErrRunNotFound = errors.New("run not found")

// ErrEngineClosed is returned by an engine after Close.
var ErrEngineClosed = errors.New("engine closed")

// ErrCapabilityNotFound is returned by a resolver that knows nothing about a
// capability.
var ErrCapabilityNotFound = errors.New("capability not found")

// CyclicOrderingError reports ordering constraints that cannot be satisfied.
type CyclicOrderingError struct {
	Identities []Identity
}

func (e *CyclicOrderingError) Error() string {
	names := make([]string, len(e.Identities))
	for i, id := range e.Identities {
		names[i] = string(id)
	}
	return fmt.Sprintf("cyclic ordering between: %s", strings.Join(names, ", "))
}

// UnknownIdentityError reports a reference to something that is neither a
// registered contributor nor a configured stage.
type UnknownIdentityError struct {
	Identity     Identity
	ReferencedBy Identity
}

func (e *UnknownIdentityError) Error() string {
	if e.ReferencedBy == "" {
		return fmt.Sprintf("unknown identity %q", e.Identity)
	}
	return fmt.Sprintf("unknown identity %q referenced by %q", e.Identity, e.ReferencedBy)
}

// DuplicateContributorError reports two registrations under one identity.
type DuplicateContributorError struct {
	Identity Identity
}

func (e *DuplicateContributorError) Error() string {
	return fmt.Sprintf("contributor %q registered twice", e.Identity)
}

// ContributorConstructionError reports a contributor that could not be built.
type ContributorConstructionError struct {
	Capability string
	Err        error
}

func (e *ContributorConstructionError) Error() string {
	return fmt.Sprintf("construct contributor %q: %v", e.Capability, e.Err)
}

func (e *ContributorConstructionError) Unwrap() error {
	return e.Err
}

// StepExecutionFault reports an unexpected failure inside a step function.
type StepExecutionFault struct {
	Contributor Identity
	Position    int
	Err         error
	// Panic is the recovered value when the step panicked.
	Panic any
}

func (e *StepExecutionFault) Error() string {
	return fmt.Sprintf("step %q at position %d: %v", e.Contributor, e.Position, e.Err)
}

func (e *StepExecutionFault) Unwrap() error {
	return e.Err
}
