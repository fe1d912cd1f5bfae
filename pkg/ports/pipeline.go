package ports

import (
	"context"

	"github.com/aretw0/sluice/pkg/domain"
)

// Order is the handle returned by Builder.Use. Constraints are declared
// fluently; Err reports whether the registration was accepted.
type Order interface {
	// Before places the step ahead of each identity.
	Before(ids ...domain.Identity) Order
	// After places the step behind each identity.
	After(ids ...domain.Identity) Order
	// During places the step inside a stage: before its marker and after
	// the previous stage's marker.
	During(stage domain.Identity) Order
	// Err returns the registration error, if any.
	Err() error
}

// Builder is the registration surface offered to contributors.
type Builder interface {
	Use(id domain.Identity, fn domain.StepFunc) Order
}

// Contributor registers its steps during initialization.
type Contributor interface {
	Initialize(b Builder)
}

// ContributorFunc adapts a function to Contributor.
type ContributorFunc func(b Builder)

func (f ContributorFunc) Initialize(b Builder) { f(b) }

// Resolver constructs contributors by capability name.
type Resolver interface {
	Resolve(ctx context.Context, capability string) (any, error)
}

// Pipeline is what a host needs from an engine.
type Pipeline interface {
	Advance(cc *domain.CommunicationContext) (domain.Outcome, error)
	NewContext(ctx context.Context, req *domain.Request) *domain.CommunicationContext
	Steps() ([]domain.StepInfo, error)
}
