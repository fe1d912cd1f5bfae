package ports

import (
	"context"

	"github.com/aretw0/sluice/pkg/domain"
)

// RunStore persists parked runs so they can be resumed later, possibly by
// another process.
type RunStore interface {
	// Save persists the snapshot for a given run ID.
	Save(ctx context.Context, runID string, snap *domain.Snapshot) error

	// Load retrieves the snapshot for a given run ID.
	// Returns domain.ErrRunNotFound if the run does not exist.
	Load(ctx context.Context, runID string) (*domain.Snapshot, error)

	// Delete removes the snapshot for a given run ID.
	Delete(ctx context.Context, runID string) error

	// List returns the IDs of all parked runs.
	List(ctx context.Context) ([]string, error)
}
