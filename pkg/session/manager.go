package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/sluice/internal/logging"
	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// AdvanceFunc continues a restored run. Engine.Advance satisfies it.
type AdvanceFunc func(cc *domain.CommunicationContext) (domain.Outcome, error)

// Manager orchestrates access to parked runs.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.RunStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager backed by store.
func NewManager(store ports.RunStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu and call release(runID) after unlocking.
func (m *Manager) acquire(runID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[runID]
	if !exists {
		entry = &lockEntry{}
		m.locks[runID] = entry
	}
	entry.refs++
	return entry
}

func (m *Manager) release(runID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[runID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, runID)
	}
}

// Park persists a suspended run so it can be resumed later.
//
// Stores that serialize snapshots (redis, sqlite, file) encode them as JSON,
// so values in Data.Items and Data.Result.Entity come back as JSON types:
// numbers as float64, structs and maps as map[string]any, slices as []any.
// Contributors that resume a run must read them accordingly.
func (m *Manager) Park(ctx context.Context, cc *domain.CommunicationContext) error {
	if cc.Run.Status != domain.StatusSuspended {
		return fmt.Errorf("cannot park run %s in status %q", cc.ID, cc.Run.Status)
	}
	return m.WithLock(ctx, cc.ID, func(ctx context.Context) error {
		return m.store.Save(ctx, cc.ID, cc.Snapshot())
	})
}

// Resume restores a parked run, continues it with advance and stores the
// result: a run that suspends again is re-parked, a finished one is removed.
// The restored context is returned so the caller can write the response.
func (m *Manager) Resume(ctx context.Context, runID string, advance AdvanceFunc) (*domain.CommunicationContext, domain.Outcome, error) {
	var (
		cc      *domain.CommunicationContext
		outcome domain.Outcome
		runErr  error
	)
	err := m.WithLock(ctx, runID, func(ctx context.Context) error {
		snap, err := m.store.Load(ctx, runID)
		if err != nil {
			return err
		}
		cc = domain.Restore(ctx, snap)

		outcome, runErr = advance(cc)
		if outcome == domain.OutcomeSuspended {
			return m.store.Save(ctx, runID, cc.Snapshot())
		}
		if err := m.store.Delete(ctx, runID); err != nil {
			return fmt.Errorf("failed to remove finished run: %w", err)
		}
		return nil
	})
	if err != nil {
		return cc, domain.OutcomeAborted, errors.Join(err, runErr)
	}
	m.logger.Debug("run resumed", "run_id", runID, "outcome", outcome)
	return cc, outcome, runErr
}

// Load retrieves a parked run without resuming it.
func (m *Manager) Load(ctx context.Context, runID string) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := m.WithLock(ctx, runID, func(ctx context.Context) error {
		var err error
		snap, err = m.store.Load(ctx, runID)
		return err
	})
	return snap, err
}

// Delete discards a parked run.
func (m *Manager) Delete(ctx context.Context, runID string) error {
	return m.WithLock(ctx, runID, func(ctx context.Context) error {
		return m.store.Delete(ctx, runID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying run store.
func (m *Manager) Store() ports.RunStore {
	return m.store
}

// WithLock executes fn while holding the lock for the run.
func (m *Manager) WithLock(ctx context.Context, runID string, fn func(context.Context) error) error {
	entry := m.acquire(runID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(runID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, runID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// The run context may already be done; release with a fresh one.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"run_id", runID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// lockCount reports the number of live lock entries.
func (m *Manager) lockCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
