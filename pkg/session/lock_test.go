package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/sluice/pkg/adapters/memory"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()

	for i := 0; i < 10000; i++ {
		id := fmt.Sprintf("run-%d", i)
		_, _ = mgr.Load(ctx, id)
		_ = mgr.Delete(ctx, id)
	}

	if n := mgr.lockCount(); n != 0 {
		t.Errorf("memory leak detected: %d locks remaining after use", n)
	}
}
