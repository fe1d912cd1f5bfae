package cli

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sluice/internal/config"
	"github.com/aretw0/sluice/internal/logging"
	"github.com/aretw0/sluice/pkg/domain"
)

func parse(t *testing.T, doc string) *config.Config {
	cfg, err := config.Parse([]byte(doc))
	require.NoError(t, err)
	return cfg
}

func TestBuild_MemoryPipeline(t *testing.T) {
	cfg := parse(t, `
telemetry:
  metrics: true
pipeline:
  name: test
  contributors:
    - capability: resources.static
      options:
        routes:
          - pattern: /ping
            body: pong
    - capability: render.json
`)
	rt, err := Build(context.Background(), cfg, logging.NewNop(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Engine.Close() })

	require.NotNil(t, rt.Metrics)
	require.NotNil(t, rt.Gatherer)

	cc := rt.Engine.NewContext(context.Background(), &domain.Request{Method: "GET", Path: "/ping"})
	cc.Run.SuspendAfter = domain.StageURIMatching
	outcome, err := rt.Engine.Advance(cc)
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeSuspended, outcome)

	require.NoError(t, rt.Manager.Park(context.Background(), cc))
	_, outcome, err = rt.Manager.Resume(context.Background(), cc.ID, rt.Engine.Advance)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCompleted, outcome)

	families, err := rt.Gatherer.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "sluice_runs_total")
}

func TestBuild_EncryptedSQLite(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
	cfg := config.Default()
	cfg.Store.Type = config.StoreSQLite
	cfg.Store.Path = filepath.Join(t.TempDir(), "runs.db")
	cfg.Store.EncryptionKey = key

	rt, err := Build(context.Background(), cfg, logging.NewNop(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Engine.Close() })

	cc := domain.NewCommunicationContext(context.Background(), "r1", nil)
	cc.Run.Status = domain.StatusSuspended
	require.NoError(t, rt.Manager.Park(context.Background(), cc))

	snap, err := rt.Manager.Load(context.Background(), "r1")
	require.NoError(t, err)
	assert.Empty(t, snap.Sealed, "the manager sees decrypted snapshots")
}

func TestBuild_RedisWithLocker(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.Default()
	cfg.Store.Type = config.StoreRedis
	cfg.Store.Redis.Addr = mr.Addr()
	cfg.Store.Redis.Lock = true

	st, err := newStore(cfg.Store, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.close() })
	assert.NotNil(t, st.locker)
}

func TestBuild_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Type = "tape"
	_, err := Build(context.Background(), cfg, logging.NewNop(), nil)
	assert.Error(t, err)
}

func TestBuild_UnknownCapability(t *testing.T) {
	cfg := parse(t, `
pipeline:
  contributors:
    - capability: missing
`)
	_, err := Build(context.Background(), cfg, logging.NewNop(), nil)
	var cerr *domain.ContributorConstructionError
	assert.ErrorAs(t, err, &cerr)
}

func TestNewLogger(t *testing.T) {
	var buf strings.Builder
	logger, err := NewLogger(config.LogConfig{Level: "info", Format: "json"}, "debug", &buf)
	require.NoError(t, err)
	logger.Debug("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	_, err = NewLogger(config.LogConfig{Level: "loud"}, "", &buf)
	assert.Error(t, err)
}
