package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "uri_matching", cfg.Server.SuspendAfter)
	assert.Equal(t, "/_sluice", cfg.Server.AdminPrefix)
	assert.Equal(t, StoreMemory, cfg.Store.Type)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestParse_EnvSubstitution(t *testing.T) {
	t.Setenv("SLUICE_TEST_ADDR", ":9999")
	os.Unsetenv("SLUICE_TEST_MISSING")

	cfg, err := Parse([]byte(`
server:
  addr: ${SLUICE_TEST_ADDR}
  timeout: 5s
store:
  type: ${SLUICE_TEST_MISSING:-sqlite}
  redis:
    password: "${SLUICE_TEST_MISSING}"
`))
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.Timeout)
	assert.Equal(t, StoreSQLite, cfg.Store.Type)
	assert.Equal(t, "sluice.db", cfg.Store.Path)
	assert.Empty(t, cfg.Store.Redis.Password)
}

func TestParse_InlinePipeline(t *testing.T) {
	cfg, err := Parse([]byte(`
pipeline:
  name: demo
  render_after: operation_execution
  contributors:
    - capability: request.id
    - capability: auth.apikey
      options:
        keys: [secret]
      after: [request.id]
`))
	require.NoError(t, err)
	require.Len(t, cfg.Pipeline.Contributors, 2)
	assert.Equal(t, "demo", cfg.Pipeline.Name)
	assert.Equal(t, []string{"request.id"}, cfg.Pipeline.Contributors[1].After)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Store.Type = "mongo"
	cfg.Store.EncryptionKey = "not-base64!"
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.type")
	assert.Contains(t, err.Error(), "store.encryption_key")
	assert.Contains(t, err.Error(), "log.format")
}

func TestDecodeKey(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
	got, err := DecodeKey(key)
	require.NoError(t, err)
	assert.Len(t, got, 32)

	_, err = DecodeKey(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	manifest := filepath.Join(dir, "pipeline.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte(`
contributors:
  - capability: render.json
`), 0o644))

	path := filepath.Join(dir, "sluice.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pipeline:
  manifest: `+manifest+`
  contributors:
    - capability: request.id
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Pipeline.Contributors, 2)
	assert.Equal(t, "request.id", cfg.Pipeline.Contributors[0].Capability)
	assert.Equal(t, "render.json", cfg.Pipeline.Contributors[1].Capability)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err, "an explicit path must exist")
}
