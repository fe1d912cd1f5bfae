package dsl_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sluice"
	"github.com/aretw0/sluice/pkg/contrib"
	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/dsl"
	"github.com/aretw0/sluice/pkg/ports"
	"github.com/aretw0/sluice/pkg/registry"
)

const ordersManifest = `
name: orders
contributors:
  - capability: request.id
  - capability: auth.apikey
    options:
      keys: [secret]
  - capability: resources.static
    options:
      routes:
        - pattern: /orders/{id}
          echo: true
  - capability: render.json
  - capability: audit
    after: [auth.apikey]
    before: [uri_matching]
`

func newRegistry() *registry.Registry {
	reg := registry.NewRegistry()
	contrib.RegisterBuiltins(reg)
	reg.Register("audit", func(ctx context.Context, options map[string]any) (ports.Contributor, error) {
		return ports.ContributorFunc(func(b ports.Builder) {
			b.Use("audit", func(cc *domain.CommunicationContext) (domain.Continuation, error) {
				cc.Data.Items["audited"] = true
				return domain.ContinueSignal, nil
			})
		}), nil
	})
	return reg
}

func position(t *testing.T, steps []domain.StepInfo, id domain.Identity) int {
	for _, s := range steps {
		if s.ID == id {
			return s.Position
		}
	}
	t.Fatalf("step %s not found", id)
	return -1
}

func TestManifest_Apply(t *testing.T) {
	m, err := dsl.Parse([]byte(ordersManifest))
	require.NoError(t, err)

	eng, err := sluice.New(m.EngineOptions()...)
	require.NoError(t, err)
	require.NoError(t, m.Apply(context.Background(), eng, newRegistry()))

	steps, err := eng.Steps()
	require.NoError(t, err)
	audit := position(t, steps, "audit")
	assert.Greater(t, audit, position(t, steps, "auth.apikey"))
	assert.Less(t, audit, position(t, steps, domain.StageURIMatching))

	h := http.Header{}
	h.Set("X-API-Key", "secret")
	cc := eng.NewContext(context.Background(), &domain.Request{Method: "GET", Path: "/orders/7", Header: h})
	outcome, err := eng.Advance(cc)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCompleted, outcome)
	assert.Equal(t, true, cc.Data.Items["audited"])

	var body map[string]any
	require.NoError(t, json.Unmarshal(cc.Response.Body, &body))
	assert.Equal(t, map[string]any{"id": "7"}, body["params"])
}

func TestManifest_UnknownCapability(t *testing.T) {
	m := dsl.Manifest{Contributors: []dsl.Entry{{Capability: "nope"}}}
	eng, err := sluice.New()
	require.NoError(t, err)

	err = m.Apply(context.Background(), eng, newRegistry())
	var cerr *domain.ContributorConstructionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "nope", cerr.Capability)
	assert.True(t, errors.Is(err, domain.ErrCapabilityNotFound))
}

func TestManifest_BadOptions(t *testing.T) {
	m := dsl.Manifest{Contributors: []dsl.Entry{{
		Capability: contrib.CapabilityAPIKey,
		Options:    map[string]any{"keys": []string{"k"}, "colour": "blue"},
	}}}
	eng, err := sluice.New()
	require.NoError(t, err)

	err = m.Apply(context.Background(), eng, newRegistry())
	var cerr *domain.ContributorConstructionError
	assert.ErrorAs(t, err, &cerr)
}

func TestManifest_ExtraConstraintCycle(t *testing.T) {
	m, err := dsl.New("cyclic").
		Add("request.id").Before("begin").
		Build()
	require.NoError(t, err)

	eng, err := sluice.New()
	require.NoError(t, err)
	require.NoError(t, m.Apply(context.Background(), eng, newRegistry()))

	_, err = eng.Finalize()
	var cycle *domain.CyclicOrderingError
	assert.ErrorAs(t, err, &cycle)
}

func TestManifest_Validate(t *testing.T) {
	m := dsl.Manifest{
		Stages:       []string{"a", ""},
		Contributors: []dsl.Entry{{Capability: "x"}, {Capability: "x"}, {}},
	}
	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listed twice")
	assert.Contains(t, err.Error(), "capability is required")
	assert.Contains(t, err.Error(), "empty stage")
}

func TestManifest_MergeAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(ordersManifest), 0o644))

	loaded, err := dsl.LoadFile(path)
	require.NoError(t, err)

	base := dsl.Manifest{Name: "base", RenderAfter: "operation_execution", Contributors: []dsl.Entry{{Capability: "first"}}}
	merged := base.Merge(loaded)
	assert.Equal(t, "orders", merged.Name)
	assert.Equal(t, "operation_execution", merged.RenderAfter)
	assert.Equal(t, "first", merged.Capabilities()[0])
	assert.Len(t, merged.Contributors, 6)
	assert.Len(t, base.Contributors, 1)
}

func TestBuilder(t *testing.T) {
	m, err := dsl.New("demo").
		RenderAfter("operation_execution").
		Add("auth.apikey").Option("keys", []string{"secret"}).During("authentication").
		Add("render.json").After("resources.execute").
		Add("auth.apikey").Option("header", "X-Key").
		Build()
	require.NoError(t, err)

	require.Len(t, m.Contributors, 2)
	assert.Equal(t, "X-Key", m.Contributors[0].Options["header"])
	assert.Equal(t, "authentication", m.Contributors[0].During)
	assert.Equal(t, []string{"resources.execute"}, m.Contributors[1].After)
	assert.Len(t, m.EngineOptions(), 2)
}
