package mcp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sluice"
	"github.com/aretw0/sluice/pkg/adapters/memory"
	sluicemcp "github.com/aretw0/sluice/pkg/adapters/mcp"
	"github.com/aretw0/sluice/pkg/contrib"
	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/session"
)

func newClient(t *testing.T) *client.Client {
	t.Helper()
	eng, err := sluice.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	res := contrib.NewResources()
	require.NoError(t, res.Handle("GET", "/orders/{id}", func(cc *domain.CommunicationContext) (*domain.OperationResult, error) {
		return &domain.OperationResult{StatusCode: http.StatusOK, Entity: map[string]string{"id": cc.Data.Params["id"]}}, nil
	}))
	require.NoError(t, eng.Register(res, &contrib.JSONRenderer{}))

	srv := sluicemcp.NewServer(eng, session.NewManager(memory.NewStore()))

	c, err := client.NewInProcessClient(srv.MCPServer())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	init := mcp.InitializeRequest{}
	init.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	init.Params.ClientInfo = mcp.Implementation{Name: "test", Version: "0"}
	_, err = c.Initialize(ctx, init)
	require.NoError(t, err)
	return c
}

func call(t *testing.T, c *client.Client, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := c.CallTool(context.Background(), req)
	require.NoError(t, err)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func TestServer_ListsTools(t *testing.T) {
	c := newClient(t)
	tools, err := c.ListTools(context.Background(), mcp.ListToolsRequest{})
	require.NoError(t, err)

	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"get_order", "start_run", "resume_run", "list_runs", "inspect_run"}, names)
}

func TestServer_GetOrder(t *testing.T) {
	c := newClient(t)
	res := call(t, c, "get_order", nil)
	assert.False(t, res.IsError)

	var steps []domain.StepInfo
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &steps))
	assert.Equal(t, domain.StageBegin, steps[0].ID)
}

func TestServer_OrderResource(t *testing.T) {
	c := newClient(t)
	req := mcp.ReadResourceRequest{}
	req.Params.URI = sluicemcp.OrderURI
	res, err := c.ReadResource(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)

	tc, ok := res.Contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Contains(t, tc.Text, `"resources.match"`)
}

func TestServer_StartInspectResume(t *testing.T) {
	c := newClient(t)

	res := call(t, c, "start_run", map[string]any{"path": "/orders/3", "suspend_after": "uri_matching"})
	require.False(t, res.IsError, text(t, res))
	var started sluicemcp.RunResult
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &started))
	assert.Equal(t, domain.OutcomeSuspended, started.Outcome)
	assert.True(t, started.Parked)

	var ids []string
	require.NoError(t, json.Unmarshal([]byte(text(t, call(t, c, "list_runs", nil))), &ids))
	assert.Equal(t, []string{started.ID}, ids)

	inspect := call(t, c, "inspect_run", map[string]any{"run_id": started.ID})
	assert.Contains(t, text(t, inspect), `"/orders/3"`)

	res = call(t, c, "resume_run", map[string]any{"run_id": started.ID})
	var resumed sluicemcp.RunResult
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &resumed))
	assert.Equal(t, domain.OutcomeCompleted, resumed.Outcome)
	assert.Equal(t, http.StatusOK, resumed.Status)
	assert.JSONEq(t, `{"id":"3"}`, resumed.Body)
	assert.False(t, resumed.Parked)
}

func TestServer_Errors(t *testing.T) {
	c := newClient(t)

	res := call(t, c, "inspect_run", map[string]any{"run_id": "missing"})
	assert.True(t, res.IsError)

	res = call(t, c, "resume_run", map[string]any{"run_id": "missing"})
	assert.True(t, res.IsError)
}
