package graph_test

import (
	"strings"
	"testing"

	"github.com/awalterschulze/gographviz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sluice/internal/presentation/graph"
	"github.com/aretw0/sluice/pkg/domain"
)

var steps = []domain.StepInfo{
	{Position: 0, ID: domain.StageBegin, Stage: true},
	{Position: 1, ID: "auth.check"},
	{Position: 2, ID: domain.StageURIMatching, Stage: true},
	{Position: 3, ID: "resources.match"},
}

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		overlay  *graph.Overlay
		contains []string
	}{
		{
			name: "Shapes",
			contains: []string{
				`begin(["0. begin"])`,
				`auth_check["1. auth.check"]`,
				"class uri_matching stage;",
			},
		},
		{
			name: "Chain",
			contains: []string{
				"begin --> auth_check",
				"uri_matching --> resources_match",
			},
		},
		{
			name:    "Overlay",
			overlay: &graph.Overlay{Visited: []domain.Identity{"auth.check", "auth.check"}, Current: "resources.match"},
			contains: []string{
				"class auth_check visited;",
				"class resources_match current;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(steps, tt.overlay)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			if tt.overlay != nil {
				assert.Equal(t, 1, strings.Count(got, "class auth_check visited;"))
			}
		})
	}
}

func TestOverlayFor(t *testing.T) {
	run := domain.NewRunState()
	run.Index = 3
	run.Trace = []domain.Identity{"auth.check"}

	o := graph.OverlayFor(steps, run)
	require.NotNil(t, o)
	assert.Equal(t, domain.Identity("resources.match"), o.Current)

	run.Index = len(steps)
	assert.Empty(t, graph.OverlayFor(steps, run).Current)
	assert.Nil(t, graph.OverlayFor(steps, nil))
}

func TestGenerateDOT_ParsesBack(t *testing.T) {
	out, err := graph.GenerateDOT("orders", steps, &graph.Overlay{Current: "auth.check"})
	require.NoError(t, err)

	ast, err := gographviz.ParseString(out)
	require.NoError(t, err)
	g := gographviz.NewGraph()
	require.NoError(t, gographviz.Analyse(ast, g))

	assert.True(t, g.Directed)
	assert.Len(t, g.Nodes.Nodes, len(steps))
	assert.Len(t, g.Edges.Edges, len(steps)-1)

	node := g.Nodes.Lookup[`"auth.check"`]
	require.NotNil(t, node)
	assert.Equal(t, `"#ffeb3b"`, node.Attrs["fillcolor"])
}

func TestGenerateMarkdown(t *testing.T) {
	got := graph.GenerateMarkdown("Order", steps, &graph.Overlay{
		Visited: []domain.Identity{"auth.check"},
		Current: "resources.match",
	})
	assert.Contains(t, got, "# Order")
	assert.Contains(t, got, "| 0 | `begin` | stage |  |")
	assert.Contains(t, got, "| 1 | `auth.check` | contributor | done |")
	assert.Contains(t, got, "| 3 | `resources.match` | contributor | next |")
}
