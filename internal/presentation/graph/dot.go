package graph

import (
	"fmt"
	"strconv"

	"github.com/awalterschulze/gographviz"

	"github.com/aretw0/sluice/pkg/domain"
)

// GenerateDOT produces a Graphviz digraph of the step order.
func GenerateDOT(name string, steps []domain.StepInfo, overlay *Overlay) (string, error) {
	if name == "" {
		name = "sluice"
	}
	g := gographviz.NewGraph()
	graphName := strconv.Quote(name)
	if err := g.SetName(graphName); err != nil {
		return "", err
	}
	if err := g.SetDir(true); err != nil {
		return "", err
	}
	if err := g.AddAttr(graphName, "rankdir", "TB"); err != nil {
		return "", err
	}

	visited := make(map[domain.Identity]bool)
	var current domain.Identity
	if overlay != nil {
		for _, id := range overlay.Visited {
			visited[id] = true
		}
		current = overlay.Current
	}

	for i, step := range steps {
		attrs := map[string]string{
			"label": strconv.Quote(fmt.Sprintf("%d. %s", step.Position, step.ID)),
			"shape": "box",
		}
		if step.Stage {
			attrs["shape"] = "cds"
			attrs["style"] = "filled"
			attrs["fillcolor"] = strconv.Quote("#ede9fe")
		}
		switch {
		case step.ID == current:
			attrs["style"] = "filled"
			attrs["fillcolor"] = strconv.Quote("#ffeb3b")
			attrs["penwidth"] = "3"
		case visited[step.ID]:
			attrs["style"] = "filled"
			attrs["fillcolor"] = strconv.Quote("#e1f5fe")
		}
		if err := g.AddNode(graphName, strconv.Quote(string(step.ID)), attrs); err != nil {
			return "", fmt.Errorf("add node %s: %w", step.ID, err)
		}
		if i > 0 {
			src := strconv.Quote(string(steps[i-1].ID))
			if err := g.AddEdge(src, strconv.Quote(string(step.ID)), true, nil); err != nil {
				return "", fmt.Errorf("add edge to %s: %w", step.ID, err)
			}
		}
	}
	return g.String(), nil
}
