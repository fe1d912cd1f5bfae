package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/sluice/pkg/domain"
)

// GenerateMarkdown produces a table of the step order, one row per position.
func GenerateMarkdown(title string, steps []domain.StepInfo, overlay *Overlay) string {
	var sb strings.Builder
	if title != "" {
		sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	}
	sb.WriteString("| # | Step | Kind | State |\n")
	sb.WriteString("|---|------|------|-------|\n")

	visited := make(map[domain.Identity]bool)
	if overlay != nil {
		for _, id := range overlay.Visited {
			visited[id] = true
		}
	}
	for _, step := range steps {
		kind := "contributor"
		if step.Stage {
			kind = "stage"
		}
		state := ""
		switch {
		case overlay != nil && step.ID == overlay.Current:
			state = "next"
		case visited[step.ID]:
			state = "done"
		}
		sb.WriteString(fmt.Sprintf("| %d | `%s` | %s | %s |\n", step.Position, step.ID, kind, state))
	}
	return sb.String()
}
