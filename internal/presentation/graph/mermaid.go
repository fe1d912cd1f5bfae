// Package graph renders a finalized step list as a diagram.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/sluice/pkg/domain"
)

// Overlay carries run state to highlight on a diagram.
type Overlay struct {
	Visited []domain.Identity
	Current domain.Identity
}

// OverlayFor builds an overlay from a run: executed contributors are visited,
// the step at Index is current.
func OverlayFor(steps []domain.StepInfo, run *domain.RunState) *Overlay {
	if run == nil {
		return nil
	}
	o := &Overlay{Visited: run.Trace}
	if run.Index >= 0 && run.Index < len(steps) {
		o.Current = steps[run.Index].ID
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of the step order.
// Stage markers are drawn as stadiums, contributors as rectangles.
func GenerateMermaid(steps []domain.StepInfo, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for i, step := range steps {
		safeID := sanitizeMermaidID(step.ID)

		opener, closer := "[", "]"
		if step.Stage {
			opener, closer = "([", "])"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%d. %s\"%s\n", safeID, opener, step.Position, step.ID, closer))

		if i > 0 {
			prev := sanitizeMermaidID(steps[i-1].ID)
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", prev, safeID))
		}
	}

	if len(steps) > 0 {
		sb.WriteString("\n    classDef stage fill:#ede9fe,stroke:#6d28d9,color:#000;\n")
		for _, step := range steps {
			if step.Stage {
				sb.WriteString(fmt.Sprintf("    class %s stage;\n", sanitizeMermaidID(step.ID)))
			}
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on light fills in both themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.Visited {
			safeID := sanitizeMermaidID(id)
			if !seen[safeID] && safeID != "" {
				seen[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}
		if overlay.Current != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.Current)))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id domain.Identity) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(string(id))
}
