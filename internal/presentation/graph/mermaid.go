// Package graph renders the dialogue graph for humans.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/parley/pkg/domain"
)

// GraphOverlay contains session data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// OverlayFromSession builds an overlay from a session's history.
func OverlayFromSession(state *domain.SessionState) *GraphOverlay {
	if state == nil {
		return nil
	}
	return &GraphOverlay{
		VisitedNodes: state.History,
		CurrentNode:  state.CurrentNodeID,
	}
}

// GenerateMermaid produces a Mermaid flowchart from dialogue nodes.
// Shapes:
//   - Entry: ((Circle))
//   - Options dispatch: [/Parallelogram/]
//   - Dynamic lookup: {{Hexagon}}, with dotted edges to every node it may resolve to
//   - Terminal: ([Stadium])
//   - Default: [Rectangle]
func GenerateMermaid(nodes []domain.DialogueNode, entryID string, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range nodes {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch {
		case node.ID == entryID:
			opener, closer = "((", "))"
		case node.ResponseKind == domain.ResponseDynamicLookup:
			opener, closer = "{{", "}}"
		case node.Transition == domain.TransitionOptions:
			opener, closer = "[/", "/]"
		case node.IsTerminal():
			opener, closer = "([", "])"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, node.ID, closer)

		switch node.Transition {
		case domain.TransitionDirect:
			fmt.Fprintf(&sb, "    %s --> %s\n", safeID, sanitizeMermaidID(node.NextID))
		case domain.TransitionOptions:
			for _, key := range domain.SortedKeys(node.Options) {
				label := strings.ReplaceAll(key, "\"", "'")
				if domain.EndsScript(node.Options[key]) {
					fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s_end((\"end\"))\n", safeID, label, safeID)
					continue
				}
				fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", safeID, label, sanitizeMermaidID(node.Options[key]))
			}
		}

		if node.ResponseKind == domain.ResponseDynamicLookup {
			for _, candidate := range LookupCandidates(nodes, node.LookupPrefix) {
				fmt.Fprintf(&sb, "    %s -. \"$\" .-> %s\n", safeID, sanitizeMermaidID(candidate))
			}
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text for contrast on light fills regardless of theme.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visited := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if safeID != "" && !visited[safeID] {
				visited[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

// LookupCandidates lists the ids a dynamic lookup with the given prefix can resolve to.
func LookupCandidates(nodes []domain.DialogueNode, prefix string) []string {
	head := domain.CompositeKey(prefix, nil)
	var out []string
	for _, n := range nodes {
		if head != "" && strings.HasPrefix(n.ID, head) && len(n.ID) > len(head) {
			out = append(out, n.ID)
		}
	}
	return out
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(id)
}
