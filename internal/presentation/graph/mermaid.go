package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/missive/pkg/domain"
)

// Overlay marks the nodes a turn went through.
type Overlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid renders the orchestrator topology as a Mermaid flowchart.
// Shapes follow the node type: agent (rounded), route {diamond},
// tools [[subroutine]], specialized {{hexagon}}, end ((circle)).
func GenerateMermaid(nodes []domain.Node, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range nodes {
		safeID := sanitizeMermaidID(node.ID)
		opener, closer := shape(node.Type)

		label := node.ID
		if len(node.Tools) > 0 && node.Type == domain.NodeTypeSpecialized {
			label += "<br/>" + strings.Join(node.Tools, ", ")
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)

		for _, t := range node.Transitions {
			safeTo := sanitizeMermaidID(t.ToNodeID)
			if t.Condition == "" {
				fmt.Fprintf(&sb, "    %s --> %s\n", safeID, safeTo)
				continue
			}
			cond := strings.ReplaceAll(t.Condition, "\"", "'")
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", safeID, cond, safeTo)
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if safeID != "" && !seen[safeID] {
				seen[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

func shape(nodeType string) (string, string) {
	switch nodeType {
	case domain.NodeTypeAgent:
		return "(", ")"
	case domain.NodeTypeRoute:
		return "{", "}"
	case domain.NodeTypeTools:
		return "[[", "]]"
	case domain.NodeTypeSpecialized:
		return "{{", "}}"
	case domain.NodeTypeEnd:
		return "((", "))"
	}
	return "[", "]"
}

// LastTurnOverlay reconstructs the path of the most recent turn in msgs:
// the messages after the last user message.
func LastTurnOverlay(nodes []domain.Node, msgs []domain.Message) *Overlay {
	_, turn, ok := domain.LastTurn(msgs)
	if !ok {
		return nil
	}

	byType := make(map[string]string)
	for _, n := range nodes {
		if _, ok := byType[n.Type]; !ok {
			byType[n.Type] = n.ID
		}
	}

	// Tool results answering the call a confirmation intercepted come from
	// the specialized node, not from the tools node.
	confirmedCall := -1
	if n := len(turn); n > 0 && turn[n-1].Confirmation != nil {
		for i := n - 2; i >= 0; i-- {
			if turn[i].HasToolCalls() {
				confirmedCall = i
				break
			}
		}
	}

	var visited []string
	for i, m := range turn {
		switch {
		case m.Confirmation != nil:
			visited = append(visited, byType[domain.NodeTypeSpecialized])
		case m.Role == domain.RoleAssistant:
			visited = append(visited, byType[domain.NodeTypeAgent], byType[domain.NodeTypeRoute])
		case m.Role == domain.RoleTool && (confirmedCall < 0 || i < confirmedCall):
			visited = append(visited, byType[domain.NodeTypeTools])
		}
	}
	end := byType[domain.NodeTypeEnd]
	return &Overlay{VisitedNodes: append(visited, end), CurrentNode: end}
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_").Replace(id)
}
