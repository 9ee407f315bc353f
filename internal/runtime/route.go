package runtime

import "github.com/aretw0/missive/pkg/domain"

// EdgeKind is the control-flow edge taken after an agent step.
type EdgeKind string

const (
	EdgeTools       EdgeKind = "tools"
	EdgeSpecialized EdgeKind = "specialized"
	EdgeEnd         EdgeKind = "end"
)

// Edge is a routing decision. Node is set for EdgeSpecialized.
type Edge struct {
	Kind EdgeKind
	Node string
}

// Router decides the next edge from the latest message.
// It is a pure function of its input and the static specialization table.
type Router struct {
	specialized map[string]string // tool name -> node ID
}

// NewRouter creates a Router reserving the given tool names for specialized nodes.
func NewRouter(specialized map[string]string) Router {
	table := make(map[string]string, len(specialized))
	for k, v := range specialized {
		table[k] = v
	}
	return Router{specialized: table}
}

// Route picks the edge for last:
//  1. an assistant message whose first call is reserved goes to its specialized node;
//  2. any other message with tool calls goes to the generic tools node;
//  3. everything else ends the turn.
func (r Router) Route(last domain.Message) Edge {
	if !last.HasToolCalls() {
		return Edge{Kind: EdgeEnd}
	}
	if node, ok := r.specialized[last.ToolCalls[0].Name]; ok {
		return Edge{Kind: EdgeSpecialized, Node: node}
	}
	return Edge{Kind: EdgeTools}
}

// IsSpecialized reports whether tool is reserved for a specialized node.
func (r Router) IsSpecialized(tool string) bool {
	_, ok := r.specialized[tool]
	return ok
}
