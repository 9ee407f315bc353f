package runtime

import (
	"sort"

	"github.com/aretw0/missive/pkg/domain"
)

// Inspect returns the static topology of the state machine.
func (e *Engine) Inspect() []domain.Node {
	nodes := []domain.Node{
		{
			ID:          agentNodeID,
			Type:        domain.NodeTypeAgent,
			Description: "Ask the model for the next assistant message",
			Transitions: []domain.Transition{{ToNodeID: routeNodeID}},
		},
	}

	route := domain.Node{
		ID:          routeNodeID,
		Type:        domain.NodeTypeRoute,
		Description: "Pick the next edge from the latest message",
	}

	byNode := make(map[string][]string)
	for tool, node := range e.specialized {
		byNode[node.ID()] = append(byNode[node.ID()], tool)
	}
	ids := make([]string, 0, len(byNode))
	for id := range byNode {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var specialized []domain.Node
	for _, id := range ids {
		reserved := byNode[id]
		sort.Strings(reserved)
		route.Transitions = append(route.Transitions, domain.Transition{ToNodeID: id, Condition: "first call is reserved"})
		specialized = append(specialized, domain.Node{
			ID:          id,
			Type:        domain.NodeTypeSpecialized,
			Description: "Preview the request and ask the user to confirm",
			Tools:       reserved,
			Transitions: []domain.Transition{{ToNodeID: endNodeID}},
		})
	}
	route.Transitions = append(route.Transitions,
		domain.Transition{ToNodeID: toolsNodeID, Condition: "tool calls present"},
		domain.Transition{ToNodeID: endNodeID, Condition: "no tool calls"},
	)

	nodes = append(nodes, route)
	nodes = append(nodes, domain.Node{
		ID:          toolsNodeID,
		Type:        domain.NodeTypeTools,
		Description: "Execute the requested tools in order",
		Tools:       e.registry.Names(),
		Transitions: []domain.Transition{
			{ToNodeID: agentNodeID},
			{ToNodeID: endNodeID, Condition: "batch halted"},
		},
	})
	nodes = append(nodes, specialized...)
	nodes = append(nodes, domain.Node{
		ID:          endNodeID,
		Type:        domain.NodeTypeEnd,
		Description: "Return the extended conversation",
	})
	return nodes
}
