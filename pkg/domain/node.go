package domain

// NodeType constants define the control flow behavior of the orchestrator.
const (
	// NodeTypeAgent asks the model for the next assistant message.
	NodeTypeAgent = "agent"
	// NodeTypeRoute is the pure routing decision evaluated after every agent step.
	NodeTypeRoute = "route"
	// NodeTypeTools executes a batch of tool calls through the generic invoker.
	NodeTypeTools = "tools"
	// NodeTypeSpecialized intercepts a reserved tool before any side effect.
	NodeTypeSpecialized = "specialized"
	// NodeTypeEnd terminates the turn.
	NodeTypeEnd = "end"
)

// Node represents a logical unit of the orchestrator graph.
// Nodes are static; they exist to make the state machine inspectable.
type Node struct {
	ID   string `json:"id" yaml:"id"`
	Type string `json:"type" yaml:"type"`

	// Description is a short human-readable summary of what the node does.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Tools lists the tool names a specialized node intercepts.
	Tools []string `json:"tools,omitempty" yaml:"tools,omitempty"`

	// Transitions defines the possible paths from this node.
	Transitions []Transition `json:"transitions" yaml:"transitions"`
}
