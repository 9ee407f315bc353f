package domain

// Transition defines an edge of the orchestrator topology.
type Transition struct {
	ToNodeID string `json:"to_node_id" yaml:"to,omitempty"`

	// Condition is a human-readable guard, e.g. "tool calls present".
	// If empty, it's considered an "always" transition (default).
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
}
