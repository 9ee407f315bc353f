package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/missive/internal/presentation/graph"
	"github.com/aretw0/missive/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var topology = []domain.Node{
	{ID: "agent", Type: domain.NodeTypeAgent, Transitions: []domain.Transition{{ToNodeID: "route"}}},
	{ID: "route", Type: domain.NodeTypeRoute, Transitions: []domain.Transition{
		{ToNodeID: "confirm", Condition: "first call is reserved"},
		{ToNodeID: "tools", Condition: "tool calls present"},
		{ToNodeID: "end", Condition: `no "calls"`},
	}},
	{ID: "tools", Type: domain.NodeTypeTools, Transitions: []domain.Transition{{ToNodeID: "agent"}}},
	{ID: "confirm", Type: domain.NodeTypeSpecialized, Tools: []string{"send_email"}, Transitions: []domain.Transition{{ToNodeID: "end"}}},
	{ID: "end", Type: domain.NodeTypeEnd},
}

func TestGenerateMermaid(t *testing.T) {
	got := graph.GenerateMermaid(topology, nil)

	for _, want := range []string{
		"graph TD",
		`agent("agent")`,
		`route{"route"}`,
		`tools[["tools"]]`,
		`confirm{{"confirm<br/>send_email"}}`,
		`end(("end"))`,
		"agent --> route",
		`route -- "tool calls present" --> tools`,
		`route -- "no 'calls'" --> end`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
		}
	}
	assert.NotContains(t, got, "classDef")
}

func TestGenerateMermaid_SanitizesIDs(t *testing.T) {
	got := graph.GenerateMermaid([]domain.Node{{ID: "path/to-node.x"}}, nil)
	assert.Contains(t, got, `path_to_node_x["path/to-node.x"]`)
}

func TestLastTurnOverlay(t *testing.T) {
	call := domain.ToolCallRequest{ID: "c1", Name: "search_mail"}
	msgs := []domain.Message{
		domain.UserMessage("old"),
		domain.AssistantMessage("old reply"),
		domain.UserMessage("find invoices"),
		domain.AssistantMessage("", call),
		domain.ToolResultMessage(call, "[]", false),
		domain.AssistantMessage("none"),
	}

	overlay := graph.LastTurnOverlay(topology, msgs)
	require.NotNil(t, overlay)
	assert.Equal(t, []string{"agent", "route", "tools", "agent", "route", "end"}, overlay.VisitedNodes)
	assert.Equal(t, "end", overlay.CurrentNode)

	got := graph.GenerateMermaid(topology, overlay)
	assert.Contains(t, got, "class tools visited;")
	assert.Contains(t, got, "class end current;")
	assert.NotContains(t, got, "class confirm visited;")
}

func TestLastTurnOverlay_NoUserMessage(t *testing.T) {
	assert.Nil(t, graph.LastTurnOverlay(topology, nil))
}

func TestLastTurnOverlay_Confirmation(t *testing.T) {
	call := domain.ToolCallRequest{ID: "c1", Name: "send_email"}
	question := domain.AssistantMessage("Send it?")
	question.Confirmation = &domain.Confirmation{ID: "k1", Request: call}
	msgs := []domain.Message{
		domain.UserMessage("email ana"),
		domain.AssistantMessage("", call),
		domain.ToolResultMessage(call, "Pending confirmation k1", false),
		question,
	}

	overlay := graph.LastTurnOverlay(topology, msgs)
	require.NotNil(t, overlay)
	assert.Equal(t, []string{"agent", "route", "confirm", "end"}, overlay.VisitedNodes)
}
