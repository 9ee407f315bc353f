package runtime_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/missive/internal/runtime"
	"github.com/aretw0/missive/internal/testutils"
	"github.com/aretw0/missive/pkg/domain"
	"github.com/aretw0/missive/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunTurn_EmptyPrefix(t *testing.T) {
	f := newFixture(t, testutils.NewScriptedGateway())
	_, err := f.engine.RunTurn(context.Background(), nil, f.env)
	assert.ErrorIs(t, err, domain.ErrEmptyConversation)
	assert.Zero(t, f.gateway.CallCount())
}

func TestRunTurn_PlainReply(t *testing.T) {
	f := newFixture(t, testutils.NewScriptedGateway(testutils.Reply("Hello! How can I help?")))
	prefix := []domain.Message{domain.UserMessage("hi")}

	out := f.run(t, prefix...)

	require.Len(t, out, 2)
	assert.Equal(t, domain.RoleAssistant, out[1].Role)
	assert.Equal(t, "Hello! How can I help?", out[1].Content)
	assert.Empty(t, out[1].Failure)
}

func TestRunTurn_CreateEventScenario(t *testing.T) {
	f := newFixture(t, testutils.NewScriptedGateway(
		testutils.Call("c1", tools.CreateCalendarEvent, map[string]any{
			"title":     "Kickoff",
			"start":     "2025-03-11T10:00:00Z",
			"end":       "2025-03-11T11:00:00Z",
			"attendees": []any{"a@b.com"},
		}),
		testutils.Reply("Done! Your Kickoff meeting is booked."),
	))
	prefix := []domain.Message{domain.UserMessage("Create a meeting titled Kickoff tomorrow 10am to 11am with a@b.com")}

	out := f.run(t, prefix...)

	require.Len(t, out, 4, "assistant-with-call, tool result, terminal reply")
	assert.True(t, out[1].HasToolCalls())
	assert.Equal(t, domain.RoleTool, out[2].Role)
	assert.Equal(t, "c1", out[2].ToolCallID)
	assert.Equal(t, "Event created: https://calendar.example.com/event/evt-1", out[2].Content)
	assert.False(t, out[2].IsError)
	assert.True(t, out[3].IsTerminal())

	require.Len(t, f.calendar.Created, 1)
	assert.Equal(t, []string{"a@b.com"}, f.calendar.Created[0].Attendees)

	// The model saw the tool result before answering.
	require.Equal(t, 2, f.gateway.CallCount())
	assert.Len(t, f.gateway.Histories[1], 3)
}

func TestRunTurn_DoesNotMutatePrefix(t *testing.T) {
	f := newFixture(t, testutils.NewScriptedGateway(
		testutils.Call("c1", "noop", map[string]any{"note": "x"}),
		testutils.Reply("done"),
	))
	prefix := make([]domain.Message, 1, 10)
	prefix[0] = domain.UserMessage("go")
	snapshot := domain.CloneMessages(prefix)

	out := f.run(t, prefix...)
	out[0].Content = "changed"

	assert.Equal(t, snapshot, prefix)
	assert.Equal(t, "go", prefix[0].Content)
	assert.Equal(t, domain.Message{}, prefix[:2][1], "backing array of the prefix is untouched")
}

func TestRunTurn_SequentialBatch(t *testing.T) {
	var order []string
	f := newFixture(t, testutils.NewScriptedGateway(
		testutils.Calls(
			domain.ToolCallRequest{ID: "a", Name: "noop", Arguments: map[string]any{"note": "first"}},
			domain.ToolCallRequest{ID: "b", Name: tools.SearchMail, Arguments: map[string]any{"query": "x"}},
		),
		testutils.Reply("done"),
	), runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnToolCall: func(ctx context.Context, e *domain.ToolEvent) { order = append(order, e.CallID) },
	}))

	out := f.run(t, domain.UserMessage("go"))

	require.Len(t, out, 5)
	assert.Equal(t, "a", out[2].ToolCallID)
	assert.Equal(t, "b", out[3].ToolCallID)
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestRunTurn_AssignsMissingAndDuplicateCallIDs(t *testing.T) {
	ids := []string{"gen-1", "gen-2", "gen-3"}
	next := 0
	f := newFixture(t, testutils.NewScriptedGateway(
		testutils.Calls(
			domain.ToolCallRequest{ID: "dup", Name: "noop"},
			domain.ToolCallRequest{ID: "dup", Name: "noop"},
		),
		testutils.Reply("done"),
	), runtime.WithIDGenerator(func() string { next++; return ids[next-1] }))

	prior := domain.AssistantMessage("", domain.ToolCallRequest{ID: "old", Name: "noop"})
	out := f.run(t,
		domain.UserMessage("earlier"),
		prior,
		domain.ToolResultMessage(prior.ToolCalls[0], "ok", false),
		domain.AssistantMessage("done"),
		domain.UserMessage("again"),
	)

	calls := out[5].ToolCalls
	require.Len(t, calls, 2)
	assert.Equal(t, "dup", calls[0].ID)
	assert.Equal(t, "gen-1", calls[1].ID)
}

func TestRunTurn_InferenceFailure(t *testing.T) {
	f := newFixture(t, testutils.NewScriptedGateway(testutils.Fail(errors.New("503 from upstream"))))

	out := f.run(t, domain.UserMessage("hi"))

	require.Len(t, out, 2)
	assert.Equal(t, domain.FailureInference, last(out).Failure)
	assert.True(t, last(out).IsTerminal())
	assert.Equal(t, 1, f.gateway.CallCount(), "no automatic retry")
}

func TestRunTurn_TurnBudgetExceeded(t *testing.T) {
	gateway := testutils.NewScriptedGateway(testutils.Call("", "noop", nil))
	gateway.Repeat = true
	f := newFixture(t, gateway, runtime.WithMaxSteps(3))

	done := make(chan []domain.Message, 1)
	go func() {
		out, _ := f.engine.RunTurn(context.Background(), []domain.Message{domain.UserMessage("loop")}, f.env)
		done <- out
	}()

	select {
	case out := <-done:
		require.NoError(t, domain.Verify(out))
		assert.Equal(t, domain.FailureTurnBudget, last(out).Failure)
		assert.Equal(t, 3, gateway.CallCount())
		assert.Equal(t, 3, f.noopCalls)
		// user + 3 x (call, result) + failure
		assert.Len(t, out, 8)
	case <-time.After(2 * time.Second):
		t.Fatal("turn did not terminate")
	}
}

func TestRunTurn_DefaultBudget(t *testing.T) {
	gateway := testutils.NewScriptedGateway(testutils.Call("", "noop", nil))
	gateway.Repeat = true
	f := newFixture(t, gateway)

	out := f.run(t, domain.UserMessage("loop"))
	assert.Equal(t, domain.FailureTurnBudget, last(out).Failure)
	assert.Equal(t, runtime.DefaultMaxSteps, gateway.CallCount())
}

func TestRunTurn_Timeout(t *testing.T) {
	t.Run("Slow model", func(t *testing.T) {
		f := newFixture(t, testutils.NewScriptedGateway(
			testutils.GatewayStep{Message: domain.AssistantMessage("late"), Delay: 5 * time.Second},
		), runtime.WithTurnTimeout(50*time.Millisecond))

		start := time.Now()
		out := f.run(t, domain.UserMessage("hi"))

		assert.Less(t, time.Since(start), 2*time.Second)
		require.Len(t, out, 2)
		assert.Equal(t, domain.FailureTurnTimeout, last(out).Failure)
	})

	t.Run("Completed results are kept", func(t *testing.T) {
		f := newFixture(t, testutils.NewScriptedGateway(
			testutils.Calls(
				domain.ToolCallRequest{ID: "send", Name: tools.SearchMail, Arguments: map[string]any{"query": "x"}},
				domain.ToolCallRequest{ID: "slow", Name: "slow"},
				domain.ToolCallRequest{ID: "after", Name: "noop"},
			),
		), runtime.WithTurnTimeout(100*time.Millisecond))

		out := f.run(t, domain.UserMessage("go"))

		require.Len(t, out, 6)
		assert.False(t, out[2].IsError, "completed call is recorded as it happened")
		assert.Equal(t, "slow", out[3].ToolCallID)
		assert.True(t, out[3].IsError)
		assert.Equal(t, "after", out[4].ToolCallID)
		assert.Contains(t, out[4].Content, "Not executed")
		assert.Equal(t, domain.FailureTurnTimeout, last(out).Failure)
		assert.Zero(t, f.noopCalls)
	})

	t.Run("Tool ignoring cancellation", func(t *testing.T) {
		f := newFixture(t, testutils.NewScriptedGateway(
			testutils.Call("s", "stuck", nil),
		), runtime.WithTurnTimeout(50*time.Millisecond))

		start := time.Now()
		out := f.run(t, domain.UserMessage("go"))

		assert.Less(t, time.Since(start), 2*time.Second)
		assert.Contains(t, out[2].Content, "outcome is unknown")
		assert.Equal(t, domain.FailureTurnTimeout, last(out).Failure)
	})

	t.Run("Caller deadline", func(t *testing.T) {
		f := newFixture(t, testutils.NewScriptedGateway(
			testutils.GatewayStep{Message: domain.AssistantMessage("late"), Delay: 5 * time.Second},
		))
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		out, err := f.engine.RunTurn(ctx, []domain.Message{domain.UserMessage("hi")}, f.env)
		require.NoError(t, err)
		assert.Equal(t, domain.FailureTurnTimeout, last(out).Failure)
	})
}

func TestRunTurn_ConcurrentSessions(t *testing.T) {
	gateway := testutils.NewScriptedGateway(testutils.Reply("hi"))
	gateway.Repeat = true
	f := newFixture(t, gateway)

	const sessions = 16
	errs := make(chan error, sessions)
	for i := 0; i < sessions; i++ {
		go func() {
			out, err := f.engine.RunTurn(context.Background(), []domain.Message{domain.UserMessage("hello")}, tools.Environment{})
			if err == nil && len(out) != 2 {
				err = errors.New("unexpected length")
			}
			errs <- err
		}()
	}
	for i := 0; i < sessions; i++ {
		assert.NoError(t, <-errs)
	}
}

func TestRunTurn_LifecycleHooks(t *testing.T) {
	var (
		nodes   []string
		returns []*domain.ToolEvent
		end     *domain.TurnEvent
	)
	hooks := domain.LifecycleHooks{
		OnNodeEnter:  func(ctx context.Context, e *domain.NodeEvent) { nodes = append(nodes, e.NodeID) },
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) { returns = append(returns, e) },
		OnTurnEnd:    func(ctx context.Context, e *domain.TurnEvent) { end = e },
	}
	f := newFixture(t, testutils.NewScriptedGateway(
		testutils.Call("c1", "noop", nil),
		testutils.Reply("done"),
	), runtime.WithLifecycleHooks(hooks))

	ctx := domain.ContextWithSessionID(context.Background(), "s-1")
	_, err := f.engine.RunTurn(ctx, []domain.Message{domain.UserMessage("go")}, f.env)
	require.NoError(t, err)

	assert.Equal(t, []string{"agent", "tools", "agent"}, nodes)
	require.Len(t, returns, 1)
	assert.Equal(t, "ok", returns[0].Output)
	assert.Equal(t, "s-1", returns[0].SessionID)
	require.NotNil(t, end)
	assert.Equal(t, 3, end.Appended)
	assert.Equal(t, 2, end.Steps)
	assert.Empty(t, end.Failure)
}
