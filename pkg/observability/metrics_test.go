package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/missive/pkg/domain"
	"github.com/aretw0/missive/pkg/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	m := observability.NewMetrics(false)
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnNodeEnter(ctx, &domain.NodeEvent{NodeID: "agent"})
	hooks.OnNodeEnter(ctx, &domain.NodeEvent{NodeID: "agent"})
	hooks.OnToolReturn(ctx, &domain.ToolEvent{ToolName: "search_mail", Duration: 10 * time.Millisecond})
	hooks.OnToolReturn(ctx, &domain.ToolEvent{ToolName: "search_mail", IsError: true})
	hooks.OnTurnEnd(ctx, &domain.TurnEvent{Steps: 2, Duration: time.Second})
	hooks.OnTurnEnd(ctx, &domain.TurnEvent{Steps: 8, Failure: domain.FailureTurnBudget})

	reg := m.Registry()
	expected := `
# HELP missive_node_visits_total Total number of node visits.
# TYPE missive_node_visits_total counter
missive_node_visits_total{node_id="agent"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "missive_node_visits_total"))

	n, err := testutil.GatherAndCount(reg, "missive_tool_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "one series per outcome")

	n, err = testutil.GatherAndCount(reg, "missive_turns_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMetrics_Handler(t *testing.T) {
	m := observability.NewMetrics(true)
	m.Hooks().OnNodeEnter(context.Background(), &domain.NodeEvent{NodeID: "tools"})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `missive_node_visits_total{node_id="tools"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hooks := observability.LoggingHooks(logger)
	ctx := context.Background()

	hooks.OnToolCall(ctx, &domain.ToolEvent{ToolName: "draft_email", CallID: "c1"})
	hooks.OnTurnEnd(ctx, &domain.TurnEvent{EventBase: domain.EventBase{SessionID: "s1"}, Failure: domain.FailureTurnTimeout})

	out := buf.String()
	assert.Contains(t, out, "tool_call")
	assert.Contains(t, out, "tool_name=draft_email")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "session_id=s1")
}
