package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/missive/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, status int, reply string, captured *geminiRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		if captured != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.WriteHeader(status)
		fmt.Fprint(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(url string) *Client {
	c := New(Config{APIKey: "secret", Model: "test-model", BaseURL: url + "/"})
	n := 0
	c.newID = func() string { n++; return fmt.Sprintf("id-%d", n) }
	return c
}

func TestInfer_FunctionCalls(t *testing.T) {
	var got geminiRequest
	srv := newTestServer(t, http.StatusOK, `{"candidates":[{"content":{"role":"model","parts":[
		{"functionCall":{"name":"search_mail","args":{"query":"invoice"}}},
		{"functionCall":{"name":"list_upcoming_events","args":{}}}
	]},"finishReason":"STOP"}]}`, &got)

	call := domain.ToolCallRequest{ID: "old", Name: "draft_email", Arguments: map[string]any{"instruction": "hi"}}
	history := []domain.Message{
		domain.UserMessage("draft and search"),
		domain.AssistantMessage("", call),
		domain.ToolResultMessage(call, `{"subject":"Hi","body":"Hello"}`, false),
		domain.AssistantMessage("Drafted."),
		domain.UserMessage("now search"),
	}
	catalog := []domain.ToolSpec{
		{Name: "search_mail", Description: "Search", Parameters: map[string]any{"type": "object", "properties": map[string]any{"query": map[string]any{"type": "string"}}}},
		{Name: "ping", Description: "No args", Parameters: map[string]any{"type": "object", "properties": map[string]any{}}},
	}

	msg, err := newTestClient(srv.URL).Infer(context.Background(), history, catalog)
	require.NoError(t, err)

	assert.Equal(t, domain.RoleAssistant, msg.Role)
	require.Len(t, msg.ToolCalls, 2)
	assert.Equal(t, domain.ToolCallRequest{ID: "id-1", Name: "search_mail", Arguments: map[string]any{"query": "invoice"}}, msg.ToolCalls[0])
	assert.Equal(t, "id-2", msg.ToolCalls[1].ID)

	require.Len(t, got.Contents, 5)
	assert.Equal(t, "user", got.Contents[0].Role)
	assert.Equal(t, "model", got.Contents[1].Role)
	assert.Equal(t, "draft_email", got.Contents[1].Parts[0].FunctionCall.Name)
	assert.Equal(t, "user", got.Contents[2].Role)
	assert.Equal(t, "draft_email", got.Contents[2].Parts[0].FunctionResponse.Name)
	assert.Equal(t, map[string]any{"result": map[string]any{"subject": "Hi", "body": "Hello"}}, got.Contents[2].Parts[0].FunctionResponse.Response)
	assert.NotNil(t, got.SystemInstruction)

	require.Len(t, got.Tools, 1)
	decls := got.Tools[0].FunctionDeclarations
	require.Len(t, decls, 2)
	assert.Equal(t, "search_mail", decls[0].Name)
	assert.NotNil(t, decls[0].Parameters)
	assert.Nil(t, decls[1].Parameters)
}

func TestInfer_Text(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"Hello "},{"text":"there"}]}}]}`, nil)

	msg, err := newTestClient(srv.URL).Infer(context.Background(), []domain.Message{domain.UserMessage("hi")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello there", msg.Content)
	assert.False(t, msg.HasToolCalls())
}

func TestInfer_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusTooManyRequests, `{"error":{"code":429,"message":"quota"}}`},
		{"api error", http.StatusOK, `{"error":{"code":400,"status":"INVALID_ARGUMENT","message":"bad"}}`},
		{"no candidates", http.StatusOK, `{"candidates":[]}`},
		{"empty content", http.StatusOK, `{"candidates":[{"content":{"parts":[]},"finishReason":"SAFETY"}]}`},
		{"malformed", http.StatusOK, `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.status, tt.body, nil)
			_, err := newTestClient(srv.URL).Infer(context.Background(), []domain.Message{domain.UserMessage("hi")}, nil)
			var inference *domain.InferenceError
			assert.ErrorAs(t, err, &inference)
		})
	}
}

func TestComplete(t *testing.T) {
	var got geminiRequest
	srv := newTestServer(t, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"{\"subject\":\"x\"}"}]}}]}`, &got)

	out, err := newTestClient(srv.URL).Complete(context.Background(), "draft it")
	require.NoError(t, err)
	assert.Equal(t, `{"subject":"x"}`, out)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, "draft it", got.Contents[0].Parts[0].Text)
	assert.Empty(t, got.Tools)
}

func TestToContents_GroupsToolResults(t *testing.T) {
	a := domain.ToolCallRequest{ID: "a", Name: "search_mail"}
	b := domain.ToolCallRequest{ID: "b", Name: "list_upcoming_events"}
	contents := toContents([]domain.Message{
		domain.UserMessage("go"),
		domain.AssistantMessage("", a, b),
		domain.ToolResultMessage(a, "[]", false),
		domain.ToolResultMessage(b, "calendar unavailable", true),
	})

	require.Len(t, contents, 3)
	require.Len(t, contents[2].Parts, 2)
	assert.Equal(t, map[string]any{"error": "calendar unavailable"}, contents[2].Parts[1].FunctionResponse.Response)
}
