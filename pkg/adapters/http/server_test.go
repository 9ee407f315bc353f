package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/missive/internal/runtime"
	"github.com/aretw0/missive/internal/testutils"
	"github.com/aretw0/missive/pkg/adapters/memory"
	"github.com/aretw0/missive/pkg/domain"
	"github.com/aretw0/missive/pkg/runner"
	"github.com/aretw0/missive/pkg/session"
	"github.com/aretw0/missive/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	exchanged map[string]string
	err       error
}

func (f *fakeAuth) AuthURL(state string) string {
	return "https://accounts.example.com/consent?state=" + state
}

func (f *fakeAuth) Exchange(ctx context.Context, sessionID, code string) error {
	if f.err != nil {
		return f.err
	}
	f.exchanged[sessionID] = code
	return nil
}

func (f *fakeAuth) Connected(ctx context.Context, sessionID string) (bool, error) {
	_, ok := f.exchanged[sessionID]
	return ok, nil
}

func newTestHandler(t *testing.T, opts ...Option) (http.Handler, *memory.Store) {
	t.Helper()
	reg, err := tools.NewRegistry(tools.Deps{})
	require.NoError(t, err)
	engine := runtime.NewEngine(&testutils.ScriptedGateway{Steps: []testutils.GatewayStep{testutils.Reply("Hello there")}, Repeat: true}, reg)
	store := memory.NewStore()
	return NewHandler(session.NewManager(store, engine), opts...), store
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestGetStatus(t *testing.T) {
	h, _ := newTestHandler(t)

	w := do(t, h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "Email Drafting Agent is running"}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPostMessage(t *testing.T) {
	h, store := newTestHandler(t)

	w := do(t, h, http.MethodPost, "/sessions/abc/messages", `{"text": "hi"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp runner.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "abc", resp.SessionID)
	assert.Equal(t, "Hello there", resp.Reply)
	assert.Len(t, resp.Messages, 2)

	conv, err := store.Load(context.Background(), "abc")
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 2)

	w = do(t, h, http.MethodGet, "/sessions/abc", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got domain.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "abc", got.SessionID)
}

func TestPostMessage_BadRequests(t *testing.T) {
	h, _ := newTestHandler(t)

	tests := map[string]string{
		"malformed json": `{"text":`,
		"missing text":   `{}`,
		"only controls":  `{"text": "\u0000\u0007"}`,
		"blank text":     `{"text": "   "}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/sessions/abc/messages", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "detail")
		})
	}
}

func TestSessionsLifecycle(t *testing.T) {
	h, _ := newTestHandler(t)

	w := do(t, h, http.MethodPost, "/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	var created domain.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.SessionID)

	w = do(t, h, http.MethodGet, "/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.SessionID)

	w = do(t, h, http.MethodDelete, "/sessions/"+created.SessionID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodGet, "/sessions/"+created.SessionID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodGet, "/sessions", "")
	assert.JSONEq(t, `{"sessions": []}`, w.Body.String())
}

func TestDraftEmail(t *testing.T) {
	t.Run("valid reply", func(t *testing.T) {
		h, _ := newTestHandler(t, WithDrafter(testutils.StaticCompleter(`{"subject": "Lunch", "body": "Free on Friday?"}`)))
		w := do(t, h, http.MethodPost, "/draft_email", `{"prompt": "invite Ana to lunch"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"subject": "Lunch", "body": "Free on Friday?"}`, w.Body.String())
	})

	t.Run("malformed reply", func(t *testing.T) {
		h, _ := newTestHandler(t, WithDrafter(testutils.StaticCompleter("Sure! Here is your email")))
		w := do(t, h, http.MethodPost, "/draft_email", `{"prompt": "invite Ana to lunch"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "detail")
	})

	t.Run("missing prompt", func(t *testing.T) {
		h, _ := newTestHandler(t, WithDrafter(testutils.StaticCompleter("{}")))
		w := do(t, h, http.MethodPost, "/draft_email", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("disabled without drafter", func(t *testing.T) {
		h, _ := newTestHandler(t)
		w := do(t, h, http.MethodPost, "/draft_email", `{"prompt": "x"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAuthFlow(t *testing.T) {
	auth := &fakeAuth{exchanged: map[string]string{}}
	h, _ := newTestHandler(t, WithAuthenticator(auth))

	w := do(t, h, http.MethodGet, "/auth/url", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodGet, "/auth/url?session_id=s1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"url": "https://accounts.example.com/consent?state=s1", "connected": false}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/auth/callback?code=xyz&state=s1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "xyz", auth.exchanged["s1"])

	w = do(t, h, http.MethodGet, "/auth/url?session_id=s1", "")
	assert.Contains(t, w.Body.String(), `"connected":true`)

	w = do(t, h, http.MethodGet, "/auth/callback?error=access_denied", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	auth.err = errors.New("invalid_grant")
	w = do(t, h, http.MethodGet, "/auth/callback?code=bad&state=s2", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestGetGraph(t *testing.T) {
	nodes := []domain.Node{
		{ID: "agent", Type: "agent"},
		{ID: "end", Type: "end"},
	}
	h, _ := newTestHandler(t, WithTopology(func() []domain.Node { return nodes }))

	w := do(t, h, http.MethodGet, "/graph", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "graph TD")

	w = do(t, h, http.MethodGet, "/graph?session_id=missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsMounted(t *testing.T) {
	h, _ := newTestHandler(t, WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("missive_turns_total 1\n"))
	})))

	w := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "missive_turns_total")
}

func TestSubscribeEvents_Session(t *testing.T) {
	h, _ := newTestHandler(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sessions/live/events", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readData := func() string {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "data: ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "data: "))
			}
		}
	}
	assert.Equal(t, "connected", readData())

	post, err := http.Post(srv.URL+"/sessions/live/messages", "application/json", strings.NewReader(`{"text": "hi"}`))
	require.NoError(t, err)
	post.Body.Close()
	require.Equal(t, http.StatusOK, post.StatusCode)

	var diff domain.ConversationDiff
	require.NoError(t, json.Unmarshal([]byte(readData()), &diff))
	assert.Equal(t, "live", diff.SessionID)
	require.Len(t, diff.Appended, 2)
	assert.Equal(t, "hi", diff.Appended[0].Content)
	assert.Equal(t, "Hello there", diff.Appended[1].Content)
}

func TestStreamManager_DropsWhenFull(t *testing.T) {
	sm := NewStreamManager()
	ch, cancel := sm.Subscribe("s")
	for i := 0; i < 20; i++ {
		sm.Broadcast("s", "m")
	}
	assert.Len(t, ch, 10)
	assert.Equal(t, 1, sm.Subscribers("s"))

	cancel()
	cancel()
	assert.Equal(t, 0, sm.Subscribers("s"))
}
