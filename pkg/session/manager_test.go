package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/missive/internal/runtime"
	"github.com/aretw0/missive/internal/testutils"
	"github.com/aretw0/missive/pkg/adapters/memory"
	"github.com/aretw0/missive/pkg/domain"
	"github.com/aretw0/missive/pkg/session"
	"github.com/aretw0/missive/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	*memory.Store
}

func (s SlowStore) Save(ctx context.Context, sessionID string, conv *domain.Conversation) error {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Save(ctx, sessionID, conv)
}

func (s SlowStore) Load(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Load(ctx, sessionID)
}

func newEngine(t *testing.T, gateway *testutils.ScriptedGateway, opts ...runtime.EngineOption) *runtime.Engine {
	t.Helper()
	reg, err := tools.NewRegistry(tools.Deps{Completer: testutils.StaticCompleter("summary")})
	require.NoError(t, err)
	return runtime.NewEngine(gateway, reg, opts...)
}

func TestManager_TurnPersistsUserAndReply(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	gateway := testutils.NewScriptedGateway(testutils.Reply("Hello!"), testutils.Reply("Still here."))
	mgr := session.NewManager(store, newEngine(t, gateway))

	res, err := mgr.Turn(ctx, "s1", "hi")
	require.NoError(t, err)
	require.Len(t, res.Appended, 2)
	assert.Equal(t, domain.RoleUser, res.Appended[0].Role)
	assert.Equal(t, "Hello!", res.Reply().Content)

	_, err = mgr.Turn(ctx, "s1", "ping")
	require.NoError(t, err)

	conv, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, conv.Messages, 4)
	assert.Equal(t, "Still here.", conv.Messages[3].Content)
	require.NoError(t, domain.Verify(conv.Messages))
}

func TestManager_TurnSeesOnlyTheWindow(t *testing.T) {
	ctx := context.Background()
	gateway := &testutils.ScriptedGateway{
		Steps: []testutils.GatewayStep{
			testutils.Call("", tools.SearchMail, map[string]any{"query": "x"}),
			testutils.Reply("done"),
		},
		Repeat: true,
	}
	env := session.EnvironmentFunc(func(ctx context.Context, sessionID string) (tools.Environment, error) {
		return tools.Environment{Mail: &testutils.FakeMailbox{}}, nil
	})
	mgr := session.NewManager(memory.NewStore(), newEngine(t, gateway), session.WithHistoryWindow(2), session.WithEnvironment(env))

	for i := 0; i < 3; i++ {
		_, err := mgr.Turn(ctx, "s1", fmt.Sprintf("turn %d", i))
		require.NoError(t, err)
	}

	last := gateway.Histories[len(gateway.Histories)-1]
	assert.LessOrEqual(t, len(last), 2)
	assert.Equal(t, domain.RoleUser, last[0].Role)
	assert.Equal(t, "turn 2", last[0].Content)

	conv, err := mgr.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 8, conv.Len(), "the store keeps the full history")
}

func TestManager_ConfirmationOutlivesWindow(t *testing.T) {
	ctx := context.Background()
	mail := &testutils.FakeMailbox{}
	gateway := testutils.NewScriptedGateway(
		testutils.Call("", tools.SendEmail, map[string]any{"to": "ana@example.com", "subject": "Hi", "body": "Hello"}),
		testutils.Call("", tools.SendConfirmedEmail, map[string]any{"confirmation_id": "conf-1"}),
		testutils.Reply("Sent."),
	)
	engine := newEngine(t, gateway, runtime.WithIDGenerator(func() string { return "conf-1" }))
	env := session.EnvironmentFunc(func(ctx context.Context, sessionID string) (tools.Environment, error) {
		return tools.Environment{Mail: mail}, nil
	})
	mgr := session.NewManager(memory.NewStore(), engine, session.WithHistoryWindow(1), session.WithEnvironment(env))

	first, err := mgr.Turn(ctx, "s1", "email ana")
	require.NoError(t, err)
	require.NotNil(t, first.Reply().Confirmation)
	assert.Equal(t, 0, mail.SentCount())

	second, err := mgr.Turn(ctx, "s1", "yes, send it")
	require.NoError(t, err)
	assert.Equal(t, "Sent.", second.Reply().Content)
	assert.Equal(t, 1, mail.SentCount())
}

func TestManager_EnvironmentErrorAbortsTurn(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	gateway := testutils.NewScriptedGateway(testutils.Reply("unreachable"))
	env := session.EnvironmentFunc(func(ctx context.Context, sessionID string) (tools.Environment, error) {
		return tools.Environment{}, errors.New("token store down")
	})
	mgr := session.NewManager(store, newEngine(t, gateway), session.WithEnvironment(env))

	_, err := mgr.Turn(ctx, "s1", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token store down")
	assert.Equal(t, 0, gateway.CallCount())

	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_ConcurrentTurnsAreSerialized(t *testing.T) {
	ctx := context.Background()
	store := SlowStore{memory.NewStore()}
	gateway := &testutils.ScriptedGateway{Steps: []testutils.GatewayStep{testutils.Reply("ok")}, Repeat: true}
	mgr := session.NewManager(store, newEngine(t, gateway))

	const turns = 10
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := mgr.Turn(ctx, "race", fmt.Sprintf("msg %d", n))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	conv, err := store.Load(ctx, "race")
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 2*turns, "no turn may be lost")
	assert.NoError(t, domain.Verify(conv.Messages))
}

func TestManager_LoadOrCreate(t *testing.T) {
	store := SlowStore{memory.NewStore()}
	mgr := session.NewManager(store, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conv, err := mgr.LoadOrCreate(ctx, "atomic-init")
			assert.NoError(t, err)
			assert.NotNil(t, conv)
		}()
	}
	wg.Wait()

	conv, err := mgr.Load(ctx, "atomic-init")
	require.NoError(t, err)
	assert.Equal(t, "atomic-init", conv.SessionID)
	assert.Empty(t, conv.Messages)
}

func TestManager_TurnWithoutEngine(t *testing.T) {
	mgr := session.NewManager(memory.NewStore(), nil)
	_, err := mgr.Turn(context.Background(), "s1", "hi")
	assert.Error(t, err)
}

func TestNewSessionID(t *testing.T) {
	a, b := session.NewSessionID(), session.NewSessionID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
