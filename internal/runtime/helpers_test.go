package runtime_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/missive/internal/runtime"
	"github.com/aretw0/missive/internal/testutils"
	"github.com/aretw0/missive/pkg/domain"
	"github.com/aretw0/missive/pkg/registry"
	"github.com/aretw0/missive/pkg/schema"
	"github.com/aretw0/missive/pkg/tools"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

// fixture wires an engine over the builtin tools plus a few test-only tools.
type fixture struct {
	gateway  *testutils.ScriptedGateway
	mail     *testutils.FakeMailbox
	calendar *testutils.FakeCalendar
	env      tools.Environment
	engine   *runtime.Engine

	noopCalls int
}

func newFixture(t *testing.T, gateway *testutils.ScriptedGateway, opts ...runtime.EngineOption) *fixture {
	t.Helper()
	f := &fixture{
		gateway:  gateway,
		mail:     &testutils.FakeMailbox{},
		calendar: &testutils.FakeCalendar{},
	}
	f.env = tools.Environment{Mail: f.mail, Calendar: f.calendar}

	reg := registry.NewRegistry()
	require.NoError(t, tools.Register(reg, tools.Deps{
		Completer: testutils.StaticCompleter(`{"subject": "Hi", "body": "Hello"}`),
		Now:       func() time.Time { return now },
	}))
	reg.MustRegister(registry.Descriptor{
		Name:   "noop",
		Params: schema.Params{{Name: "note", Type: schema.String()}},
		Impl: func(ctx context.Context, args map[string]any) (any, error) {
			f.noopCalls++
			return "ok", nil
		},
	})
	reg.MustRegister(registry.Descriptor{
		Name: "explode",
		Impl: func(ctx context.Context, args map[string]any) (any, error) {
			panic("kaboom")
		},
	})
	reg.MustRegister(registry.Descriptor{
		Name: "broken",
		Impl: func(ctx context.Context, args map[string]any) (any, error) {
			return nil, errors.New("disk on fire")
		},
	})
	reg.MustRegister(registry.Descriptor{
		Name: "slow",
		Impl: func(ctx context.Context, args map[string]any) (any, error) {
			select {
			case <-time.After(5 * time.Second):
				return "late", nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	})
	reg.MustRegister(registry.Descriptor{
		Name: "stuck",
		Impl: func(ctx context.Context, args map[string]any) (any, error) {
			time.Sleep(5 * time.Second)
			return "never seen", nil
		},
	})
	reg.Seal()

	f.engine = runtime.NewEngine(gateway, reg, opts...)
	return f
}

func (f *fixture) run(t *testing.T, prefix ...domain.Message) []domain.Message {
	t.Helper()
	out, err := f.engine.RunTurn(context.Background(), prefix, f.env)
	require.NoError(t, err)
	require.NoError(t, domain.Verify(out), "referential integrity")
	require.GreaterOrEqual(t, len(out), len(prefix))
	return out
}

func last(msgs []domain.Message) domain.Message {
	return msgs[len(msgs)-1]
}
