package missive

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/missive/internal/logging"
	"github.com/aretw0/missive/internal/runtime"
	"github.com/aretw0/missive/pkg/dates"
	"github.com/aretw0/missive/pkg/domain"
	"github.com/aretw0/missive/pkg/ports"
	"github.com/aretw0/missive/pkg/registry"
	"github.com/aretw0/missive/pkg/tools"
)

// Version is set at build time.
var Version = "dev"

// Engine is the high-level entry point of the assistant.
// It wraps the internal runtime and wires the builtin tools.
type Engine struct {
	runtime  *runtime.Engine
	registry *registry.Registry
	deps     tools.Deps

	maxSteps    int
	turnTimeout time.Duration
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	custom      *registry.Registry
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxSteps sets the agent step budget of a turn.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		e.maxSteps = n
	}
}

// WithTurnTimeout bounds the duration of every turn.
func WithTurnTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.turnTimeout = d
	}
}

// WithCompleter sets the model used by summarize, parse and draft tools.
// By default the gateway is used when it also implements ports.Completer.
func WithCompleter(c ports.Completer) Option {
	return func(e *Engine) {
		e.deps.Completer = c
	}
}

// WithTimeZone sets the zone natural-language dates are interpreted in.
func WithTimeZone(loc *time.Location) Option {
	return func(e *Engine) {
		e.deps.Dates = dates.NewResolver(loc)
	}
}

// WithClock overrides the reference time used to resolve relative dates.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.deps.Now = now
	}
}

// WithRegistry replaces the builtin tools with a custom registry.
// The registry is sealed by New.
func WithRegistry(reg *registry.Registry) Option {
	return func(e *Engine) {
		e.custom = reg
	}
}

// New initializes a new Engine over gateway.
func New(gateway ports.ModelGateway, opts ...Option) (*Engine, error) {
	if gateway == nil {
		return nil, fmt.Errorf("a model gateway is required")
	}

	eng := &Engine{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.deps.Completer == nil {
		if c, ok := gateway.(ports.Completer); ok {
			eng.deps.Completer = c
		}
	}

	if eng.custom != nil {
		eng.registry = eng.custom
	} else {
		reg, err := tools.NewRegistry(eng.deps)
		if err != nil {
			return nil, fmt.Errorf("failed to register tools: %w", err)
		}
		eng.registry = reg
	}
	eng.registry.Seal()

	eng.runtime = runtime.NewEngine(gateway, eng.registry,
		runtime.WithLogger(eng.logger.With("component", "engine")),
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithMaxSteps(eng.maxSteps),
		runtime.WithTurnTimeout(eng.turnTimeout),
	)
	return eng, nil
}

// RunTurn runs one turn and returns the full extended conversation.
// It only fails with domain.ErrEmptyConversation.
func (e *Engine) RunTurn(ctx context.Context, prefix []domain.Message, env tools.Environment) ([]domain.Message, error) {
	return e.runtime.RunTurn(ctx, prefix, env)
}

// Inspect returns the orchestrator topology for visualization.
func (e *Engine) Inspect() []domain.Node {
	return e.runtime.Inspect()
}

// Catalog returns the tools presented to the model, in order.
func (e *Engine) Catalog() []domain.ToolSpec {
	return e.registry.Catalog()
}

// Completer returns the model used by the model-backed tools, if any.
func (e *Engine) Completer() ports.Completer {
	return e.deps.Completer
}
