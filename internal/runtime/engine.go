package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/missive/internal/logging"
	"github.com/aretw0/missive/pkg/domain"
	"github.com/aretw0/missive/pkg/ports"
	"github.com/aretw0/missive/pkg/registry"
	"github.com/aretw0/missive/pkg/tools"
	"github.com/google/uuid"
)

const (
	// DefaultMaxSteps bounds the agent inferences of a single turn.
	DefaultMaxSteps = 8

	agentNodeID = "agent"
	routeNodeID = "route"
	toolsNodeID = "tools"
	endNodeID   = "end"
)

// Engine is the turn-taking state machine.
// It keeps no per-conversation state: everything travels in the message
// sequence, so one Engine serves any number of sessions concurrently.
type Engine struct {
	gateway     ports.ModelGateway
	registry    *registry.Registry
	router      Router
	specialized map[string]SpecializedNode
	maxSteps    int
	turnTimeout time.Duration
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	newID       func() string
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithMaxSteps sets the agent step budget of a turn.
func WithMaxSteps(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// WithTurnTimeout bounds the total duration of a turn. Zero means only the
// caller's context deadline applies.
func WithTurnTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.turnTimeout = d
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithSpecialized routes calls to tool through node instead of the generic invoker.
func WithSpecialized(tool string, node SpecializedNode) EngineOption {
	return func(e *Engine) {
		e.specialized[tool] = node
	}
}

// WithIDGenerator overrides how call and confirmation IDs are assigned.
func WithIDGenerator(fn func() string) EngineOption {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// NewEngine creates an Engine over a sealed tool registry.
// send_email is intercepted by a ConfirmNode unless overridden with WithSpecialized.
func NewEngine(gateway ports.ModelGateway, reg *registry.Registry, opts ...EngineOption) *Engine {
	e := &Engine{
		gateway:     gateway,
		registry:    reg,
		specialized: make(map[string]SpecializedNode),
		maxSteps:    DefaultMaxSteps,
		logger:      logging.NewNop(),
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if _, ok := e.specialized[tools.SendEmail]; !ok {
		e.specialized[tools.SendEmail] = NewConfirmNode(e.newID)
	}

	routes := make(map[string]string, len(e.specialized))
	for tool, node := range e.specialized {
		routes[tool] = node.ID()
	}
	e.router = NewRouter(routes)
	return e
}

// Router returns the routing function used after every agent step.
func (e *Engine) Router() Router {
	return e.router
}

// RunTurn runs one turn over prefix and returns the full extended sequence.
//
// prefix is never mutated and the result never aliases it. The only error is
// domain.ErrEmptyConversation; every other failure is recovered and surfaced
// as a terminal assistant message whose Failure field classifies it.
func (e *Engine) RunTurn(ctx context.Context, prefix []domain.Message, env tools.Environment) ([]domain.Message, error) {
	if len(prefix) == 0 {
		return nil, domain.ErrEmptyConversation
	}

	if e.turnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.turnTimeout)
		defer cancel()
	}

	if env.Approvals == nil {
		env.Approvals = tools.NewApprovalSet(domain.PendingConfirmations(prefix, tools.SendConfirmedEmail))
	}

	t := &turn{
		engine:  e,
		env:     env,
		history: domain.CloneMessages(prefix),
		start:   time.Now(),
		seen:    make(map[string]bool),
		logger:  e.logger.With("session_id", domain.SessionIDFromContext(ctx)),
	}
	for _, m := range prefix {
		for _, c := range m.ToolCalls {
			t.seen[c.ID] = true
		}
	}

	e.emitTurnStart(ctx)
	t.run(ctx)

	appended := len(t.history) - len(prefix)
	t.logger.Debug("turn finished", "appended", appended, "steps", t.steps, "failure", t.failure)
	e.emitTurnEnd(ctx, appended, t.steps, time.Since(t.start), t.failure, t.err)

	return t.history, nil
}

// turn is the working state of a single RunTurn call.
type turn struct {
	engine  *Engine
	env     tools.Environment
	history []domain.Message
	start   time.Time
	steps   int
	seen    map[string]bool
	failure domain.FailureKind
	err     error
	logger  *slog.Logger
}

func (t *turn) run(ctx context.Context) {
	e := t.engine
	for {
		if ctx.Err() != nil {
			t.fail(t.timeout())
			return
		}
		if t.steps >= e.maxSteps {
			t.fail(&domain.TurnBudgetExceededError{Limit: e.maxSteps})
			return
		}
		t.steps++

		reply, err := t.agent(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.fail(t.timeout())
			} else {
				t.fail(asInference(err))
			}
			return
		}
		t.history = append(t.history, reply)

		edge := e.router.Route(reply)
		e.logger.Debug("routed", "edge", edge.Kind, "node", edge.Node, "step", t.steps)

		switch edge.Kind {
		case EdgeEnd:
			return

		case EdgeSpecialized:
			node := e.nodeByID(edge.Node)
			e.emitNodeEnter(ctx, node.ID(), domain.NodeTypeSpecialized, t.steps)
			msgs, err := node.Handle(ctx, reply)
			t.history = append(t.history, msgs...)
			e.emitNodeLeave(ctx, node.ID(), domain.NodeTypeSpecialized, t.steps)
			if err != nil {
				t.fail(err)
			}
			return

		case EdgeTools:
			e.emitNodeEnter(ctx, toolsNodeID, domain.NodeTypeTools, t.steps)
			results, err := t.runTools(ctx, reply)
			t.history = append(t.history, results...)
			e.emitNodeLeave(ctx, toolsNodeID, domain.NodeTypeTools, t.steps)
			if err != nil {
				t.fail(err)
				return
			}
		}
	}
}

// agent asks the model for the next assistant message and normalizes it.
func (t *turn) agent(ctx context.Context) (domain.Message, error) {
	e := t.engine
	e.emitNodeEnter(ctx, agentNodeID, domain.NodeTypeAgent, t.steps)
	defer e.emitNodeLeave(ctx, agentNodeID, domain.NodeTypeAgent, t.steps)

	reply, err := e.gateway.Infer(ctx, t.history, e.registry.Catalog())
	if err != nil {
		return domain.Message{}, err
	}

	reply = reply.Clone()
	reply.Role = domain.RoleAssistant
	if reply.CreatedAt.IsZero() {
		reply.CreatedAt = time.Now().UTC()
	}
	for i := range reply.ToolCalls {
		if id := reply.ToolCalls[i].ID; id == "" || t.seen[id] {
			reply.ToolCalls[i].ID = e.newID()
		}
		t.seen[reply.ToolCalls[i].ID] = true
	}
	return reply, nil
}

func (t *turn) timeout() error {
	return &domain.TurnTimeoutError{Elapsed: time.Since(t.start)}
}

// fail ends the turn with an assistant message describing err.
func (t *turn) fail(err error) {
	t.err = err
	t.failure = domain.KindOf(err)
	t.logger.Warn("turn ended with a recovered failure", "failure", t.failure, "error", err)
	t.history = append(t.history, domain.FailureMessage(t.failure, failureText(err)))
}

func (e *Engine) nodeByID(id string) SpecializedNode {
	for _, n := range e.specialized {
		if n.ID() == id {
			return n
		}
	}
	return nil
}

func asInference(err error) error {
	if domain.KindOf(err) == domain.FailureInference {
		return err
	}
	return &domain.InferenceError{Err: err}
}
