package testutils

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/missive/pkg/domain"
)

// FakeMailbox is an in-memory ports.Mailbox that records every call.
type FakeMailbox struct {
	mu sync.Mutex

	Emails    []domain.Email
	SearchErr error
	SendErr   error

	Queries []string
	Limits  []int
	Sent    []domain.OutgoingEmail
}

func (m *FakeMailbox) Search(ctx context.Context, query string, limit int) ([]domain.Email, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries = append(m.Queries, query)
	m.Limits = append(m.Limits, limit)
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	out := append([]domain.Email(nil), m.Emails...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *FakeMailbox) Send(ctx context.Context, email domain.OutgoingEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return m.SendErr
	}
	m.Sent = append(m.Sent, email)
	return nil
}

// SentCount returns how many emails were delivered.
func (m *FakeMailbox) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// FakeCalendar is an in-memory ports.Calendar.
type FakeCalendar struct {
	mu sync.Mutex

	Events    []domain.Event
	CreateErr error
	ListErr   error

	Created []domain.EventRequest
}

func (c *FakeCalendar) CreateEvent(ctx context.Context, req domain.EventRequest) (domain.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.CreateErr != nil {
		return domain.Event{}, c.CreateErr
	}
	c.Created = append(c.Created, req)
	id := fmt.Sprintf("evt-%d", len(c.Created))
	ev := domain.Event{
		ID:          id,
		Summary:     req.Title,
		Description: req.Description,
		Start:       req.Start,
		End:         req.End,
		Attendees:   append([]string(nil), req.Attendees...),
		Link:        "https://calendar.example.com/event/" + id,
	}
	c.Events = append(c.Events, ev)
	return ev, nil
}

func (c *FakeCalendar) ListEvents(ctx context.Context, from, to time.Time) ([]domain.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ListErr != nil {
		return nil, c.ListErr
	}
	var out []domain.Event
	for _, ev := range c.Events {
		if !ev.Start.Before(from) && ev.Start.Before(to) {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// CompleterFunc adapts a function to ports.Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// StaticCompleter always answers with reply.
func StaticCompleter(reply string) CompleterFunc {
	return func(ctx context.Context, prompt string) (string, error) {
		return reply, nil
	}
}

// GatewayStep is one scripted answer of a ScriptedGateway.
type GatewayStep struct {
	Message domain.Message
	Err     error
	Delay   time.Duration
}

// Reply scripts a plain assistant reply.
func Reply(text string) GatewayStep {
	return GatewayStep{Message: domain.AssistantMessage(text)}
}

// Call scripts an assistant message requesting one tool.
// An empty id is filled in with a unique value when the step is served.
func Call(id, name string, args map[string]any) GatewayStep {
	return GatewayStep{Message: domain.AssistantMessage("", domain.ToolCallRequest{ID: id, Name: name, Arguments: args})}
}

// Calls scripts an assistant message requesting several tools.
func Calls(reqs ...domain.ToolCallRequest) GatewayStep {
	return GatewayStep{Message: domain.AssistantMessage("", reqs...)}
}

// Fail scripts a gateway failure.
func Fail(err error) GatewayStep {
	return GatewayStep{Err: err}
}

// ScriptedGateway is a ports.ModelGateway that replays a fixed list of steps.
// When Repeat is set the last step is served forever once the script is exhausted.
type ScriptedGateway struct {
	mu sync.Mutex

	Steps  []GatewayStep
	Repeat bool

	Histories [][]domain.Message
	Catalogs  [][]domain.ToolSpec
}

// NewScriptedGateway creates a gateway serving steps in order.
func NewScriptedGateway(steps ...GatewayStep) *ScriptedGateway {
	return &ScriptedGateway{Steps: steps}
}

func (g *ScriptedGateway) Infer(ctx context.Context, history []domain.Message, catalog []domain.ToolSpec) (domain.Message, error) {
	g.mu.Lock()
	n := len(g.Histories)
	g.Histories = append(g.Histories, domain.CloneMessages(history))
	g.Catalogs = append(g.Catalogs, append([]domain.ToolSpec(nil), catalog...))

	var step GatewayStep
	switch {
	case n < len(g.Steps):
		step = g.Steps[n]
	case g.Repeat && len(g.Steps) > 0:
		step = g.Steps[len(g.Steps)-1]
	default:
		g.mu.Unlock()
		return domain.Message{}, &domain.InferenceError{Err: errors.New("script exhausted")}
	}
	g.mu.Unlock()

	if step.Delay > 0 {
		select {
		case <-time.After(step.Delay):
		case <-ctx.Done():
			return domain.Message{}, &domain.InferenceError{Err: ctx.Err()}
		}
	}
	if step.Err != nil {
		return domain.Message{}, step.Err
	}

	msg := step.Message.Clone()
	for i := range msg.ToolCalls {
		if msg.ToolCalls[i].ID == "" {
			msg.ToolCalls[i].ID = fmt.Sprintf("call-%d-%d", n, i)
		}
	}
	return msg, nil
}

// CallCount returns how many inferences were served.
func (g *ScriptedGateway) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Histories)
}

// ToolNames returns the names of a catalog, in order.
func ToolNames(catalog []domain.ToolSpec) string {
	names := make([]string, len(catalog))
	for i, s := range catalog {
		names[i] = s.Name
	}
	return strings.Join(names, ",")
}
