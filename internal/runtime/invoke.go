package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/missive/pkg/domain"
	"github.com/aretw0/missive/pkg/registry"
)

const (
	skippedResult  = "Not executed: an earlier tool call in this batch failed."
	timedOutResult = "Not executed: the turn ran out of time."
	abandonedError = "the turn ran out of time before the tool returned; its outcome is unknown"
)

// runTools executes the calls of msg sequentially, in request order.
// Every call is answered: once the batch halts, the remaining calls receive a
// "not executed" result. A non-nil error ends the turn.
func (t *turn) runTools(ctx context.Context, msg domain.Message) ([]domain.Message, error) {
	results := make([]domain.Message, 0, len(msg.ToolCalls))

	skipRest := func(from int, reason string) {
		for _, call := range msg.ToolCalls[from:] {
			results = append(results, domain.ToolResultMessage(call, reason, true))
		}
	}

	for i, call := range msg.ToolCalls {
		if ctx.Err() != nil {
			skipRest(i, timedOutResult)
			return results, t.timeout()
		}

		if t.engine.router.IsSpecialized(call.Name) {
			// Reserved tools only run through their specialized node.
			err := &domain.InvalidArgumentsError{
				Tool:   call.Name,
				Reason: "it needs the user's confirmation and must be requested on its own",
			}
			results = append(results, domain.ToolResultMessage(call, "Not executed: "+err.Reason+".", true))
			skipRest(i+1, skippedResult)
			return results, err
		}

		res, err := t.invoke(ctx, call)
		results = append(results, res)

		if ctx.Err() != nil {
			skipRest(i+1, timedOutResult)
			return results, t.timeout()
		}
		if halts(err) {
			skipRest(i+1, skippedResult)
			return results, err
		}
	}
	return results, nil
}

// halts reports whether a tool failure ends the turn.
// Unknown tools and provider failures are recorded and the model carries on.
func halts(err error) bool {
	switch domain.KindOf(err) {
	case "", domain.FailureUnknownTool, domain.FailureProvider:
		return false
	}
	return true
}

// invoke resolves and executes one call, normalizing every outcome into a
// tool message answering it. The error classifies a failed call.
func (t *turn) invoke(ctx context.Context, call domain.ToolCallRequest) (domain.Message, error) {
	e := t.engine
	start := time.Now()
	e.emitToolCall(ctx, call)

	result, err := t.execute(ctx, call)

	var msg domain.Message
	switch {
	case err == nil:
		msg = domain.ToolResultMessage(call, stringify(result), false)
	default:
		var provider *domain.ProviderError
		if errors.As(err, &provider) {
			msg = domain.ToolResultMessage(call, provider.Report(), true)
		} else {
			msg = domain.ToolResultMessage(call, "Error: "+err.Error(), true)
		}
		t.logger.Debug("tool call failed", "tool", call.Name, "call_id", call.ID, "error", err)
	}

	e.emitToolReturn(ctx, call, msg, domain.KindOf(err), time.Since(start))
	return msg, err
}

func (t *turn) execute(ctx context.Context, call domain.ToolCallRequest) (any, error) {
	e := t.engine

	desc, err := e.registry.Resolve(call.Name)
	if err != nil {
		return nil, err
	}

	args, err := t.resolveArguments(desc, call)
	if err != nil {
		return nil, err
	}

	out, err := safeCall(ctx, desc, args)
	if err != nil {
		return nil, classify(desc.Name, err)
	}
	return out, nil
}

// resolveArguments checks model-supplied values against the declared
// parameters and merges them with injected handles. Model-supplied values for
// injected names are dropped.
func (t *turn) resolveArguments(desc registry.Descriptor, call domain.ToolCallRequest) (map[string]any, error) {
	args := make(map[string]any, len(desc.Expected()))
	for key, value := range call.Clone().Arguments {
		if desc.IsInjected(key) {
			t.logger.Debug("dropping model-supplied value for injected argument", "tool", desc.Name, "arg", key)
			continue
		}
		args[key] = value
	}
	if err := desc.CheckArguments(args); err != nil {
		return nil, err
	}

	var missing []string
	for _, name := range desc.Injected {
		handle, ok := t.env.Handle(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		args[name] = handle
	}
	if len(missing) > 0 {
		return nil, &domain.MissingEnvironmentError{Tool: desc.Name, Handles: missing}
	}
	return args, nil
}

type callResult struct {
	out any
	err error
}

// safeCall runs the implementation, converting a panic into an error.
// It stops waiting when ctx is done so a stuck tool cannot outlive the turn.
func safeCall(ctx context.Context, desc registry.Descriptor, args map[string]any) (any, error) {
	done := make(chan callResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- callResult{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		out, err := desc.Impl(ctx, args)
		done <- callResult{out: out, err: err}
	}()

	select {
	case r := <-done:
		return r.out, r.err
	case <-ctx.Done():
		select {
		case r := <-done:
			return r.out, r.err
		default:
		}
		return nil, errors.New(abandonedError)
	}
}

// classify tags err with the tool name, wrapping unclassified failures.
func classify(tool string, err error) error {
	var invalid *domain.InvalidArgumentsError
	if errors.As(err, &invalid) && invalid.Tool == "" {
		tagged := *invalid
		tagged.Tool = tool
		return &tagged
	}
	if domain.KindOf(err) == "" {
		return &domain.ToolExecutionError{Tool: tool, Err: err}
	}
	return err
}

// stringify renders a tool result as message content.
func stringify(v any) string {
	switch r := v.(type) {
	case nil:
		return ""
	case string:
		return r
	case fmt.Stringer:
		return r.String()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
