package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrEmptyConversation is returned when a turn is started without any message.
// It is the only error a turn itself fails with; everything else is recovered.
var ErrEmptyConversation = errors.New("conversation prefix is empty")

// ErrCredentialsNotFound is returned when no credentials are stored for a key.
var ErrCredentialsNotFound = errors.New("credentials not found")

// FailureKind classifies a recovered error surfaced to the user.
type FailureKind string

const (
	FailureUnknownTool        FailureKind = "unknown_tool"
	FailureInvalidArguments   FailureKind = "invalid_arguments"
	FailureToolExecution      FailureKind = "tool_execution"
	FailureMissingEnvironment FailureKind = "missing_environment"
	FailureProvider           FailureKind = "provider"
	FailureInference          FailureKind = "inference"
	FailureTurnBudget         FailureKind = "turn_budget_exceeded"
	FailureTurnTimeout        FailureKind = "turn_timeout"
)

// UnknownToolError is returned when a tool name is not registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %q", e.Name)
}

// DuplicateToolError is returned when a tool name is registered twice.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool already registered: %q", e.Name)
}

// InvalidArgumentsError indicates malformed or missing model-supplied arguments.
type InvalidArgumentsError struct {
	Tool   string
	Fields []string
	Reason string
	Err    error
}

func (e *InvalidArgumentsError) Error() string {
	var sb strings.Builder
	sb.WriteString("invalid arguments")
	if e.Tool != "" {
		sb.WriteString(" for " + e.Tool)
	}
	if len(e.Fields) > 0 {
		sb.WriteString(" [" + strings.Join(e.Fields, ", ") + "]")
	}
	if e.Reason != "" {
		sb.WriteString(": " + e.Reason)
	} else if e.Err != nil {
		sb.WriteString(": " + e.Err.Error())
	}
	return sb.String()
}

func (e *InvalidArgumentsError) Unwrap() error {
	return e.Err
}

// ToolExecutionError wraps any other failure raised by a tool implementation.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}

// MissingEnvironmentError is returned when an injected handle is not available.
type MissingEnvironmentError struct {
	Tool    string
	Handles []string
}

func (e *MissingEnvironmentError) Error() string {
	return fmt.Sprintf("tool %s requires unavailable handles: %s", e.Tool, strings.Join(e.Handles, ", "))
}

// ProviderError wraps a mail or calendar provider failure.
// It is reported as tool result text and the turn continues.
type ProviderError struct {
	Tool string
	Op   string
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Report returns the text recorded as the tool result.
func (e *ProviderError) Report() string {
	return fmt.Sprintf("Failed to %s: %v", e.Op, e.Err)
}

// InferenceError is returned when the model call or its output parsing fails.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// TurnBudgetExceededError is returned when a turn uses more agent steps than allowed.
type TurnBudgetExceededError struct {
	Limit int
}

func (e *TurnBudgetExceededError) Error() string {
	return fmt.Sprintf("turn exceeded the budget of %d steps", e.Limit)
}

// TurnTimeoutError is returned when a turn does not finish before its deadline.
type TurnTimeoutError struct {
	Elapsed time.Duration
}

func (e *TurnTimeoutError) Error() string {
	return fmt.Sprintf("turn timed out after %s", e.Elapsed.Round(time.Millisecond))
}

func (e *TurnTimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}

// KindOf classifies err. It returns an empty kind for unclassified errors.
func KindOf(err error) FailureKind {
	var (
		unknown  *UnknownToolError
		invalid  *InvalidArgumentsError
		exec     *ToolExecutionError
		missing  *MissingEnvironmentError
		provider *ProviderError
		infer    *InferenceError
		budget   *TurnBudgetExceededError
		timeout  *TurnTimeoutError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &unknown):
		return FailureUnknownTool
	case errors.As(err, &missing):
		return FailureMissingEnvironment
	case errors.As(err, &invalid):
		return FailureInvalidArguments
	case errors.As(err, &provider):
		return FailureProvider
	case errors.As(err, &exec):
		return FailureToolExecution
	case errors.As(err, &infer):
		return FailureInference
	case errors.As(err, &budget):
		return FailureTurnBudget
	case errors.As(err, &timeout):
		return FailureTurnTimeout
	}
	return ""
}
