package runner

import (
	"context"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Input reads the next user line. io.EOF ends the session.
	Input(ctx context.Context) (string, error)

	// Output presents the outcome of a turn.
	Output(ctx context.Context, resp Response) error

	// SystemOutput presents a meta-message (errors, session changes),
	// distinct from assistant content.
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer transforms assistant text before it is printed, e.g. Markdown to ANSI.
type ContentRenderer func(string) (string, error)
