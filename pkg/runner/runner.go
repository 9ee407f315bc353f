package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/missive/internal/logging"
	"github.com/aretw0/missive/pkg/session"
)

// Commands understood at the prompt.
const (
	CommandQuit  = "/quit"
	CommandExit  = "/exit"
	CommandReset = "/reset"
	CommandNew   = "/new"
)

// Runner drives a conversation through a session Manager.
type Runner struct {
	manager   *session.Manager
	handler   IOHandler
	sessionID string
	logger    *slog.Logger
}

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithHandler configures a custom IOHandler.
func WithHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.handler = handler
	}
}

// WithSessionID resumes a stored session instead of starting a new one.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		if id != "" {
			r.sessionID = id
		}
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Runner. Without options it talks over stdin/stdout in text
// mode on a fresh session.
func New(manager *session.Manager, opts ...Option) *Runner {
	r := &Runner{
		manager:   manager,
		sessionID: session.NewSessionID(),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.handler == nil {
		r.handler = NewTextHandler(os.Stdin, os.Stdout)
	}
	return r
}

// SessionID returns the session the runner currently talks to.
func (r *Runner) SessionID() string {
	return r.sessionID
}

// Run loops until input ends, the user quits, or ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	signals := NewSignalManager(ctx)
	defer signals.Stop()

	for {
		text, err := r.handler.Input(signals.Context())
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		switch strings.ToLower(text) {
		case CommandQuit, CommandExit:
			return nil
		case CommandReset:
			if err := r.manager.Delete(ctx, r.sessionID); err != nil {
				return fmt.Errorf("reset session: %w", err)
			}
			_ = r.handler.SystemOutput(ctx, "Conversation cleared.")
			continue
		case CommandNew:
			r.sessionID = session.NewSessionID()
			_ = r.handler.SystemOutput(ctx, "New session "+r.sessionID)
			continue
		}

		res, err := r.manager.Turn(signals.Context(), r.sessionID, text)
		if err != nil {
			r.logger.Error("turn failed", "session_id", r.sessionID, "err", err)
			if sysErr := r.handler.SystemOutput(ctx, "Error: "+err.Error()); sysErr != nil {
				return sysErr
			}
			continue
		}

		// An interrupt cancels the turn (which reports it) but not the session.
		if signals.Context().Err() != nil {
			if ctx.Err() != nil {
				return nil
			}
			signals.Reset()
		}

		if err := r.handler.Output(ctx, NewResponse(r.sessionID, res)); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}
}
