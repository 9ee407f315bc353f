package ports

import (
	"context"

	"github.com/aretw0/missive/pkg/domain"
)

// ModelGateway wraps the language model.
type ModelGateway interface {
	// Infer returns the next assistant message for history.
	// The catalog must be presented to the model in the given order.
	// Failures are reported as *domain.InferenceError.
	Infer(ctx context.Context, history []domain.Message, catalog []domain.ToolSpec) (domain.Message, error)
}

// Completer produces free-form text from a single prompt.
// It backs the tools that delegate to the model (summaries, drafts, parsing).
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
