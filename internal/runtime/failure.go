package runtime

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/missive/pkg/domain"
)

// failureText renders the terminal assistant message for a recovered failure.
func failureText(err error) string {
	var (
		invalid *domain.InvalidArgumentsError
		missing *domain.MissingEnvironmentError
		exec    *domain.ToolExecutionError
		budget  *domain.TurnBudgetExceededError
		timeout *domain.TurnTimeoutError
		infer   *domain.InferenceError
	)
	switch {
	case errors.As(err, &missing):
		return fmt.Sprintf("I can't use %s right now because the required connection (%s) is not available. Please connect your account and try again.",
			missing.Tool, strings.Join(missing.Handles, ", "))
	case errors.As(err, &invalid):
		detail := invalid.Reason
		if len(invalid.Fields) > 0 {
			detail = "check " + strings.Join(invalid.Fields, ", ")
		}
		return fmt.Sprintf("I couldn't run %s because some details were missing or invalid (%s). Could you clarify?", invalid.Tool, detail)
	case errors.As(err, &exec):
		return fmt.Sprintf("Something went wrong while running %s. Could you rephrase or clarify your request?", exec.Tool)
	case errors.As(err, &budget):
		return fmt.Sprintf("I stopped after %d steps without finishing. Please try again with a more specific request.", budget.Limit)
	case errors.As(err, &timeout):
		return fmt.Sprintf("This request was stopped after %s. Anything already completed is recorded above; please try again.",
			timeout.Elapsed.Round(time.Second))
	case errors.As(err, &infer):
		return "Sorry, I couldn't get a response from the language model. Please try again."
	}
	return "Sorry, something went wrong. Please try again."
}
