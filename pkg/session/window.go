package session

import "github.com/aretw0/missive/pkg/domain"

// Window returns the suffix of msgs a turn should see: at most size messages,
// moved forward so it starts at a user message. Starting anywhere else could
// leave a tool result without its call, or a call without its results.
// When no user message falls inside the bound, the window starts at the last
// user message instead, so a turn never loses its own input.
func Window(msgs []domain.Message, size int) []domain.Message {
	if size <= 0 || len(msgs) <= size {
		return msgs
	}

	start := len(msgs) - size
	for i := start; i < len(msgs); i++ {
		if msgs[i].Role == domain.RoleUser {
			return msgs[i:]
		}
	}
	for i := start - 1; i >= 0; i-- {
		if msgs[i].Role == domain.RoleUser {
			return msgs[i:]
		}
	}
	return msgs[start:]
}
