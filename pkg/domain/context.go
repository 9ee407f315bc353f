package domain

import "context"

type sessionKey struct{}

// ContextWithSessionID annotates ctx with the session being served.
// Lifecycle events emitted during the turn carry this ID.
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

// SessionIDFromContext returns the session ID stored in ctx, if any.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
