// Package http exposes sessions, drafting and the OAuth connect flow over a
// chi router, with per-session diffs streamed as server-sent events.
package http
