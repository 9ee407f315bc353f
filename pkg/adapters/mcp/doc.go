// Package mcp exposes the assistant as Model Context Protocol tools, over
// stdio or SSE.
package mcp
