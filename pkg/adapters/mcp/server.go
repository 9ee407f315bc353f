package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/missive"
	"github.com/aretw0/missive/internal/logging"
	"github.com/aretw0/missive/internal/presentation/graph"
	"github.com/aretw0/missive/pkg/domain"
	"github.com/aretw0/missive/pkg/ports"
	"github.com/aretw0/missive/pkg/runner"
	"github.com/aretw0/missive/pkg/session"
	"github.com/aretw0/missive/pkg/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	graphURI       = "missive://graph"
	sessionURIRoot = "missive://sessions/"
)

// Sessions is the session surface exposed as MCP tools.
type Sessions interface {
	Turn(ctx context.Context, sessionID, text string) (session.TurnResult, error)
	Load(ctx context.Context, sessionID string) (*domain.Conversation, error)
}

// ChatArgs are the arguments of the chat tool.
type ChatArgs struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// DraftArgs are the arguments of the draft_email tool.
type DraftArgs struct {
	Prompt string `json:"prompt"`
}

// Server exposes the assistant as an MCP server.
type Server struct {
	sessions  Sessions
	drafter   ports.Completer
	topology  func() []domain.Node
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithDrafter registers the draft_email tool.
func WithDrafter(c ports.Completer) Option {
	return func(s *Server) { s.drafter = c }
}

// WithTopology registers the get_graph tool and the graph resource.
func WithTopology(fn func() []domain.Node) Option {
	return func(s *Server) { s.topology = fn }
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions Sessions, opts ...Option) *Server {
	s := &Server{
		sessions:  sessions,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("missive-mcp", strings.TrimSpace(missive.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on in/out until ctx is done or in is closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcpServer).Listen(ctx, in, out)
}

// ServeSSE serves over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		s.logger.Info("shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	chatTool := mcp.NewTool("chat",
		mcp.WithDescription("Send a message to the email and calendar assistant and get its reply. Omit session_id to start a new conversation."),
		mcp.WithString("text", mcp.Required(), mcp.Description("The user message")),
		mcp.WithString("session_id", mcp.Description("Conversation to continue (optional)")),
		mcp.WithOutputSchema[runner.Response](),
	)
	s.mcpServer.AddTool(chatTool, mcp.NewStructuredToolHandler(s.handleChat))

	if s.drafter != nil {
		draftTool := mcp.NewTool("draft_email",
			mcp.WithDescription("Draft an email (subject and body) from a natural-language prompt."),
			mcp.WithString("prompt", mcp.Required(), mcp.Description("What the email should say")),
			mcp.WithOutputSchema[tools.Draft](),
		)
		s.mcpServer.AddTool(draftTool, mcp.NewStructuredToolHandler(s.handleDraft))
	}

	if s.topology != nil {
		s.mcpServer.AddTool(mcp.NewTool("get_graph",
			mcp.WithDescription("Get the orchestrator topology as a Mermaid flowchart."),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText(graph.GenerateMermaid(s.topology(), nil)), nil
		})
	}
}

func (s *Server) handleChat(ctx context.Context, request mcp.CallToolRequest, args ChatArgs) (runner.Response, error) {
	clean, err := runner.SanitizeInput(args.Text)
	if err != nil {
		s.logger.Warn("MCP chat: input rejected", "err", err, "size", len(args.Text))
		return runner.Response{}, fmt.Errorf("input rejected: %w", err)
	}
	if strings.TrimSpace(clean) == "" {
		return runner.Response{}, errors.New("text is required")
	}

	id := args.SessionID
	if id == "" {
		id = session.NewSessionID()
	}
	res, err := s.sessions.Turn(ctx, id, clean)
	if err != nil {
		return runner.Response{}, fmt.Errorf("turn failed: %w", err)
	}
	return runner.NewResponse(id, res), nil
}

func (s *Server) handleDraft(ctx context.Context, request mcp.CallToolRequest, args DraftArgs) (tools.Draft, error) {
	if strings.TrimSpace(args.Prompt) == "" {
		return tools.Draft{}, errors.New("prompt is required")
	}
	draft, err := tools.WriteDraft(ctx, s.drafter, args.Prompt)
	if err != nil {
		return tools.Draft{}, fmt.Errorf("drafting email: %w", err)
	}
	return draft, nil
}

func (s *Server) registerResources() {
	if s.topology != nil {
		s.mcpServer.AddResource(mcp.NewResource(graphURI, "Orchestrator topology",
			mcp.WithMIMEType("application/json"),
		), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			data, err := json.Marshal(s.topology())
			if err != nil {
				return nil, fmt.Errorf("encoding topology: %w", err)
			}
			return []mcp.ResourceContents{
				mcp.TextResourceContents{URI: graphURI, MIMEType: "application/json", Text: string(data)},
			}, nil
		})
	}

	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(sessionURIRoot+"{id}", "Conversation transcript",
		mcp.WithTemplateMIMEType("application/json"),
	), s.readSession)
}

func (s *Server) readSession(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	id := strings.TrimPrefix(uri, sessionURIRoot)
	if id == "" || id == uri {
		return nil, fmt.Errorf("invalid session uri %q", uri)
	}
	conv, err := s.sessions.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	data, err := json.Marshal(conv)
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "application/json", Text: string(data)},
	}, nil
}
