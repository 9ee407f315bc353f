package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/missive"
	"github.com/aretw0/missive/internal/logging"
	"github.com/aretw0/missive/internal/presentation/graph"
	"github.com/aretw0/missive/pkg/domain"
	"github.com/aretw0/missive/pkg/ports"
	"github.com/aretw0/missive/pkg/runner"
	"github.com/aretw0/missive/pkg/session"
	"github.com/aretw0/missive/pkg/tools"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

// StatusMessage is reported by GET /.
const StatusMessage = "Email Drafting Agent is running"

// Sessions is the session surface served over HTTP.
type Sessions interface {
	Turn(ctx context.Context, sessionID, text string) (session.TurnResult, error)
	Load(ctx context.Context, sessionID string) (*domain.Conversation, error)
	LoadOrCreate(ctx context.Context, sessionID string) (*domain.Conversation, error)
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]string, error)
}

// Authenticator runs the provider consent flow for a session.
type Authenticator interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, sessionID, code string) error
	Connected(ctx context.Context, sessionID string) (bool, error)
}

// Server serves the assistant over HTTP.
type Server struct {
	Sessions Sessions
	Streams  *StreamManager

	drafter  ports.Completer
	auth     Authenticator
	metrics  http.Handler
	topology func() []domain.Node
	logger   *slog.Logger
	validate *validator.Validate
}

// Option configures a Server.
type Option func(*Server)

// WithDrafter enables POST /draft_email.
func WithDrafter(c ports.Completer) Option {
	return func(s *Server) { s.drafter = c }
}

// WithAuthenticator enables the /auth routes.
func WithAuthenticator(a Authenticator) Option {
	return func(s *Server) { s.auth = a }
}

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithTopology enables GET /graph.
func WithTopology(fn func() []domain.Node) Option {
	return func(s *Server) { s.topology = fn }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewHandler creates the HTTP handler over sessions.
func NewHandler(sessions Sessions, opts ...Option) http.Handler {
	s := &Server{
		Sessions: sessions,
		Streams:  NewStreamManager(),
		logger:   logging.NewNop(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/", s.GetStatus)
	r.Get("/healthz", s.GetHealth)
	r.Get("/info", s.GetInfo)

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Post("/", s.CreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Post("/messages", s.PostMessage)
			r.Get("/events", s.SubscribeEvents)
		})
	})

	if s.drafter != nil {
		r.Post("/draft_email", s.DraftEmail)
	}
	if s.auth != nil {
		r.Get("/auth/url", s.GetAuthURL)
		r.Get("/auth/callback", s.AuthCallback)
	}
	if s.topology != nil {
		r.Get("/graph", s.GetGraph)
	}
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetStatus handles GET /.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": StatusMessage})
}

// GetHealth handles GET /healthz.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "missive-http",
		"version": strings.TrimSpace(missive.Version),
	})
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "listing sessions", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

// CreateSession handles POST /sessions.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	id := session.NewSessionID()
	conv, err := s.Sessions.LoadOrCreate(r.Context(), id)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "creating session", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, conv)
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	conv, err := s.Sessions.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.failLookup(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, conv)
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.failLookup(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type messageRequest struct {
	Text string `json:"text" validate:"required"`
}

// PostMessage handles POST /sessions/{id}/messages: one turn of the conversation.
func (s *Server) PostMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body messageRequest
	if !s.decode(w, r, &body) {
		return
	}
	text, err := runner.SanitizeInput(body.Text)
	if err != nil {
		s.fail(w, http.StatusBadRequest, "invalid input", err)
		return
	}
	if strings.TrimSpace(text) == "" {
		s.fail(w, http.StatusBadRequest, "text is empty", nil)
		return
	}

	res, err := s.Sessions.Turn(r.Context(), id, text)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "turn failed", err)
		return
	}

	s.broadcast(res)
	s.writeJSON(w, http.StatusOK, runner.NewResponse(id, res))
}

// broadcast publishes what the turn changed to the session's subscribers.
func (s *Server) broadcast(res session.TurnResult) {
	after := res.Conversation
	if after == nil {
		return
	}
	before := &domain.Conversation{
		SessionID: after.SessionID,
		Messages:  after.Messages[:len(after.Messages)-len(res.Appended)],
		Metadata:  after.Metadata,
	}
	diff := domain.Diff(before, after)
	if diff == nil {
		return
	}
	payload, err := json.Marshal(diff)
	if err != nil {
		s.logger.Warn("encoding session diff", "err", err)
		return
	}
	s.Streams.Broadcast(after.SessionID, string(payload))
}

type draftRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

// DraftEmail handles POST /draft_email. A malformed model reply is a 500.
func (s *Server) DraftEmail(w http.ResponseWriter, r *http.Request) {
	var body draftRequest
	if !s.decode(w, r, &body) {
		return
	}
	draft, err := tools.WriteDraft(r.Context(), s.drafter, body.Prompt)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "drafting email", err)
		return
	}
	s.writeJSON(w, http.StatusOK, draft)
}

// GetAuthURL handles GET /auth/url?session_id=.
// The session id travels as the OAuth state and comes back on the callback.
func (s *Server) GetAuthURL(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session_id")
	if id == "" {
		s.fail(w, http.StatusBadRequest, "session_id is required", nil)
		return
	}
	connected, err := s.auth.Connected(r.Context(), id)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "checking credentials", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"url":       s.auth.AuthURL(id),
		"connected": connected,
	})
}

// AuthCallback handles GET /auth/callback?code=&state=.
func (s *Server) AuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		s.fail(w, http.StatusBadRequest, "authorization denied: "+e, nil)
		return
	}
	code, id := q.Get("code"), q.Get("state")
	if code == "" || id == "" {
		s.fail(w, http.StatusBadRequest, "code and state are required", nil)
		return
	}
	if err := s.auth.Exchange(r.Context(), id, code); err != nil {
		s.fail(w, http.StatusBadGateway, "exchanging authorization code", err)
		return
	}
	s.logger.Info("session connected", "session_id", id)
	s.writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "connected": true})
}

// GetGraph handles GET /graph, optionally highlighting ?session_id='s last turn.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	nodes := s.topology()
	var overlay *graph.Overlay
	if id := r.URL.Query().Get("session_id"); id != "" {
		conv, err := s.Sessions.Load(r.Context(), id)
		if err != nil {
			s.failLookup(w, err)
			return
		}
		overlay = graph.LastTurnOverlay(nodes, conv.Messages)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(graph.GenerateMermaid(nodes, overlay)))
}

// -- Helpers --

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.fail(w, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		s.fail(w, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	return true
}

func (s *Server) failLookup(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrSessionNotFound) {
		s.fail(w, http.StatusNotFound, "session not found", nil)
		return
	}
	s.fail(w, http.StatusInternalServerError, "loading session", err)
}

// fail writes {"detail": ...}. Server errors are logged, client errors are not.
func (s *Server) fail(w http.ResponseWriter, status int, msg string, err error) {
	detail := msg
	if err != nil {
		detail = msg + ": " + err.Error()
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, "status", status, "err", err)
	}
	s.writeJSON(w, status, map[string]string{"detail": detail})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
