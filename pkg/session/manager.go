package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/missive/internal/logging"
	"github.com/aretw0/missive/pkg/domain"
	"github.com/aretw0/missive/pkg/ports"
	"github.com/aretw0/missive/pkg/tools"
	"github.com/google/uuid"
)

const (
	// DefaultHistoryWindow is the number of stored messages a turn sees.
	DefaultHistoryWindow = 8

	defaultLockTTL = 2 * time.Minute
)

// Turner runs one conversational turn. *missive.Engine satisfies it.
type Turner interface {
	RunTurn(ctx context.Context, prefix []domain.Message, env tools.Environment) ([]domain.Message, error)
}

// EnvironmentSource builds the provider handles of a session.
type EnvironmentSource interface {
	Environment(ctx context.Context, sessionID string) (tools.Environment, error)
}

// EnvironmentFunc adapts a function to EnvironmentSource.
type EnvironmentFunc func(ctx context.Context, sessionID string) (tools.Environment, error)

func (f EnvironmentFunc) Environment(ctx context.Context, sessionID string) (tools.Environment, error) {
	return f(ctx, sessionID)
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// Locks are reference counted and dropped once no caller holds them.
type Manager struct {
	store  ports.ConversationStore
	engine Turner
	envs   EnvironmentSource

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	window  int
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL bounds how long a distributed lock outlives a crashed holder.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithHistoryWindow sets how many stored messages a turn sees.
func WithHistoryWindow(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.window = n
		}
	}
}

// WithEnvironment sets where per-session provider handles come from.
func WithEnvironment(src EnvironmentSource) Option {
	return func(m *Manager) {
		m.envs = src
	}
}

// NewManager creates a Session Manager over a conversation store.
// engine may be nil for managers that only inspect or delete sessions.
func NewManager(store ports.ConversationStore, engine Turner, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		engine:  engine,
		locks:   make(map[string]*lockEntry),
		lockTTL: defaultLockTTL,
		window:  DefaultHistoryWindow,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewSessionID returns a fresh random session ID.
func NewSessionID() string {
	return uuid.NewString()
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// TurnResult is the outcome of Manager.Turn.
type TurnResult struct {
	// Appended holds the user message followed by everything the turn produced.
	Appended []domain.Message
	// Conversation is the stored conversation after the turn.
	Conversation *domain.Conversation
}

// Reply returns the terminal assistant message of the turn.
func (r TurnResult) Reply() domain.Message {
	if len(r.Appended) == 0 {
		return domain.Message{}
	}
	return r.Appended[len(r.Appended)-1]
}

// Turn appends a user message to the session, runs one turn over the recent
// history window and persists the result. Unknown sessions are created.
func (m *Manager) Turn(ctx context.Context, sessionID, text string) (TurnResult, error) {
	if m.engine == nil {
		return TurnResult{}, errors.New("session manager has no engine")
	}
	ctx = domain.ContextWithSessionID(ctx, sessionID)
	logger := m.logger.With("session_id", sessionID)

	var result TurnResult
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		conv, err := m.loadOrNew(ctx, sessionID)
		if err != nil {
			return err
		}

		env, err := m.environment(ctx, sessionID)
		if err != nil {
			return err
		}
		// Approvals come from the whole history: a confirmation may have
		// slid out of the window while still pending.
		if env.Approvals == nil {
			env.Approvals = tools.NewApprovalSet(domain.PendingConfirmations(conv.Messages, tools.SendConfirmedEmail))
		}

		history := domain.Extend(conv.Messages, domain.UserMessage(text))
		prefix := Window(history, m.window)

		extended, err := m.engine.RunTurn(ctx, prefix, env)
		if err != nil {
			return fmt.Errorf("running turn: %w", err)
		}

		appended := domain.CloneMessages(extended[len(prefix)-1:])
		conv.Messages = append(conv.Messages, appended...)
		if err := m.store.Save(ctx, sessionID, conv); err != nil {
			return fmt.Errorf("saving session: %w", err)
		}
		logger.Debug("turn persisted", "appended", len(appended), "total", conv.Len(), "window", len(prefix))

		result = TurnResult{Appended: appended, Conversation: conv.Snapshot()}
		return nil
	})
	return result, err
}

func (m *Manager) environment(ctx context.Context, sessionID string) (tools.Environment, error) {
	if m.envs == nil {
		return tools.Environment{}, nil
	}
	env, err := m.envs.Environment(ctx, sessionID)
	if err != nil {
		return tools.Environment{}, fmt.Errorf("building session environment: %w", err)
	}
	return env, nil
}

func (m *Manager) loadOrNew(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	conv, err := m.store.Load(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.NewConversation(sessionID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check session existence: %w", err)
	}
	return conv, nil
}

// Load retrieves an existing session from the store.
func (m *Manager) Load(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	var conv *domain.Conversation
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		conv, err = m.store.Load(ctx, sessionID)
		return err
	})
	return conv, err
}

// LoadOrCreate loads a session, creating and persisting an empty one when missing.
func (m *Manager) LoadOrCreate(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	var conv *domain.Conversation
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		conv, err = m.store.Load(ctx, sessionID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("failed to check session existence: %w", err)
		}
		conv = domain.NewConversation(sessionID)
		if err := m.store.Save(ctx, sessionID, conv); err != nil {
			return fmt.Errorf("failed to initialize session: %w", err)
		}
		return nil
	})
	return conv, err
}

// Save persists the conversation.
func (m *Manager) Save(ctx context.Context, sessionID string, conv *domain.Conversation) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Save(ctx, sessionID, conv)
	})
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying conversation store.
func (m *Manager) Store() ports.ConversationStore {
	return m.store
}

// WithLock executes fn while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// The turn context may already be cancelled; release with a fresh one.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := unlock(releaseCtx); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
