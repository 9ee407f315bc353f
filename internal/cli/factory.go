package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/missive/internal/logging"
	"github.com/aretw0/missive/pkg/adapters/file"
	"github.com/aretw0/missive/pkg/adapters/gemini"
	"github.com/aretw0/missive/pkg/adapters/google"
	"github.com/aretw0/missive/pkg/adapters/memory"
	"github.com/aretw0/missive/pkg/adapters/redis"
	"github.com/aretw0/missive/pkg/adapters/script"
	"github.com/aretw0/missive/pkg/config"
	"github.com/aretw0/missive/pkg/persistence/middleware"
	"github.com/aretw0/missive/pkg/ports"
)

// ErrMissingAPIKey is returned when the gemini provider has no key.
var ErrMissingAPIKey = errors.New("model.api_key is required for the gemini provider (or set GEMINI_API_KEY)")

// createLogger configures the application logger on stderr, keeping stdout
// for chat and protocol output.
func createLogger(cfg config.Config, quiet bool) *slog.Logger {
	level := logging.ParseLevel(cfg.Log.Level)
	if quiet && level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	return logging.New(level, logging.Format(cfg.Log.Format))
}

func createGateway(cfg config.Config, logger *slog.Logger) (ports.ModelGateway, error) {
	switch cfg.Model.Provider {
	case "script":
		s, err := script.Load(cfg.Model.Script)
		if err != nil {
			return nil, err
		}
		logger.Debug("using scripted model", "script", cfg.Model.Script)
		return script.New(s), nil
	case "gemini":
		if cfg.Model.APIKey == "" {
			return nil, ErrMissingAPIKey
		}
		return gemini.New(gemini.Config{
			APIKey:            cfg.Model.APIKey,
			Model:             cfg.Model.Name,
			BaseURL:           cfg.Model.BaseURL,
			Temperature:       float32(cfg.Model.Temperature),
			RequestsPerMinute: cfg.Model.RequestsPerMinute,
			Timeout:           cfg.Model.Timeout,
		}, gemini.WithLogger(logger.With("component", "gemini"))), nil
	}
	return nil, fmt.Errorf("unknown model provider %q", cfg.Model.Provider)
}

type stores struct {
	conversations ports.ConversationStore
	credentials   ports.CredentialStore
	locker        ports.DistributedLocker
	close         func() error
}

// createStores builds the configured backend and wraps conversations with
// redaction (outer) and encryption (inner) when configured.
func createStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (stores, error) {
	var st stores
	st.close = func() error { return nil }

	switch cfg.Store.Driver {
	case "memory":
		st.conversations = memory.NewStore()
		st.credentials = memory.NewCredentials()
	case "file":
		st.conversations = file.New(cfg.Store.Dir)
		st.credentials = file.NewCredentials(cfg.Store.Dir)
	case "redis":
		rc := cfg.Store.Redis
		store := redis.New(rc.Addr, rc.Password, rc.DB, redis.WithPrefix(rc.Prefix), redis.WithTTL(rc.TTL))
		if err := store.Client().Ping(ctx).Err(); err != nil {
			_ = store.Close()
			return stores{}, fmt.Errorf("connecting to redis at %s: %w", rc.Addr, err)
		}
		st.conversations = store
		st.credentials = redis.NewCredentials(store.Client(), rc.Prefix)
		st.locker = redis.NewLocker(store.Client(), rc.Prefix)
		st.close = store.Close
	default:
		return stores{}, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	var mws []middleware.Middleware
	if len(cfg.Store.Redact) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.Store.Redact)
		if err != nil {
			_ = st.close()
			return stores{}, err
		}
		mws = append(mws, pii)
	}
	if cfg.Store.EncryptionKey != "" {
		enc, err := encryption(cfg.Store)
		if err != nil {
			_ = st.close()
			return stores{}, err
		}
		mws = append(mws, enc)
	}
	st.conversations = middleware.Chain(st.conversations, mws...)

	logger.Debug("stores ready", "driver", cfg.Store.Driver, "middlewares", len(mws))
	return st, nil
}

func encryption(cfg config.StoreConfig) (middleware.Middleware, error) {
	active, err := middleware.ParseKey(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("store.encryption_key: %w", err)
	}
	ec := middleware.EncryptionConfig{ActiveKey: active}
	for i, k := range cfg.FallbackKeys {
		key, err := middleware.ParseKey(k)
		if err != nil {
			return nil, fmt.Errorf("store.fallback_keys[%d]: %w", i, err)
		}
		ec.FallbackKeys = append(ec.FallbackKeys, key)
	}
	return middleware.NewEncryptionMiddleware(ec)
}

// createAuthenticator returns nil when the client secrets file is absent:
// the assistant then runs without mail and calendar access.
func createAuthenticator(cfg config.Config, creds ports.CredentialStore, logger *slog.Logger) (*google.Authenticator, error) {
	if cfg.Google.CredentialsFile == "" {
		return nil, nil
	}
	secrets, err := os.ReadFile(cfg.Google.CredentialsFile)
	if errors.Is(err, os.ErrNotExist) {
		logger.Debug("google client secrets not found, mail and calendar disabled", "path", cfg.Google.CredentialsFile)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading google client secrets: %w", err)
	}
	return google.NewAuthenticator(secrets, cfg.Google.RedirectURL, creds,
		google.WithCalendarID(cfg.Calendar.CalendarID),
		google.WithAuthLogger(logger.With("component", "google")),
	)
}

// OpenStore opens the configured conversation store for commands that only
// inspect sessions. The returned func releases it.
func OpenStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.ConversationStore, func() error, error) {
	st, err := createStores(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return st.conversations, st.close, nil
}

// ErrNoClientSecrets is returned by OpenAuth when no client secrets file exists.
var ErrNoClientSecrets = errors.New("google client secrets not found; set google.credentials_file")

// OpenAuth opens the credential store and the OAuth client for the auth commands.
func OpenAuth(ctx context.Context, cfg config.Config, logger *slog.Logger) (*google.Authenticator, func() error, error) {
	st, err := createStores(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	auth, err := createAuthenticator(cfg, st.credentials, logger)
	if err == nil && auth == nil {
		err = ErrNoClientSecrets
	}
	if err != nil {
		_ = st.close()
		return nil, nil, err
	}
	return auth, st.close, nil
}
