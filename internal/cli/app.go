// Package cli wires configuration into the components every command shares:
// logger, model gateway, stores, engine, session manager and Google auth.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/missive"
	"github.com/aretw0/missive/pkg/adapters/google"
	"github.com/aretw0/missive/pkg/config"
	"github.com/aretw0/missive/pkg/observability"
	"github.com/aretw0/missive/pkg/ports"
	"github.com/aretw0/missive/pkg/session"
)

// Options are the command-line overrides applied on top of the config file.
type Options struct {
	ConfigPath string
	Debug      bool
	// Script forces the script provider with this file.
	Script string
	// Quiet drops log output below warnings, for stdio protocols.
	Quiet bool
}

// App holds the wired components.
type App struct {
	Config      config.Config
	Logger      *slog.Logger
	Engine      *missive.Engine
	Sessions    *session.Manager
	Store       ports.ConversationStore
	Credentials ports.CredentialStore
	// Auth is nil when no OAuth client secrets are configured.
	Auth    *google.Authenticator
	Metrics *observability.Metrics

	closers []func() error
}

// LoadConfig reads the config file and applies opts.
func LoadConfig(opts Options) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.Script != "" {
		cfg.Model.Provider = "script"
		cfg.Model.Script = opts.Script
	}
	if opts.Debug {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// Build loads the configuration and wires the application.
func Build(ctx context.Context, opts Options) (*App, error) {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg, opts)
}

// New wires the application from an explicit configuration.
func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	app := &App{Config: cfg, Logger: createLogger(cfg, opts.Quiet)}

	if cfg.Metrics.Enabled {
		app.Metrics = observability.NewMetrics(true)
	}

	stores, err := createStores(ctx, cfg, app.Logger)
	if err != nil {
		return nil, err
	}
	app.Store = stores.conversations
	app.Credentials = stores.credentials
	app.closers = append(app.closers, stores.close)

	gateway, err := createGateway(cfg, app.Logger)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	hooks := observability.LoggingHooks(app.Logger.With("component", "hooks"))
	if app.Metrics != nil {
		hooks = hooks.Merge(app.Metrics.Hooks())
	}
	app.Engine, err = missive.New(gateway,
		missive.WithLogger(app.Logger),
		missive.WithLifecycleHooks(hooks),
		missive.WithMaxSteps(cfg.Orchestrator.MaxSteps),
		missive.WithTurnTimeout(cfg.Orchestrator.TurnTimeout),
		missive.WithTimeZone(cfg.Location()),
	)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}

	app.Auth, err = createAuthenticator(cfg, app.Credentials, app.Logger)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	sessionOpts := []session.Option{
		session.WithLogger(app.Logger.With("component", "sessions")),
		session.WithHistoryWindow(cfg.Orchestrator.HistoryWindow),
	}
	if stores.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(stores.locker), session.WithLockTTL(cfg.Store.Redis.LockTTL))
	}
	if app.Auth != nil {
		sessionOpts = append(sessionOpts, session.WithEnvironment(app.Auth))
	}
	app.Sessions = session.NewManager(app.Store, app.Engine, sessionOpts...)
	return app, nil
}

// Close releases connections held by the stores.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
