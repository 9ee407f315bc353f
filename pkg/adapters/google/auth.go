package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/missive/internal/logging"
	"github.com/aretw0/missive/pkg/domain"
	"github.com/aretw0/missive/pkg/ports"
	"github.com/aretw0/missive/pkg/tools"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Scopes requested during consent.
var Scopes = []string{gmail.GmailModifyScope, calendar.CalendarScope}

// Authenticator runs the OAuth consent flow and turns stored tokens into
// per-session provider handles.
type Authenticator struct {
	config     *oauth2.Config
	store      ports.CredentialStore
	calendarID string
	clientOpts []option.ClientOption
	logger     *slog.Logger
}

// AuthOption configures the Authenticator.
type AuthOption func(*Authenticator)

// WithCalendarID selects the calendar events are written to.
func WithCalendarID(id string) AuthOption {
	return func(a *Authenticator) {
		a.calendarID = id
	}
}

// WithClientOptions adds options to every Google API client, e.g. a test endpoint.
func WithClientOptions(opts ...option.ClientOption) AuthOption {
	return func(a *Authenticator) {
		a.clientOpts = append(a.clientOpts, opts...)
	}
}

// WithAuthLogger sets the structured logger.
func WithAuthLogger(logger *slog.Logger) AuthOption {
	return func(a *Authenticator) {
		a.logger = logger
	}
}

// NewAuthenticator parses an OAuth client secrets file (the JSON downloaded
// from the Google console) and binds it to a credential store.
func NewAuthenticator(clientSecrets []byte, redirectURL string, store ports.CredentialStore, opts ...AuthOption) (*Authenticator, error) {
	cfg, err := googleoauth.ConfigFromJSON(clientSecrets, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parsing client secrets: %w", err)
	}
	if redirectURL != "" {
		cfg.RedirectURL = redirectURL
	}
	return NewAuthenticatorFromConfig(cfg, store, opts...), nil
}

// NewAuthenticatorFromConfig creates an Authenticator from an explicit config.
func NewAuthenticatorFromConfig(cfg *oauth2.Config, store ports.CredentialStore, opts ...AuthOption) *Authenticator {
	a := &Authenticator{
		config:     cfg,
		store:      store,
		calendarID: DefaultCalendarID,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AuthURL returns the consent page URL. state is echoed back to the callback.
func (a *Authenticator) AuthURL(state string) string {
	return a.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token and stores it for sessionID.
func (a *Authenticator) Exchange(ctx context.Context, sessionID, code string) error {
	tok, err := a.config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchanging authorization code: %w", err)
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	if err := a.store.Put(ctx, credentialKey(sessionID), data); err != nil {
		return fmt.Errorf("storing token: %w", err)
	}
	a.logger.Info("google account connected", "session_id", sessionID)
	return nil
}

// Connected reports whether a token is stored for sessionID.
func (a *Authenticator) Connected(ctx context.Context, sessionID string) (bool, error) {
	_, err := a.store.Get(ctx, credentialKey(sessionID))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrCredentialsNotFound):
		return false, nil
	}
	return false, err
}

// Disconnect forgets the token of sessionID.
func (a *Authenticator) Disconnect(ctx context.Context, sessionID string) error {
	return a.store.Remove(ctx, credentialKey(sessionID))
}

// Environment builds the tool handles of sessionID.
// A session that never connected gets an empty environment, so tools needing
// a handle report it to the user instead of failing the request.
func (a *Authenticator) Environment(ctx context.Context, sessionID string) (tools.Environment, error) {
	data, err := a.store.Get(ctx, credentialKey(sessionID))
	if errors.Is(err, domain.ErrCredentialsNotFound) {
		return tools.Environment{}, nil
	}
	if err != nil {
		return tools.Environment{}, fmt.Errorf("loading token: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return tools.Environment{}, fmt.Errorf("decoding token: %w", err)
	}
	return a.environment(ctx, a.config.Client(ctx, &tok))
}

func (a *Authenticator) environment(ctx context.Context, hc *http.Client) (tools.Environment, error) {
	opts := append([]option.ClientOption{option.WithHTTPClient(hc)}, a.clientOpts...)

	gmailSvc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return tools.Environment{}, fmt.Errorf("creating gmail client: %w", err)
	}
	calSvc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return tools.Environment{}, fmt.Errorf("creating calendar client: %w", err)
	}
	return tools.Environment{
		Mail:     NewMailbox(gmailSvc),
		Calendar: NewCalendar(calSvc, a.calendarID),
	}, nil
}

func credentialKey(sessionID string) string {
	return "google:" + sessionID
}
