package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/sveahq/bolagsagent/internal/observability"
)

// RefreshMargin is subtracted from a token's reported lifetime so a token
// is never handed out within this window of its actual expiry.
const RefreshMargin = 60 * time.Second

// defaultTokenLifetime is assumed when the authorization server omits
// expires_in from the token response.
const defaultTokenLifetime = time.Hour

var ErrMissingCredentials = errors.New("client credentials not configured")

// CredentialError wraps a failed token exchange.
type CredentialError struct {
	Op  string
	Err error
}

func (e *CredentialError) Error() string {
	return "auth: " + e.Op + ": " + e.Err.Error()
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

// Config holds the client-credentials grant settings.
type Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string

	// Scope is a space-separated list of scopes to request.
	Scope string

	// Margin overrides RefreshMargin when positive.
	Margin time.Duration

	// HTTPClient is used for the token exchange. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Metrics counts token exchanges. May be nil.
	Metrics *observability.Metrics
}

// TokenManager caches an OAuth2 access token obtained via the
// client-credentials grant and refreshes it before expiry.
//
// A cached token is served without any network traffic until it is within
// the refresh margin of expiring. Refreshes are serialized: concurrent
// callers arriving during a refresh wait for it rather than racing their
// own exchanges.
type TokenManager struct {
	cc      *clientcredentials.Config
	client  *http.Client
	margin  time.Duration
	metrics *observability.Metrics

	mu     sync.Mutex
	token  string
	expiry time.Time

	now func() time.Time
}

// NewTokenManager creates a token manager. It does not perform an exchange;
// the first call to Token does.
func NewTokenManager(cfg Config) *TokenManager {
	margin := cfg.Margin
	if margin <= 0 {
		margin = RefreshMargin
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &TokenManager{
		cc: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       strings.Fields(cfg.Scope),
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		client:  client,
		margin:  margin,
		metrics: cfg.Metrics,
		now:     time.Now,
	}
}

// Token returns a valid access token, exchanging credentials with the
// authorization server only when the cached token is missing or inside
// the refresh margin.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	if m.cc.ClientID == "" || m.cc.ClientSecret == "" {
		return "", &CredentialError{Op: "token", Err: ErrMissingCredentials}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" && m.now().Before(m.expiry) {
		return m.token, nil
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.client)
	tok, err := m.cc.Token(ctx)
	if err != nil {
		m.recordRefresh("error")
		return "", &CredentialError{Op: "exchange", Err: err}
	}
	m.recordRefresh("success")

	expiry := tok.Expiry
	if expiry.IsZero() {
		expiry = m.now().Add(defaultTokenLifetime)
	}

	m.token = tok.AccessToken
	m.expiry = expiry.Add(-m.margin)
	return m.token, nil
}

// Invalidate discards the cached token so the next Token call performs
// a fresh exchange. Used after the upstream rejects a token as stale.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.expiry = time.Time{}
}

func (m *TokenManager) recordRefresh(status string) {
	if m.metrics != nil {
		m.metrics.RecordTokenRefresh(status)
	}
}
