package cdse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Credentials identify a CDSE account.
type Credentials struct {
	TokenURL string
	ClientID string
	Username string
	Password string
}

// TokenSource hands out bearer tokens and fetches a new one with the
// password grant once the current token is older than the refresh interval.
type TokenSource struct {
	creds      Credentials
	refresh    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time

	mu        sync.Mutex
	token     string
	fetchedAt time.Time
	expiresAt time.Time
}

// NewTokenSource creates a token source. A refresh interval <= 0 means the
// token is renewed only when the server-side expiry is reached.
func NewTokenSource(creds Credentials, refresh time.Duration, httpClient *http.Client) *TokenSource {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &TokenSource{
		creds:      creds,
		refresh:    refresh,
		httpClient: httpClient,
		logger:     slog.Default(),
		now:        time.Now,
	}
}

// WithLogger sets a custom logger.
func (t *TokenSource) WithLogger(logger *slog.Logger) *TokenSource {
	t.logger = logger
	return t
}

// Token returns a valid access token, fetching one when needed.
func (t *TokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && !t.stale() {
		return t.token, nil
	}

	if t.token != "" {
		t.logger.InfoContext(ctx, "refreshing CDSE access token")
	}

	tok, err := t.fetch(ctx)
	if err != nil {
		return "", err
	}

	now := t.now()
	t.token = tok.AccessToken
	t.fetchedAt = now
	t.expiresAt = time.Time{}
	if tok.ExpiresIn > 0 {
		t.expiresAt = now.Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	return t.token, nil
}

// Invalidate forces the next Token call to fetch a new token.
func (t *TokenSource) Invalidate() {
	t.mu.Lock()
	t.token = ""
	t.mu.Unlock()
}

func (t *TokenSource) stale() bool {
	now := t.now()
	if t.refresh > 0 && now.Sub(t.fetchedAt) >= t.refresh {
		return true
	}
	return !t.expiresAt.IsZero() && !now.Before(t.expiresAt)
}

func (t *TokenSource) fetch(ctx context.Context) (*tokenResponse, error) {
	if t.creds.Username == "" || t.creds.Password == "" {
		return nil, ErrNoCredentials
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", t.creds.ClientID)
	form.Set("username", t.creds.Username)
	form.Set("password", t.creds.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.creds.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("access token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Op: "access token creation", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("token response has no access_token")
	}
	return &tok, nil
}
