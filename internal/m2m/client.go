// Package m2m is a client for the USGS Machine-to-Machine (M2M) JSON API.
package m2m

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Client calls M2M endpoints. Calls are rate limited and, after Login,
// carry the API key in X-Auth-Token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger

	mu     sync.RWMutex
	apiKey string
}

// NewClient creates a new M2M client allowing rps requests per second.
func NewClient(baseURL string, timeout time.Duration, rps float64) *Client {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(limit, 1),
		logger:  slog.Default(),
	}
}

// WithLogger sets a custom logger for the client.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	c.logger = logger
	return c
}

// Login exchanges a username and application token for an API key.
func (c *Client) Login(ctx context.Context, username, token string) error {
	var apiKey string
	payload := map[string]string{"username": username, "token": token}
	if err := c.send(ctx, "login-token", payload, &apiKey, false); err != nil {
		return err
	}
	if apiKey == "" {
		return &APIError{Endpoint: "login-token", StatusCode: http.StatusOK, Message: "empty API key"}
	}

	c.mu.Lock()
	c.apiKey = apiKey
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "logged in to M2M", slog.String("username", username))
	return nil
}

// Logout invalidates the API key.
func (c *Client) Logout(ctx context.Context) error {
	if !c.LoggedIn() {
		return nil
	}
	err := c.send(ctx, "logout", nil, nil, true)

	c.mu.Lock()
	c.apiKey = ""
	c.mu.Unlock()

	if err != nil {
		return err
	}
	c.logger.DebugContext(ctx, "logged out of M2M")
	return nil
}

// LoggedIn reports whether an API key is held.
func (c *Client) LoggedIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey != ""
}

// SceneSearch runs a scene-search on one dataset.
func (c *Client) SceneSearch(ctx context.Context, req SceneSearchRequest) (*SceneSearchResult, error) {
	var result SceneSearchResult
	if err := c.send(ctx, "scene-search", req, &result, true); err != nil {
		return nil, err
	}
	c.logger.DebugContext(ctx, "M2M scene search completed",
		slog.String("dataset", req.DatasetName),
		slog.Int("returned", result.RecordsReturned),
		slog.Int("total_hits", result.TotalHits),
	)
	return &result, nil
}

// DownloadOptions lists the products downloadable for the given entities.
func (c *Client) DownloadOptions(ctx context.Context, datasetName string, entityIDs []string) ([]DownloadOption, error) {
	payload := map[string]any{"datasetName": datasetName, "entityIds": entityIDs}
	var opts []DownloadOption
	if err := c.send(ctx, "download-options", payload, &opts, true); err != nil {
		return nil, err
	}
	return opts, nil
}

// DownloadRequest asks M2M to stage the given products under label.
func (c *Client) DownloadRequest(ctx context.Context, downloads []DownloadSpec, label string) (*DownloadRequestResult, error) {
	payload := map[string]any{"downloads": downloads, "label": label}
	var result DownloadRequestResult
	if err := c.send(ctx, "download-request", payload, &result, true); err != nil {
		return nil, err
	}
	return &result, nil
}

// DownloadRetrieve lists the downloads staged under label.
func (c *Client) DownloadRetrieve(ctx context.Context, label string) (*DownloadRetrieveResult, error) {
	var result DownloadRetrieveResult
	if err := c.send(ctx, "download-retrieve", map[string]string{"label": label}, &result, true); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) send(ctx context.Context, endpoint string, payload, out any, auth bool) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode %s payload: %w", endpoint, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if auth {
		c.mu.RLock()
		key := c.apiKey
		c.mu.RUnlock()
		if key == "" {
			return ErrNotLoggedIn
		}
		req.Header.Set("X-Auth-Token", key)
	}

	c.logger.DebugContext(ctx, "calling M2M", slog.String("endpoint", endpoint))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "M2M request failed",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("M2M %s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read M2M %s response: %w", endpoint, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: truncate(string(raw))}
		}
		return fmt.Errorf("failed to decode M2M %s response: %w", endpoint, err)
	}

	if env.ErrorCode != nil {
		msg := ""
		if env.ErrorMessage != nil {
			msg = *env.ErrorMessage
		}
		c.logger.ErrorContext(ctx, "M2M returned an error",
			slog.String("endpoint", endpoint),
			slog.String("code", *env.ErrorCode),
			slog.String("message", msg),
		)
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Code: *env.ErrorCode, Message: msg}
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode M2M %s data: %w", endpoint, err)
	}
	return nil
}

func truncate(s string) string {
	const limit = 512
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
