// Package cdse talks to the Copernicus Data Space Ecosystem OData catalogue
// and its download service.
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
	"time"
)

const userAgent = "data-download/1.0"

// Client handles catalogue searches and builds authorised download requests.
type Client struct {
	catalogueURL string
	downloadURL  string
	httpClient   *http.Client
	tokens       *TokenSource
	logger       *slog.Logger
	maxPages     int
}

// NewClient creates a new CDSE client.
func NewClient(catalogueURL, downloadURL string, timeout time.Duration) *Client {
	return &Client{
		catalogueURL: strings.TrimRight(catalogueURL, "/"),
		downloadURL:  strings.TrimRight(downloadURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger:   slog.Default(),
		maxPages: 1000,
	}
}

// WithLogger sets a custom logger for the client.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	c.logger = logger
	if c.tokens != nil {
		c.tokens.WithLogger(logger)
	}
	return c
}

// WithTokenSource sets the token source used for downloads.
func (c *Client) WithTokenSource(tokens *TokenSource) *Client {
	c.tokens = tokens
	if tokens != nil {
		tokens.WithLogger(c.logger)
	}
	return c
}

// Search runs the query and follows @odata.nextLink until every page is read.
func (c *Client) Search(ctx context.Context, params SearchParams) ([]Product, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	base, err := url.Parse(c.catalogueURL + "/Products")
	if err != nil {
		return nil, fmt.Errorf("invalid catalogue URL: %w", err)
	}
	base.RawQuery = params.ToQueryString()

	var products []Product
	next := base.String()
	seen := map[string]bool{}
	for page := 0; next != ""; page++ {
		if page >= c.maxPages {
			return nil, fmt.Errorf("catalogue search exceeded %d pages", c.maxPages)
		}
		if seen[next] {
			c.logger.WarnContext(ctx, "catalogue returned a repeated next link", slog.String("url", next))
			break
		}
		seen[next] = true

		resp, err := c.searchPage(ctx, next)
		if err != nil {
			return nil, err
		}
		products = append(products, resp.Value...)
		next = resp.NextLink
	}

	c.logger.DebugContext(ctx, "CDSE search completed",
		slog.Int("product_count", len(products)),
	)

	return products, nil
}

func (c *Client) searchPage(ctx context.Context, pageURL string) (*ProductsResponse, error) {
	c.logger.DebugContext(ctx, "executing CDSE search",
		slog.String("url", pageURL),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "CDSE catalogue request failed",
			slog.String("error", err.Error()),
			slog.String("url", pageURL),
		)
		return nil, fmt.Errorf("CDSE catalogue request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.ErrorContext(ctx, "CDSE catalogue returned non-200 status",
			slog.Int("status_code", resp.StatusCode),
			slog.String("response_body", string(body)),
		)
		return nil, &StatusError{Op: "catalogue search", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result ProductsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode CDSE response: %w", err)
	}
	return &result, nil
}

// DownloadURL returns the archive URL of a product.
func (c *Client) DownloadURL(productID string) string {
	return ProductURL(c.downloadURL, productID)
}

// ProductURL returns the archive URL of a product under a download service root.
func ProductURL(downloadURL, productID string) string {
	return fmt.Sprintf("%s/Products(%s)/$value", strings.TrimSuffix(downloadURL, "/"), productID)
}

// NewDownloadRequest builds an authorised GET for a product archive. A fresh
// request is needed for every attempt so the token can be renewed.
func (c *Client) NewDownloadRequest(ctx context.Context, productID string) (*http.Request, error) {
	if c.tokens == nil {
		return nil, ErrNoCredentials
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.DownloadURL(productID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

// InvalidateToken drops the cached token, e.g. after a 401.
func (c *Client) InvalidateToken() {
	if c.tokens != nil {
		c.tokens.Invalidate()
	}
}
