package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// RequestFunc builds the request for one attempt. It is called again on
// every retry so credentials can be refreshed.
type RequestFunc func(ctx context.Context) (*http.Request, error)

// ErrAlreadyDownloaded is returned when the destination already holds a
// non-empty file.
var ErrAlreadyDownloaded = errors.New("already downloaded")

// HTTPError is a non-2xx download response.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("download %s: status %d", e.URL, e.StatusCode)
}

// Retryable reports whether the status is one of 500, 502, 503 and 504.
func (e *HTTPError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Fetcher streams archives to disk.
type Fetcher struct {
	httpClient *http.Client
	retries    int
	backoff    time.Duration
	logger     *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewFetcher creates a Fetcher. headerTimeout bounds the wait for response
// headers only, not the transfer itself.
func NewFetcher(retries int, backoff, headerTimeout time.Duration) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				ResponseHeaderTimeout: headerTimeout,
			},
		},
		retries: retries,
		backoff: backoff,
		logger:  slog.Default(),
		sleep:   sleepContext,
	}
}

// WithLogger sets a custom logger.
func (f *Fetcher) WithLogger(logger *slog.Logger) *Fetcher {
	f.logger = logger
	return f
}

// WithHTTPClient replaces the HTTP client.
func (f *Fetcher) WithHTTPClient(c *http.Client) *Fetcher {
	f.httpClient = c
	return f
}

// Fetch downloads into dest. The body is written to dest.part and renamed
// once complete, so an interrupted transfer never looks finished.
func (f *Fetcher) Fetch(ctx context.Context, newRequest RequestFunc, dest string) (int64, error) {
	return f.fetch(ctx, newRequest, nil, dest)
}

// fetch is Fetch with an optional hook for a 401. The hook runs once, and
// the request is then rebuilt and sent again without using up a retry.
func (f *Fetcher) fetch(ctx context.Context, newRequest RequestFunc, unauthorized func(), dest string) (int64, error) {
	if Exists(dest) {
		return 0, ErrAlreadyDownloaded
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	renewed := false
	for attempt := 0; ; {
		n, err := f.fetchOnce(ctx, newRequest, dest)
		if err == nil {
			return n, nil
		}

		if unauthorized != nil && !renewed && isUnauthorized(err) {
			renewed = true
			f.logger.WarnContext(ctx, "download unauthorized, renewing credentials",
				slog.String("dest", dest),
			)
			unauthorized()
			continue
		}

		if !retryable(ctx, err) || attempt >= f.retries {
			return 0, err
		}
		attempt++

		wait := f.backoff << (attempt - 1)
		f.logger.WarnContext(ctx, "retrying download",
			slog.String("dest", dest),
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()),
		)
		if err := f.sleep(ctx, wait); err != nil {
			return 0, err
		}
	}
}

func (f *Fetcher) fetchOnce(ctx context.Context, newRequest RequestFunc, dest string) (int64, error) {
	req, err := newRequest(ctx)
	if err != nil {
		return 0, err
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, &transferError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return 0, &HTTPError{URL: req.URL.Redacted(), StatusCode: resp.StatusCode}
	}

	part := dest + ".part"
	out, err := os.Create(part)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", part, err)
	}

	n, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(part)
		return 0, &transferError{err: errors.Join(copyErr, closeErr)}
	}

	if err := os.Rename(part, dest); err != nil {
		os.Remove(part)
		return 0, fmt.Errorf("failed to move %s into place: %w", part, err)
	}
	return n, nil
}

// transferError marks a connection failure or a broken body stream.
type transferError struct{ err error }

func (e *transferError) Error() string { return "download interrupted: " + e.err.Error() }
func (e *transferError) Unwrap() error { return e.err }

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Retryable()
	}
	var te *transferError
	return errors.As(err, &te)
}

func isUnauthorized(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == http.StatusUnauthorized
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
