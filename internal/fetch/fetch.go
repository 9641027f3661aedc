// Package fetch downloads source payloads over HTTP with a bounded retry
// policy. Bodies are kept in a small LRU cache so a URL configured more than
// once is only fetched one time per run.
package fetch

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const userAgent = "ipfilter/1.0"

// ErrDownloadFailed marks a download that failed after the retry budget was
// exhausted. It is fatal for the whole run.
var ErrDownloadFailed = errors.New("download failed")

// RetryPolicy bounds download retries.
type RetryPolicy struct {
	Attempts int
	Timeout  time.Duration
	Backoff  time.Duration
}

// DefaultRetryPolicy matches the reference behaviour: three attempts with a
// 30 second per-request timeout.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Timeout: 30 * time.Second, Backoff: 2 * time.Second}
}

// Fetcher is the download collaborator used by the pipeline.
type Fetcher struct {
	client *http.Client
	policy RetryPolicy
	cache  *lru.Cache[string, []byte]
}

// New builds a Fetcher with the given policy. Zero policy fields fall back
// to the defaults.
func New(policy RetryPolicy, cacheSize int) (*Fetcher, error) {
	def := DefaultRetryPolicy()
	if policy.Attempts <= 0 {
		policy.Attempts = def.Attempts
	}
	if policy.Timeout <= 0 {
		policy.Timeout = def.Timeout
	}
	if policy.Backoff <= 0 {
		policy.Backoff = def.Backoff
	}
	if cacheSize <= 0 {
		cacheSize = 16
	}
	cache, err := lru.New[string, []byte](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("init fetch cache: %w", err)
	}
	return &Fetcher{
		client: &http.Client{Timeout: policy.Timeout},
		policy: policy,
		cache:  cache,
	}, nil
}

// Fetch returns the response body for link, retrying transient failures.
func (f *Fetcher) Fetch(ctx context.Context, link string) ([]byte, error) {
	if body, ok := f.cache.Get(link); ok {
		return body, nil
	}
	var body []byte
	err := f.retry(ctx, link, func() error {
		var err error
		body, err = f.fetchOnce(ctx, link)
		return err
	})
	if err != nil {
		return nil, err
	}
	f.cache.Add(link, body)
	return body, nil
}

// FetchGzip fetches link and transparently decompresses the gzip body.
func (f *Fetcher) FetchGzip(ctx context.Context, link string) ([]byte, error) {
	raw, err := f.Fetch(ctx, link)
	if err != nil {
		return nil, err
	}
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("open gzip body from %s: %w", Redact(link), err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress body from %s: %w", Redact(link), err)
	}
	return out, nil
}

// FetchFile streams link into path, for payloads too large to hold in the
// body cache. The file lands via temp-file-and-rename so a failed attempt
// never leaves a partial download behind.
func (f *Fetcher) FetchFile(ctx context.Context, link, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}
	return f.retry(ctx, link, func() error {
		return f.fetchFileOnce(ctx, link, path)
	})
}

func (f *Fetcher) retry(ctx context.Context, link string, op func() error) error {
	logger := logutil.GetLogger(ctx).With(zap.String("url", Redact(link)))
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = f.policy.Backoff
	bo := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(f.policy.Attempts-1)), ctx)
	attempt := 0
	wrapped := func() error {
		attempt++
		err := op()
		if err != nil {
			logger.Warn("download attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	}
	if err := backoff.Retry(wrapped, bo); err != nil {
		return fmt.Errorf("%w: %s after %d attempt(s): %v", ErrDownloadFailed, Redact(link), attempt, err)
	}
	return nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, link string) ([]byte, error) {
	resp, err := f.do(ctx, link)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (f *Fetcher) fetchFileOnce(ctx context.Context, link, path string) error {
	resp, err := f.do(ctx, link)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create temp file: %w", err))
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("write body: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return backoff.Permanent(fmt.Errorf("install download: %w", err))
	}
	return nil
}

func (f *Fetcher) do(ctx context.Context, link string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 2048)) //nolint:errcheck
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp, nil
}

// Redact strips credential query parameters from a URL so it can be logged.
func Redact(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	q := u.Query()
	if q.Has("license_key") {
		q.Set("license_key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
