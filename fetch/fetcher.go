package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-cleanhttp"

	"github.com/agentcomposer/agentcomposer/log"
)

// Artifact is a fetched remote unit.
type Artifact struct {
	URL  string
	Path string
	Text string
}

// Fetcher downloads remote units over HTTP(S).
type Fetcher struct {
	client      *http.Client
	timeout     time.Duration
	maxAttempts int
	interval    time.Duration
	checksum    string
	logger      log.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient replaces the HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithTimeout bounds a single request. Zero means no timeout. The timeout is set on a copy
// of the client, so a client passed to WithClient is left untouched.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithMaxAttempts sets how many times a transient failure is tried. Values below 1 mean 1.
func WithMaxAttempts(n int) Option {
	return func(f *Fetcher) {
		if n < 1 {
			n = 1
		}
		f.maxAttempts = n
	}
}

// WithInitialInterval sets the first backoff delay between attempts.
func WithInitialInterval(d time.Duration) Option {
	return func(f *Fetcher) {
		f.interval = d
	}
}

// WithChecksum makes Fetch verify the body against a hex encoded SHA-256 digest.
func WithChecksum(sha256Hex string) Option {
	return func(f *Fetcher) {
		f.checksum = strings.ToLower(strings.TrimSpace(sha256Hex))
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(f *Fetcher) {
		f.logger = l
	}
}

// New creates a Fetcher. By default it uses a pooled cleanhttp client with a 30s timeout
// and tries transient failures three times.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      cleanhttp.DefaultPooledClient(),
		timeout:     30 * time.Second,
		maxAttempts: 3,
		interval:    500 * time.Millisecond,
		logger:      log.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = log.OrNoOp(f.logger)

	client := *f.client
	client.Timeout = f.timeout
	f.client = &client
	return f
}

// Fetch downloads url and writes the body to dest, creating or truncating it.
// A non-2xx response yields a *TransferError and dest is not written.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) (*Artifact, error) {
	var body []byte

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.interval
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(f.maxAttempts-1)), ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		b, err := f.get(ctx, url)
		if err != nil {
			f.logger.Warn("fetch %s attempt %d/%d: %v", url, attempt, f.maxAttempts, err)
			return err
		}
		body = b
		return nil
	}, policy)
	if err != nil {
		return nil, err
	}

	if f.checksum != "" {
		sum := sha256.Sum256(body)
		if actual := hex.EncodeToString(sum[:]); actual != f.checksum {
			return nil, &ChecksumError{URL: url, Expected: f.checksum, Actual: actual}
		}
	}

	if err := writeFile(dest, body); err != nil {
		return nil, err
	}
	f.logger.Info("fetched %s into %s (%d bytes)", url, dest, len(body))

	return &Artifact{URL: url, Path: dest, Text: string(body)}, nil
}

// get performs one request. Client errors are permanent; server and transport errors are retried.
func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		terr := &TransferError{URL: url, StatusCode: resp.StatusCode}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, terr
		}
		return nil, backoff.Permanent(terr)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return body, nil
}

func writeFile(dest string, body []byte) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
