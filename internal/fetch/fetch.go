// Package fetch downloads remote render sources with retries.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/reelcannon/pkg/util"
)

// HTTPDoer is the subset of *http.Client used by the downloader
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError reports a non-2xx response
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Retryable reports whether another attempt could succeed
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// Options configures a Downloader
type Options struct {
	Client HTTPDoer
	// Timeout bounds each attempt, including the body transfer
	Timeout     time.Duration
	MaxAttempts int
	// InitialInterval is the first retry delay
	InitialInterval time.Duration
}

// Downloader fetches URLs into local files
type Downloader struct {
	logger  zerolog.Logger
	client  HTTPDoer
	timeout time.Duration
	tries   uint
	initial time.Duration
}

// New creates a downloader. Zero options fall back to 30s per attempt,
// three attempts and a 500ms initial retry delay.
func New(logger zerolog.Logger, opts Options) *Downloader {
	d := &Downloader{
		logger:  logger.With().Str("component", "fetch").Logger(),
		client:  opts.Client,
		timeout: opts.Timeout,
		tries:   3,
		initial: opts.InitialInterval,
	}
	if d.client == nil {
		d.client = http.DefaultClient
	}
	if d.timeout <= 0 {
		d.timeout = 30 * time.Second
	}
	if opts.MaxAttempts > 0 {
		d.tries = uint(opts.MaxAttempts)
	}
	if d.initial <= 0 {
		d.initial = 500 * time.Millisecond
	}
	return d
}

// Download writes the body of url to dest. The file is written under a
// temporary name in the destination directory and renamed on success, so
// dest is either absent or complete.
func (d *Downloader) Download(ctx context.Context, url, dest string) (int64, error) {
	if err := util.EnsureDir(filepath.Dir(dest)); err != nil {
		return 0, fmt.Errorf("create download dir: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.initial

	attempt := 0
	op := func() (int64, error) {
		attempt++
		n, err := d.once(ctx, url, dest)
		if err == nil {
			return n, nil
		}
		if ctx.Err() != nil {
			return 0, backoff.Permanent(ctx.Err())
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return 0, backoff.Permanent(err)
		}
		return 0, err
	}

	notify := func(err error, wait time.Duration) {
		d.logger.Warn().
			Err(err).
			Str("url", url).
			Int("attempt", attempt).
			Dur("retry_in", wait).
			Msg("download failed, retrying")
	}

	start := time.Now()
	n, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(d.tries),
		backoff.WithNotify(notify),
	)
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", url, err)
	}

	d.logger.Info().
		Str("url", url).
		Str("dest", dest).
		Int64("bytes", n).
		Dur("elapsed", time.Since(start)).
		Msg("download complete")
	return n, nil
}

func (d *Downloader) once(ctx context.Context, url, dest string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return 0, &StatusError{URL: url, Code: resp.StatusCode}
	}

	tmp, err := util.TempFile(filepath.Dir(dest), "."+filepath.Base(dest)+".", ".part")
	if err != nil {
		return 0, backoff.Permanent(fmt.Errorf("create temp file: %w", err))
	}
	tmpPath := tmp.Name()

	n, copyErr := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if copyErr != nil {
		util.CleanupFiles(tmpPath)
		return 0, fmt.Errorf("read body: %w", copyErr)
	}
	if closeErr != nil {
		util.CleanupFiles(tmpPath)
		return 0, backoff.Permanent(closeErr)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		util.CleanupFiles(tmpPath)
		return 0, backoff.Permanent(fmt.Errorf("move download into place: %w", err))
	}
	return n, nil
}
