package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDownloader(attempts int) *Downloader {
	return New(zerolog.Nop(), Options{
		Timeout:         2 * time.Second,
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
	})
}

func TestDownload(t *testing.T) {
	const body = "1\n00:00:00,000 --> 00:00:01,000\nhello\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "downloads", "input_subtitles.srt")
	n, err := newTestDownloader(1).Download(context.Background(), srv.URL+"/subs.srt", dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), n)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")

	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDownloadRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("video"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "input_video.mp4")
	_, err := newTestDownloader(3).Download(context.Background(), srv.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDownloadGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "input_video.mp4")
	_, err := newTestDownloader(2).Download(context.Background(), srv.URL, dest)
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
	assert.NoFileExists(t, dest)
}

func TestDownloadClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "input_video.mp4")
	_, err := newTestDownloader(5).Download(context.Background(), srv.URL, dest)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.False(t, statusErr.Retryable())
	assert.NoFileExists(t, dest)
}

func TestDownloadCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestDownloader(3).Download(ctx, srv.URL, filepath.Join(t.TempDir(), "x.mp4"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatusErrorRetryable(t *testing.T) {
	assert.True(t, (&StatusError{Code: 500}).Retryable())
	assert.True(t, (&StatusError{Code: 429}).Retryable())
	assert.False(t, (&StatusError{Code: 403}).Retryable())
}
