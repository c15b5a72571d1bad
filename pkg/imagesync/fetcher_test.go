package imagesync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ilkoid/poncho-catalog/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "image/webp")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(config.SyncConfig{RetryAttempts: 2, UserAgent: "test-agent"})
	f.backoff = time.Millisecond

	data, ct, err := f.Fetch(context.Background(), srv.URL+"/a.webp")
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), data)
	assert.Equal(t, "image/webp", ct)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPFetcher_RetryAfterOn429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(config.SyncConfig{RetryAttempts: 1})
	_, _, err := f.Fetch(context.Background(), srv.URL+"/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPFetcher_RetryAfterCappedByFetchTimeout(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "86400")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(config.SyncConfig{RetryAttempts: 1, FetchTimeout: "50ms"})
	start := time.Now()
	_, _, err := f.Fetch(context.Background(), srv.URL+"/a.jpg")

	assert.Less(t, time.Since(start), 2*time.Second)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusTooManyRequests, fe.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPFetcher_NegativeRetriesSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(config.SyncConfig{RetryAttempts: -1})
	_, _, err := f.Fetch(context.Background(), srv.URL+"/a.jpg")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPFetcher_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(config.SyncConfig{RetryAttempts: 3})
	_, _, err := f.Fetch(context.Background(), srv.URL+"/a.jpg")

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusForbidden, fe.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPFetcher_ExhaustedRetriesReturnStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(config.SyncConfig{RetryAttempts: 1})
	f.backoff = time.Millisecond
	_, _, err := f.Fetch(context.Background(), srv.URL+"/a.jpg")

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusServiceUnavailable, fe.StatusCode)
}

func TestHTTPFetcher_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(config.SyncConfig{FetchTimeout: "20ms", RetryAttempts: -1})
	_, _, err := f.Fetch(context.Background(), srv.URL+"/slow.jpg")
	assert.Error(t, err)
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		header, url, want string
	}{
		{"image/webp", "https://cdn/x.jpg", "image/webp"},
		{"", "https://cdn/x.png?v=3", "image/png"},
		{"", "https://cdn/x", DefaultContentType},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, detectContentType(tt.header, tt.url), tt.url)
	}
}
