// Package imagesync зеркалирует картинки товаров с CDN поставщика в объектное хранилище.
package imagesync

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/ilkoid/poncho-catalog/pkg/config"
)

// DefaultContentType — если ни заголовок, ни расширение не помогли.
const DefaultContentType = "image/jpeg"

// maxImageBytes — защита от бесконечного тела ответа.
const maxImageBytes = 32 << 20

// HTTPClient интерфейс для выполнения HTTP запросов.
// Стандартный *http.Client реализует этот интерфейс.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher скачивает картинку и определяет ее content type.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (data []byte, contentType string, err error)
}

// FetchError — CDN ответил не-2xx.
type FetchError struct {
	URL        string
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
}

// retryable — 429 и 5xx имеет смысл повторить.
func (e *FetchError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// HTTPFetcher качает картинки с таймаутом, лимитом запросов и повторами.
type HTTPFetcher struct {
	client    HTTPClient
	limiter   *rate.Limiter
	retries   int
	userAgent string
	backoff   time.Duration
	maxWait   time.Duration // потолок паузы по Retry-After
}

var _ Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher создает fetcher из секции sync конфига.
func NewHTTPFetcher(cfg config.SyncConfig) *HTTPFetcher {
	cfg = cfg.GetDefaults()
	return NewHTTPFetcherWithClient(&http.Client{Timeout: cfg.FetchTimeoutDuration()}, cfg)
}

// NewHTTPFetcherWithClient — то же с подставным HTTP клиентом (для тестов).
func NewHTTPFetcherWithClient(client HTTPClient, cfg config.SyncConfig) *HTTPFetcher {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.BurstLimit
	if burst <= 0 {
		burst = 1
	}

	return &HTTPFetcher{
		client:    client,
		limiter:   rate.NewLimiter(limit, burst),
		retries:   max(0, cfg.RetryAttempts),
		userAgent: cfg.UserAgent,
		backoff:   500 * time.Millisecond,
		maxWait:   cfg.FetchTimeoutDuration(),
	}
}

// Fetch выполняет GET. Сетевые ошибки, 429 и 5xx повторяются до retries раз,
// остальные коды сразу возвращают *FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	var lastErr error

	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			wait := f.backoff * time.Duration(attempt)
			if fe, ok := lastErr.(*retryAfterError); ok {
				// Retry-After от CDN ограничен таймаутом одной загрузки
				wait = min(fe.after, f.maxWait)
			}
			select {
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-time.After(wait):
			}
		}

		// Ждем разрешения от лимитера (блокирует горутину, если превысили лимит)
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, "", fmt.Errorf("rate limiter wait: %w", err)
		}

		data, contentType, err := f.fetchOnce(ctx, rawURL)
		if err == nil {
			return data, contentType, nil
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}

		lastErr = err
		if fe, ok := unwrapFetchError(err); ok && !fe.retryable() {
			return nil, "", fe
		}
	}

	if ra, ok := lastErr.(*retryAfterError); ok {
		return nil, "", ra.FetchError
	}
	return nil, "", lastErr
}

// retryAfterError — 429 с заголовком Retry-After.
type retryAfterError struct {
	*FetchError
	after time.Duration
}

func unwrapFetchError(err error) (*FetchError, bool) {
	switch e := err.(type) {
	case *FetchError:
		return e, true
	case *retryAfterError:
		return e.FetchError, true
	}
	return nil, false
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		fe := &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
		if resp.StatusCode == http.StatusTooManyRequests {
			if sec, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && sec >= 0 {
				return nil, "", &retryAfterError{FetchError: fe, after: time.Duration(sec) * time.Second}
			}
		}
		return nil, "", fe
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read body %s: %w", rawURL, err)
	}

	return data, detectContentType(resp.Header.Get("Content-Type"), rawURL), nil
}

// detectContentType: заголовок ответа → расширение в URL → image/jpeg.
func detectContentType(header, rawURL string) string {
	if header != "" {
		return header
	}
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	if ct := mime.TypeByExtension(path.Ext(p)); ct != "" {
		return ct
	}
	return DefaultContentType
}
