package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cptntrps/contract-v2-sub001/internal/model"
)

func testLoader(maxBytes int, opts ...LoaderOption) *Loader {
	cfg := model.DefaultConfig().Fetch
	cfg.Timeout = 5 * time.Second
	cfg.UserAgent = "test-agent"
	return NewLoader(cfg, maxBytes, opts...)
}

func noSleep(t *testing.T) {
	t.Helper()
	orig := fetchSleepFunc
	fetchSleepFunc = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	t.Cleanup(func() { fetchSleepFunc = orig })
}

func TestFetchWithRetry_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("Expected user agent header, got %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprint(w, "1. Payment\nThe Customer shall pay.\n")
	}))
	defer server.Close()

	doc, err := testLoader(1<<20).FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if doc.Text != "1. Payment\nThe Customer shall pay.\n" {
		t.Errorf("Unexpected text: %q", doc.Text)
	}
	if doc.Meta.Kind != model.SourceURL || doc.Meta.StatusCode != 200 {
		t.Errorf("Unexpected meta: %+v", doc.Meta)
	}
}

func TestFetchWithRetry_HTMLIsConverted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, "<html><body><h1>Terms</h1><p>Fees are due.</p></body></html>")
	}))
	defer server.Close()

	doc, err := testLoader(1<<20).FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if doc.Text != "# Terms\n\nFees are due.\n" {
		t.Errorf("Unexpected text: %q", doc.Text)
	}
}

func TestFetchWithRetry_TransientThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "OK")
	}))
	defer server.Close()
	noSleep(t)

	doc, err := testLoader(1<<20).FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if doc.Text != "OK" {
		t.Errorf("Unexpected text: %s", doc.Text)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_PermanentFailure(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()
	noSleep(t)

	_, err := testLoader(1<<20).FetchWithRetry(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for 404, got nil")
	}
	if got := err.Error(); got != "unexpected status: 404 404 Not Found" {
		t.Errorf("Unexpected error: %s", got)
	}
	if attempts.Load() != 1 {
		t.Errorf("Expected 404 not to be retried, got %d attempts", attempts.Load())
	}
}

func TestFetchWithRetry_AllRetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()
	noSleep(t)

	_, err := testLoader(1<<20).FetchWithRetry(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error after all retries exhausted")
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_429Retried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = fmt.Fprint(w, "OK")
	}))
	defer server.Close()
	noSleep(t)

	if _, err := testLoader(1<<20).FetchWithRetry(context.Background(), server.URL); err != nil {
		t.Fatalf("Expected success after 429 retry, got %v", err)
	}
	if attempts.Load() != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_OversizeIsNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		_, _ = fmt.Fprint(w, strings.Repeat("x", 100))
	}))
	defer server.Close()
	noSleep(t)

	_, err := testLoader(10).FetchWithRetry(context.Background(), server.URL)
	if !errors.Is(err, model.ErrInputTooLarge) {
		t.Fatalf("Expected ErrInputTooLarge, got %v", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts.Load())
	}
}

type countingThrottle struct{ calls atomic.Int32 }

func (c *countingThrottle) Wait(ctx context.Context, rawURL string) error {
	c.calls.Add(1)
	return nil
}

type denyAll struct{}

func (denyAll) CanFetch(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	return false, 0, nil
}

func TestFetchWithRetry_ThrottleAndRobots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "OK")
	}))
	defer server.Close()

	throttle := &countingThrottle{}
	if _, err := testLoader(1<<20, WithThrottle(throttle)).FetchWithRetry(context.Background(), server.URL); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if throttle.calls.Load() != 1 {
		t.Errorf("Expected throttle to be consulted once, got %d", throttle.calls.Load())
	}

	_, err := testLoader(1<<20, WithRobots(denyAll{})).FetchWithRetry(context.Background(), server.URL)
	if err == nil || !strings.Contains(err.Error(), "robots.txt disallows") {
		t.Errorf("Expected robots refusal, got %v", err)
	}
}

type slowRobots struct{ delay time.Duration }

func (r slowRobots) CanFetch(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	return true, r.delay, nil
}

func TestFetchWithRetry_BackoffHonoursDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := testLoader(1<<20).FetchWithRetry(ctx, server.URL)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed >= time.Second {
		t.Errorf("Expected backoff to stop at the deadline, took %v", elapsed)
	}
}

func TestFetchWithRetry_CrawlDelayHonoursDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "OK")
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := testLoader(1<<20, WithRobots(slowRobots{delay: 10 * time.Second})).FetchWithRetry(ctx, server.URL)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed >= time.Second {
		t.Errorf("Expected crawl delay to stop at the deadline, took %v", elapsed)
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("Expected a plain sleep to finish, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected canceled, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "draft.txt")
	htm := filepath.Join(dir, "draft.html")
	big := filepath.Join(dir, "big.md")
	_ = os.WriteFile(txt, []byte("plain text"), 0o644)
	_ = os.WriteFile(htm, []byte("<p>html text</p>"), 0o644)
	_ = os.WriteFile(big, []byte(strings.Repeat("y", 64)), 0o644)

	loader := testLoader(32)

	doc, err := loader.Load(context.Background(), txt)
	if err != nil || doc.Text != "plain text" || doc.Meta.Kind != model.SourceFile {
		t.Errorf("Unexpected result for text file: %+v, %v", doc, err)
	}

	doc, err = loader.Load(context.Background(), htm)
	if err != nil || doc.Text != "html text\n" || doc.Meta.ContentType != "text/html" {
		t.Errorf("Unexpected result for html file: %+v, %v", doc, err)
	}

	if _, err := loader.Load(context.Background(), big); !errors.Is(err, model.ErrInputTooLarge) {
		t.Errorf("Expected ErrInputTooLarge, got %v", err)
	}

	if _, err := loader.Load(context.Background(), filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestIsRetryableFetchError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"503", &StatusError{Code: 503, Status: "503 Service Unavailable"}, true},
		{"500", &StatusError{Code: 500, Status: "500 Internal Server Error"}, true},
		{"429", &StatusError{Code: 429, Status: "429 Too Many Requests"}, true},
		{"404", &StatusError{Code: 404, Status: "404 Not Found"}, false},
		{"403", &StatusError{Code: 403, Status: "403 Forbidden"}, false},
		{"transport", fmt.Errorf("fetch: connection refused"), true},
		{"request", fmt.Errorf("create request: invalid URL"), false},
		{"body", fmt.Errorf("read body: unexpected EOF"), false},
		{"too large", model.NewValidationError(model.ErrInputTooLarge, "x", "too big"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableFetchError(tt.err); got != tt.retryable {
				t.Errorf("isRetryableFetchError(%v) = %v, want %v", tt.err, got, tt.retryable)
			}
		})
	}
}
