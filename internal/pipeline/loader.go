package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cptntrps/contract-v2-sub001/internal/extract"
	"github.com/cptntrps/contract-v2-sub001/internal/model"
	"github.com/cptntrps/contract-v2-sub001/internal/util"
)

// fetchSleepFunc is swapped out in tests
var fetchSleepFunc = sleepContext

// sleepContext waits for d or until ctx is done, whichever comes first
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Throttle paces requests per host
type Throttle interface {
	Wait(ctx context.Context, rawURL string) error
}

// RobotsPolicy decides whether a URL may be fetched and how long to wait first
type RobotsPolicy interface {
	CanFetch(ctx context.Context, rawURL string) (bool, time.Duration, error)
}

// Loader reads document versions from files or http(s) URLs
type Loader struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	attempts   int
	throttle   Throttle
	robots     RobotsPolicy
}

// LoaderOption configures a Loader
type LoaderOption func(*Loader)

// WithThrottle paces URL loads through t
func WithThrottle(t Throttle) LoaderOption {
	return func(l *Loader) { l.throttle = t }
}

// WithRobots refuses URLs the site's robots.txt disallows
func WithRobots(p RobotsPolicy) LoaderOption {
	return func(l *Loader) { l.robots = p }
}

// NewLoader creates a loader that rejects documents larger than maxBytes
func NewLoader(cfg model.FetchConfig, maxBytes int, opts ...LoaderOption) *Loader {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy)

	l := &Loader{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  int64(maxBytes),
		attempts:  max(cfg.Retries, 1),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Document is one loaded version, reduced to plain text
type Document struct {
	Text string
	Meta model.SourceMeta
}

// Load reads location as a URL when it has an http(s) scheme, otherwise as a file path
func (l *Loader) Load(ctx context.Context, location string) (*Document, error) {
	if isURL(location) {
		return l.FetchWithRetry(ctx, location)
	}
	return l.LoadFile(location)
}

// LoadFile reads a .txt, .md or .html file from disk
func (l *Loader) LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	body, err := l.readLimited(f, path)
	if err != nil {
		return nil, err
	}

	contentType := contentTypeForPath(path)
	text, err := toText(body, contentType)
	if err != nil {
		return nil, err
	}

	return &Document{
		Text: text,
		Meta: model.SourceMeta{
			Location:    path,
			Kind:        model.SourceFile,
			ContentType: contentType,
			Bytes:       len(body),
			LoadedAt:    time.Now().UTC(),
		},
	}, nil
}

// Fetch retrieves one URL without retrying
func (l *Loader) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "text/plain,text/markdown,text/html;q=0.9,*/*;q=0.5")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := l.readLimited(resp.Body, rawURL)
	if err != nil {
		return nil, err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	text, err := toText(body, contentType)
	if err != nil {
		return nil, err
	}

	return &Document{
		Text: text,
		Meta: model.SourceMeta{
			Location:     resp.Request.URL.String(),
			Kind:         model.SourceURL,
			ContentType:  contentType,
			StatusCode:   resp.StatusCode,
			LastModified: resp.Header.Get("Last-Modified"),
			ETag:         resp.Header.Get("ETag"),
			Bytes:        len(body),
			LoadedAt:     time.Now().UTC(),
		},
	}, nil
}

// FetchWithRetry fetches a URL, retrying transient failures with exponential backoff
func (l *Loader) FetchWithRetry(ctx context.Context, rawURL string) (*Document, error) {
	if l.robots != nil {
		allowed, delay, err := l.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("robots: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("robots.txt disallows %s", rawURL)
		}
		if delay > 0 {
			if err := fetchSleepFunc(ctx, delay); err != nil {
				return nil, err
			}
		}
	}

	var lastErr error
	backoff := time.Second
	for attempt := 1; attempt <= l.attempts; attempt++ {
		if l.throttle != nil {
			if err := l.throttle.Wait(ctx, rawURL); err != nil {
				return nil, err
			}
		}

		doc, err := l.Fetch(ctx, rawURL)
		if err == nil {
			return doc, nil
		}
		lastErr = err

		if !isRetryableFetchError(err) || attempt == l.attempts {
			break
		}
		if err := fetchSleepFunc(ctx, backoff); err != nil {
			return nil, err
		}
		backoff *= 2
	}
	return nil, lastErr
}

// StatusError reports a non-2xx response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// isRetryableFetchError retries 5xx, 429 and transport failures;
// other statuses and size violations are permanent
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}
	if errors.Is(err, model.ErrInputTooLarge) || errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return strings.HasPrefix(err.Error(), "fetch: ")
}

// readLimited reads at most maxBytes; anything longer is rejected rather than truncated
func (l *Loader) readLimited(r io.Reader, location string) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > l.maxBytes {
		return nil, model.NewValidationError(model.ErrInputTooLarge, location, "exceeds %d bytes", l.maxBytes)
	}
	return body, nil
}

func toText(body []byte, contentType string) (string, error) {
	if strings.Contains(contentType, "html") {
		text, err := extract.HTMLText(bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		return text, nil
	}
	return string(body), nil
}

func contentTypeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return "text/html"
	case ".md", ".markdown":
		return "text/markdown"
	default:
		return "text/plain"
	}
}

func isURL(location string) bool {
	u, err := url.Parse(location)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
