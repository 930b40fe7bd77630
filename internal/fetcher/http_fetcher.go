package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const (
	_maxImageSize = 10 * 1024 * 1024 // 10 MB
	_userAgent    = "musicwidget/1.0"
)

var (
	// ErrUnsupportedScheme is returned for art URLs that are neither http(s) nor file.
	ErrUnsupportedScheme = errors.New("unsupported art url scheme")

	// ErrTooLarge is returned when the artwork exceeds the size cap.
	ErrTooLarge = errors.New("image exceeds size limit")
)

// HTTPFetcher loads album art from http(s):// URLs, file:// URLs and local paths
type HTTPFetcher struct {
	logger  *zap.Logger
	client  *retryablehttp.Client
	maxSize int64
}

// NewHTTPFetcher creates a fetcher with a retrying HTTP client
func NewHTTPFetcher(logger *zap.Logger) *HTTPFetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = 10 * time.Second
	client.Logger = retryLogger{logger.Sugar()}
	// hand the final response back so status codes are reported by Fetch
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &HTTPFetcher{
		logger:  logger,
		client:  client,
		maxSize: _maxImageSize,
	}
}

// Fetch returns the raw image bytes behind uri
func (f *HTTPFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if uri == "" {
		return nil, fmt.Errorf("empty art url: %w", ErrUnsupportedScheme)
	}

	if strings.HasPrefix(uri, "/") {
		return f.readFile(uri)
	}

	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid art url %q: %w", uri, err)
	}

	switch u.Scheme {
	case "http", "https":
		return f.download(ctx, uri)
	case "file":
		return f.readFile(u.Path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

func (f *HTTPFetcher) download(ctx context.Context, uri string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", _userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("url is not an image: %s", ct)
	}

	data, err := f.readLimited(resp.Body)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("Image fetched successfully", zap.Int("bytes", len(data)), zap.String("url", uri))
	return data, nil
}

func (f *HTTPFetcher) readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open art file: %w", err)
	}
	defer file.Close()

	data, err := f.readLimited(file)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("Image read from disk", zap.Int("bytes", len(data)), zap.String("path", path))
	return data, nil
}

// readLimited reads at most maxSize bytes and fails instead of truncating.
func (f *HTTPFetcher) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(data)) > f.maxSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.maxSize)
	}
	return data, nil
}

// retryLogger routes retryablehttp's leveled logs to zap.
type retryLogger struct {
	s *zap.SugaredLogger
}

func (l retryLogger) Error(msg string, keysAndValues ...interface{}) { l.s.Errorw(msg, keysAndValues...) }
func (l retryLogger) Info(msg string, keysAndValues ...interface{})  { l.s.Infow(msg, keysAndValues...) }
func (l retryLogger) Debug(msg string, keysAndValues ...interface{}) { l.s.Debugw(msg, keysAndValues...) }
func (l retryLogger) Warn(msg string, keysAndValues ...interface{})  { l.s.Warnw(msg, keysAndValues...) }
