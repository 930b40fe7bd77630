package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestFetcher() *HTTPFetcher {
	f := NewHTTPFetcher(zap.NewNop())
	f.client.RetryWaitMin = time.Millisecond
	f.client.RetryWaitMax = 5 * time.Millisecond
	return f
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	tests := []struct {
		name           string
		contentType    string
		responseBody   []byte
		statusCode     int
		ctxFunc        func() (context.Context, context.CancelFunc)
		expectedError  string
		expectedLength int
	}{
		{
			name:           "Success - Valid Image",
			contentType:    "image/jpeg",
			responseBody:   []byte("fake-image-data"),
			statusCode:     http.StatusOK,
			expectedLength: 15,
		},
		{
			name:          "Error - 404 Not Found",
			contentType:   "image/jpeg",
			statusCode:    http.StatusNotFound,
			expectedError: "unexpected status code: 404",
		},
		{
			name:          "Error - Invalid Content Type",
			contentType:   "text/plain",
			responseBody:  []byte("not-an-image"),
			statusCode:    http.StatusOK,
			expectedError: "url is not an image",
		},
		{
			name:          "Error - Response Too Large",
			contentType:   "image/png",
			responseBody:  []byte(strings.Repeat("a", _maxImageSize+1)),
			statusCode:    http.StatusOK,
			expectedError: "image exceeds size limit",
		},
		{
			name:           "Success - Exactly At Limit",
			contentType:    "image/png",
			responseBody:   []byte(strings.Repeat("a", _maxImageSize)),
			statusCode:     http.StatusOK,
			expectedLength: _maxImageSize,
		},
		{
			name: "Error - Context Cancelled",
			ctxFunc: func() (context.Context, context.CancelFunc) {
				ctx, cancel := context.WithCancel(context.Background())
				cancel() // Cancel immediately
				return ctx, cancel
			},
			expectedError: "context canceled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write(tt.responseBody)
			}))
			defer server.Close()

			var ctx context.Context
			var cancel context.CancelFunc
			if tt.ctxFunc != nil {
				ctx, cancel = tt.ctxFunc()
			} else {
				ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
			}
			defer cancel()

			data, err := newTestFetcher().Fetch(ctx, server.URL)

			if tt.expectedError != "" {
				if err == nil {
					t.Fatalf("expected error containing '%s', got nil", tt.expectedError)
				}
				if !strings.Contains(err.Error(), tt.expectedError) {
					t.Errorf("expected error '%s' to contain '%s'", err.Error(), tt.expectedError)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(data) != tt.expectedLength {
				t.Errorf("expected data length %d, got %d", tt.expectedLength, len(data))
			}
		})
	}
}

func TestHTTPFetcher_RetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if ua := r.Header.Get("User-Agent"); ua != _userAgent {
			t.Errorf("unexpected user agent %q", ua)
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png"))
	}))
	defer server.Close()

	data, err := newTestFetcher().Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "png" {
		t.Errorf("unexpected body %q", data)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestHTTPFetcher_GivesUpAfterRetries(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestFetcher().Fetch(context.Background(), server.URL)
	if err == nil || !strings.Contains(err.Error(), "unexpected status code: 500") {
		t.Fatalf("expected status error, got %v", err)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("expected 1 attempt plus 2 retries, got %d", got)
	}
}

func TestHTTPFetcher_LocalFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cover.jpg")
	if err := os.WriteFile(path, []byte("jpeg-bytes"), 0o600); err != nil {
		t.Fatal(err)
	}

	f := newTestFetcher()

	for _, uri := range []string{"file://" + path, path} {
		data, err := f.Fetch(context.Background(), uri)
		if err != nil {
			t.Fatalf("Fetch(%q): unexpected error: %v", uri, err)
		}
		if string(data) != "jpeg-bytes" {
			t.Errorf("Fetch(%q) = %q", uri, data)
		}
	}

	if _, err := f.Fetch(context.Background(), "file://"+filepath.Join(dir, "missing.jpg")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestHTTPFetcher_LocalFileTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.png")
	if err := os.WriteFile(path, []byte("0123456789"), 0o600); err != nil {
		t.Fatal(err)
	}

	f := newTestFetcher()
	f.maxSize = 4

	_, err := f.Fetch(context.Background(), path)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestHTTPFetcher_UnsupportedSchemes(t *testing.T) {
	f := newTestFetcher()

	for _, uri := range []string{"", "ftp://example.com/a.png", "data:image/png;base64,AAAA", "relative/cover.png"} {
		if _, err := f.Fetch(context.Background(), uri); !errors.Is(err, ErrUnsupportedScheme) {
			t.Errorf("Fetch(%q): expected ErrUnsupportedScheme, got %v", uri, err)
		}
	}
}
