package snipsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	// DefaultMaxBytes bounds the size of a downloaded snippet document
	DefaultMaxBytes = 5 << 20

	driveDownloadURL = "https://drive.usercontent.google.com/download?id=%s&export=download&confirm=t"
)

var (
	driveFilePath = regexp.MustCompile(`/d/([a-zA-Z0-9_-]+)`)
	bareFileID    = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// ResolveURL turns the configured source into a fetchable URL. Google
// Drive share links and bare Drive file ids are rewritten to the direct
// download endpoint; other http(s) URLs are returned unchanged.
func ResolveURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrNoSource
	}

	if bareFileID.MatchString(raw) {
		return fmt.Sprintf(driveDownloadURL, raw), nil
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid snippet source %q", raw)
	}

	if isGoogleHost(u.Hostname()) {
		if m := driveFilePath.FindStringSubmatch(u.Path); m != nil {
			return fmt.Sprintf(driveDownloadURL, url.QueryEscape(m[1])), nil
		}
	}

	return raw, nil
}

func isGoogleHost(host string) bool {
	return host == "google.com" || strings.HasSuffix(host, ".google.com")
}

// Fetcher downloads the raw snippet document
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher fetches over HTTP with a timeout and a body size limit
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPFetcher creates a fetcher; timeout <= 0 disables the client timeout
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: DefaultMaxBytes,
	}
}

// Fetch performs a GET and returns the body of a 2xx response
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/xml, text/xml;q=0.9, */*;q=0.1")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch snippets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch snippets: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read snippets: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, ErrTooLarge
	}

	return body, nil
}

// Sentinel errors reported in sync results
var (
	ErrNoSource          = errors.New("no master snippet URL configured")
	ErrSharingPermission = errors.New("received an HTML page instead of XML; check the file's sharing permission")
	ErrFormat            = errors.New("not a snippet document: missing <folders> root element")
	ErrTooLarge          = errors.New("snippet document exceeds size limit")
)
