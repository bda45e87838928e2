package scrape

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Fetcher retrieves the raw markup of the source page. A failed primary
// attempt is followed by exactly one fallback attempt through an alternate
// transport (a proxy when configured, a fresh transport otherwise).
type Fetcher struct {
	primary   *http.Client
	fallback  *http.Client
	userAgent string
	timeout   time.Duration
}

func NewFetcher(userAgent, fallbackProxy string, timeout time.Duration) (*Fetcher, error) {
	fallbackTransport := http.DefaultTransport.(*http.Transport).Clone()
	if fallbackProxy != "" {
		proxyURL, err := url.Parse(fallbackProxy)
		if err != nil {
			return nil, fmt.Errorf("invalid fallback proxy URL: %w", err)
		}
		fallbackTransport.Proxy = http.ProxyURL(proxyURL)
	}

	return &Fetcher{
		primary:   &http.Client{Timeout: timeout},
		fallback:  &http.Client{Timeout: timeout, Transport: fallbackTransport},
		userAgent: userAgent,
		timeout:   timeout,
	}, nil
}

func (f *Fetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	data, primaryErr := f.fetch(ctx, f.primary, pageURL)
	if primaryErr == nil {
		return data, nil
	}

	slog.Warn("Primary fetch failed, trying fallback transport", "url", pageURL, "error", primaryErr)

	data, fallbackErr := f.fetch(ctx, f.fallback, pageURL)
	if fallbackErr == nil {
		return data, nil
	}

	return nil, fmt.Errorf("%w: primary: %v, fallback: %v", ErrFetchFailed, primaryErr, fallbackErr)
}

func (f *Fetcher) fetch(ctx context.Context, client *http.Client, pageURL string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
