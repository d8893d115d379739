package nvd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/lcalzada-xor/vmscout/internal/core/domain"
	"github.com/lcalzada-xor/vmscout/internal/core/ports"
	"github.com/lcalzada-xor/vmscout/internal/telemetry"
)

const (
	DefaultBaseURL   = "https://services.nvd.nist.gov/rest/json/cves/2.0"
	DefaultUserAgent = "vmscout/1.0"

	// Public quota: 5 requests per rolling 30 seconds, 50 with an API key.
	anonymousRequests = 5
	keyedRequests     = 50
	quotaWindow       = 30 * time.Second

	startOfDay = "T00:00:00.000+00:00"
	endOfDay   = "T23:59:59.999+00:00"
)

// Config configures the NVD client.
type Config struct {
	BaseURL    string
	APIKey     string
	PageSize   int // 0 lets the server choose
	UserAgent  string
	HTTPClient *http.Client
	Limiter    *rate.Limiter
}

// Client fetches pages from the NVD CVE API 2.0.
type Client struct {
	baseURL    string
	apiKey     string
	pageSize   int
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ ports.VulnerabilityFeed = (*Client)(nil)

// NewLimiter returns a limiter matching the public NVD quota for the key state.
func NewLimiter(apiKey string) *rate.Limiter {
	n := anonymousRequests
	if apiKey != "" {
		n = keyedRequests
	}
	return rate.NewLimiter(rate.Every(quotaWindow/time.Duration(n)), n)
}

// NewClient creates a new NVD client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{
			Timeout:   60 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if cfg.Limiter == nil {
		cfg.Limiter = NewLimiter(cfg.APIKey)
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		pageSize:   cfg.PageSize,
		userAgent:  cfg.UserAgent,
		httpClient: cfg.HTTPClient,
		limiter:    cfg.Limiter,
	}
}

// FetchPage fetches one page of CVEs published within window, starting at startIndex.
// A 404 response yields domain.ErrFeedNotFound.
func (c *Client) FetchPage(ctx context.Context, window domain.FeedWindow, startIndex int) (*domain.FeedPage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL(window, startIndex), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apiKey", c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	telemetry.FeedRequestDuration.WithLabelValues("nvd").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("nvd request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("nvd window %s..%s: %w",
			window.Start.Format("2006-01-02"), window.End.Format("2006-01-02"), domain.ErrFeedNotFound)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("nvd returned %s: %s", resp.Status, string(body))
	}

	var payload Response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode nvd response: %w", err)
	}
	return payload.ToPage(), nil
}

func (c *Client) pageURL(window domain.FeedWindow, startIndex int) string {
	q := url.Values{}
	q.Set("pubStartDate", window.Start.UTC().Format(time.DateOnly)+startOfDay)
	q.Set("pubEndDate", window.End.UTC().Format(time.DateOnly)+endOfDay)
	q.Set("startIndex", strconv.Itoa(startIndex))
	if c.pageSize > 0 {
		q.Set("resultsPerPage", strconv.Itoa(c.pageSize))
	}
	return c.baseURL + "?" + q.Encode()
}
