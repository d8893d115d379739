// Package kev reads the CISA Known Exploited Vulnerabilities catalog.
package kev

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lcalzada-xor/vmscout/internal/core/ports"
	"github.com/lcalzada-xor/vmscout/internal/telemetry"
)

const DefaultURL = "https://www.cisa.gov/sites/default/files/feeds/known_exploited_vulnerabilities.json"

// Catalog is the published document. Only the identifiers are consumed.
type Catalog struct {
	Title           string          `json:"title"`
	CatalogVersion  string          `json:"catalogVersion"`
	DateReleased    string          `json:"dateReleased"`
	Count           int             `json:"count"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
}

type Vulnerability struct {
	CVEID             string `json:"cveID"`
	VendorProject     string `json:"vendorProject"`
	Product           string `json:"product"`
	VulnerabilityName string `json:"vulnerabilityName"`
	DateAdded         string `json:"dateAdded"`
}

// Client downloads the catalog.
type Client struct {
	url        string
	httpClient *http.Client
}

var _ ports.ExploitedFeed = (*Client)(nil)

// NewClient creates a client for url. An empty url uses DefaultURL and a nil
// httpClient gets a traced client with a one minute timeout.
func NewClient(url string, httpClient *http.Client) *Client {
	if url == "" {
		url = DefaultURL
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   60 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{url: url, httpClient: httpClient}
}

// FetchExploited returns the CVE identifiers listed in the catalog, in document order.
func (c *Client) FetchExploited(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	telemetry.FeedRequestDuration.WithLabelValues("kev").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("kev request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kev returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read kev body: %w", err)
	}
	vulns, err := decode(body)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(vulns))
	for _, v := range vulns {
		if v.CVEID != "" {
			ids = append(ids, v.CVEID)
		}
	}
	return ids, nil
}

// decode accepts the catalog object or a bare array whose elements are
// either entries or plain identifier strings.
func decode(body []byte) ([]Vulnerability, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("failed to decode kev list: %w", err)
		}
		list := make([]Vulnerability, 0, len(raw))
		for _, r := range raw {
			var v Vulnerability
			if bytes.HasPrefix(bytes.TrimSpace(r), []byte(`"`)) {
				if err := json.Unmarshal(r, &v.CVEID); err != nil {
					return nil, fmt.Errorf("failed to decode kev id: %w", err)
				}
			} else if err := json.Unmarshal(r, &v); err != nil {
				return nil, fmt.Errorf("failed to decode kev entry: %w", err)
			}
			list = append(list, v)
		}
		return list, nil
	}
	var catalog Catalog
	if err := json.Unmarshal(body, &catalog); err != nil {
		return nil, fmt.Errorf("failed to decode kev catalog: %w", err)
	}
	return catalog.Vulnerabilities, nil
}
