// Package ge provides HTTP clients for Grand Exchange price APIs: the
// primary wiki-style real-time prices service and a secondary mirror with a
// compatible but not identical payload shape.
package ge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"ge-market-watch/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout   = 15 * time.Second
	DefaultUserAgent = "ge-market-watch/1.0"
)

// Client talks to the primary wiki-style prices API.
type Client struct {
	name      string
	baseURL   string
	userAgent string
	client    *http.Client
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithUserAgent sets the User-Agent header. The upstream service requires a
// descriptive one.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a new primary prices API client.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		name:      "primary",
		baseURL:   baseURL,
		userAgent: DefaultUserAgent,
		client:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name identifies this source in logs and metrics.
func (c *Client) Name() string {
	return c.name
}

// FetchSnapshots retrieves one polling interval of price/volume data for the
// given granularity (/5m or /1h). Items without either average price come
// back as invalid snapshots and are skipped downstream, which is distinct
// from a fetch failure: an empty-but-well-formed payload is success.
func (c *Client) FetchSnapshots(ctx context.Context, granularity domain.Granularity) (map[int]domain.MarketSnapshot, error) {
	endpoint := "/5m"
	if granularity == domain.GranularityCoarse {
		endpoint = "/1h"
	}

	var resp intervalResponse
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	snapshots := make(map[int]domain.MarketSnapshot, len(resp.Data))
	for idStr, p := range resp.Data {
		itemID, err := strconv.Atoi(idStr)
		if err != nil {
			return nil, fmt.Errorf("malformed item id %q: %w", idStr, err)
		}
		snapshots[itemID] = domain.MarketSnapshot{
			ItemID:    itemID,
			Timestamp: resp.Timestamp,
			Low:       int64Value(p.AvgLowPrice),
			High:      int64Value(p.AvgHighPrice),
			Volume:    int64Value(p.LowPriceVolume) + int64Value(p.HighPriceVolume),
		}
	}
	return snapshots, nil
}

// FetchCatalog retrieves the item catalog from the /mapping endpoint.
func (c *Client) FetchCatalog(ctx context.Context) ([]*domain.ItemMetadata, error) {
	var entries []mappingEntry
	if err := c.get(ctx, "/mapping", &entries); err != nil {
		return nil, err
	}

	items := make([]*domain.ItemMetadata, 0, len(entries))
	for _, e := range entries {
		items = append(items, &domain.ItemMetadata{
			ID:       e.ID,
			Name:     e.Name,
			BuyLimit: e.BuyLimit,
			Members:  e.Members,
			Value:    e.Value,
			HighAlch: e.HighAlch,
			Icon:     e.Icon,
		})
	}
	return items, nil
}

// get performs a GET request and decodes the JSON response into result.
func (c *Client) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little of the body for a readable error
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("GET %s: status %d: %s", endpoint, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

// int64Value dereferences a nullable wire field, zero when absent.
func int64Value(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
