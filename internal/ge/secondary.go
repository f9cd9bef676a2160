package ge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ge-market-watch/internal/domain"
)

// MirrorClient talks to the secondary mirror service. The mirror exposes the
// same data with a flat row-array shape instead of the primary's keyed map,
// and nests prices under per-row fields. It is consulted only when the
// primary fails.
type MirrorClient struct {
	name      string
	baseURL   string
	userAgent string
	client    *http.Client
}

// mirrorRow is one item row from the mirror's /prices endpoint.
type mirrorRow struct {
	ItemID  int    `json:"item_id"`
	AvgLow  *int64 `json:"avg_low"`
	AvgHigh *int64 `json:"avg_high"`
	Volume  *int64 `json:"volume"`
}

// mirrorResponse is the mirror's interval payload.
type mirrorResponse struct {
	Rows      []mirrorRow `json:"rows"`
	Timestamp int64       `json:"ts"`
}

// NewMirrorClient creates a new secondary mirror client.
func NewMirrorClient(baseURL string, opts ...MirrorOption) *MirrorClient {
	c := &MirrorClient{
		name:      "mirror",
		baseURL:   baseURL,
		userAgent: DefaultUserAgent,
		client:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MirrorOption configures MirrorClient.
type MirrorOption func(*MirrorClient)

// WithMirrorTimeout sets HTTP client timeout.
func WithMirrorTimeout(d time.Duration) MirrorOption {
	return func(c *MirrorClient) {
		c.client.Timeout = d
	}
}

// WithMirrorHTTPClient sets custom http.Client.
func WithMirrorHTTPClient(client *http.Client) MirrorOption {
	return func(c *MirrorClient) {
		c.client = client
	}
}

// Name identifies this source in logs and metrics.
func (c *MirrorClient) Name() string {
	return c.name
}

// FetchSnapshots retrieves one polling interval from the mirror.
func (c *MirrorClient) FetchSnapshots(ctx context.Context, granularity domain.Granularity) (map[int]domain.MarketSnapshot, error) {
	endpoint := "/prices/5m"
	if granularity == domain.GranularityCoarse {
		endpoint = "/prices/1h"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("GET %s: status %d: %s", endpoint, resp.StatusCode, string(body))
	}

	var payload mirrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", endpoint, err)
	}

	snapshots := make(map[int]domain.MarketSnapshot, len(payload.Rows))
	for _, row := range payload.Rows {
		snapshots[row.ItemID] = domain.MarketSnapshot{
			ItemID:    row.ItemID,
			Timestamp: payload.Timestamp,
			Low:       int64Value(row.AvgLow),
			High:      int64Value(row.AvgHigh),
			Volume:    int64Value(row.Volume),
		}
	}
	return snapshots, nil
}
