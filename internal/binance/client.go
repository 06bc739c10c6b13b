package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dtrask/stinkbot/internal/domain"
)

// Client is a minimal Binance spot REST client. It only implements the depth
// snapshot endpoint; everything else this system consumes arrives over the
// stream.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a REST client for the given API base URL, e.g.
// "https://api.binance.com".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// DepthSnapshot fetches the current order book snapshot for symbol with up to
// limit levels per side.
func (c *Client) DepthSnapshot(ctx context.Context, symbol string, limit int) (domain.DepthSnapshot, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	endpoint := c.baseURL + "/api/v3/depth?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.DepthSnapshot{}, fmt.Errorf("binance: build depth request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.DepthSnapshot{}, fmt.Errorf("binance: fetch depth snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.DepthSnapshot{}, fmt.Errorf("binance: depth snapshot %s: status %d: %s",
			symbol, resp.StatusCode, string(body))
	}

	var wire wireDepthSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return domain.DepthSnapshot{}, fmt.Errorf("binance: decode depth snapshot: %w", err)
	}
	return wire.toDomain()
}
