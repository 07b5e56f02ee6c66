// Package geckoterminal is the REST client for the GeckoTerminal-style pool
// snapshot API, which provides per-network liquidity pool listings with
// inline token and exchange metadata.
package geckoterminal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client is the REST client for the pool snapshot source.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new snapshot client.
//
// baseURL is the API root, e.g. "https://api.geckoterminal.com/api/v2".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// GetPools returns one page of the current pool list for a network, with the
// include directive requesting base token, quote token, and dex metadata
// inline. page is 1-based.
func (c *Client) GetPools(ctx context.Context, network string, page, perPage int) (*PoolsPage, error) {
	params := url.Values{}
	params.Set("include", "base_token,quote_token,dex")
	if page > 1 {
		params.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		params.Set("per_page", strconv.Itoa(perPage))
	}

	path := fmt.Sprintf("/networks/%s/pools?%s", url.PathEscape(network), params.Encode())

	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("geckoterminal: get pools %s: %w", network, err)
	}

	var pools PoolsPage
	if err := json.Unmarshal(body, &pools); err != nil {
		return nil, fmt.Errorf("geckoterminal: decode pools %s: %w", network, err)
	}

	return &pools, nil
}

// doGet performs a GET request against the API and returns the response body.
// Any non-200 status is an error.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
