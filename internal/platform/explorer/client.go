// Package explorer is the client for etherscan-style chain explorer APIs,
// used to look up the creation time of a contract address.
package explorer

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

// Client queries one chain's explorer API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new explorer client for the given API root
// (e.g. "https://api.bscscan.com") and API key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// creationResponse is the explorer envelope for getcontractcreation.
type creationResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  []struct {
		ContractAddress string `json:"contractAddress"`
		ContractCreator string `json:"contractCreator"`
		TxHash          string `json:"txHash"`
		Timestamp       string `json:"timeStamp"` // unix seconds
	} `json:"result"`
}

// ContractCreationTime returns the creation time of the given contract
// address. An empty result set, a malformed timestamp, or any upstream
// failure is returned as an error so callers can fail closed.
func (c *Client) ContractCreationTime(ctx context.Context, address string) (time.Time, error) {
	params := url.Values{}
	params.Set("module", "contract")
	params.Set("action", "getcontractcreation")
	params.Set("contractaddresses", address)
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}

	reqURL := c.baseURL + "/api?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("explorer: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("explorer: contract creation %s: %w", address, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return time.Time{}, fmt.Errorf("explorer: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return time.Time{}, fmt.Errorf("explorer: read body: %w", err)
	}

	var cr creationResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return time.Time{}, fmt.Errorf("explorer: decode response: %w", err)
	}

	if len(cr.Result) == 0 {
		return time.Time{}, fmt.Errorf("explorer: no creation record for %s", address)
	}

	secs, err := strconv.ParseInt(cr.Result[0].Timestamp, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("explorer: parse timestamp %q: %w", cr.Result[0].Timestamp, err)
	}

	return time.Unix(secs, 0).UTC(), nil
}
