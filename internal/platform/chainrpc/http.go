package chainrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TxResolver resolves transaction hashes into full transactions over a
// chain's HTTP JSON-RPC endpoint.
type TxResolver struct {
	rpcURL     string
	httpClient *http.Client
}

// NewTxResolver creates a resolver for the given HTTP JSON-RPC endpoint.
func NewTxResolver(rpcURL string) *TxResolver {
	return &TxResolver{
		rpcURL: rpcURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// TransactionByHash calls eth_getTransactionByHash. It returns (nil, nil)
// when the node no longer knows the transaction (pending transactions are
// routinely evicted before they can be resolved).
func (r *TxResolver) TransactionByHash(ctx context.Context, hash string) (*RPCTransaction, error) {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "eth_getTransactionByHash",
		Params:  []any{hash},
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("chainrpc: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.rpcURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("chainrpc: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chainrpc: get transaction %s: %w", hash, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("chainrpc: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("chainrpc: read body: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, fmt.Errorf("chainrpc: decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("chainrpc: rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if len(rpcResp.Result) == 0 || string(rpcResp.Result) == "null" {
		return nil, nil
	}

	var tx RPCTransaction
	if err := json.Unmarshal(rpcResp.Result, &tx); err != nil {
		return nil, fmt.Errorf("chainrpc: decode transaction: %w", err)
	}
	return &tx, nil
}
