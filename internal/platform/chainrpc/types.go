package chainrpc

import (
	"encoding/json"
	"strings"

	"github.com/Theoretician9/telegram-leads-bot/internal/domain"
	"github.com/ethereum/go-ethereum/common"
)

// rpcRequest is a JSON-RPC 2.0 request envelope.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// rpcResponse is a JSON-RPC 2.0 response envelope.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// rpcError is a JSON-RPC 2.0 error object.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// subscriptionNotification is the envelope for eth_subscription pushes. For
// newPendingTransactions the result is the transaction hash.
type subscriptionNotification struct {
	Method string `json:"method"`
	Params struct {
		Subscription string          `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	} `json:"params"`
}

// RPCTransaction is the wire shape of eth_getTransactionByHash. To is null
// for contract-creation transactions.
type RPCTransaction struct {
	Hash  string  `json:"hash"`
	From  string  `json:"from"`
	To    *string `json:"to"`
	Input string  `json:"input"`
}

// ToPendingTx normalizes the wire transaction into the domain type:
// lowercase addresses, empty To for contract creation. Transactions with a
// malformed from address are rejected with ok=false.
func (t *RPCTransaction) ToPendingTx(chainID string) (domain.PendingTx, bool) {
	if !common.IsHexAddress(t.From) {
		return domain.PendingTx{}, false
	}

	tx := domain.PendingTx{
		ChainID: chainID,
		Hash:    strings.ToLower(t.Hash),
		From:    strings.ToLower(t.From),
		Input:   strings.ToLower(t.Input),
	}
	if t.To != nil && common.IsHexAddress(*t.To) {
		tx.To = strings.ToLower(*t.To)
	}
	if tx.Input == "" {
		tx.Input = "0x"
	}
	return tx, true
}
