package domain

// PendingTx is a pending transaction delivered by a chain's stream, already
// resolved from its hash to the full transaction. Addresses are lowercase
// hex. To is empty for contract-creation transactions.
type PendingTx struct {
	ChainID string
	Hash    string
	From    string
	To      string
	Input   string // 0x-prefixed call data, "0x" when empty
}

// IsContractCreation reports whether the transaction has no destination
// address, the signature of a contract deployment.
func (t PendingTx) IsContractCreation() bool {
	return t.To == ""
}
