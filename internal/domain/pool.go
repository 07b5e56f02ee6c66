// Package domain defines the core types shared across the listing detector:
// pool snapshots, pending state, listing events, and the store interfaces
// that the correlation engine depends on.
package domain

import "time"

// TokenInfo is the resolved metadata for one side of a liquidity pool.
type TokenInfo struct {
	Address string
	Name    string
	Symbol  string
}

// PoolCandidate is an immutable snapshot of one liquidity pool on one chain,
// taken during a single polling cycle. It is re-fetched every cycle and never
// mutated after creation.
type PoolCandidate struct {
	ChainID      string
	PoolID       string // globally unique per chain
	BaseToken    TokenInfo
	QuoteToken   TokenInfo
	DexName      string
	LiquidityUSD float64
	VolumeUSD1h  float64
	ObservedAt   time.Time
}

// PoolAddress returns the raw pool address portion of the PoolID. Upstream
// pool IDs are of the form "{network}_{address}"; when no separator is
// present the PoolID itself is returned.
func (p PoolCandidate) PoolAddress() string {
	for i := len(p.PoolID) - 1; i >= 0; i-- {
		if p.PoolID[i] == '_' {
			return p.PoolID[i+1:]
		}
	}
	return p.PoolID
}
