package watch

import "strings"

// liquiditySelectors is the fixed table of four-byte function-selector
// prefixes classified as liquidity-provision or swap calls. This is a prefix
// heuristic on raw call data, not an ABI decode; false positives and
// negatives are expected.
var liquiditySelectors = []string{
	"0xf305d719", // addLiquidityETH(address,uint256,uint256,uint256,address,uint256)
	"0xe8e33700", // addLiquidity(address,address,uint256,uint256,uint256,uint256,address,uint256)
	"0x38ed1739", // swapExactTokensForTokens
	"0x18cbafe5", // swapExactETHForTokens
	"0x8803dbee", // createPair / router variant
}

// deployPrefixes are leading bytes of call data that suggest contract
// creation when the transaction otherwise looks like a plain call. Solidity
// constructor bytecode starts with a free-memory-pointer setup.
var deployPrefixes = []string{
	"0x60806040",
	"0x60606040",
}

// Classifier labels raw transaction call data using the four-byte selector
// tables. Per-chain extra selectors from configuration extend the default
// liquidity table.
type Classifier struct {
	liquidity map[string][]string // chainID -> selector list
}

// NewClassifier builds a Classifier with the default selector table plus the
// given per-chain extras.
func NewClassifier(extra map[string][]string) *Classifier {
	c := &Classifier{liquidity: make(map[string][]string, len(extra))}
	for chainID, selectors := range extra {
		merged := make([]string, 0, len(liquiditySelectors)+len(selectors))
		merged = append(merged, liquiditySelectors...)
		for _, s := range selectors {
			merged = append(merged, strings.ToLower(s))
		}
		c.liquidity[chainID] = merged
	}
	return c
}

// IsLiquidityOrSwap reports whether the call data starts with a known
// liquidity-provision or swap selector for the chain.
func (c *Classifier) IsLiquidityOrSwap(chainID, input string) bool {
	selectors := c.liquidity[chainID]
	if selectors == nil {
		selectors = liquiditySelectors
	}
	for _, sel := range selectors {
		if strings.HasPrefix(input, sel) {
			return true
		}
	}
	return false
}

// IsDeployLike reports whether the call data starts with a known create/init
// bytecode prefix.
func (c *Classifier) IsDeployLike(input string) bool {
	for _, p := range deployPrefixes {
		if strings.HasPrefix(input, p) {
			return true
		}
	}
	return false
}
