package domain

import "time"

// DetectionPath identifies which of the two detection paths produced a
// listing event.
type DetectionPath string

const (
	// DetectedViaPoll means the event came from the REST snapshot path
	// (liquidity admission + volume confirmation).
	DetectedViaPoll DetectionPath = "poll"
	// DetectedViaStream means the event came from the pending-transaction
	// correlation path (deploy followed by a liquidity call).
	DetectedViaStream DetectionPath = "stream"
)

// MatchKind records how a stream-path event was matched. The substring match
// is an explicit heuristic with a known false-positive rate; downstream
// consumers must be able to tell it apart from an exact address match.
type MatchKind string

const (
	// MatchThreshold is used by poll-path events: the pool passed the
	// liquidity, age, and volume gates.
	MatchThreshold MatchKind = "threshold"
	// MatchExactAddress means the liquidity transaction's sender was an
	// address currently pending deployment.
	MatchExactAddress MatchKind = "exact_address"
	// MatchHeuristicSubstring means a pending address appeared as a literal
	// substring of the transaction call data.
	MatchHeuristicSubstring MatchKind = "heuristic_substring"
)

// ListingEvent is the unifying output of both detection paths. At most one
// event is produced per distinct (chain, poolID|tokenAddress) key.
type ListingEvent struct {
	ID           string // uuid
	ChainID      string
	TokenAddress string
	TokenName    string
	TokenSymbol  string
	PoolID       string // empty for stream-path events
	DexAddress   string // empty for poll-path events
	LiquidityUSD float64
	VolumeUSD    float64
	DetectedVia  DetectionPath
	Match        MatchKind
	Timestamp    time.Time
}

// Key returns the deduplication key for the event: the pool ID when known,
// otherwise the token address. SentTokenSet is keyed by this value.
func (e ListingEvent) Key() string {
	if e.PoolID != "" {
		return e.PoolID
	}
	return e.TokenAddress
}
