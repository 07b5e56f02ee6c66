package geckoterminal

import (
	"strconv"
	"time"

	"github.com/Theoretician9/telegram-leads-bot/internal/domain"
)

// PoolsPage is one page of the pools endpoint: the raw pool records plus the
// side-table of related entities requested via the include directive.
type PoolsPage struct {
	Data     []PoolRecord `json:"data"`
	Included []Included   `json:"included"`
}

// PoolRecord is one raw pool entry from the API.
type PoolRecord struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	Attributes    PoolAttributes `json:"attributes"`
	Relationships Relationships  `json:"relationships"`
}

// PoolAttributes carries the numeric pool fields. Reserve and volume are
// decimal strings upstream; absent or malformed values normalize to zero.
type PoolAttributes struct {
	Name         string    `json:"name"`
	ReserveInUSD string    `json:"reserve_in_usd"`
	VolumeUSD    VolumeUSD `json:"volume_usd"`
	DexName      string    `json:"dex_name"`
}

// VolumeUSD holds trailing-window volume figures.
type VolumeUSD struct {
	H1  string `json:"h1"`
	H24 string `json:"h24"`
}

// Relationships holds the relationship ids resolved against the included
// side-table.
type Relationships struct {
	BaseToken  Relationship `json:"base_token"`
	QuoteToken Relationship `json:"quote_token"`
	Dex        Relationship `json:"dex"`
}

// Relationship wraps a single related-entity reference.
type Relationship struct {
	Data RelationshipData `json:"data"`
}

// RelationshipData identifies a related entity by id and type.
type RelationshipData struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Included is one related entity (token or dex) from the side-table.
type Included struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Attributes IncludedAttributes `json:"attributes"`
}

// IncludedAttributes carries the fields we use from included entities.
type IncludedAttributes struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// parseUSD converts a decimal string to a float64, treating absent or
// malformed values as zero so threshold comparisons never see garbage.
func parseUSD(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// ToCandidate converts a raw record into a domain.PoolCandidate using the
// given resolved token and dex metadata.
func (r *PoolRecord) ToCandidate(chainID string, base, quote domain.TokenInfo, dexName string, observedAt time.Time) domain.PoolCandidate {
	if dexName == "" {
		dexName = r.Attributes.DexName
	}
	return domain.PoolCandidate{
		ChainID:      chainID,
		PoolID:       r.ID,
		BaseToken:    base,
		QuoteToken:   quote,
		DexName:      dexName,
		LiquidityUSD: parseUSD(r.Attributes.ReserveInUSD),
		VolumeUSD1h:  parseUSD(r.Attributes.VolumeUSD.H1),
		ObservedAt:   observedAt,
	}
}
