package notify

import (
	"fmt"
	"strings"

	"github.com/Theoretician9/telegram-leads-bot/internal/domain"
)

// geckoTerminalPoolURL is the public pool page; the network segment matches
// the chain id used by the pools API.
const geckoTerminalPoolURL = "https://www.geckoterminal.com/%s/pools/%s"

// FormatListingAlert renders a listing event into an alert title and body.
// Poll-path events carry pool figures; stream-path events only know the
// addresses involved, so the body stays address-centric.
func FormatListingAlert(event domain.ListingEvent) (title, message string) {
	var b strings.Builder

	switch event.DetectedVia {
	case domain.DetectedViaStream:
		title = fmt.Sprintf("Possible new token on %s", event.ChainID)
		fmt.Fprintf(&b, "Token: %s\n", event.TokenAddress)
		fmt.Fprintf(&b, "Router: %s\n", event.DexAddress)
		if event.Match == domain.MatchHeuristicSubstring {
			b.WriteString("Matched via call-data scan, verify before acting\n")
		}
	default:
		title = fmt.Sprintf("New token listing on %s", event.ChainID)
		name := event.TokenName
		if name == "" {
			name = event.TokenAddress
		}
		if event.TokenSymbol != "" {
			fmt.Fprintf(&b, "Token: %s (%s)\n", name, event.TokenSymbol)
		} else {
			fmt.Fprintf(&b, "Token: %s\n", name)
		}
		fmt.Fprintf(&b, "Liquidity: $%s\n", formatUSD(event.LiquidityUSD))
		fmt.Fprintf(&b, "Volume (1h): $%s\n", formatUSD(event.VolumeUSD))
		if addr := poolAddress(event.PoolID); addr != "" {
			fmt.Fprintf(&b, geckoTerminalPoolURL+"\n", event.ChainID, addr)
		}
	}

	return title, strings.TrimRight(b.String(), "\n")
}

// formatUSD renders an amount with thousands separators and two decimals.
func formatUSD(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	dot := strings.IndexByte(s, '.')
	whole, frac := s[:dot], s[dot:]

	neg := strings.HasPrefix(whole, "-")
	if neg {
		whole = whole[1:]
	}

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}

// poolAddress strips the "{network}_" prefix the pools API prepends to pool
// ids, returning just the on-chain pool address.
func poolAddress(poolID string) string {
	if poolID == "" {
		return ""
	}
	if i := strings.IndexByte(poolID, '_'); i >= 0 {
		return poolID[i+1:]
	}
	return poolID
}
