package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestListingEventKey(t *testing.T) {
	poll := ListingEvent{PoolID: "bsc_0xpool", TokenAddress: "0xtoken"}
	assert.Equal(t, "bsc_0xpool", poll.Key())

	stream := ListingEvent{TokenAddress: "0xtoken"}
	assert.Equal(t, "0xtoken", stream.Key())
}

func TestPoolAddress(t *testing.T) {
	assert.Equal(t, "0xabc", PoolCandidate{PoolID: "bsc_0xabc"}.PoolAddress())
	assert.Equal(t, "0xabc", PoolCandidate{PoolID: "0xabc"}.PoolAddress())
	assert.Equal(t, "", PoolCandidate{}.PoolAddress())
}

func TestPendingTxIsContractCreation(t *testing.T) {
	assert.True(t, PendingTx{Input: "0x6080"}.IsContractCreation())
	assert.False(t, PendingTx{To: "0xrouter"}.IsContractCreation())
}

func TestPendingConfirmationExpired(t *testing.T) {
	now := time.Now()
	p := PendingConfirmation{FirstSeenAt: now.Add(-3 * time.Minute)}
	assert.True(t, p.Expired(now, 2*time.Minute))
	assert.False(t, p.Expired(now, 5*time.Minute))
	// Exactly at the window boundary still counts as inside.
	edge := PendingConfirmation{FirstSeenAt: now.Add(-2 * time.Minute)}
	assert.False(t, edge.Expired(now, 2*time.Minute))
}
