package domain

import "time"

// PendingConfirmation is a pool that passed the liquidity threshold and the
// age check but has not yet reached the volume threshold. It is re-evaluated
// on every polling cycle and dropped when the confirmation window elapses.
//
// Entries are exclusively owned by the poll-path filter; no other component
// mutates them.
type PendingConfirmation struct {
	PoolID      string
	Snapshot    PoolCandidate
	FirstSeenAt time.Time
}

// Expired reports whether the entry has outlived the confirmation window.
func (p PendingConfirmation) Expired(now time.Time, window time.Duration) bool {
	return now.Sub(p.FirstSeenAt) > window
}

// PendingDeployment is an address observed in a contract-creation
// transaction, waiting for a matching liquidity event on the same chain. An
// address stays pending for at most the configured TTL.
type PendingDeployment struct {
	Address     string // lowercase hex
	ChainID     string
	FirstSeenAt time.Time
}
