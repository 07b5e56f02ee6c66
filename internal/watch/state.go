package watch

import (
	"context"
	"sync"
	"time"

	"github.com/Theoretician9/telegram-leads-bot/internal/domain"
)

// MemorySeenSet is the in-process implementation of domain.SeenSet. Keys are
// scoped per chain and never removed for the lifetime of the process; memory
// growth is bounded by process lifetime only.
type MemorySeenSet struct {
	mu    sync.Mutex
	seen  map[string]map[string]struct{} // chainID -> key set
	count int
}

// NewMemorySeenSet creates an empty MemorySeenSet.
func NewMemorySeenSet() *MemorySeenSet {
	return &MemorySeenSet{
		seen: make(map[string]map[string]struct{}),
	}
}

// Add inserts the key and reports whether it was absent before.
func (s *MemorySeenSet) Add(_ context.Context, chainID, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, ok := s.seen[chainID]
	if !ok {
		keys = make(map[string]struct{})
		s.seen[chainID] = keys
	}
	if _, dup := keys[key]; dup {
		return false, nil
	}
	keys[key] = struct{}{}
	s.count++
	return true, nil
}

// Contains reports whether the key is present.
func (s *MemorySeenSet) Contains(_ context.Context, chainID, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, ok := s.seen[chainID]
	if !ok {
		return false, nil
	}
	_, present := keys[key]
	return present, nil
}

// Len returns the total number of keys across all chains.
func (s *MemorySeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Compile-time interface check.
var _ domain.SeenSet = (*MemorySeenSet)(nil)

// MemoryPendingStore is the in-process implementation of
// domain.PendingDeploymentStore. Entries outlive their TTL only until the
// next Expire sweep.
type MemoryPendingStore struct {
	mu      sync.Mutex
	pending map[string]map[string]domain.PendingDeployment // chainID -> address -> entry
}

// NewMemoryPendingStore creates an empty MemoryPendingStore.
func NewMemoryPendingStore() *MemoryPendingStore {
	return &MemoryPendingStore{
		pending: make(map[string]map[string]domain.PendingDeployment),
	}
}

// Put records the deployment, refreshing FirstSeenAt on re-recording.
func (s *MemoryPendingStore) Put(_ context.Context, dep domain.PendingDeployment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, ok := s.pending[dep.ChainID]
	if !ok {
		entries = make(map[string]domain.PendingDeployment)
		s.pending[dep.ChainID] = entries
	}
	entries[dep.Address] = dep
	return nil
}

// Get returns the pending entry, or domain.ErrNotFound.
func (s *MemoryPendingStore) Get(_ context.Context, chainID, address string) (domain.PendingDeployment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dep, ok := s.pending[chainID][address]; ok {
		return dep, nil
	}
	return domain.PendingDeployment{}, domain.ErrNotFound
}

// Delete removes the entry if present.
func (s *MemoryPendingStore) Delete(_ context.Context, chainID, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending[chainID], address)
	return nil
}

// Addresses returns the currently pending addresses for a chain.
func (s *MemoryPendingStore) Addresses(_ context.Context, chainID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.pending[chainID]
	out := make([]string, 0, len(entries))
	for addr := range entries {
		out = append(out, addr)
	}
	return out, nil
}

// Expire purges entries older than the TTL relative to now.
func (s *MemoryPendingStore) Expire(_ context.Context, chainID string, now time.Time, ttl time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for addr, dep := range s.pending[chainID] {
		if now.Sub(dep.FirstSeenAt) > ttl {
			delete(s.pending[chainID], addr)
			removed++
		}
	}
	return removed, nil
}

// Compile-time interface check.
var _ domain.PendingDeploymentStore = (*MemoryPendingStore)(nil)
