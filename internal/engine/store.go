package engine

import (
	"sort"
	"sync"

	"github.com/alanyoungcy/arbdeck/internal/domain"
)

// Store holds the latest computed opportunity per pair id. It is the only
// place collaborators read live state from. Last write wins; ordering is
// enforced upstream by the Throttle, not here.
type Store struct {
	mu   sync.RWMutex
	opps map[string]domain.Opportunity
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{opps: make(map[string]domain.Opportunity)}
}

// Upsert replaces any existing entry for the opportunity's pair id.
func (s *Store) Upsert(opp domain.Opportunity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opps[opp.PairID] = opp
}

// Get returns the latest opportunity for a pair, if any.
func (s *Store) Get(pairID string) (domain.Opportunity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	opp, ok := s.opps[pairID]
	return opp, ok
}

// All returns every stored opportunity ordered by recency, newest first.
// The returned slice is safe to mutate.
func (s *Store) All() []domain.Opportunity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Opportunity, 0, len(s.opps))
	for _, opp := range s.opps {
		out = append(out, opp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ComputedAtMs != out[j].ComputedAtMs {
			return out[i].ComputedAtMs > out[j].ComputedAtMs
		}
		return out[i].PairID < out[j].PairID
	})
	return out
}

// RemoveAll drops the entry for a deleted pair.
func (s *Store) RemoveAll(pairID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.opps, pairID)
}
