package engine

import (
	"sync"

	"github.com/alanyoungcy/arbdeck/internal/domain"
)

// pairSet is the monitor's tracked pair configs, guarded for access from the
// poll loop, the reload loop, and the push consumer.
type pairSet struct {
	mu    sync.RWMutex
	pairs map[string]domain.PairConfig
}

func newPairSet() *pairSet {
	return &pairSet{pairs: make(map[string]domain.PairConfig)}
}

func (p *pairSet) get(id string) (domain.PairConfig, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cfg, ok := p.pairs[id]
	return cfg, ok
}

func (p *pairSet) all() []domain.PairConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.PairConfig, 0, len(p.pairs))
	for _, cfg := range p.pairs {
		out = append(out, cfg)
	}
	return out
}

func (p *pairSet) remove(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pairs, id)
}

// replace swaps in a fresh pair list and returns the ids that disappeared.
func (p *pairSet) replace(pairs []domain.PairConfig) (removed []string) {
	next := make(map[string]domain.PairConfig, len(pairs))
	for _, cfg := range pairs {
		next[cfg.ID] = cfg
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for id := range p.pairs {
		if _, ok := next[id]; !ok {
			removed = append(removed, id)
		}
	}
	p.pairs = next
	return removed
}
