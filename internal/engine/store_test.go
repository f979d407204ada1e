package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbdeck/internal/domain"
)

func TestStoreLastWriteWins(t *testing.T) {
	s := NewStore()
	s.Upsert(domain.Opportunity{PairID: "p1", SpreadPercent: 0.1, ComputedAtMs: 1})
	s.Upsert(domain.Opportunity{PairID: "p1", SpreadPercent: 0.2, ComputedAtMs: 2})

	opp, ok := s.Get("p1")
	require.True(t, ok)
	assert.Equal(t, 0.2, opp.SpreadPercent)
}

func TestStoreAllOrderedByRecency(t *testing.T) {
	s := NewStore()
	s.Upsert(domain.Opportunity{PairID: "old", ComputedAtMs: 1})
	s.Upsert(domain.Opportunity{PairID: "new", ComputedAtMs: 3})
	s.Upsert(domain.Opportunity{PairID: "mid", ComputedAtMs: 2})

	all := s.All()
	require.Len(t, all, 3)
	assert.Equal(t, "new", all[0].PairID)
	assert.Equal(t, "mid", all[1].PairID)
	assert.Equal(t, "old", all[2].PairID)
}

func TestStoreRemoveAll(t *testing.T) {
	s := NewStore()
	s.Upsert(domain.Opportunity{PairID: "p1", ComputedAtMs: 1})
	s.RemoveAll("p1")

	_, ok := s.Get("p1")
	assert.False(t, ok)
	assert.Empty(t, s.All())
}
