package synth

import (
	"math"
	"time"
)

// SupplyAt is the circulating supply at t: the genesis reward plus every
// block subsidy mined since inception, halving on schedule, capped.
func (m *Model) SupplyAt(t time.Time) float64 {
	s := m.Supply
	if !t.After(m.Inception) {
		return s.Genesis
	}
	blocks := int64(t.Sub(m.Inception) / s.BlockInterval)
	total := s.Genesis
	subsidy := s.Subsidy
	for blocks > 0 && subsidy >= 1e-8 {
		n := min(blocks, s.HalvingBlocks)
		total += float64(n) * subsidy
		blocks -= n
		subsidy /= 2
	}
	return math.Min(total, s.Cap)
}
