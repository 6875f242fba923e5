package synth

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"btc-data/internal/model"
)

// Noise streams. Price and volume draw from independent sequences.
const (
	streamPrice  uint64 = 1
	streamVolume uint64 = 2
)

// RangeError reports a timestamp outside the modelled history.
type RangeError struct {
	At        time.Time
	Inception time.Time
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("synth: %s precedes inception %s",
		e.At.UTC().Format(time.RFC3339), e.Inception.UTC().Format(time.RFC3339))
}

// Trend is the geometric interpolation between the surrounding milestones.
// Outside the milestone span it holds the nearest milestone's price.
func (m *Model) Trend(t time.Time) float64 {
	ms := m.Milestones
	if !t.After(ms[0].Date) {
		return ms[0].Price
	}
	last := ms[len(ms)-1]
	if !t.Before(last.Date) {
		return last.Price
	}
	i := sort.Search(len(ms), func(i int) bool { return ms[i].Date.After(t) })
	a, b := ms[i-1], ms[i]
	frac := float64(t.Sub(a.Date)) / float64(b.Date.Sub(a.Date))
	la, lb := math.Log(a.Price), math.Log(b.Price)
	return math.Exp(la + frac*(lb-la))
}

// Progress is the position of t within [Inception, EndOfHistory], clamped to [0,1].
func (m *Model) Progress(t time.Time) float64 {
	p := float64(t.Sub(m.Inception)) / float64(m.EndOfHistory.Sub(m.Inception))
	return min(max(p, 0), 1)
}

// BandAt returns the volatility era in effect at t.
func (m *Model) BandAt(t time.Time) Band {
	p := m.Progress(t)
	for _, b := range m.Bands {
		if p < b.Until {
			return b
		}
	}
	return m.Bands[len(m.Bands)-1]
}

// uniform draws one value in [0,1) from a generator keyed by
// (timestamp, seed, stream, interval). No state survives the call.
func (m *Model) uniform(t time.Time, iv model.Interval, stream uint64) float64 {
	var seed [32]byte
	binary.LittleEndian.PutUint64(seed[0:], uint64(t.UnixMilli()))
	binary.LittleEndian.PutUint64(seed[8:], m.Seed)
	binary.LittleEndian.PutUint64(seed[16:], stream)
	copy(seed[24:], string(iv))
	return rand.New(rand.NewChaCha8(seed)).Float64()
}

// PriceAt is trend·(1+a·u) with a the scaled band amplitude and u in [-1,1),
// floored at MinPrice. Timestamps before inception fail with RangeError; past
// the end of history the trend holds its final value.
func (m *Model) PriceAt(t time.Time, iv model.Interval) (float64, error) {
	if !iv.Valid() {
		return 0, fmt.Errorf("synth: unsupported interval %q", iv)
	}
	if t.Before(m.Inception) {
		return 0, &RangeError{At: t, Inception: m.Inception}
	}
	amp := m.BandAt(t).Amplitude * m.Scale.For(iv)
	u := 2*m.uniform(t, iv, streamPrice) - 1
	p := m.Trend(t) * (1 + amp*u)
	if !(p >= m.MinPrice) {
		p = m.MinPrice
	}
	return p, nil
}

// VolumeAt is marketCap × turnover × (period / 24h) × n with n in [0.5, 2).
func (m *Model) VolumeAt(t time.Time, iv model.Interval, marketCap float64) float64 {
	days := float64(iv.Duration()) / float64(24*time.Hour)
	n := 0.5 + 1.5*m.uniform(t, iv, streamVolume)
	return max(marketCap*m.BandAt(t).Turnover*days*n, 0)
}
