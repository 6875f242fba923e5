package synth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"btc-data/internal/aggregate"
	"btc-data/internal/calendar"
	"btc-data/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ingest = time.Date(2025, 10, 18, 2, 0, 0, 0, time.UTC)

func meta(iv model.Interval) model.SeriesMeta {
	return model.SeriesMeta{Symbol: "BTC", Currency: "USD", Interval: iv, IngestionTime: ingest}
}

func newGen(t *testing.T, m Model) *Generator {
	t.Helper()
	g, err := NewGenerator(m)
	require.NoError(t, err)
	return g
}

func flat() Model {
	m := DefaultModel()
	for i := range m.Bands {
		m.Bands[i].Amplitude = 0
	}
	return m
}

func TestFullCounts(t *testing.T) {
	g := newGen(t, DefaultModel())
	m := g.Model()
	for _, tc := range []struct {
		iv   model.Interval
		want int
	}{
		{model.Daily, 6126},
		{model.FourHour, 36756},
		{model.Weekly, 876},
	} {
		t.Run(string(tc.iv), func(t *testing.T) {
			s, err := g.Full(meta(tc.iv))
			require.NoError(t, err)
			assert.Equal(t, tc.want, s.Summary.RecordCount)
			assert.Equal(t, calendar.Count(tc.iv, m.Inception, m.EndOfHistory), len(s.Samples))

			d := tc.iv.Duration().Milliseconds()
			assert.Equal(t, m.Inception.UnixMilli(), s.Samples[0].Timestamp)
			for i := 1; i < len(s.Samples); i++ {
				if s.Samples[i].Timestamp-s.Samples[i-1].Timestamp != d {
					t.Fatalf("gap at %d: %d -> %d", i, s.Samples[i-1].Timestamp, s.Samples[i].Timestamp)
				}
			}
			assert.False(t, s.Samples[len(s.Samples)-1].Time().After(m.EndOfHistory))
		})
	}
}

func TestDeterministic(t *testing.T) {
	a, err := newGen(t, DefaultModel()).Full(meta(model.Daily))
	require.NoError(t, err)
	b, err := newGen(t, DefaultModel()).Full(meta(model.Daily))
	require.NoError(t, err)

	ja, err := json.Marshal(model.Payload{SeriesSummary: a.Summary, MarketData: a.Samples})
	require.NoError(t, err)
	jb, err := json.Marshal(model.Payload{SeriesSummary: b.Summary, MarketData: b.Samples})
	require.NoError(t, err)
	assert.Equal(t, ja, jb)
}

func TestSeedChangesPath(t *testing.T) {
	m := DefaultModel()
	m.Seed++
	a, err := newGen(t, DefaultModel()).Full(meta(model.Weekly))
	require.NoError(t, err)
	b, err := newGen(t, m).Full(meta(model.Weekly))
	require.NoError(t, err)
	assert.False(t, a.Summary.Equal(b.Summary))
}

func TestPositivityAndRounding(t *testing.T) {
	g := newGen(t, DefaultModel())
	for _, iv := range model.Intervals() {
		s, err := g.Full(meta(iv))
		require.NoError(t, err)
		for _, x := range s.Samples {
			require.True(t, x.Price.IsPositive(), "price at %s", x.TimestampISO)
			require.False(t, x.Volume.IsNegative(), "volume at %s", x.TimestampISO)
			require.True(t, x.MarketCap.IsPositive(), "market cap at %s", x.TimestampISO)
			if x.Price.GreaterThanOrEqual(decimal.NewFromInt(1)) {
				require.GreaterOrEqual(t, x.Price.Exponent(), int32(-2), x.Price.String())
			}
		}
	}
}

func TestSummaryConsistency(t *testing.T) {
	s, err := newGen(t, DefaultModel()).Full(meta(model.Weekly))
	require.NoError(t, err)
	hi, lo := s.Samples[0].Price, s.Samples[0].Price
	for _, x := range s.Samples {
		hi = decimal.Max(hi, x.Price)
		lo = decimal.Min(lo, x.Price)
	}
	assert.True(t, s.Summary.HighestPrice.Equal(hi))
	assert.True(t, s.Summary.LowestPrice.Equal(lo))
	assert.True(t, s.Summary.CurrentPrice.Equal(s.Samples[len(s.Samples)-1].Price))

	again, err := aggregate.Summarize(meta(model.Weekly), s.Samples)
	require.NoError(t, err)
	assert.True(t, again.Equal(s.Summary))
}

func TestChangePercent(t *testing.T) {
	s, err := newGen(t, DefaultModel()).Full(meta(model.Daily))
	require.NoError(t, err)
	assert.True(t, s.Samples[0].ChangePercent.IsZero())
	prev, cur := s.Samples[99].Price, s.Samples[100].Price
	want := cur.Sub(prev).Mul(decimal.NewFromInt(100)).DivRound(prev, aggregate.QuotientPlaces)
	assert.True(t, s.Samples[100].ChangePercent.Equal(want))
}

func TestIncremental(t *testing.T) {
	g := newGen(t, DefaultModel())
	at := time.Date(2025, 10, 16, 13, 7, 0, 0, time.UTC)
	for _, tc := range []struct {
		iv   model.Interval
		want time.Time
	}{
		{model.Daily, time.Date(2025, 10, 16, 0, 0, 0, 0, time.UTC)},
		{model.FourHour, time.Date(2025, 10, 16, 12, 0, 0, 0, time.UTC)},
		{model.Weekly, time.Date(2025, 10, 11, 0, 0, 0, 0, time.UTC)},
	} {
		t.Run(string(tc.iv), func(t *testing.T) {
			s, err := g.Incremental(meta(tc.iv), at)
			require.NoError(t, err)
			require.Len(t, s.Samples, 1)
			assert.Equal(t, tc.want.UnixMilli(), s.Samples[0].Timestamp)
			assert.Equal(t, 1, s.Summary.RecordCount)
			assert.Equal(t, tc.want, s.Window.First)

			// the same boundary computed inside a longer run is identical
			long, err := g.Generate(meta(tc.iv), tc.want.Add(-10*tc.iv.Duration()), at)
			require.NoError(t, err)
			assert.True(t, long.Samples[len(long.Samples)-1].Equal(s.Samples[0]))

			one, err := g.Sample(tc.want, tc.iv)
			require.NoError(t, err)
			assert.True(t, one.Equal(s.Samples[0]))
		})
	}
}

func TestIncrementalBeforeInception(t *testing.T) {
	g := newGen(t, DefaultModel())
	_, err := g.Incremental(meta(model.Daily), time.Date(2008, 12, 31, 0, 0, 0, 0, time.UTC))
	var ae *calendar.AlignmentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, model.Daily, ae.Interval)
}

func TestGenerateRejectsBadRanges(t *testing.T) {
	g := newGen(t, DefaultModel())
	inc := g.Model().Inception

	_, err := g.Generate(meta(model.Daily), inc.Add(-24*time.Hour), inc.Add(48*time.Hour))
	var re *RangeError
	require.ErrorAs(t, err, &re)

	_, err = g.Generate(meta(model.Daily), inc.Add(time.Hour), inc.Add(48*time.Hour))
	var ae *calendar.AlignmentError
	require.ErrorAs(t, err, &ae)

	_, err = g.Generate(meta(model.Daily), inc.Add(48*time.Hour), inc)
	require.ErrorAs(t, err, &ae)

	_, err = g.Generate(meta("2m"), inc, inc)
	require.Error(t, err)
}

func TestPriceAtRange(t *testing.T) {
	m := flat()
	_, err := m.PriceAt(m.Inception.Add(-time.Millisecond), model.Daily)
	var re *RangeError
	require.ErrorAs(t, err, &re)
	assert.Contains(t, err.Error(), "precedes inception")

	p, err := m.PriceAt(m.Inception, model.Daily)
	require.NoError(t, err)
	assert.InDelta(t, 0.01, p, 1e-12)

	// past the end of history the trend holds its last milestone
	last := m.Milestones[len(m.Milestones)-1].Price
	p, err = m.PriceAt(m.EndOfHistory.AddDate(5, 0, 0), model.Weekly)
	require.NoError(t, err)
	assert.InDelta(t, last, p, 1e-6)
	p, err = m.PriceAt(m.EndOfHistory, model.Weekly)
	require.NoError(t, err)
	assert.InDelta(t, last, p, 1e-6)
}

func TestTrendHitsMilestones(t *testing.T) {
	m := DefaultModel()
	for _, ms := range m.Milestones {
		assert.InEpsilon(t, ms.Price, m.Trend(ms.Date), 1e-9, ms.Date.String())
	}
	mid := m.Milestones[2].Date.Add(m.Milestones[3].Date.Sub(m.Milestones[2].Date) / 2)
	got := m.Trend(mid)
	assert.Less(t, got, m.Milestones[2].Price)
	assert.Greater(t, got, m.Milestones[3].Price)
}

func TestVolatilityBounded(t *testing.T) {
	m := DefaultModel()
	for i := 0; i < 2000; i++ {
		ts := m.Inception.Add(time.Duration(i) * 72 * time.Hour)
		p, err := m.PriceAt(ts, model.FourHour)
		require.NoError(t, err)
		amp := m.BandAt(ts).Amplitude * m.Scale.FourHour
		tr := m.Trend(ts)
		require.GreaterOrEqual(t, p, max(tr*(1-amp), m.MinPrice)*(1-1e-12))
		require.Less(t, p, tr*(1+amp))
	}
}

func TestSupply(t *testing.T) {
	m := DefaultModel()
	assert.Equal(t, m.Supply.Genesis, m.SupplyAt(m.Inception))
	assert.Equal(t, m.Supply.Genesis, m.SupplyAt(m.Inception.Add(-time.Hour)))

	prev := 0.0
	for y := 2009; y <= 2200; y++ {
		s := m.SupplyAt(time.Date(y, 6, 1, 0, 0, 0, 0, time.UTC))
		require.GreaterOrEqual(t, s, prev, "year %d", y)
		require.LessOrEqual(t, s, m.Supply.Cap, "year %d", y)
		prev = s
	}
	assert.Equal(t, m.Supply.Cap, prev)

	// one full era after inception: genesis plus 210k blocks at 50
	era := m.Inception.Add(time.Duration(m.Supply.HalvingBlocks) * m.Supply.BlockInterval)
	assert.InDelta(t, 50+210_000*50.0, m.SupplyAt(era), 1e-6)
}

func TestWeeklyEndToEnd(t *testing.T) {
	g := newGen(t, flat())
	m := g.Model()
	s, err := g.Full(meta(model.Weekly))
	require.NoError(t, err)

	span := m.EndOfHistory.Sub(m.Inception)
	want := int(span/(24*time.Hour))/7 + 1
	assert.Equal(t, want, s.Summary.RecordCount)
	assert.True(t, s.Summary.LowestPrice.Equal(s.Samples[0].Price), "lowest %s first %s", s.Summary.LowestPrice, s.Samples[0].Price)

	b, err := json.Marshal(model.Payload{SeriesSummary: s.Summary, MarketData: s.Samples})
	require.NoError(t, err)
	var back model.Payload
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Len(t, back.MarketData, s.Summary.RecordCount)
	assert.True(t, back.SeriesSummary.Equal(s.Summary))
}

func TestLoadModel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
seed: 7
end_of_history: 2020-01-01T00:00:00Z
scale:
  1w: 0.25
  1d: 1
  4h: 2
supply:
  genesis: 50
  subsidy: 50
  block_interval: 10m
  halving_blocks: 210000
  cap: 21000000
`), 0o644))

	m, err := LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), m.Seed)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), m.EndOfHistory.UTC())
	assert.Equal(t, 0.25, m.Scale.Weekly)
	assert.Equal(t, 10*time.Minute, m.Supply.BlockInterval)
	assert.Len(t, m.Milestones, len(DefaultModel().Milestones))
}

func TestLoadModelInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
min_price: 0
milestones:
  - {date: 2012-01-01T00:00:00Z, price: 5}
  - {date: 2011-01-01T00:00:00Z, price: 7}
`), 0o644))
	_, err := LoadModel(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_price")
	assert.Contains(t, err.Error(), "strictly increasing")

	_, err = LoadModel(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
