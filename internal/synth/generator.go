package synth

import (
	"fmt"
	"time"

	"btc-data/internal/aggregate"
	"btc-data/internal/calendar"
	"btc-data/internal/model"

	"github.com/shopspring/decimal"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Series is one generated run for one interval.
type Series struct {
	Summary model.SeriesSummary
	Samples []model.MarketSample
	Window  calendar.Window
}

// Generator turns a Model into samples. Safe for concurrent use.
type Generator struct {
	m Model
}

func NewGenerator(m Model) (*Generator, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("synth: invalid model: %w", err)
	}
	return &Generator{m: m.clone()}, nil
}

// Model returns a copy of the generator's model.
func (g *Generator) Model() Model { return g.m.clone() }

// round keeps two places for amounts of at least one unit and eight below,
// so early sub-cent prices never round to zero.
func round(d decimal.Decimal) decimal.Decimal {
	if d.Abs().GreaterThanOrEqual(one) {
		return d.Round(2)
	}
	return d.Round(8)
}

func (g *Generator) roundedPrice(t time.Time, iv model.Interval) (decimal.Decimal, error) {
	p, err := g.m.PriceAt(t, iv)
	if err != nil {
		return decimal.Zero, err
	}
	return round(decimal.NewFromFloat(p)), nil
}

// previous returns the rounded price one boundary before t, or zero when
// that boundary precedes inception.
func (g *Generator) previous(t time.Time, iv model.Interval) (decimal.Decimal, error) {
	pt := t.Add(-iv.Duration())
	if pt.Before(g.m.Inception) {
		return decimal.Zero, nil
	}
	return g.roundedPrice(pt, iv)
}

func (g *Generator) sample(t time.Time, iv model.Interval, prev decimal.Decimal) (model.MarketSample, error) {
	price, err := g.roundedPrice(t, iv)
	if err != nil {
		return model.MarketSample{}, err
	}
	mcap := round(price.Mul(decimal.NewFromFloat(g.m.SupplyAt(t))))
	vol := round(decimal.NewFromFloat(g.m.VolumeAt(t, iv, mcap.InexactFloat64())))
	change := decimal.Zero
	if !prev.IsZero() {
		change = price.Sub(prev).Mul(hundred).DivRound(prev, aggregate.QuotientPlaces)
	}
	t = t.UTC()
	return model.MarketSample{
		Timestamp:     t.UnixMilli(),
		TimestampISO:  t.Format(time.RFC3339),
		Price:         price,
		Volume:        vol,
		MarketCap:     mcap,
		ChangePercent: change,
	}, nil
}

// Sample computes the single sample at boundary t.
func (g *Generator) Sample(t time.Time, iv model.Interval) (model.MarketSample, error) {
	prev, err := g.previous(t, iv)
	if err != nil {
		return model.MarketSample{}, err
	}
	return g.sample(t, iv, prev)
}

// Generate produces every boundary in [start, end] for meta.Interval in one
// pass, folding the summary as it goes. start must lie on the inception
// grid; end is truncated to the last boundary at or before it.
func (g *Generator) Generate(meta model.SeriesMeta, start, end time.Time) (Series, error) {
	iv := meta.Interval
	if !iv.Valid() {
		return Series{}, fmt.Errorf("synth: unsupported interval %q", iv)
	}
	if start.Before(g.m.Inception) {
		return Series{}, &RangeError{At: start, Inception: g.m.Inception}
	}
	if start.Sub(g.m.Inception)%iv.Duration() != 0 {
		return Series{}, &calendar.AlignmentError{Interval: iv, Start: g.m.Inception, At: start, Reason: "start is not on a boundary"}
	}
	if end.Before(start) {
		return Series{}, &calendar.AlignmentError{Interval: iv, Start: start, At: end, Reason: "end precedes the first boundary"}
	}

	n := calendar.Count(iv, start, end)
	prev, err := g.previous(start, iv)
	if err != nil {
		return Series{}, err
	}
	acc := aggregate.NewAccumulator(meta)
	samples := make([]model.MarketSample, 0, n)
	for i := range n {
		s, err := g.sample(calendar.Boundary(iv, start, i), iv, prev)
		if err != nil {
			return Series{}, err
		}
		acc.Add(s)
		samples = append(samples, s)
		prev = s.Price
	}
	summary, err := acc.Summary()
	if err != nil {
		return Series{}, err
	}
	return Series{
		Summary: summary,
		Samples: samples,
		Window:  calendar.Window{Interval: iv, First: start.UTC(), Last: calendar.Boundary(iv, start, n-1)},
	}, nil
}

// Full generates the whole modelled history for meta.Interval.
func (g *Generator) Full(meta model.SeriesMeta) (Series, error) {
	return g.Generate(meta, g.m.Inception, g.m.EndOfHistory)
}

// Incremental generates the single period most recently closed at time at.
func (g *Generator) Incremental(meta model.SeriesMeta, at time.Time) (Series, error) {
	w, err := calendar.ClosedWindow(meta.Interval, g.m.Inception, at)
	if err != nil {
		return Series{}, err
	}
	if err := calendar.ExpectOne(w, g.m.Inception); err != nil {
		return Series{}, err
	}
	return g.Generate(meta, w.First, w.Last)
}
