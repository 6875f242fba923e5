// Package aggregate derives a SeriesSummary from an ordered sample sequence.
package aggregate

import (
	"fmt"

	"btc-data/internal/model"

	"github.com/shopspring/decimal"
)

// QuotientPlaces is the rounding applied to average_price and price_change_percent.
const QuotientPlaces = 8

var hundred = decimal.NewFromInt(100)

// EmptySeriesError is returned when a summary is requested over zero samples.
type EmptySeriesError struct {
	Symbol   string
	Currency string
	Interval model.Interval
}

func (e *EmptySeriesError) Error() string {
	return fmt.Sprintf("aggregate: empty series %s/%s %s", e.Symbol, e.Currency, e.Interval)
}

// Accumulator folds samples one at a time so large series are summarized
// in the same pass that produces them.
type Accumulator struct {
	meta    model.SeriesMeta
	count   int
	first   decimal.Decimal
	last    decimal.Decimal
	high    decimal.Decimal
	low     decimal.Decimal
	sum     decimal.Decimal
	volume  decimal.Decimal
	lastCap decimal.Decimal
}

func NewAccumulator(meta model.SeriesMeta) *Accumulator {
	return &Accumulator{meta: meta}
}

// Add folds the next sample. Samples must arrive in timestamp order.
func (a *Accumulator) Add(s model.MarketSample) {
	if a.count == 0 {
		a.first, a.high, a.low = s.Price, s.Price, s.Price
	}
	if s.Price.GreaterThan(a.high) {
		a.high = s.Price
	}
	if s.Price.LessThan(a.low) {
		a.low = s.Price
	}
	a.last = s.Price
	a.lastCap = s.MarketCap
	a.sum = a.sum.Add(s.Price)
	a.volume = a.volume.Add(s.Volume)
	a.count++
}

// Len is the number of samples folded so far.
func (a *Accumulator) Len() int { return a.count }

// Summary computes the summary fields. Fails with EmptySeriesError before the first Add.
func (a *Accumulator) Summary() (model.SeriesSummary, error) {
	if a.count == 0 {
		return model.SeriesSummary{}, &EmptySeriesError{Symbol: a.meta.Symbol, Currency: a.meta.Currency, Interval: a.meta.Interval}
	}
	change := a.last.Sub(a.first)
	pct := decimal.Zero
	if !a.first.IsZero() {
		pct = change.Mul(hundred).DivRound(a.first, QuotientPlaces)
	}
	return model.SeriesSummary{
		IngestionTimestamp: a.meta.IngestionTime.UTC(),
		Symbol:             a.meta.Symbol,
		Currency:           a.meta.Currency,
		Interval:           a.meta.Interval,
		RecordCount:        a.count,
		DataSource:         model.DataSource,
		CurrentPrice:       a.last,
		HighestPrice:       a.high,
		LowestPrice:        a.low,
		AveragePrice:       a.sum.DivRound(decimal.NewFromInt(int64(a.count)), QuotientPlaces),
		PriceChange:        change,
		PriceChangePercent: pct,
		TotalVolume:        a.volume,
		CurrentMarketCap:   a.lastCap,
	}, nil
}

// Summarize computes the summary of a complete sample sequence.
func Summarize(meta model.SeriesMeta, samples []model.MarketSample) (model.SeriesSummary, error) {
	acc := NewAccumulator(meta)
	for _, s := range samples {
		acc.Add(s)
	}
	return acc.Summary()
}
