package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DataSource tags every record this generator emits.
const DataSource = "synthetic"

// SeriesMeta identifies one generation run of one series.
type SeriesMeta struct {
	Symbol        string
	Currency      string
	Interval      Interval
	IngestionTime time.Time
}

// SeriesSummary is derived entirely from the ordered sample sequence.
type SeriesSummary struct {
	IngestionTimestamp time.Time       `json:"ingestion_timestamp" msgpack:"ingestion_timestamp"`
	Symbol             string          `json:"symbol" msgpack:"symbol"`
	Currency           string          `json:"currency" msgpack:"currency"`
	Interval           Interval        `json:"interval" msgpack:"interval"`
	RecordCount        int             `json:"record_count" msgpack:"record_count"`
	DataSource         string          `json:"data_source" msgpack:"data_source"`
	CurrentPrice       decimal.Decimal `json:"current_price" msgpack:"current_price"`
	HighestPrice       decimal.Decimal `json:"highest_price" msgpack:"highest_price"`
	LowestPrice        decimal.Decimal `json:"lowest_price" msgpack:"lowest_price"`
	AveragePrice       decimal.Decimal `json:"average_price" msgpack:"average_price"`
	PriceChange        decimal.Decimal `json:"price_change" msgpack:"price_change"`
	PriceChangePercent decimal.Decimal `json:"price_change_percent" msgpack:"price_change_percent"`
	TotalVolume        decimal.Decimal `json:"total_volume" msgpack:"total_volume"`
	CurrentMarketCap   decimal.Decimal `json:"current_market_cap" msgpack:"current_market_cap"`
}

// Meta returns the identifying part of the summary.
func (s SeriesSummary) Meta() SeriesMeta {
	return SeriesMeta{
		Symbol:        s.Symbol,
		Currency:      s.Currency,
		Interval:      s.Interval,
		IngestionTime: s.IngestionTimestamp,
	}
}

// Equal compares summaries by value. Times compare as instants.
func (s SeriesSummary) Equal(o SeriesSummary) bool {
	return s.IngestionTimestamp.Equal(o.IngestionTimestamp) &&
		s.Symbol == o.Symbol &&
		s.Currency == o.Currency &&
		s.Interval == o.Interval &&
		s.RecordCount == o.RecordCount &&
		s.DataSource == o.DataSource &&
		s.CurrentPrice.Equal(o.CurrentPrice) &&
		s.HighestPrice.Equal(o.HighestPrice) &&
		s.LowestPrice.Equal(o.LowestPrice) &&
		s.AveragePrice.Equal(o.AveragePrice) &&
		s.PriceChange.Equal(o.PriceChange) &&
		s.PriceChangePercent.Equal(o.PriceChangePercent) &&
		s.TotalVolume.Equal(o.TotalVolume) &&
		s.CurrentMarketCap.Equal(o.CurrentMarketCap)
}

// Payload is the self-describing record handed to the object store.
type Payload struct {
	SeriesSummary `msgpack:",inline"`
	MarketData    []MarketSample `json:"market_data" msgpack:"market_data"`
}
