package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketSample is one observation of the series at an interval boundary.
type MarketSample struct {
	Timestamp     int64           `json:"timestamp" msgpack:"timestamp"` // Unix milliseconds, UTC
	TimestampISO  string          `json:"timestamp_iso" msgpack:"timestamp_iso"`
	Price         decimal.Decimal `json:"price" msgpack:"price"`
	Volume        decimal.Decimal `json:"volume" msgpack:"volume"`
	MarketCap     decimal.Decimal `json:"market_cap" msgpack:"market_cap"`
	ChangePercent decimal.Decimal `json:"change_percent" msgpack:"change_percent"` // vs previous boundary
}

// Time returns the boundary as a UTC time.
func (s MarketSample) Time() time.Time {
	return time.UnixMilli(s.Timestamp).UTC()
}

// Equal compares samples by value; decimals compare numerically.
func (s MarketSample) Equal(o MarketSample) bool {
	return s.Timestamp == o.Timestamp &&
		s.TimestampISO == o.TimestampISO &&
		s.Price.Equal(o.Price) &&
		s.Volume.Equal(o.Volume) &&
		s.MarketCap.Equal(o.MarketCap) &&
		s.ChangePercent.Equal(o.ChangePercent)
}
