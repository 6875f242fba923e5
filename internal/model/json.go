package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// The JSON views below carry amounts as bare JSON numbers so the catalog
// infers DOUBLE columns. decimal.Decimal decodes either form, so reading
// goes straight into Payload.

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// SampleJSON is the JSON form of MarketSample.
type SampleJSON struct {
	Timestamp     int64       `json:"timestamp"`
	TimestampISO  string      `json:"timestamp_iso"`
	Price         json.Number `json:"price"`
	Volume        json.Number `json:"volume"`
	MarketCap     json.Number `json:"market_cap"`
	ChangePercent json.Number `json:"change_percent"`
}

func (s MarketSample) JSON() SampleJSON {
	return SampleJSON{
		Timestamp:     s.Timestamp,
		TimestampISO:  s.TimestampISO,
		Price:         number(s.Price),
		Volume:        number(s.Volume),
		MarketCap:     number(s.MarketCap),
		ChangePercent: number(s.ChangePercent),
	}
}

// SummaryJSON is the JSON form of SeriesSummary.
type SummaryJSON struct {
	IngestionTimestamp time.Time   `json:"ingestion_timestamp"`
	Symbol             string      `json:"symbol"`
	Currency           string      `json:"currency"`
	Interval           Interval    `json:"interval"`
	RecordCount        int         `json:"record_count"`
	DataSource         string      `json:"data_source"`
	CurrentPrice       json.Number `json:"current_price"`
	HighestPrice       json.Number `json:"highest_price"`
	LowestPrice        json.Number `json:"lowest_price"`
	AveragePrice       json.Number `json:"average_price"`
	PriceChange        json.Number `json:"price_change"`
	PriceChangePercent json.Number `json:"price_change_percent"`
	TotalVolume        json.Number `json:"total_volume"`
	CurrentMarketCap   json.Number `json:"current_market_cap"`
}

func (s SeriesSummary) JSON() SummaryJSON {
	return SummaryJSON{
		IngestionTimestamp: s.IngestionTimestamp,
		Symbol:             s.Symbol,
		Currency:           s.Currency,
		Interval:           s.Interval,
		RecordCount:        s.RecordCount,
		DataSource:         s.DataSource,
		CurrentPrice:       number(s.CurrentPrice),
		HighestPrice:       number(s.HighestPrice),
		LowestPrice:        number(s.LowestPrice),
		AveragePrice:       number(s.AveragePrice),
		PriceChange:        number(s.PriceChange),
		PriceChangePercent: number(s.PriceChangePercent),
		TotalVolume:        number(s.TotalVolume),
		CurrentMarketCap:   number(s.CurrentMarketCap),
	}
}

// PayloadJSON is the JSON form of Payload.
type PayloadJSON struct {
	SummaryJSON
	MarketData []SampleJSON `json:"market_data"`
}

func (p Payload) JSON() PayloadJSON {
	out := PayloadJSON{
		SummaryJSON: p.SeriesSummary.JSON(),
		MarketData:  make([]SampleJSON, len(p.MarketData)),
	}
	for i, s := range p.MarketData {
		out.MarketData[i] = s.JSON()
	}
	return out
}
