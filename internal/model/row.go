package model

// FlatRow is one sample joined with its series metadata.
// Shared by the parquet and csv exports that back the flat query view.
type FlatRow struct {
	IngestionTimestamp string  `json:"ingestion_timestamp" parquet:"ingestion_timestamp"`
	Symbol             string  `json:"symbol" parquet:"symbol"`
	Currency           string  `json:"currency" parquet:"currency"`
	Interval           string  `json:"interval" parquet:"interval"`
	DataSource         string  `json:"data_source" parquet:"data_source"`
	Timestamp          int64   `json:"timestamp" parquet:"timestamp"` // Unix milliseconds
	TimestampISO       string  `json:"timestamp_iso" parquet:"timestamp_iso"`
	Price              float64 `json:"price" parquet:"price"`
	Volume             float64 `json:"volume" parquet:"volume"`
	MarketCap          float64 `json:"market_cap" parquet:"market_cap"`
	ChangePercent      float64 `json:"change_percent" parquet:"change_percent"`
}
