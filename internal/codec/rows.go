package codec

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"btc-data/internal/model"

	"github.com/parquet-go/parquet-go"
)

// Flatten joins each sample with its series metadata.
func Flatten(s model.SeriesSummary, samples []model.MarketSample) []model.FlatRow {
	ing := s.IngestionTimestamp.UTC().Format(time.RFC3339)
	rows := make([]model.FlatRow, len(samples))
	for i, x := range samples {
		rows[i] = model.FlatRow{
			IngestionTimestamp: ing,
			Symbol:             s.Symbol,
			Currency:           s.Currency,
			Interval:           s.Interval.String(),
			DataSource:         s.DataSource,
			Timestamp:          x.Timestamp,
			TimestampISO:       x.TimestampISO,
			Price:              x.Price.InexactFloat64(),
			Volume:             x.Volume.InexactFloat64(),
			MarketCap:          x.MarketCap.InexactFloat64(),
			ChangePercent:      x.ChangePercent.InexactFloat64(),
		}
	}
	return rows
}

// ParquetRows writes one parquet file per run.
type ParquetRows struct{}

func (ParquetRows) Extension() string   { return "parquet" }
func (ParquetRows) ContentType() string { return "application/vnd.apache.parquet" }

func (ParquetRows) Encode(rows []model.FlatRow) ([]byte, error) {
	var buf bytes.Buffer
	if err := parquet.Write(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var csvHeader = []string{
	"ingestion_timestamp", "symbol", "currency", "interval", "data_source",
	"timestamp", "timestamp_iso", "price", "volume", "market_cap", "change_percent",
}

// CSVRows writes a header line followed by one line per sample.
type CSVRows struct{}

func (CSVRows) Extension() string   { return "csv" }
func (CSVRows) ContentType() string { return "text/csv" }

func (CSVRows) Encode(rows []model.FlatRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := w.Write([]string{
			r.IngestionTimestamp,
			r.Symbol,
			r.Currency,
			r.Interval,
			r.DataSource,
			strconv.FormatInt(r.Timestamp, 10),
			r.TimestampISO,
			floatStr(r.Price),
			floatStr(r.Volume),
			floatStr(r.MarketCap),
			floatStr(r.ChangePercent),
		}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func floatStr(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
