package sink

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ Publisher = (*Catalog)(nil)

// execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Catalog records one row per (run, interval) in Postgres. Amounts are
// float8 so BI tools read them without a numeric cast.
type Catalog struct {
	db execer
}

func NewCatalog(db execer) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) Name() string { return "postgres" }

const schemaSQL = `
CREATE TABLE IF NOT EXISTS series_runs (
	run_id               TEXT        NOT NULL,
	interval             TEXT        NOT NULL,
	invocation_id        TEXT        NOT NULL,
	mode                 TEXT        NOT NULL,
	symbol               TEXT        NOT NULL,
	currency             TEXT        NOT NULL,
	object_key           TEXT        NOT NULL,
	ingestion_timestamp  TIMESTAMPTZ NOT NULL,
	first_timestamp      TIMESTAMPTZ NOT NULL,
	last_timestamp       TIMESTAMPTZ NOT NULL,
	record_count         INTEGER     NOT NULL,
	current_price        DOUBLE PRECISION NOT NULL,
	highest_price        DOUBLE PRECISION NOT NULL,
	lowest_price         DOUBLE PRECISION NOT NULL,
	average_price        DOUBLE PRECISION NOT NULL,
	price_change         DOUBLE PRECISION NOT NULL,
	price_change_percent DOUBLE PRECISION NOT NULL,
	total_volume         DOUBLE PRECISION NOT NULL,
	current_market_cap   DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, interval)
)`

const upsertSQL = `
INSERT INTO series_runs (
	run_id, interval, invocation_id, mode, symbol, currency, object_key,
	ingestion_timestamp, first_timestamp, last_timestamp, record_count,
	current_price, highest_price, lowest_price, average_price,
	price_change, price_change_percent, total_volume, current_market_cap
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
ON CONFLICT (run_id, interval) DO UPDATE SET
	invocation_id        = EXCLUDED.invocation_id,
	mode                 = EXCLUDED.mode,
	object_key           = EXCLUDED.object_key,
	ingestion_timestamp  = EXCLUDED.ingestion_timestamp,
	record_count         = EXCLUDED.record_count,
	current_price        = EXCLUDED.current_price,
	highest_price        = EXCLUDED.highest_price,
	lowest_price         = EXCLUDED.lowest_price,
	average_price        = EXCLUDED.average_price,
	price_change         = EXCLUDED.price_change,
	price_change_percent = EXCLUDED.price_change_percent,
	total_volume         = EXCLUDED.total_volume,
	current_market_cap   = EXCLUDED.current_market_cap`

// EnsureSchema creates the catalog table if it does not exist.
func (c *Catalog) EnsureSchema(ctx context.Context) error {
	_, err := c.db.Exec(ctx, schemaSQL)
	return err
}

func upsertArgs(r Record) []any {
	s := r.Summary
	return []any{
		r.RunID, s.Interval.String(), r.InvocationID, r.Mode, s.Symbol, s.Currency, r.Key,
		s.IngestionTimestamp.UTC(), r.First.UTC(), r.Last.UTC(), s.RecordCount,
		s.CurrentPrice.InexactFloat64(),
		s.HighestPrice.InexactFloat64(),
		s.LowestPrice.InexactFloat64(),
		s.AveragePrice.InexactFloat64(),
		s.PriceChange.InexactFloat64(),
		s.PriceChangePercent.InexactFloat64(),
		s.TotalVolume.InexactFloat64(),
		s.CurrentMarketCap.InexactFloat64(),
	}
}

func (c *Catalog) Publish(ctx context.Context, r Record) error {
	_, err := c.db.Exec(ctx, upsertSQL, upsertArgs(r)...)
	return err
}
