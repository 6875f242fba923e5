package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"btc-data/internal/model"

	"github.com/redis/go-redis/v9"
)

var _ Publisher = (*Redis)(nil)

// Redis caches the latest summary per series and keeps a run history
// sorted by ingestion time.
type Redis struct {
	rdb redis.Cmdable
	ns  string
	ttl time.Duration
}

func NewRedis(rdb redis.Cmdable, namespace string, ttl time.Duration) *Redis {
	if namespace == "" {
		namespace = "btc-data"
	}
	return &Redis{rdb: rdb, ns: namespace, ttl: ttl}
}

func (r *Redis) Name() string { return "redis" }

func (r *Redis) SummaryKey(symbol, currency string, iv model.Interval) string {
	return fmt.Sprintf("%s:summary:%s:%s:%s", r.ns, symbol, currency, iv)
}

func (r *Redis) HistoryKey(symbol, currency string, iv model.Interval) string {
	return fmt.Sprintf("%s:history:%s:%s:%s", r.ns, symbol, currency, iv)
}

// cachedSummary is the value stored under SummaryKey.
type cachedSummary struct {
	model.SummaryJSON
	RunID    string `json:"run_id"`
	Mode     string `json:"mode"`
	Location string `json:"location"`
	First    string `json:"first_timestamp"`
	Last     string `json:"last_timestamp"`
}

func (r *Redis) Publish(ctx context.Context, rec Record) error {
	s := rec.Summary
	body, err := json.Marshal(cachedSummary{
		SummaryJSON: s.JSON(),
		RunID:       rec.RunID,
		Mode:        rec.Mode,
		Location:    rec.Location,
		First:       rec.First.UTC().Format(time.RFC3339),
		Last:        rec.Last.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.SummaryKey(s.Symbol, s.Currency, s.Interval), body, r.ttl)
		p.ZAdd(ctx, r.HistoryKey(s.Symbol, s.Currency, s.Interval), redis.Z{
			Score:  float64(s.IngestionTimestamp.UnixMilli()),
			Member: rec.RunID,
		})
		return nil
	})
	return err
}

// Latest returns the cached summary JSON for a series.
func (r *Redis) Latest(ctx context.Context, symbol, currency string, iv model.Interval) ([]byte, error) {
	return r.rdb.Get(ctx, r.SummaryKey(symbol, currency, iv)).Bytes()
}
