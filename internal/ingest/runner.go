// Package ingest runs generation requests against the object store: full
// history for every interval in parallel, or the one newly closed window of
// a single interval.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"btc-data/internal/codec"
	"btc-data/internal/model"
	"btc-data/internal/sink"
	"btc-data/internal/store"
	"btc-data/internal/synth"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Options are the per-deployment knobs of a Runner.
type Options struct {
	Symbol       string
	Currency     string
	FlatPrefix   string        // zone for flat row exports
	ReportPrefix string        // zone for run reports
	Retries      uint64        // extra attempts per store write
	RetryBase    time.Duration // first backoff step
	Parallel     int           // max intervals generated at once; 0 means all
}

func (o Options) withDefaults() Options {
	if o.Symbol == "" {
		o.Symbol = "BTC"
	}
	if o.Currency == "" {
		o.Currency = "USD"
	}
	if o.FlatPrefix == "" {
		o.FlatPrefix = "gold"
	}
	if o.ReportPrefix == "" {
		o.ReportPrefix = "reports"
	}
	if o.RetryBase <= 0 {
		o.RetryBase = 500 * time.Millisecond
	}
	return o
}

// Runner owns no mutable state besides its collaborators; Handle may be
// called concurrently.
type Runner struct {
	gen   *synth.Generator
	ser   *codec.Serializer
	rows  codec.RowCodec
	store store.Store
	sink  sink.Publisher
	opts  Options
	now   func() time.Time
	newID func() string
}

// NewRunner wires a runner. rows and pub may be nil to disable the flat
// export and the summary sinks.
func NewRunner(gen *synth.Generator, ser *codec.Serializer, rows codec.RowCodec, st store.Store, pub sink.Publisher, opts Options) *Runner {
	return &Runner{
		gen:   gen,
		ser:   ser,
		rows:  rows,
		store: st,
		sink:  pub,
		opts:  opts.withDefaults(),
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// SetClock replaces the wall clock used for ingestion timestamps.
func (r *Runner) SetClock(now func() time.Time) { r.now = now }

// Handle validates req, performs the optional wipe and dispatches by mode.
func (r *Runner) Handle(ctx context.Context, req Request) (Response, error) {
	req, iv, err := req.Normalize()
	if err != nil {
		return Response{}, err
	}
	now := r.now().UTC()
	inv := r.newID()
	log := slog.With("invocation_id", inv, "mode", req.Mode)

	resp := Response{Mode: req.Mode, InvocationID: inv}
	if req.WipePrefix != "" {
		log.Info("wiping prefix", "prefix", req.WipePrefix, "location", r.store.Location(req.WipePrefix))
		n, err := r.store.DeletePrefix(ctx, req.WipePrefix)
		if err != nil {
			return resp, fmt.Errorf("wipe %q: %w", req.WipePrefix, err)
		}
		resp.Wiped = n
		log.Info("wipe complete", "prefix", req.WipePrefix, "deleted", n)
	}

	var runErr error
	switch req.Mode {
	case ModeIncremental:
		var ds Dataset
		ds, runErr = r.RunIncremental(ctx, inv, iv, now)
		if runErr == nil {
			resp.Datasets = []Dataset{ds}
			resp.TotalRecords = ds.RecordsWritten
			resp.Message = "Incremental write complete"
			if ds.Skipped {
				resp.Message = "Incremental window already exists, skipping"
			}
		}
	default:
		resp.Datasets, runErr = r.RunFull(ctx, inv, now)
		for _, ds := range resp.Datasets {
			resp.TotalRecords += ds.RecordsWritten
		}
		m := r.gen.Model()
		resp.TimeRange = m.Inception.Format(time.DateOnly) + " to " + m.EndOfHistory.Format(time.DateOnly)
		resp.Message = fmt.Sprintf("Generated %d %s data points across %d datasets", resp.TotalRecords, r.opts.Symbol, countWritten(resp.Datasets))
	}

	r.report(ctx, now, resp, runErr)
	if runErr != nil {
		log.Error("run failed", "error", runErr)
		return resp, runErr
	}
	log.Info("run done", "records", resp.TotalRecords, "datasets", len(resp.Datasets))
	return resp, nil
}

func countWritten(ds []Dataset) int {
	n := 0
	for _, d := range ds {
		if d.Error == "" && !d.Skipped {
			n++
		}
	}
	return n
}

func (r *Runner) meta(iv model.Interval, now time.Time) model.SeriesMeta {
	return model.SeriesMeta{Symbol: r.opts.Symbol, Currency: r.opts.Currency, Interval: iv, IngestionTime: now}
}

// RunFull generates the whole history of every interval. Intervals run in
// parallel; one failing interval does not stop the others. Datasets come
// back in model.Intervals order and the error joins every failure.
func (r *Runner) RunFull(ctx context.Context, inv string, now time.Time) ([]Dataset, error) {
	ivs := model.Intervals()
	out := make([]Dataset, len(ivs))
	errs := make([]error, len(ivs))

	var g errgroup.Group
	if r.opts.Parallel > 0 {
		g.SetLimit(r.opts.Parallel)
	}
	for i, iv := range ivs {
		g.Go(func() error {
			ds, err := r.runFullInterval(ctx, inv, iv, now)
			if err != nil {
				ds = Dataset{Interval: iv, Description: fullDescription(iv, 0), Error: err.Error()}
				errs[i] = fmt.Errorf("%s: %w", iv, err)
			}
			out[i] = ds
			return nil
		})
	}
	_ = g.Wait()
	return out, errors.Join(errs...)
}

func fullDescription(iv model.Interval, n int) string {
	return fmt.Sprintf("%s data (%d points)", iv.Label(), n)
}

func (r *Runner) runFullInterval(ctx context.Context, inv string, iv model.Interval, now time.Time) (Dataset, error) {
	start := time.Now()
	s, err := r.gen.Full(r.meta(iv, now))
	if err != nil {
		return Dataset{}, err
	}
	slog.Debug("generated", "interval", iv, "records", len(s.Samples), "took", time.Since(start))
	runID := codec.FullRunID(iv, now)
	loc, err := r.write(ctx, inv, ModeFull, runID, s)
	if err != nil {
		return Dataset{}, err
	}
	return Dataset{
		Interval:       iv,
		RecordsWritten: len(s.Samples),
		Path:           loc,
		Description:    fullDescription(iv, len(s.Samples)),
	}, nil
}

// RunIncremental writes the single window most recently closed at now. A
// window already present in the store is skipped.
func (r *Runner) RunIncremental(ctx context.Context, inv string, iv model.Interval, now time.Time) (Dataset, error) {
	s, err := r.gen.Incremental(r.meta(iv, now), now)
	if err != nil {
		return Dataset{}, err
	}
	runID := codec.WindowRunID(iv, s.Window.Last)
	desc := "Incremental " + iv.String()

	existing, err := r.findWindow(ctx, iv, runID, s.Window.Last, now)
	if err != nil {
		return Dataset{}, err
	}
	if existing != "" {
		loc := r.store.Location(existing)
		slog.Info("incremental window already written, skipping", "interval", iv, "location", loc)
		return Dataset{Interval: iv, Path: loc, Description: desc, Skipped: true}, nil
	}

	loc, err := r.write(ctx, inv, ModeIncremental, runID, s)
	if err != nil {
		return Dataset{}, fmt.Errorf("%s: %w", iv, err)
	}
	return Dataset{Interval: iv, RecordsWritten: len(s.Samples), Path: loc, Description: desc}, nil
}

// findWindow looks for an earlier run of the same window. Such a run can
// only have been partitioned on a date between the boundary and now.
func (r *Runner) findWindow(ctx context.Context, iv model.Interval, runID string, boundary, now time.Time) (string, error) {
	ext := r.ser.Codec().Extension()
	first := codec.NewPartitionKey("", iv, boundary).Date
	for d := codec.NewPartitionKey("", iv, now).Date; !d.Before(first); d = d.AddDate(0, 0, -1) {
		key := codec.NewPartitionKey(r.ser.Prefix(), iv, d).Object(runID, ext)
		ok, err := r.store.Exists(ctx, key)
		if err != nil {
			return "", fmt.Errorf("check %q: %w", key, err)
		}
		if ok {
			return key, nil
		}
	}
	return "", nil
}

// write serializes s, stores the optional flat export and then the payload,
// then notifies the sinks. Everything is encoded before the first byte is
// stored. The payload key marks the window as written, so it goes last.
func (r *Runner) write(ctx context.Context, inv string, mode Mode, runID string, s synth.Series) (string, error) {
	pk, body, err := r.ser.Serialize(s.Summary, s.Samples)
	if err != nil {
		return "", err
	}
	var flatKey string
	var flat []byte
	if r.rows != nil {
		flat, err = r.rows.Encode(codec.Flatten(s.Summary, s.Samples))
		if err != nil {
			return "", fmt.Errorf("encode %s rows: %w", r.rows.Extension(), err)
		}
		flatKey = codec.NewPartitionKey(r.opts.FlatPrefix, pk.Interval, pk.Date).Object(runID, r.rows.Extension())
	}

	if flat != nil {
		if err := r.put(ctx, flatKey, flat, r.rows.ContentType()); err != nil {
			return "", err
		}
		slog.Info("flat export written", "interval", pk.Interval, "location", r.store.Location(flatKey))
	}

	c := r.ser.Codec()
	key := pk.Object(runID, c.Extension())
	if err := r.put(ctx, key, body, c.ContentType()); err != nil {
		if flat != nil {
			r.discard(ctx, flatKey)
		}
		return "", err
	}
	loc := r.store.Location(key)
	slog.Info("payload written", "interval", pk.Interval, "records", len(s.Samples), "bytes", len(body), "location", loc)

	if r.sink != nil {
		rec := sink.Record{
			InvocationID: inv,
			RunID:        runID,
			Mode:         string(mode),
			Key:          key,
			Location:     loc,
			First:        s.Window.First,
			Last:         s.Window.Last,
			Summary:      s.Summary,
		}
		if err := r.sink.Publish(ctx, rec); err != nil {
			slog.Warn("publish summary failed", "interval", pk.Interval, "sink", r.sink.Name(), "error", err)
		}
	}
	return loc, nil
}

// discard removes an object written ahead of a failed payload write.
func (r *Runner) discard(ctx context.Context, key string) {
	if _, err := r.store.DeletePrefix(ctx, key); err != nil {
		slog.Warn("could not remove orphaned object", "key", key, "error", err)
	}
}

// put retries transient store failures with exponential backoff.
func (r *Runner) put(ctx context.Context, key string, body []byte, contentType string) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.opts.RetryBase
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, r.opts.Retries), ctx)
	err := backoff.RetryNotify(func() error {
		return r.store.Put(ctx, key, body, contentType)
	}, policy, func(err error, wait time.Duration) {
		slog.Warn("store write failed, retrying", "key", key, "wait", wait, "error", err)
	})
	if err != nil {
		return fmt.Errorf("store %q: %w", key, err)
	}
	return nil
}
