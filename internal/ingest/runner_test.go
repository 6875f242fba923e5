package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"btc-data/internal/calendar"
	"btc-data/internal/codec"
	"btc-data/internal/model"
	"btc-data/internal/sink"
	"btc-data/internal/store"
	"btc-data/internal/synth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var clock = time.Date(2025, 10, 18, 2, 0, 3, 0, time.UTC)

type recorder struct {
	mu   sync.Mutex
	recs []sink.Record
	err  error
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) Publish(_ context.Context, rec sink.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
	return r.err
}

func newRunner(t *testing.T, st store.Store, rows codec.RowCodec, pub sink.Publisher, opts Options) *Runner {
	t.Helper()
	g, err := synth.NewGenerator(synth.DefaultModel())
	require.NoError(t, err)
	opts.RetryBase = time.Millisecond
	r := NewRunner(g, codec.NewSerializer(codec.JSONCodec{}, ""), rows, st, pub, opts)
	r.SetClock(func() time.Time { return clock })
	r.newID = func() string { return "inv-test" }
	return r
}

func TestRequestNormalize(t *testing.T) {
	r, iv, err := Request{}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, ModeFull, r.Mode)
	assert.Equal(t, model.Interval(""), iv)

	r, iv, err = Request{Mode: ModeIncremental, Interval: "weekly"}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, model.Weekly, iv)
	assert.Equal(t, "1w", r.Interval)

	for _, bad := range []Request{
		{Mode: "sometimes"},
		{Mode: ModeIncremental},
		{Mode: ModeIncremental, Interval: "1h"},
		{WipePrefix: strings.Repeat("x", 2000)},
	} {
		_, _, err := bad.Normalize()
		assert.Error(t, err, "%+v", bad)
	}
}

func TestHandleFull(t *testing.T) {
	st := store.NewMemory()
	pub := &recorder{}
	r := newRunner(t, st, codec.ParquetRows{}, pub, Options{})

	resp, err := r.Handle(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, ModeFull, resp.Mode)
	assert.Equal(t, "inv-test", resp.InvocationID)
	assert.Equal(t, 876+36756+6126, resp.TotalRecords)
	assert.Equal(t, "2009-01-03 to 2025-10-11", resp.TimeRange)
	assert.Equal(t, "Generated 43758 BTC data points across 3 datasets", resp.Message)

	require.Len(t, resp.Datasets, 3)
	for i, iv := range model.Intervals() {
		ds := resp.Datasets[i]
		assert.Equal(t, iv, ds.Interval)
		assert.Empty(t, ds.Error)
		want := "mem://silver/interval=" + iv.String() + "/ingestion_date=2025/10/18/bitcoin_market_" + iv.String() + "_20251018_020003.json"
		assert.Equal(t, want, ds.Path)

		b, err := st.Get(context.Background(), strings.TrimPrefix(ds.Path, "mem://"))
		require.NoError(t, err)
		p, err := codec.JSONCodec{}.Decode(b)
		require.NoError(t, err)
		assert.Equal(t, ds.RecordsWritten, p.RecordCount)
		assert.Len(t, p.MarketData, p.RecordCount)

		ok, err := st.Exists(context.Background(), "gold/interval="+iv.String()+"/ingestion_date=2025/10/18/bitcoin_market_"+iv.String()+"_20251018_020003.parquet")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, "application/json", st.ContentType("silver/interval=1d/ingestion_date=2025/10/18/bitcoin_market_1d_20251018_020003.json"))
	assert.Len(t, pub.recs, 3)

	rep, err := st.Get(context.Background(), "reports/2025/10/18/inv-test.json")
	require.NoError(t, err)
	var got runReport
	require.NoError(t, json.Unmarshal(rep, &got))
	assert.Len(t, got.Success, 3)
	assert.Empty(t, got.Failed)
}

func TestHandleFullDeterministic(t *testing.T) {
	a, b := store.NewMemory(), store.NewMemory()
	_, err := newRunner(t, a, nil, nil, Options{Parallel: 1}).Handle(context.Background(), Request{Mode: ModeFull})
	require.NoError(t, err)
	_, err = newRunner(t, b, nil, nil, Options{}).Handle(context.Background(), Request{Mode: ModeFull})
	require.NoError(t, err)

	keys, err := a.List(context.Background(), "silver/")
	require.NoError(t, err)
	require.Len(t, keys, 3)
	for _, k := range keys {
		x, err := a.Get(context.Background(), k)
		require.NoError(t, err)
		y, err := b.Get(context.Background(), k)
		require.NoError(t, err)
		assert.Equal(t, x, y, k)
	}
}

func TestHandleIncrementalIdempotent(t *testing.T) {
	st := store.NewMemory()
	r := newRunner(t, st, nil, nil, Options{})
	ctx := context.Background()

	resp, err := r.Handle(ctx, Request{Mode: ModeIncremental, Interval: "1d"})
	require.NoError(t, err)
	require.Len(t, resp.Datasets, 1)
	ds := resp.Datasets[0]
	assert.False(t, ds.Skipped)
	assert.Equal(t, 1, ds.RecordsWritten)
	assert.Equal(t, "mem://silver/interval=1d/ingestion_date=2025/10/18/bitcoin_market_1d_20251018.json", ds.Path)
	assert.Equal(t, "Incremental write complete", resp.Message)

	b, err := st.Get(ctx, strings.TrimPrefix(ds.Path, "mem://"))
	require.NoError(t, err)
	p, err := codec.JSONCodec{}.Decode(b)
	require.NoError(t, err)
	require.Len(t, p.MarketData, 1)
	assert.Equal(t, time.Date(2025, 10, 18, 0, 0, 0, 0, time.UTC).UnixMilli(), p.MarketData[0].Timestamp)

	resp, err = r.Handle(ctx, Request{Mode: ModeIncremental, Interval: "1d"})
	require.NoError(t, err)
	assert.True(t, resp.Datasets[0].Skipped)
	assert.Equal(t, 0, resp.TotalRecords)
	assert.Equal(t, "Incremental window already exists, skipping", resp.Message)
	assert.Equal(t, ds.Path, resp.Datasets[0].Path)

	keys, err := st.List(ctx, "silver/")
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestIncrementalWeeklyRerunNextDay(t *testing.T) {
	st := store.NewMemory()
	r := newRunner(t, st, nil, nil, Options{})
	ctx := context.Background()

	monday := time.Date(2025, 10, 13, 2, 30, 0, 0, time.UTC)
	ds, err := r.RunIncremental(ctx, "a", model.Weekly, monday)
	require.NoError(t, err)
	assert.Equal(t, "mem://silver/interval=1w/ingestion_date=2025/10/13/bitcoin_market_1w_20251011.json", ds.Path)

	ds, err = r.RunIncremental(ctx, "b", model.Weekly, monday.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, ds.Skipped)

	// the next window is new
	ds, err = r.RunIncremental(ctx, "c", model.Weekly, monday.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.False(t, ds.Skipped)
	assert.Contains(t, ds.Path, "bitcoin_market_1w_20251018.json")
}

func TestIncremental4hKey(t *testing.T) {
	r := newRunner(t, store.NewMemory(), nil, nil, Options{})
	ds, err := r.RunIncremental(context.Background(), "a", model.FourHour, time.Date(2025, 10, 18, 8, 5, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Contains(t, ds.Path, "silver/interval=4h/ingestion_date=2025/10/18/bitcoin_market_4h_20251018_0800.json")
}

func TestIncrementalBeforeInception(t *testing.T) {
	r := newRunner(t, store.NewMemory(), nil, nil, Options{})
	r.SetClock(func() time.Time { return time.Date(2008, 10, 31, 0, 0, 0, 0, time.UTC) })
	_, err := r.Handle(context.Background(), Request{Mode: ModeIncremental, Interval: "1d"})
	var ae *calendar.AlignmentError
	require.ErrorAs(t, err, &ae)
}

func TestHandleWipe(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	for _, k := range []string{"silver/old/a.json", "silver/old/b.json", "gold/keep.parquet"} {
		require.NoError(t, st.Put(ctx, k, []byte("x"), ""))
	}
	r := newRunner(t, st, nil, nil, Options{})
	resp, err := r.Handle(ctx, Request{Mode: ModeIncremental, Interval: "4h", WipePrefix: "silver/old/"})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Wiped)

	ok, err := st.Exists(ctx, "silver/old/a.json")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = st.Exists(ctx, "gold/keep.parquet")
	require.NoError(t, err)
	assert.True(t, ok)
}

// flaky fails the first n writes, and every write whose key contains poison.
type flaky struct {
	*store.Memory
	mu     sync.Mutex
	n      int
	poison string
	calls  int
}

func (f *flaky) Put(ctx context.Context, key string, body []byte, ct string) error {
	f.mu.Lock()
	f.calls++
	fail := f.n > 0 || (f.poison != "" && strings.Contains(key, f.poison))
	if f.n > 0 {
		f.n--
	}
	f.mu.Unlock()
	if fail {
		return errors.New("503 slow down")
	}
	return f.Memory.Put(ctx, key, body, ct)
}

func TestWriteRetries(t *testing.T) {
	st := &flaky{Memory: store.NewMemory(), n: 2}
	r := newRunner(t, st, nil, nil, Options{Retries: 3})
	ds, err := r.RunIncremental(context.Background(), "a", model.Daily, clock)
	require.NoError(t, err)
	assert.Equal(t, 1, ds.RecordsWritten)
	assert.Equal(t, 3, st.calls)

	st = &flaky{Memory: store.NewMemory(), n: 10}
	r = newRunner(t, st, nil, nil, Options{Retries: 1})
	_, err = r.RunIncremental(context.Background(), "a", model.Daily, clock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503 slow down")
	assert.Equal(t, 2, st.calls)
}

func TestIncrementalRerunAfterFlatExportFailure(t *testing.T) {
	ctx := context.Background()
	st := &flaky{Memory: store.NewMemory(), poison: "gold/"}
	r := newRunner(t, st, codec.ParquetRows{}, nil, Options{})

	_, err := r.RunIncremental(ctx, "a", model.Daily, clock)
	require.Error(t, err)
	keys, err := st.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys)

	st.poison = ""
	ds, err := r.RunIncremental(ctx, "b", model.Daily, clock)
	require.NoError(t, err)
	assert.False(t, ds.Skipped)
	assert.Equal(t, 1, ds.RecordsWritten)

	for _, k := range []string{
		"silver/interval=1d/ingestion_date=2025/10/18/bitcoin_market_1d_20251018.json",
		"gold/interval=1d/ingestion_date=2025/10/18/bitcoin_market_1d_20251018.parquet",
	} {
		ok, err := st.Exists(ctx, k)
		require.NoError(t, err)
		assert.True(t, ok, k)
	}
}

func TestPayloadFailureRemovesFlatExport(t *testing.T) {
	ctx := context.Background()
	st := &flaky{Memory: store.NewMemory(), poison: "silver/"}
	r := newRunner(t, st, codec.CSVRows{}, nil, Options{})

	_, err := r.RunIncremental(ctx, "a", model.Weekly, clock)
	require.Error(t, err)
	keys, err := st.List(ctx, "gold/")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestFullIsolatesFailingInterval(t *testing.T) {
	st := &flaky{Memory: store.NewMemory(), poison: "interval=4h"}
	pub := &recorder{err: errors.New("cache down")}
	r := newRunner(t, st, nil, pub, Options{})

	resp, err := r.Handle(context.Background(), Request{Mode: ModeFull})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "4h:")

	require.Len(t, resp.Datasets, 3)
	assert.Empty(t, resp.Datasets[0].Error)
	assert.NotEmpty(t, resp.Datasets[1].Error)
	assert.Empty(t, resp.Datasets[2].Error)
	assert.Equal(t, 876+6126, resp.TotalRecords)

	keys, err := st.List(context.Background(), "silver/")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	for _, k := range keys {
		assert.NotContains(t, k, "interval=4h")
	}
	// sink failures are warnings only
	assert.Len(t, pub.recs, 2)

	rep, err := st.Get(context.Background(), "reports/2025/10/18/inv-test.json")
	require.NoError(t, err)
	var got runReport
	require.NoError(t, json.Unmarshal(rep, &got))
	require.Len(t, got.Failed, 1)
	assert.Equal(t, "4h", got.Failed[0].Interval)
	assert.NotEmpty(t, got.Error)
}

func TestJoinFailedReasons(t *testing.T) {
	s := joinFailedReasons([]failedEntry{{Interval: "4h", Reason: "boom"}, {Interval: "1w", Reason: "slow down"}})
	assert.Equal(t, "4h: boom; 1w: slow down", s)
	assert.Equal(t, "", joinFailedReasons(nil))
}
