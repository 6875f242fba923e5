package app

import (
	"context"
	"fmt"
	"log/slog"

	"btc-data/internal/codec"
	"btc-data/internal/ingest"
	"btc-data/internal/sink"
	"btc-data/internal/slogx"
	"btc-data/internal/store"
	"btc-data/internal/synth"
)

// ProvideConfig loads and validates config from environment (for Wire).
// It also installs the configured logger as the slog default.
func ProvideConfig() (*Config, error) {
	cfg := LoadConfig()
	slog.SetDefault(slogx.New(cfg.LogLevel, cfg.LogFormat))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ProvideModel loads MODEL_FILE over the built-in model, or the built-in model alone.
func ProvideModel(cfg *Config) (synth.Model, error) {
	if cfg.ModelFile == "" {
		return synth.DefaultModel(), nil
	}
	m, err := synth.LoadModel(cfg.ModelFile)
	if err != nil {
		return synth.Model{}, err
	}
	slog.Info("model loaded", "file", cfg.ModelFile, "inception", m.Inception, "end_of_history", m.EndOfHistory)
	return m, nil
}

// ProvideGenerator is synth.NewGenerator (for Wire).
func ProvideGenerator(m synth.Model) (*synth.Generator, error) {
	return synth.NewGenerator(m)
}

// ProvidePayloadCodec creates the payload codec from config (for Wire).
// Returns error if SaveFormat or Compress is not supported.
func ProvidePayloadCodec(cfg *Config) (codec.PayloadCodec, error) {
	c := codec.NewPayloadCodec(cfg.SaveFormat, cfg.Compress)
	if c == nil {
		return nil, fmt.Errorf("unsupported SAVE_FORMAT %q / COMPRESS %q (use: json, msgpack / none, gzip)", cfg.SaveFormat, cfg.Compress)
	}
	return c, nil
}

// ProvideSerializer roots payload keys at KEY_PREFIX.
func ProvideSerializer(c codec.PayloadCodec, cfg *Config) *codec.Serializer {
	return codec.NewSerializer(c, cfg.KeyPrefix)
}

// ProvideRowCodec creates the flat export codec. FLAT_FORMAT=none yields nil.
func ProvideRowCodec(cfg *Config) (codec.RowCodec, error) {
	if cfg.FlatFormat == "none" {
		return nil, nil
	}
	rc := codec.NewRowCodec(cfg.FlatFormat)
	if rc == nil {
		return nil, fmt.Errorf("unsupported FLAT_FORMAT %q (use: parquet, csv, none)", cfg.FlatFormat)
	}
	return rc, nil
}

// ProvideStore is CreateStore (for Wire).
func ProvideStore(ctx context.Context, cfg *Config) (store.Store, error) {
	st, err := CreateStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("wire", "store", cfg.Store, "root", st.Location(cfg.KeyPrefix), "format", cfg.SaveFormat, "compress", cfg.Compress, "flat", cfg.FlatFormat)
	return st, nil
}

// ProvidePublisher is CreatePublisher (for Wire). Caller must call cleanup.
func ProvidePublisher(ctx context.Context, cfg *Config) (sink.Publisher, func(), error) {
	return CreatePublisher(ctx, cfg)
}

// ProvideOptions maps config onto runner options.
func ProvideOptions(cfg *Config) ingest.Options {
	return ingest.Options{
		Symbol:     cfg.Symbol,
		Currency:   cfg.Currency,
		FlatPrefix: cfg.FlatPrefix,
		Retries:    cfg.WriteRetries,
		Parallel:   cfg.Parallel,
	}
}
