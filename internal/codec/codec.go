// Package codec turns generated series into stored bytes and back.
package codec

import (
	"strings"

	"btc-data/internal/model"
)

// PayloadCodec encodes the self-describing payload written per (interval, run).
// The orchestrator depends on this interface only; main picks the format.
type PayloadCodec interface {
	Encode(p model.Payload) ([]byte, error)
	Decode(b []byte) (model.Payload, error)
	Extension() string
	ContentType() string
}

// RowCodec encodes the flat one-row-per-sample export.
type RowCodec interface {
	Encode(rows []model.FlatRow) ([]byte, error)
	Extension() string
	ContentType() string
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// NewPayloadCodec creates a codec by format (json, msgpack), optionally
// wrapped in gzip when compress is "gzip". Returns nil if format or
// compression is not supported.
func NewPayloadCodec(format, compress string) PayloadCodec {
	var c PayloadCodec
	switch norm(format) {
	case "", "json":
		c = JSONCodec{}
	case "msgpack":
		c = MsgpackCodec{}
	default:
		return nil
	}
	switch norm(compress) {
	case "", "none":
		return c
	case "gzip", "gz":
		return Gzip{Inner: c}
	default:
		return nil
	}
}

// NewRowCodec creates a flat-row codec by format (parquet, csv).
// Returns nil for "none" or anything unsupported.
func NewRowCodec(format string) RowCodec {
	switch norm(format) {
	case "parquet":
		return ParquetRows{}
	case "csv":
		return CSVRows{}
	default:
		return nil
	}
}
