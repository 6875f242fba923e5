package codec

import (
	"errors"
	"fmt"

	"btc-data/internal/aggregate"
	"btc-data/internal/model"
)

// SerializationError reports a payload that could not be written losslessly.
type SerializationError struct {
	Interval model.Interval
	Format   string
	Reason   string
	Err      error
}

func (e *SerializationError) Error() string {
	msg := fmt.Sprintf("codec: %s payload for %s: %s", e.Format, e.Interval, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SerializationError) Unwrap() error { return e.Err }

// Serializer encodes a series and proves the encoding reversible before
// handing the bytes out.
type Serializer struct {
	codec  PayloadCodec
	prefix string
}

func NewSerializer(c PayloadCodec, prefix string) *Serializer {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Serializer{codec: c, prefix: prefix}
}

func (s *Serializer) Codec() PayloadCodec { return s.codec }

// Prefix is the zone payload keys are rooted at.
func (s *Serializer) Prefix() string { return s.prefix }

// Serialize returns the partition key and encoded payload. The payload is
// decoded again and its summary recomputed from the embedded samples; any
// difference from the input fails with SerializationError.
func (s *Serializer) Serialize(summary model.SeriesSummary, samples []model.MarketSample) (PartitionKey, []byte, error) {
	fail := func(reason string, err error) (PartitionKey, []byte, error) {
		return PartitionKey{}, nil, &SerializationError{Interval: summary.Interval, Format: s.codec.Extension(), Reason: reason, Err: err}
	}
	if summary.RecordCount != len(samples) {
		return fail(fmt.Sprintf("record_count %d but %d samples", summary.RecordCount, len(samples)), nil)
	}
	b, err := s.codec.Encode(model.Payload{SeriesSummary: summary, MarketData: samples})
	if err != nil {
		return fail("encode", err)
	}
	back, err := s.codec.Decode(b)
	if err != nil {
		return fail("decode", err)
	}
	if len(back.MarketData) != len(samples) {
		return fail(fmt.Sprintf("decoded %d samples, want %d", len(back.MarketData), len(samples)), nil)
	}
	for i := range samples {
		if !back.MarketData[i].Equal(samples[i]) {
			return fail(fmt.Sprintf("sample %d differs after decode", i), nil)
		}
	}
	if !back.SeriesSummary.Equal(summary) {
		return fail("summary differs after decode", nil)
	}
	again, err := aggregate.Summarize(back.Meta(), back.MarketData)
	if err != nil {
		return fail("recompute summary", err)
	}
	if !again.Equal(summary) {
		return fail("recomputed summary differs", errors.New("embedded samples do not reproduce the summary"))
	}
	return NewPartitionKey(s.prefix, summary.Interval, summary.IngestionTimestamp), b, nil
}
