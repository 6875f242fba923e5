package codec

import (
	"bytes"
	"fmt"
	"io"

	"btc-data/internal/model"

	"github.com/klauspost/compress/gzip"
)

// Gzip compresses another codec's output. The header carries no
// timestamp, so equal payloads compress to equal bytes.
type Gzip struct {
	Inner PayloadCodec
}

func (g Gzip) Extension() string   { return g.Inner.Extension() + ".gz" }
func (g Gzip) ContentType() string { return "application/gzip" }

func (g Gzip) Encode(p model.Payload) ([]byte, error) {
	raw, err := g.Inner.Encode(p)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

func (g Gzip) Decode(b []byte) (model.Payload, error) {
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return model.Payload{}, fmt.Errorf("gzip open: %w", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return model.Payload{}, fmt.Errorf("gzip read: %w", err)
	}
	return g.Inner.Decode(raw)
}
