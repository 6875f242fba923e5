package codec

import (
	"encoding/json"

	"btc-data/internal/model"
)

// JSONCodec writes compact JSON with amounts as plain numbers.
type JSONCodec struct{}

func (JSONCodec) Extension() string   { return "json" }
func (JSONCodec) ContentType() string { return "application/json" }

func (JSONCodec) Encode(p model.Payload) ([]byte, error) {
	return json.Marshal(p.JSON())
}

func (JSONCodec) Decode(b []byte) (model.Payload, error) {
	var p model.Payload
	err := json.Unmarshal(b, &p)
	return p, err
}
