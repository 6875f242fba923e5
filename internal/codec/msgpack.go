package codec

import (
	"btc-data/internal/model"

	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackCodec writes MessagePack. Decimals travel as their binary form.
type MsgpackCodec struct{}

func (MsgpackCodec) Extension() string   { return "msgpack" }
func (MsgpackCodec) ContentType() string { return "application/msgpack" }

func (MsgpackCodec) Encode(p model.Payload) ([]byte, error) {
	return msgpack.Marshal(&p)
}

func (MsgpackCodec) Decode(b []byte) (model.Payload, error) {
	var p model.Payload
	err := msgpack.Unmarshal(b, &p)
	return p, err
}
