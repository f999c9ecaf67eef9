package codec

import (
	"github.com/klauspost/compress/zstd"
)

// Shared encoder and decoder. EncodeAll and DecodeAll are safe for
// concurrent use when no streaming API is touched.
var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

type zstdCodec struct {
	inner Codec
}

// Zstd wraps inner so that its output is zstd-compressed on Marshal and
// decompressed before Unmarshal.
func Zstd(inner Codec) Codec {
	return zstdCodec{inner: inner}
}

func (c zstdCodec) Name() string { return c.inner.Name() + "+zstd" }

func (c zstdCodec) Marshal(v any) ([]byte, error) {
	raw, err := c.inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	return zstdEncoder.EncodeAll(raw, make([]byte, 0, len(raw))), nil
}

func (c zstdCodec) Unmarshal(data []byte, v any) error {
	raw, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return err
	}
	return c.inner.Unmarshal(raw, v)
}
