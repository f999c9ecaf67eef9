package codec

import "github.com/bytedance/sonic"

// jsonCodec uses sonic in its encoding/json compatible configuration, so
// maps come back as map[string]any and numbers as float64.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return sonic.ConfigStd.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return sonic.ConfigStd.Unmarshal(data, v)
}
