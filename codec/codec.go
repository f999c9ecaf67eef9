// Package codec holds the serializers a Store uses to turn values into
// bytes and back.
//
// Every codec is stateless and safe for concurrent use.
package codec

import (
	"fmt"
	"strings"
)

// Codec converts values to bytes and back.
type Codec interface {
	// Name identifies the codec in configuration ("json", "gob", ...).
	Name() string

	// Marshal encodes v.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into v, which must be a non-nil pointer.
	Unmarshal(data []byte, v any) error
}

// Built-in codecs.
var (
	JSON Codec = jsonCodec{}
	Gob  Codec = gobCodec{}
	CBOR Codec = cborCodec{}
	YAML Codec = yamlCodec{}
	TOML Codec = tomlCodec{}
)

// ByName returns the built-in codec registered under name.
// Names are case-insensitive.
func ByName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return JSON, nil
	case "gob":
		return Gob, nil
	case "cbor":
		return CBOR, nil
	case "yaml", "yml":
		return YAML, nil
	case "toml":
		return TOML, nil
	default:
		return nil, fmt.Errorf("unknown codec: %s", name)
	}
}
