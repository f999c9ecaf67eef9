package codec

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

type note struct {
	Title string   `json:"title" yaml:"title" toml:"title" cbor:"title"`
	Tags  []string `json:"tags" yaml:"tags" toml:"tags" cbor:"tags"`
	Count int      `json:"count" yaml:"count" toml:"count" cbor:"count"`
}

func TestCodecsRoundTripStructs(t *testing.T) {
	in := note{Title: "My Property", Tags: []string{"a", "b"}, Count: 3}

	for _, c := range []Codec{JSON, Gob, CBOR, YAML, TOML, Zstd(Gob), Zstd(JSON)} {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.Marshal(in)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}

			var out note
			if err := c.Unmarshal(data, &out); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !reflect.DeepEqual(in, out) {
				t.Errorf("round trip = %+v, want %+v", out, in)
			}
		})
	}
}

func TestJSONDecodesGenericStructure(t *testing.T) {
	in := map[string]any{
		"key":  "value",
		"list": map[string]any{"key": "value"},
	}

	data, err := JSON.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out any
	if err := JSON.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(any(in), out) {
		t.Errorf("got %#v, want %#v", out, in)
	}
}

func TestJSONRejectsUnsupportedValues(t *testing.T) {
	if _, err := JSON.Marshal(map[string]any{"ch": make(chan int)}); err == nil {
		t.Error("expected error marshalling a channel")
	}
}

func TestZstdCompresses(t *testing.T) {
	in := strings.Repeat("docstore ", 1000)
	plain, err := JSON.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	packed, err := Zstd(JSON).Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(packed) >= len(plain) {
		t.Errorf("compressed size %d not smaller than %d", len(packed), len(plain))
	}
	if bytes.Equal(packed, plain) {
		t.Error("expected compressed output to differ")
	}

	var out string
	if err := Zstd(JSON).Unmarshal(plain, &out); err == nil {
		t.Error("expected error decoding uncompressed input")
	}
}

func TestByName(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "json", want: "json"},
		{name: "GOB", want: "gob"},
		{name: " cbor ", want: "cbor"},
		{name: "yml", want: "yaml"},
		{name: "toml", want: "toml"},
		{name: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ByName(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ByName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if err == nil && c.Name() != tt.want {
				t.Errorf("ByName(%q) = %s, want %s", tt.name, c.Name(), tt.want)
			}
		})
	}

	if got := Zstd(CBOR).Name(); got != "cbor+zstd" {
		t.Errorf("Zstd(CBOR).Name() = %s", got)
	}
}
