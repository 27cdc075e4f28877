// Package json is the single JSON entry point for the ingestor, backed by
// github.com/goccy/go-json.
package json

import (
	"bytes"
	"io"

	gojson "github.com/goccy/go-json"

	"github.com/ajitpratap0/ingestor/pkg/pool"
)

// Number is re-exported so callers can type-switch on decoded numbers
// without importing the codec directly.
type Number = gojson.Number

var buffers = pool.NewBufferPool(4096)

// Marshal encodes v
func Marshal(v interface{}) ([]byte, error) {
	return gojson.Marshal(v)
}

// Unmarshal decodes data into v
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// UnmarshalNumbers decodes data into v keeping numbers as Number, so that
// 64-bit integers survive untouched until schema coercion.
func UnmarshalNumbers(data []byte, v interface{}) error {
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// NewDecoder returns a streaming decoder that keeps numbers as Number
func NewDecoder(r io.Reader) *gojson.Decoder {
	dec := gojson.NewDecoder(r)
	dec.UseNumber()
	return dec
}

// MarshalLine encodes v followed by a newline into a pooled buffer and
// returns a copy of the bytes.
func MarshalLine(v interface{}) ([]byte, error) {
	buf := buffers.Get()
	defer pool.PutBuffer(buffers, buf)

	enc := gojson.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}
