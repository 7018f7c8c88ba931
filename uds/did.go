package uds

import (
	"errors"
	"fmt"
)

// Well known data identifiers.
const (
	// DIDVIN is the vehicle identification number, 17 ASCII characters.
	DIDVIN uint16 = 0xF190
)

// ErrNoCodec is returned when no codec is registered for a requested data
// identifier.
var ErrNoCodec = errors.New("uds: no codec registered for data identifier")

// Codec translates between the application value of a data identifier and
// its record bytes on the wire. Each identifier fixes the codec's value
// type; ASCIICodec always yields string.
type Codec interface {
	Encode(value interface{}) ([]byte, error)
	Decode(data []byte) (interface{}, error)
}

// CodecMap keys codecs by 16-bit data identifier.
type CodecMap map[uint16]Codec

// ASCIICodec is a fixed-width ASCII string codec, e.g. the 17 character
// VIN at 0xF190.
type ASCIICodec struct {
	Length int
}

func (c ASCIICodec) Encode(value interface{}) ([]byte, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("uds: ascii codec wants a string, got %T", value)
	}
	if len(s) != c.Length {
		return nil, fmt.Errorf("uds: ascii codec wants %d characters, got %d", c.Length, len(s))
	}
	return []byte(s), nil
}

func (c ASCIICodec) Decode(data []byte) (interface{}, error) {
	if len(data) != c.Length {
		return nil, fmt.Errorf("uds: ascii codec wants %d bytes, got %d", c.Length, len(data))
	}
	return string(data), nil
}

// BytesCodec passes record bytes through unchanged.
type BytesCodec struct{}

func (BytesCodec) Encode(value interface{}) ([]byte, error) {
	b, ok := value.([]byte)
	if !ok {
		return nil, fmt.Errorf("uds: bytes codec wants []byte, got %T", value)
	}
	return b, nil
}

func (BytesCodec) Decode(data []byte) (interface{}, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
