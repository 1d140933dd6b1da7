// Package codec encodes audit payloads for storage: JSON, zstd-compressed
// once it grows past a threshold.
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Algo names the compression applied to a stored payload.
type Algo string

const (
	AlgoNone Algo = "none"
	AlgoZstd Algo = "zstd"
)

// DefaultThreshold is the payload size above which zstd is used.
const DefaultThreshold = 4 * 1024

// Payload is an encoded value as stored in a row: exactly one of JSON and
// Compressed is set.
type Payload struct {
	JSON       []byte
	Compressed []byte
	Algo       Algo
}

// Codec is safe for concurrent use.
type Codec struct {
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	threshold int
}

// New creates a codec compressing payloads larger than threshold bytes.
// A threshold <= 0 uses DefaultThreshold.
func New(threshold int) (*Codec, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Codec{encoder: encoder, decoder: decoder, threshold: threshold}, nil
}

// Encode marshals v and compresses the result when it is large.
func (c *Codec) Encode(v any) (Payload, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Payload{}, fmt.Errorf("marshal payload: %w", err)
	}
	if len(raw) <= c.threshold {
		return Payload{JSON: raw, Algo: AlgoNone}, nil
	}
	return Payload{Compressed: c.encoder.EncodeAll(raw, nil), Algo: AlgoZstd}, nil
}

// Decode returns the JSON bytes of p.
func (c *Codec) Decode(p Payload) ([]byte, error) {
	switch p.Algo {
	case AlgoZstd:
		raw, err := c.decoder.DecodeAll(p.Compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress payload: %w", err)
		}
		return raw, nil
	case AlgoNone, "":
		return p.JSON, nil
	}
	return nil, fmt.Errorf("unknown compression %q", p.Algo)
}

// Close releases the decoder.
func (c *Codec) Close() {
	c.decoder.Close()
}
