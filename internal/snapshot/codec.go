// Package snapshot encodes a collection for storage: JSON, compressed with zstd.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"sheetview/domain/sheet"
)

// magic prefixes every encoded snapshot so foreign blobs are rejected early
var magic = []byte("SVS1")

var (
	encoderPool sync.Pool
	decoderPool sync.Pool
)

func getEncoder() *zstd.Encoder {
	if v := encoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getDecoder() *zstd.Decoder {
	if v := decoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Encode serializes a collection
func Encode(c *sheet.Collection) ([]byte, error) {
	if c == nil {
		c = &sheet.Collection{Records: []sheet.Record{}}
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	enc := getEncoder()
	defer encoderPool.Put(enc)

	out := make([]byte, 0, len(magic)+len(raw)/4)
	out = append(out, magic...)
	return enc.EncodeAll(raw, out), nil
}

// Decode reverses Encode
func Decode(data []byte) (*sheet.Collection, error) {
	if !bytes.HasPrefix(data, magic) {
		return nil, fmt.Errorf("not a snapshot")
	}

	dec := getDecoder()
	defer decoderPool.Put(dec)

	raw, err := dec.DecodeAll(data[len(magic):], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
	}

	var c sheet.Collection
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	if c.Records == nil {
		c.Records = []sheet.Record{}
	}
	return &c, nil
}
