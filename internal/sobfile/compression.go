// Copyright 2024 The sob Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package sobfile

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies how the payload of a sob file is stored.
type Compression uint8

const (
	// CompressionNone stores words as-is, so readers can answer
	// membership queries straight out of a memory mapping.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses zstd (better ratio).
	CompressionZSTD Compression = 2
)

const (
	// maxDecodedLen bounds the payload any file may claim (a 2^37-bit set).
	maxDecodedLen = 1 << 34

	// an LZ4 sequence can't expand to more than ~255x its encoded size
	lz4MaxExpansion = 256
	// a zstd block is at most 128KB of output from at least 4 input bytes
	zstdMaxExpansion = 1 << 15
)

func (c Compression) valid() bool {
	return c <= CompressionZSTD
}

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

// ParseCompression is the inverse of Compression.String.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return CompressionNone, fmt.Errorf("%w: unknown compression %q", ErrCompression, s)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil,
		zstd.WithDecoderMaxMemory(maxDecodedLen),
		zstd.WithDecodeAllCapLimit(true))
}

// compress returns the bytes to store for payload along with the
// compression actually used.  Payloads that don't get smaller are
// stored uncompressed.
func compress(payload []byte, c Compression) ([]byte, Compression, error) {
	if c == CompressionNone || len(payload) == 0 {
		return payload, CompressionNone, nil
	}

	var compressed []byte
	switch c {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(payload)))
		n, err := lz4.CompressBlock(payload, buf, nil)
		if err != nil {
			return nil, CompressionNone, fmt.Errorf("lz4.CompressBlock: %w", err)
		}
		// n == 0 means incompressible
		compressed = buf[:n]
	case CompressionZSTD:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, CompressionNone, fmt.Errorf("zstd.NewWriter: %w", err)
		}
		compressed = enc.EncodeAll(payload, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, CompressionNone, fmt.Errorf("%w: unknown compression %d", ErrCompression, c)
	}

	if len(compressed) == 0 || len(compressed) >= len(payload) {
		return payload, CompressionNone, nil
	}
	return compressed, c, nil
}

// checkExpansion rejects headers claiming more decompressed bytes than
// stored could possibly expand to, before anything is allocated.
func checkExpansion(stored []byte, c Compression, rawLen uint64) error {
	var limit uint64
	switch c {
	case CompressionLZ4:
		limit = uint64(len(stored)) * lz4MaxExpansion
	case CompressionZSTD:
		limit = uint64(len(stored)) * zstdMaxExpansion
	default:
		return nil
	}
	if rawLen > limit || rawLen > maxDecodedLen {
		return fmt.Errorf("%w: %d stored %s bytes can't expand to %d", ErrCorrupt, len(stored), c, rawLen)
	}
	return nil
}

// decompress expands stored into exactly rawLen bytes.
func decompress(stored []byte, c Compression, rawLen uint64) ([]byte, error) {
	if err := checkExpansion(stored, c, rawLen); err != nil {
		return nil, err
	}
	switch c {
	case CompressionNone:
		return stored, nil
	case CompressionLZ4:
		raw := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(stored, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %w", ErrCompression, err)
		}
		if uint64(n) != rawLen {
			return nil, fmt.Errorf("%w: lz4 produced %d bytes, want %d", ErrCorrupt, n, rawLen)
		}
		return raw, nil
	case CompressionZSTD:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, fmt.Errorf("zstd.NewReader: %w", err)
		}
		defer zstdDecoderPool.Put(dec)
		raw, err := dec.DecodeAll(stored, make([]byte, 0, rawLen))
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", ErrCompression, err)
		}
		if uint64(len(raw)) != rawLen {
			return nil, fmt.Errorf("%w: zstd produced %d bytes, want %d", ErrCorrupt, len(raw), rawLen)
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrCompression, c)
	}
}
