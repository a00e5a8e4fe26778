// Copyright 2024 The sob Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package sobfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
	"math/bits"
	"os"
	"sync/atomic"

	"github.com/dgryski/go-farm"
	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

var (
	ErrBadMagic    = errors.New("bad magic number")
	ErrVersion     = errors.New("unsupported format version")
	ErrTruncated   = errors.New("sob data truncated")
	ErrChecksum    = errors.New("checksum mismatch")
	ErrCompression = errors.New("bad compression")
	ErrCorrupt     = errors.New("sob data corrupted")
)

// View is a read-only, parsed sob file.  For uncompressed files the
// payload aliases the bytes passed to Parse.
type View struct {
	h       fileHeader
	payload []byte
}

// Parse validates the header and checksum in data and returns a View
// over it.
func Parse(data []byte) (*View, error) {
	var h fileHeader
	if err := h.UnmarshalBytes(data); err != nil {
		return nil, fmt.Errorf("fileHeader.UnmarshalBytes: %w", err)
	}

	stored := data[fileHeaderSize:]
	if uint64(len(stored)) < h.storedLen {
		return nil, fmt.Errorf("%w: payload is %d bytes, header says %d", ErrTruncated, len(stored), h.storedLen)
	}
	stored = stored[:h.storedLen]

	checksum := uint32(farm.Hash64(stored))
	if checksum != h.checksum {
		return nil, fmt.Errorf("%w (%d != %d): sob data corrupted", ErrChecksum, h.checksum, checksum)
	}

	rawLen := h.wordCount * wordBytes
	if h.compression == CompressionNone && h.storedLen != rawLen {
		return nil, fmt.Errorf("%w: %d payload bytes for %d words", ErrCorrupt, h.storedLen, h.wordCount)
	}
	payload, err := decompress(stored, h.compression, rawLen)
	if err != nil {
		return nil, err
	}

	return &View{
		h:       h,
		payload: payload,
	}, nil
}

// Len returns the number of bits in the stored vector.
func (v *View) Len() uint64 {
	return v.h.bitLen
}

// ID returns the identifier stamped into the file when it was written.
func (v *View) ID() uuid.UUID {
	return v.h.fileID
}

// Compression returns how the payload was stored.
func (v *View) Compression() Compression {
	return v.h.compression
}

func (v *View) word(i uint64) uint64 {
	return binary.LittleEndian.Uint64(v.payload[i*wordBytes:])
}

// IsSet returns true if the bit at position off is 1.  Positions past
// Len are never set.
func (v *View) IsSet(off uint64) bool {
	if off >= v.h.bitLen {
		return false
	}
	return v.word(off/64)&(1<<(off%64)) != 0
}

// Count returns the number of set bits.
func (v *View) Count() int {
	n := 0
	for i := uint64(0); i < v.h.wordCount; i++ {
		n += bits.OnesCount64(v.word(i))
	}
	return n
}

// IterSetBits yields the positions of set bits in ascending order.
func (v *View) IterSetBits() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for i := uint64(0); i < v.h.wordCount; i++ {
			word := v.word(i)
			for word != 0 {
				off := i*64 + uint64(bits.TrailingZeros64(word))
				if off >= v.h.bitLen {
					return
				}
				if !yield(off) {
					return
				}
				word &= word - 1
			}
		}
	}
}

// Words returns a freshly allocated copy of the packed words.
func (v *View) Words() []uint64 {
	if v.h.wordCount == 0 {
		return nil
	}
	words := make([]uint64, v.h.wordCount)
	for i := range words {
		words[i] = v.word(uint64(i))
	}
	if tail := v.h.bitLen % 64; tail != 0 {
		words[len(words)-1] &= 1<<tail - 1
	}
	return words
}

// MmapReader is a sob file mapped read-only into memory.
type MmapReader struct {
	data     []byte
	view     *View
	isClosed atomic.Bool
}

func NewMMapReaderWithPath(path string) (*MmapReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("os.Open(%s): %w", path, err)
	}
	// the mapping stays valid after the file is closed
	defer func() { _ = f.Close() }()

	stats, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("f.Stat: %w", err)
	}
	if stats.Size() < fileHeaderSize {
		return nil, fmt.Errorf("%w: sob file too short: %d < %d", ErrTruncated, stats.Size(), fileHeaderSize)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(stats.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap(%s): %w", path, err)
	}
	if err := unix.Madvise(data, unix.MADV_RANDOM); err != nil {
		_ = unix.Munmap(data)
		return nil, fmt.Errorf("madvise: %w", err)
	}

	view, err := Parse(data)
	if err != nil {
		_ = unix.Munmap(data)
		return nil, fmt.Errorf("Parse(%s): %w", path, err)
	}

	return &MmapReader{
		data: data,
		view: view,
	}, nil
}

// View returns the parsed contents.  It panics if called after Close,
// and the returned View must not be used after Close.
func (r *MmapReader) View() *View {
	if r.isClosed.Load() {
		panic("sobfile: MmapReader used after Close")
	}
	return r.view
}

// Close unmaps the file.  Calling Close more than once is a no-op.
func (r *MmapReader) Close() error {
	if alreadyClosed := r.isClosed.Swap(true); alreadyClosed {
		return nil
	}
	r.view = nil
	if err := unix.Munmap(r.data); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	r.data = nil
	return nil
}
