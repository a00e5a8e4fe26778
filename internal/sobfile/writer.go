// Copyright 2024 The sob Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package sobfile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"slices"

	"github.com/dgryski/go-farm"
	"github.com/google/uuid"
)

const (
	defaultBufferSize = 64 * 1024
)

// Writer serializes bit vectors to an io.Writer, usually an *os.File.
type Writer struct {
	w           *bufio.Writer
	compression Compression
	id          uuid.UUID
}

// NewWriter returns a Writer that stamps id into the header and stores
// payloads using (at most) compression c.
func NewWriter(w io.Writer, c Compression, id uuid.UUID) *Writer {
	return &Writer{
		w:           bufio.NewWriterSize(w, defaultBufferSize),
		compression: c,
		id:          id,
	}
}

// Write writes a header and payload for the bitLen-bit vector packed in
// words, returning the number of bytes written.
func (w *Writer) Write(bitLen uint64, words []uint64) (int64, error) {
	h, stored, err := encode(bitLen, words, w.compression, w.id)
	if err != nil {
		return 0, err
	}

	headerLen, err := h.WriteTo(w.w)
	if err != nil {
		return 0, fmt.Errorf("fileHeader.WriteTo: %w", err)
	}
	n, err := w.w.Write(stored)
	if err != nil {
		return headerLen + int64(n), fmt.Errorf("bufio.Write: %w", err)
	}
	if err := w.w.Flush(); err != nil {
		return headerLen + int64(n), fmt.Errorf("bufio.Flush: %w", err)
	}

	return headerLen + int64(n), nil
}

// Append appends the serialized form of the vector to dst.
func Append(dst []byte, bitLen uint64, words []uint64, c Compression, id uuid.UUID) ([]byte, error) {
	h, stored, err := encode(bitLen, words, c, id)
	if err != nil {
		return dst, err
	}

	off := len(dst)
	dst = slices.Grow(dst, fileHeaderSize+len(stored))[:off+fileHeaderSize]
	if err := h.MarshalTo(dst[off:]); err != nil {
		return dst[:off], err
	}
	return append(dst, stored...), nil
}

func encode(bitLen uint64, words []uint64, c Compression, id uuid.UUID) (*fileHeader, []byte, error) {
	h := newFileHeader(bitLen, id)
	if uint64(len(words)) != h.wordCount {
		return nil, nil, fmt.Errorf("invariant broken: %d words for %d bits", len(words), bitLen)
	}

	payload := make([]byte, len(words)*wordBytes)
	for i, word := range words {
		binary.LittleEndian.PutUint64(payload[i*wordBytes:], word)
	}

	stored, used, err := compress(payload, c)
	if err != nil {
		return nil, nil, err
	}
	h.storedLen = uint64(len(stored))
	h.compression = used
	h.checksum = uint32(farm.Hash64(stored))

	return h, stored, nil
}
