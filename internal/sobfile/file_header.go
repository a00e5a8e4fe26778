// Copyright 2024 The sob Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package sobfile

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/bpowers/sob/internal/zero"
)

const (
	magicSobHeader    = 0x5E7B175E
	fileFormatVersion = 1
	fileHeaderSize    = 64

	wordBytes = 8
)

type fileHeader struct {
	magic         uint32
	formatVersion uint32
	bitLen        uint64
	wordCount     uint64
	storedLen     uint64
	checksum      uint32
	compression   Compression
	fileID        uuid.UUID
}

func newFileHeader(bitLen uint64, id uuid.UUID) *fileHeader {
	return &fileHeader{
		magic:         magicSobHeader,
		formatVersion: fileFormatVersion,
		bitLen:        bitLen,
		wordCount:     wordsFor(bitLen),
		fileID:        id,
	}
}

func wordsFor(bitLen uint64) uint64 {
	n := bitLen / 64
	if bitLen%64 != 0 {
		n++
	}
	return n
}

func (h *fileHeader) MarshalTo(headerBytes []byte) error {
	if len(headerBytes) < fileHeaderSize {
		return fmt.Errorf("headerBytes too short: %d < %d", len(headerBytes), fileHeaderSize)
	}
	headerBytes = headerBytes[:fileHeaderSize]
	zero.Bytes(headerBytes)

	binary.LittleEndian.PutUint32(headerBytes[0:4], h.magic)
	binary.LittleEndian.PutUint32(headerBytes[4:8], h.formatVersion)
	binary.LittleEndian.PutUint64(headerBytes[8:16], h.bitLen)
	binary.LittleEndian.PutUint64(headerBytes[16:24], h.wordCount)
	binary.LittleEndian.PutUint64(headerBytes[24:32], h.storedLen)
	binary.LittleEndian.PutUint32(headerBytes[32:36], h.checksum)
	headerBytes[36] = byte(h.compression)
	copy(headerBytes[40:56], h.fileID[:])

	return nil
}

func (h *fileHeader) WriteTo(w io.Writer) (n int64, err error) {
	var headerBuf [fileHeaderSize]byte
	if err := h.MarshalTo(headerBuf[:]); err != nil {
		return 0, err
	}
	if _, err = w.Write(headerBuf[:]); err != nil {
		return 0, fmt.Errorf("write: %w", err)
	}
	return int64(fileHeaderSize), nil
}

func (h *fileHeader) UnmarshalBytes(headerBytes []byte) error {
	if len(headerBytes) < fileHeaderSize {
		return fmt.Errorf("%w: header is %d bytes, want %d", ErrTruncated, len(headerBytes), fileHeaderSize)
	}

	headerBytes = headerBytes[:fileHeaderSize]

	h.magic = binary.LittleEndian.Uint32(headerBytes[0:4])
	if h.magic != magicSobHeader {
		return fmt.Errorf("%w (%x) -- not a sob file or corrupted", ErrBadMagic, h.magic)
	}

	h.formatVersion = binary.LittleEndian.Uint32(headerBytes[4:8])
	if h.formatVersion != fileFormatVersion {
		return fmt.Errorf("%w: can only read v%d sob files; found v%d", ErrVersion, fileFormatVersion, h.formatVersion)
	}

	h.bitLen = binary.LittleEndian.Uint64(headerBytes[8:16])
	h.wordCount = binary.LittleEndian.Uint64(headerBytes[16:24])
	if h.wordCount != wordsFor(h.bitLen) {
		return fmt.Errorf("%w: %d words can't hold exactly %d bits", ErrCorrupt, h.wordCount, h.bitLen)
	}
	h.storedLen = binary.LittleEndian.Uint64(headerBytes[24:32])
	h.checksum = binary.LittleEndian.Uint32(headerBytes[32:36])
	h.compression = Compression(headerBytes[36])
	if !h.compression.valid() {
		return fmt.Errorf("%w: unknown compression %d", ErrCompression, h.compression)
	}
	copy(h.fileID[:], headerBytes[40:56])

	return nil
}
