// Copyright 2024 The sob Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package sobfile

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileHeader_RoundTrip(t *testing.T) {
	origH := newFileHeader(130, uuid.New())
	require.Equal(t, uint32(magicSobHeader), origH.magic)
	require.Equal(t, uint32(fileFormatVersion), origH.formatVersion)
	require.Equal(t, uint64(3), origH.wordCount)
	require.NotEqual(t, uuid.Nil, origH.fileID)
	origH.storedLen = 24
	origH.checksum = 0xdeadbeef
	origH.compression = CompressionZSTD

	// this should be an error
	err := origH.MarshalTo(nil)
	assert.Error(t, err)

	var newH fileHeader
	headerBytes := make([]byte, fileHeaderSize)
	// this should be an error -- missing magic number
	err = newH.UnmarshalBytes(headerBytes)
	assert.ErrorIs(t, err, ErrBadMagic)

	err = origH.MarshalTo(headerBytes)
	require.NoError(t, err)

	// this should be an error
	err = newH.UnmarshalBytes(nil)
	assert.ErrorIs(t, err, ErrTruncated)

	err = newH.UnmarshalBytes(headerBytes)
	require.NoError(t, err)

	assert.Equal(t, origH, &newH)

	// test that deserializing an unknown version is broken
	origH.formatVersion = 666
	err = origH.MarshalTo(headerBytes)
	require.NoError(t, err)
	err = newH.UnmarshalBytes(headerBytes)
	assert.ErrorIs(t, err, ErrVersion)
}

func TestFileHeader_Validation(t *testing.T) {
	h := newFileHeader(64, uuid.Nil)
	headerBytes := make([]byte, fileHeaderSize)

	h.wordCount = 2
	require.NoError(t, h.MarshalTo(headerBytes))
	var newH fileHeader
	require.ErrorIs(t, newH.UnmarshalBytes(headerBytes), ErrCorrupt)

	h.wordCount = 1
	h.compression = 9
	require.NoError(t, h.MarshalTo(headerBytes))
	require.ErrorIs(t, newH.UnmarshalBytes(headerBytes), ErrCompression)
}

func TestFileHeader_WriteTo(t *testing.T) {
	h := newFileHeader(0, uuid.New())
	var buf bytes.Buffer
	n, err := h.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(fileHeaderSize), n)
	require.Equal(t, fileHeaderSize, buf.Len())

	// reserved bytes are always zero
	b := buf.Bytes()
	require.Equal(t, make([]byte, 3), b[37:40])
	require.Equal(t, make([]byte, 8), b[56:64])

	var newH fileHeader
	require.NoError(t, newH.UnmarshalBytes(b))
	require.Equal(t, h, &newH)
}
