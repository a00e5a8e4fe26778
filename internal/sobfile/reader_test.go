// Copyright 2024 The sob Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package sobfile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgryski/go-farm"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testVector struct {
	bitLen  uint64
	words   []uint64
	members []uint64
}

func newTestVector(bitLen uint64, members ...uint64) testVector {
	words := make([]uint64, wordsFor(bitLen))
	for _, m := range members {
		words[m/64] |= 1 << (m % 64)
	}
	return testVector{bitLen: bitLen, words: words, members: members}
}

func collectSetBits(v *View) []uint64 {
	var out []uint64
	for off := range v.IterSetBits() {
		out = append(out, off)
	}
	return out
}

func requireView(t *testing.T, tv testVector, v *View) {
	t.Helper()
	require.Equal(t, tv.bitLen, v.Len())
	require.Equal(t, len(tv.members), v.Count())
	if len(tv.members) == 0 {
		require.Empty(t, collectSetBits(v))
	} else {
		require.Equal(t, tv.members, collectSetBits(v))
	}
	for _, m := range tv.members {
		require.True(t, v.IsSet(m))
	}
	require.False(t, v.IsSet(tv.bitLen))
	require.False(t, v.IsSet(tv.bitLen+1000))
	if len(tv.words) == 0 {
		require.Empty(t, v.Words())
	} else {
		require.Equal(t, tv.words, v.Words())
	}
}

func TestWriterAndParse(t *testing.T) {
	vectors := []testVector{
		newTestVector(0),
		newTestVector(1, 0),
		newTestVector(130, 3, 64, 129),
		newTestVector(32183232, 0, 1<<20, 32183231),
	}
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		for _, tv := range vectors {
			id := uuid.New()
			var buf bytes.Buffer
			n, err := NewWriter(&buf, c, id).Write(tv.bitLen, tv.words)
			require.NoError(t, err)
			require.Equal(t, int64(buf.Len()), n)

			v, err := Parse(buf.Bytes())
			require.NoError(t, err)
			require.Equal(t, id, v.ID())
			requireView(t, tv, v)

			// Append produces the same bytes
			appended, err := Append([]byte("prefix"), tv.bitLen, tv.words, c, id)
			require.NoError(t, err)
			require.Equal(t, []byte("prefix"), appended[:6])
			require.Equal(t, buf.Bytes(), appended[6:])
		}
	}
}

func TestWriter_CompressesSparseVectors(t *testing.T) {
	tv := newTestVector(1<<20, 1<<20-1)
	for _, c := range []Compression{CompressionLZ4, CompressionZSTD} {
		data, err := Append(nil, tv.bitLen, tv.words, c, uuid.Nil)
		require.NoError(t, err)
		require.Less(t, len(data), len(tv.words)*wordBytes)

		v, err := Parse(data)
		require.NoError(t, err)
		require.Equal(t, c, v.Compression())
		requireView(t, tv, v)
	}
}

func TestWriter_WordCountMismatch(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewWriter(&buf, CompressionNone, uuid.Nil).Write(65, []uint64{1})
	require.Error(t, err)
	require.Equal(t, 0, buf.Len())

	_, err = Append(nil, 10, nil, CompressionNone, uuid.Nil)
	require.Error(t, err)
}

func TestParse_Corruption(t *testing.T) {
	tv := newTestVector(256, 1, 100, 200)
	data, err := Append(nil, tv.bitLen, tv.words, CompressionNone, uuid.New())
	require.NoError(t, err)

	_, err = Parse(data[:fileHeaderSize-1])
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = Parse(data[:len(data)-1])
	assert.ErrorIs(t, err, ErrTruncated)

	flipped := bytes.Clone(data)
	flipped[fileHeaderSize+3] ^= 0x10
	_, err = Parse(flipped)
	assert.ErrorIs(t, err, ErrChecksum)

	badMagic := bytes.Clone(data)
	badMagic[0] ^= 0xff
	_, err = Parse(badMagic)
	assert.ErrorIs(t, err, ErrBadMagic)

	// trailing bytes past the payload are ignored
	v, err := Parse(append(bytes.Clone(data), 0, 0, 0))
	require.NoError(t, err)
	requireView(t, tv, v)
}

func TestParse_ImplausibleDecompressedLength(t *testing.T) {
	stored := []byte{1, 2, 3, 4}
	for _, tc := range []struct {
		compression Compression
		bitLen      uint64
	}{
		{CompressionLZ4, 1 << 62},
		{CompressionZSTD, 1 << 62},
		// in range for a uint, but far more than 4 bytes can expand to
		{CompressionLZ4, 1 << 20},
		{CompressionZSTD, 1 << 30},
	} {
		h := newFileHeader(tc.bitLen, uuid.Nil)
		h.compression = tc.compression
		h.storedLen = uint64(len(stored))
		h.checksum = uint32(farm.Hash64(stored))

		data := make([]byte, fileHeaderSize)
		require.NoError(t, h.MarshalTo(data))
		data = append(data, stored...)

		var err error
		require.NotPanics(t, func() {
			_, err = Parse(data)
		})
		require.ErrorIs(t, err, ErrCorrupt, "%s with %d bits", tc.compression, tc.bitLen)
	}
}

func TestMmapReader(t *testing.T) {
	dir := t.TempDir()
	tv := newTestVector(1000, 0, 63, 64, 999)

	for _, c := range []Compression{CompressionNone, CompressionZSTD} {
		path := filepath.Join(dir, "test-"+c.String()+".sob")
		f, err := os.Create(path)
		require.NoError(t, err)
		_, err = NewWriter(f, c, uuid.New()).Write(tv.bitLen, tv.words)
		require.NoError(t, err)
		require.NoError(t, f.Close())

		r, err := NewMMapReaderWithPath(path)
		require.NoError(t, err)
		requireView(t, tv, r.View())
		require.NoError(t, r.Close())
		// closing twice is fine
		require.NoError(t, r.Close())
		require.PanicsWithValue(t, "sobfile: MmapReader used after Close", func() {
			r.View()
		})
	}

	short := filepath.Join(dir, "short.sob")
	require.NoError(t, os.WriteFile(short, []byte("nope"), 0644))
	_, err := NewMMapReaderWithPath(short)
	require.ErrorIs(t, err, ErrTruncated)

	_, err = NewMMapReaderWithPath(filepath.Join(dir, "missing.sob"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
