// Copyright 2024 The sob Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package sobfile reads and writes the serialized form of a set of bits,
// used both for MarshalBinary and for read-only files that are mapped
// into memory.
//
// A sob file looks like:
//
//	┌───────────────────┐
//	│ file header       │
//	├───────────────────┤
//	│ payload           │
//	│                   │
//	│                   │
//	└───────────────────┘
//
// The header is a fixed 64 bytes:
//
//	 0    1    2    3    4    5    6    7
//	+----+----+----+----+----+----+----+----+
//	| magic             | format version    |
//	+----+----+----+----+----+----+----+----+
//	| bit length                            |
//	+----+----+----+----+----+----+----+----+
//	| word count                            |
//	+----+----+----+----+----+----+----+----+
//	| stored payload length                 |
//	+----+----+----+----+----+----+----+----+
//	| payload checksum  |cmp.| reserved     |
//	+----+----+----+----+----+----+----+----+
//	| file ID (UUID)                        |
//	+                                       +
//	|                                       |
//	+----+----+----+----+----+----+----+----+
//	| reserved                              |
//	+----+----+----+----+----+----+----+----+
//
// The payload is the bit vector's words as little-endian uint64s, bit i
// living in word i/64 at bit i%64.  It may be stored LZ4 or zstd
// compressed; sparse sets with large members compress very well.  The
// checksum is calculated over the stored (possibly compressed) payload
// bytes and is used to ensure we don't have un-detected on-disk
// corruption (with high probability).
package sobfile
