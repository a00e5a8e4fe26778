// Copyright 2024 The sob Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package zero provides functions to zero slices of specific types.
package zero

// U64 zeros every element of b, leaving its length and capacity alone.
func U64(b []uint64) {
	for i := 0; i < len(b); i++ {
		b[i] = 0
	}
}

// Bytes zeros every element of b.
func Bytes(b []byte) {
	for i := 0; i < len(b); i++ {
		b[i] = 0
	}
}
