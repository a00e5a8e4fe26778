// Copyright 2024 The sob Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package vob provides a growable vector of bits, conceptually similar
// to []bool but packed 64 to a word.
package vob

import (
	"errors"
	"fmt"
	"iter"
	"math/bits"
	"slices"

	"github.com/bpowers/sob/internal/zero"
)

const wordBits = 64

var (
	ErrWordCount = errors.New("vob: word count does not match bit length")
)

// Vob is a growable bit vector.  The zero value is an empty vector
// ready to use.
//
// Bits stored at or beyond Len are always zero, which lets Resize
// reuse backing memory without clearing it first.
type Vob struct {
	words  []uint64
	length uint
}

func getOffsets(off uint) (wordOff uint, bitOff uint) {
	wordOff = off / wordBits
	bitOff = off % wordBits
	return
}

func wordsFor(n uint) uint {
	w := n / wordBits
	if n%wordBits != 0 {
		w++
	}
	return w
}

// New returns an empty bit vector.
func New() *Vob {
	return &Vob{}
}

// FromElem returns a bit vector of length n with every bit set to value.
func FromElem(n uint, value bool) *Vob {
	v := &Vob{
		words: make([]uint64, wordsFor(n)),
	}
	v.length = n
	if value {
		v.fill(0, n)
	}
	return v
}

// FromWords adopts words as the backing storage for a vector of n bits.
// Bits in the final word past n are cleared.  Any capacity beyond
// len(words) is not adopted, so later growth never exposes it.
func FromWords(words []uint64, n uint) (*Vob, error) {
	if uint(len(words)) != wordsFor(n) {
		return nil, fmt.Errorf("%w: %d words for %d bits", ErrWordCount, len(words), n)
	}
	v := &Vob{
		words:  words[:len(words):len(words)],
		length: n,
	}
	v.maskTail()
	return v, nil
}

// Len returns the number of addressable bits.
func (v *Vob) Len() uint {
	return v.length
}

// Capacity returns the number of bits the backing memory can hold
// without reallocating.
func (v *Vob) Capacity() uint {
	return uint(cap(v.words)) * wordBits
}

// Get returns the bit at position i.  ok is false when i is out of range.
func (v *Vob) Get(i uint) (value bool, ok bool) {
	if i >= v.length {
		return false, false
	}
	wordOff, bitOff := getOffsets(i)
	return v.words[wordOff]&(1<<bitOff) != 0, true
}

// Set sets the bit at position i.  i must be less than Len.
func (v *Vob) Set(i uint, value bool) {
	if i >= v.length {
		panic(fmt.Sprintf("vob: Set(%d) out of range (len %d)", i, v.length))
	}
	wordOff, bitOff := getOffsets(i)
	u64 := &v.words[wordOff]
	if value {
		*u64 |= 1 << bitOff
	} else {
		*u64 &^= 1 << bitOff
	}
}

// Resize appends extra bits, each set to value.
func (v *Vob) Resize(extra uint, value bool) {
	if extra == 0 {
		return
	}
	oldLen := v.length
	newLen := oldLen + extra
	if newLen < oldLen {
		panic("vob: length overflows uint")
	}
	need := int(wordsFor(newLen))
	if need > len(v.words) {
		// anything between len and cap is already zero
		v.words = slices.Grow(v.words, need-len(v.words))[:need]
	}
	v.length = newLen
	if value {
		v.fill(oldLen, newLen)
	}
}

// Reserve makes room for at least extra more bits without changing Len.
func (v *Vob) Reserve(extra uint) {
	newLen := v.length + extra
	if newLen < v.length {
		panic("vob: length overflows uint")
	}
	need := int(wordsFor(newLen))
	if need > cap(v.words) {
		v.words = slices.Grow(v.words, need-len(v.words))
	}
}

// ShrinkToFit releases backing memory not needed to hold Len bits.
func (v *Vob) ShrinkToFit() {
	need := len(v.words)
	if cap(v.words) == need {
		return
	}
	if need == 0 {
		v.words = nil
		return
	}
	words := make([]uint64, need)
	copy(words, v.words)
	v.words = words
}

// Clear sets the length to zero.  Backing memory is kept for reuse.
func (v *Vob) Clear() {
	zero.U64(v.words)
	v.words = v.words[:0]
	v.length = 0
}

// IterSetBits yields, in ascending order, the positions in [start, end)
// whose bit is set.  end is clamped to Len.
func (v *Vob) IterSetBits(start, end uint) iter.Seq[uint] {
	return func(yield func(uint) bool) {
		stop := min(end, v.length)
		if start >= stop {
			return
		}
		wordOff, bitOff := getOffsets(start)
		word := v.words[wordOff] & (^uint64(0) << bitOff)
		for {
			for word != 0 {
				i := wordOff*wordBits + uint(bits.TrailingZeros64(word))
				if i >= stop {
					return
				}
				if !yield(i) {
					return
				}
				word &= word - 1
			}
			wordOff++
			if wordOff*wordBits >= stop {
				return
			}
			word = v.words[wordOff]
		}
	}
}

// Words returns the packed backing words.  The result aliases the
// vector and must not be modified.
func (v *Vob) Words() []uint64 {
	return v.words
}

// Clone returns an independent copy of v.
func (v *Vob) Clone() *Vob {
	return &Vob{
		words:  slices.Clone(v.words),
		length: v.length,
	}
}

func (v *Vob) fill(from, to uint) {
	for from < to {
		wordOff, bitOff := getOffsets(from)
		n := min(wordBits-bitOff, to-from)
		mask := ^uint64(0)
		if n < wordBits {
			mask = 1<<n - 1
		}
		v.words[wordOff] |= mask << bitOff
		from += n
	}
}

func (v *Vob) maskTail() {
	if tail := v.length % wordBits; tail != 0 {
		v.words[len(v.words)-1] &= 1<<tail - 1
	}
}
