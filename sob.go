// Copyright 2024 The sob Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package sob implements a set of unsigned integers stored as bits in a
// growable bit vector: value i is a member iff bit i is set.
package sob

import (
	"iter"
	"math"
	"strconv"
	"strings"

	"github.com/bpowers/sob/vob"
)

// Sob is a set of uints backed by a bit vector.  The zero value is an
// empty set ready to use.  A Sob is not safe for concurrent mutation.
type Sob struct {
	vob *vob.Vob
}

// New returns an empty set with zero capacity.
func New() *Sob {
	return &Sob{vob: vob.New()}
}

// WithCapacity returns an empty set able to hold values below n without
// growing.
func WithCapacity(n uint) *Sob {
	return FromVob(vob.FromElem(n, false))
}

// FromVob returns a set whose members are the set bits of v.  The set
// takes ownership of v; the caller must not use it afterwards.
func FromVob(v *vob.Vob) *Sob {
	if v == nil {
		v = vob.New()
	}
	return &Sob{vob: v}
}

func (s *Sob) storage() *vob.Vob {
	if s.vob == nil {
		s.vob = vob.New()
	}
	return s.vob
}

// Capacity returns the number of values addressable without growing.
// It is not the number of members; see Len.
func (s *Sob) Capacity() uint {
	return s.storage().Len()
}

// ReserveLen grows the set, if needed, so Capacity is at least n.  It
// never shrinks.
func (s *Sob) ReserveLen(n uint) {
	v := s.storage()
	if cur := v.Len(); n > cur {
		v.Resize(n-cur, false)
	}
}

// ShrinkToFit reduces Capacity to one past the largest member (zero
// for an empty set) and releases unused memory.
func (s *Sob) ShrinkToFit() {
	v := s.storage()
	var n uint
	if hi, ok := s.Max(); ok {
		n = hi + 1
	}
	if n == v.Len() {
		v.ShrinkToFit()
		return
	}

	shrunk := vob.FromElem(n, false)
	for i := range v.IterSetBits(0, n) {
		shrunk.Set(i, true)
	}
	shrunk.ShrinkToFit()
	s.vob = shrunk
}

// Len returns the number of members.  It scans the whole bit vector.
func (s *Sob) Len() int {
	v := s.storage()
	n := 0
	for range v.IterSetBits(0, v.Len()) {
		n++
	}
	return n
}

// IsEmpty reports whether the set has no members.
func (s *Sob) IsEmpty() bool {
	v := s.storage()
	for range v.IterSetBits(0, v.Len()) {
		return false
	}
	return true
}

// Contains reports whether value is a member.  Values at or beyond
// Capacity are never members.
func (s *Sob) Contains(value uint) bool {
	isSet, ok := s.storage().Get(value)
	return ok && isSet
}

// Insert adds value to the set, growing it if needed.  It returns false
// if value was already a member.  Insert panics for math.MaxUint, whose
// capacity can't be represented.
func (s *Sob) Insert(value uint) bool {
	if s.Contains(value) {
		return false
	}
	if value == math.MaxUint {
		// a capacity of value+1 isn't representable
		panic("sob: Insert(math.MaxUint) overflows capacity")
	}
	v := s.storage()
	if cur := v.Len(); value >= cur {
		v.Resize(value-cur+1, false)
	}
	v.Set(value, true)
	return true
}

// Remove deletes value from the set.  It returns false if value was not
// a member.  Capacity is unchanged.
func (s *Sob) Remove(value uint) bool {
	if !s.Contains(value) {
		return false
	}
	s.vob.Set(value, false)
	return true
}

// Clear removes every member, keeping Capacity.
func (s *Sob) Clear() {
	v := s.storage()
	n := v.Len()
	v.Clear()
	v.Resize(n, false)
}

// Max returns the largest member, or false if the set is empty.
func (s *Sob) Max() (uint, bool) {
	v := s.storage()
	var hi uint
	found := false
	for i := range v.IterSetBits(0, v.Len()) {
		hi, found = i, true
	}
	return hi, found
}

// All yields the members in ascending order.  The set must not be
// mutated during iteration.
func (s *Sob) All() iter.Seq[uint] {
	return func(yield func(uint) bool) {
		v := s.storage()
		for i := range v.IterSetBits(0, v.Len()) {
			if !yield(i) {
				return
			}
		}
	}
}

// IntoVob hands the backing bit vector to the caller.  s is left empty
// with zero capacity and no longer shares storage with the result.
func (s *Sob) IntoVob() *vob.Vob {
	v := s.storage()
	s.vob = nil
	return v
}

// Vob returns the backing bit vector without transferring ownership.
// Callers must not modify it or hold on to it across changes to s.
func (s *Sob) Vob() *vob.Vob {
	return s.storage()
}

// Clone returns a set with the same members and capacity as s that
// shares no memory with it.
func (s *Sob) Clone() *Sob {
	return &Sob{vob: s.storage().Clone()}
}

// Equal reports whether s and other have the same members, regardless
// of capacity.
func (s *Sob) Equal(other *Sob) bool {
	if s.Len() != other.Len() {
		return false
	}
	for i := range s.All() {
		if !other.Contains(i) {
			return false
		}
	}
	return true
}

// String formats the set like {1, 5, 9}.
func (s *Sob) String() string {
	var sb strings.Builder
	var buf [20]byte
	sb.WriteByte('{')
	first := true
	for i := range s.All() {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.Write(strconv.AppendUint(buf[:0], uint64(i), 10))
	}
	sb.WriteByte('}')
	return sb.String()
}
