// Copyright 2024 The sob Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package sob

import (
	"fmt"
	"io"
	"math"

	"github.com/google/uuid"

	"github.com/bpowers/sob/internal/sobfile"
	"github.com/bpowers/sob/vob"
)

var (
	ErrBadMagic    = sobfile.ErrBadMagic
	ErrVersion     = sobfile.ErrVersion
	ErrTruncated   = sobfile.ErrTruncated
	ErrChecksum    = sobfile.ErrChecksum
	ErrCompression = sobfile.ErrCompression
	ErrCorrupt     = sobfile.ErrCorrupt
)

// MarshalBinary encodes the set, including its capacity.  The encoding
// is deterministic and is the same format WriteFile uses, uncompressed.
func (s *Sob) MarshalBinary() ([]byte, error) {
	v := s.storage()
	return sobfile.Append(nil, uint64(v.Len()), v.Words(), sobfile.CompressionNone, uuid.Nil)
}

// UnmarshalBinary replaces the contents of s with a set encoded by
// MarshalBinary or WriteTo.
func (s *Sob) UnmarshalBinary(data []byte) error {
	view, err := sobfile.Parse(data)
	if err != nil {
		return fmt.Errorf("sobfile.Parse: %w", err)
	}
	v, err := vobFromView(view)
	if err != nil {
		return err
	}
	s.vob = v
	return nil
}

// WriteTo writes the encoded set to w.
func (s *Sob) WriteTo(w io.Writer) (int64, error) {
	v := s.storage()
	return sobfile.NewWriter(w, sobfile.CompressionNone, uuid.Nil).Write(uint64(v.Len()), v.Words())
}

func vobFromView(view *sobfile.View) (*vob.Vob, error) {
	if view.Len() > math.MaxUint {
		return nil, fmt.Errorf("%w: %d bits don't fit in a uint", ErrCorrupt, view.Len())
	}
	v, err := vob.FromWords(view.Words(), uint(view.Len()))
	if err != nil {
		return nil, fmt.Errorf("vob.FromWords: %w", err)
	}
	return v, nil
}
