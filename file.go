// Copyright 2024 The sob Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package sob

import (
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/bpowers/sob/internal/sobfile"
)

// Compression selects how WriteFile stores a set's bits.
type Compression = sobfile.Compression

const (
	CompressionNone = sobfile.CompressionNone
	CompressionLZ4  = sobfile.CompressionLZ4
	CompressionZSTD = sobfile.CompressionZSTD
)

// ParseCompression parses "none", "lz4" or "zstd".
func ParseCompression(s string) (Compression, error) {
	return sobfile.ParseCompression(s)
}

// Option configures WriteFile and Open.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	compression Compression
}

// WithLogger sets an optional logger for file operations.
// If not provided, no logging output will be produced.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// WithCompression compresses the payload written by WriteFile.  Sets
// that don't get smaller are stored uncompressed.  Uncompressed files
// are queried in place by Open; compressed ones are expanded into memory.
func WithCompression(c Compression) Option {
	return func(opts *options) {
		opts.compression = c
	}
}

func newOptions(opts []Option) options {
	var o options
	o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WriteFile atomically writes the set to path.  The finished file is
// read-only.
func (s *Sob) WriteFile(path string, opts ...Option) error {
	o := newOptions(opts)

	// we want to write to a new file and do an atomic rename when we're done on disk
	path, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("filepath.Abs: %w", err)
	}
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "sob.*.tmp")
	if err != nil {
		return fmt.Errorf("CreateTemp failed (may need permissions for dir %q): %w", dir, err)
	}
	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}

	id := uuid.New()
	v := s.storage()
	n, err := sobfile.NewWriter(f, o.compression, id).Write(uint64(v.Len()), v.Words())
	if err != nil {
		cleanup()
		return fmt.Errorf("sobfile.Write: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("f.Sync: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("f.Close: %w", err)
	}
	// make the file read-only
	if err := os.Chmod(f.Name(), 0444); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("os.Chmod(0444): %w", err)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("os.Rename: %w", err)
	}

	o.logger.Debug("wrote sob file",
		"path", path,
		"id", id,
		"bytes", n,
		"capacity", v.Len(),
		"compression", o.compression)

	return nil
}

// File is a set stored on disk and mapped read-only into memory.
type File struct {
	r      *sobfile.MmapReader
	path   string
	logger *slog.Logger
}

// Open maps the set file at path.  Close the File when done with it.
func Open(path string, opts ...Option) (*File, error) {
	o := newOptions(opts)
	r, err := sobfile.NewMMapReaderWithPath(path)
	if err != nil {
		return nil, err
	}
	view := r.View()
	o.logger.Debug("opened sob file",
		"path", path,
		"id", view.ID(),
		"capacity", view.Len(),
		"compression", view.Compression())
	return &File{
		r:      r,
		path:   path,
		logger: o.logger,
	}, nil
}

// ID returns the identifier assigned when the file was written.
func (f *File) ID() uuid.UUID {
	return f.r.View().ID()
}

// Compression returns how the file's bits are stored.
func (f *File) Compression() Compression {
	return f.r.View().Compression()
}

// Capacity returns the capacity of the set when it was written.
func (f *File) Capacity() uint {
	return uint(f.r.View().Len())
}

// Contains reports whether value is a member.
func (f *File) Contains(value uint) bool {
	return f.r.View().IsSet(uint64(value))
}

// Len returns the number of members.
func (f *File) Len() int {
	return f.r.View().Count()
}

// All yields the members in ascending order.
func (f *File) All() iter.Seq[uint] {
	return func(yield func(uint) bool) {
		for off := range f.r.View().IterSetBits() {
			if !yield(uint(off)) {
				return
			}
		}
	}
}

// Load copies the file's contents into a new, mutable Sob.
func (f *File) Load() (*Sob, error) {
	v, err := vobFromView(f.r.View())
	if err != nil {
		return nil, fmt.Errorf("Load(%s): %w", f.path, err)
	}
	return FromVob(v), nil
}

// Close unmaps the file.  Using the File afterwards panics.
func (f *File) Close() error {
	f.logger.Debug("closing sob file", "path", f.path)
	return f.r.Close()
}
