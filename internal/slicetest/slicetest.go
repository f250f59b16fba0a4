// Package slicetest provides an in-memory HeaderReader and SliceDecoder and
// helpers for building slice directories in tests.
package slicetest

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"dicom4d/internal/models"
)

// Store serves headers and slices keyed by file base name. It is safe for
// concurrent reads once populated.
type Store struct {
	Headers map[string]*models.Header
	Slices  map[string]*models.Slice
}

// NewStore returns an empty Store
func NewStore() *Store {
	return &Store{
		Headers: make(map[string]*models.Header),
		Slices:  make(map[string]*models.Slice),
	}
}

// ReadHeader implements reconstruction.HeaderReader
func (s *Store) ReadHeader(path string) (*models.Header, error) {
	h, ok := s.Headers[filepath.Base(path)]
	if !ok {
		return nil, fmt.Errorf("no header for %s", path)
	}
	out := *h
	return &out, nil
}

// DecodeSlice implements reconstruction.SliceDecoder
func (s *Store) DecodeSlice(path string) (*models.Slice, error) {
	sl, ok := s.Slices[filepath.Base(path)]
	if !ok {
		return nil, fmt.Errorf("no pixel data for %s", path)
	}
	out := *sl
	out.Path = path
	return &out, nil
}

// Names returns n zero-padded file names that sort lexically in index order
func Names(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("IM_%04d.dcm", i)
	}
	return out
}

// WriteFiles creates an empty file for each name in dir
func WriteFiles(t testing.TB, dir string, names []string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatalf("Failed to create slice file %s: %v", name, err)
		}
	}
}

// Float returns a pointer to v, for optional header fields
func Float(v float64) *float64 {
	return &v
}

// Pack8 builds an 8-bit slice
func Pack8(width, height int, values []uint8) *models.Slice {
	return &models.Slice{Width: width, Height: height, BitDepth: 8, Samples: append([]byte(nil), values...)}
}

// Pack16 builds a 16-bit little-endian slice
func Pack16(width, height int, values []uint16) *models.Slice {
	buf := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(buf[2*i:], v)
	}
	return &models.Slice{Width: width, Height: height, BitDepth: 16, Samples: buf}
}

// Pack32 builds a 32-bit little-endian slice
func Pack32(width, height int, values []uint32) *models.Slice {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[4*i:], v)
	}
	return &models.Slice{Width: width, Height: height, BitDepth: 32, Samples: buf}
}

// Constant16 builds a 16-bit slice with every sample set to value
func Constant16(width, height int, value uint16) *models.Slice {
	values := make([]uint16, width*height)
	for i := range values {
		values[i] = value
	}
	return Pack16(width, height, values)
}

// Series populates dir and a Store with n slices of width x height. Every
// file carries the same header with the given temporal frame count and the
// i-th file's samples are all equal to i+1.
func Series(t testing.TB, dir string, n, width, height int, frames string) (*Store, []string) {
	t.Helper()

	store := NewStore()
	names := Names(n)
	for i, name := range names {
		store.Headers[name] = &models.Header{
			Rows:               height,
			Columns:            width,
			TemporalFrameCount: frames,
			InstanceNumber:     fmt.Sprint(i + 1),
		}
		store.Slices[name] = Constant16(width, height, uint16(i+1))
	}
	WriteFiles(t, dir, names)

	return store, names
}
