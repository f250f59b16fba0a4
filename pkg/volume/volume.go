// Package volume provides a dense, bounds-checked container for
// single-precision samples over four axes (x, y, z, t).
package volume

import (
	"errors"
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrOutOfRange is returned for any access outside the current extents
	ErrOutOfRange = errors.New("volume: index out of range")

	// ErrNegativeExtent is returned when resizing to a negative extent
	ErrNegativeExtent = errors.New("volume: negative extent")
)

// Volume4D is a dense 4D array of float32 samples. Storage is a single
// contiguous slice laid out as [t][z][y][x], so x varies fastest.
//
// The zero value is an empty volume. A Volume4D is not safe for concurrent
// resizing; concurrent writes to disjoint (z, t) planes are safe once the
// extents are fixed.
type Volume4D struct {
	data           []float32
	nx, ny, nz, nt int
}

// New creates a zero-filled volume with the given extents. Negative
// extents are treated as zero.
func New(x, y, z, t int) *Volume4D {
	v := &Volume4D{}
	if err := v.Resize(x, y, z, t); err != nil {
		return &Volume4D{}
	}
	return v
}

// Resize discards all data and reallocates zero-initialised storage for the
// given extents.
func (v *Volume4D) Resize(x, y, z, t int) error {
	if x < 0 || y < 0 || z < 0 || t < 0 {
		return fmt.Errorf("%w: %d x %d x %d x %d", ErrNegativeExtent, x, y, z, t)
	}

	v.nx, v.ny, v.nz, v.nt = x, y, z, t
	v.data = make([]float32, x*y*z*t)

	return nil
}

// Clear resets the volume to the empty state
func (v *Volume4D) Clear() {
	v.data = nil
	v.nx, v.ny, v.nz, v.nt = 0, 0, 0, 0
}

// SizeX returns the x extent
func (v *Volume4D) SizeX() int { return v.nx }

// SizeY returns the y extent
func (v *Volume4D) SizeY() int { return v.ny }

// SizeZ returns the z extent
func (v *Volume4D) SizeZ() int { return v.nz }

// SizeT returns the t extent
func (v *Volume4D) SizeT() int { return v.nt }

// Dims returns the four extents in (x, y, z, t) order
func (v *Volume4D) Dims() (x, y, z, t int) {
	return v.nx, v.ny, v.nz, v.nt
}

// TotalElements returns nx*ny*nz*nt
func (v *Volume4D) TotalElements() int {
	return v.nx * v.ny * v.nz * v.nt
}

// Empty reports whether the volume has no storage or any zero extent
func (v *Volume4D) Empty() bool {
	return len(v.data) == 0 || v.nx == 0 || v.ny == 0 || v.nz == 0 || v.nt == 0
}

func (v *Volume4D) index(x, y, z, t int) (int, error) {
	if x < 0 || y < 0 || z < 0 || t < 0 || x >= v.nx || y >= v.ny || z >= v.nz || t >= v.nt {
		return 0, fmt.Errorf("%w: (%d, %d, %d, %d) outside %d x %d x %d x %d",
			ErrOutOfRange, x, y, z, t, v.nx, v.ny, v.nz, v.nt)
	}
	return ((t*v.nz+z)*v.ny+y)*v.nx + x, nil
}

// At returns the sample at (x, y, z, t)
func (v *Volume4D) At(x, y, z, t int) (float32, error) {
	i, err := v.index(x, y, z, t)
	if err != nil {
		return 0, err
	}
	return v.data[i], nil
}

// Ref returns a pointer to the sample at (x, y, z, t) for in-place
// modification. The pointer is invalidated by Resize, Clear and Take.
func (v *Volume4D) Ref(x, y, z, t int) (*float32, error) {
	i, err := v.index(x, y, z, t)
	if err != nil {
		return nil, err
	}
	return &v.data[i], nil
}

// Set stores value at (x, y, z, t)
func (v *Volume4D) Set(x, y, z, t int, value float32) error {
	i, err := v.index(x, y, z, t)
	if err != nil {
		return err
	}
	v.data[i] = value
	return nil
}

func (v *Volume4D) planeOffset(z, t int) (int, error) {
	if v.nx == 0 || v.ny == 0 {
		return 0, fmt.Errorf("%w: plane (z=%d, t=%d) of a volume with no in-plane extent", ErrOutOfRange, z, t)
	}
	return v.index(0, 0, z, t)
}

// Plane returns a copy of the XY plane at (z, t), row-major with y outer
func (v *Volume4D) Plane(z, t int) ([]float32, error) {
	off, err := v.planeOffset(z, t)
	if err != nil {
		return nil, err
	}

	out := make([]float32, v.nx*v.ny)
	copy(out, v.data[off:off+v.nx*v.ny])
	return out, nil
}

// SetPlane copies src into the XY plane at (z, t). src must hold exactly
// nx*ny samples, row-major with y outer.
func (v *Volume4D) SetPlane(z, t int, src []float32) error {
	off, err := v.planeOffset(z, t)
	if err != nil {
		return err
	}
	if len(src) != v.nx*v.ny {
		return fmt.Errorf("%w: plane has %d samples, want %d", ErrOutOfRange, len(src), v.nx*v.ny)
	}

	copy(v.data[off:off+v.nx*v.ny], src)
	return nil
}

// Fill sets every sample to value
func (v *Volume4D) Fill(value float32) {
	for i := range v.data {
		v.data[i] = value
	}
}

// FillRandom sets every sample to an independent uniform draw in [min, max]
// from src. Passing the same seeded source reproduces the same volume.
func (v *Volume4D) FillRandom(src rand.Source, min, max float32) {
	if min == max {
		v.Fill(min)
		return
	}

	dist := distuv.Uniform{Min: float64(min), Max: float64(max), Src: src}
	for i := range v.data {
		v.data[i] = float32(dist.Rand())
	}
}

// Apply replaces every sample s with fn(s)
func (v *Volume4D) Apply(fn func(float32) float32) {
	for i, s := range v.data {
		v.data[i] = fn(s)
	}
}

// Clone returns a deep copy of the volume
func (v *Volume4D) Clone() *Volume4D {
	out := &Volume4D{nx: v.nx, ny: v.ny, nz: v.nz, nt: v.nt}
	if v.data != nil {
		out.data = make([]float32, len(v.data))
		copy(out.data, v.data)
	}
	return out
}

// Take transfers ownership of the storage to a new Volume4D and leaves the
// receiver empty.
func (v *Volume4D) Take() *Volume4D {
	out := &Volume4D{data: v.data, nx: v.nx, ny: v.ny, nz: v.nz, nt: v.nt}
	v.Clear()
	return out
}

// Equal reports whether both volumes have the same extents and samples
func (v *Volume4D) Equal(other *Volume4D) bool {
	if other == nil {
		return false
	}
	if v.nx != other.nx || v.ny != other.ny || v.nz != other.nz || v.nt != other.nt {
		return false
	}
	if len(v.data) != len(other.data) {
		return false
	}
	for i := range v.data {
		if v.data[i] != other.data[i] {
			return false
		}
	}
	return true
}
