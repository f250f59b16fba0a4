package models

import "fmt"

// Slice represents a single decoded acquisition file before placement
type Slice struct {
	// Path is the file the slice was decoded from
	Path string

	// Width and Height are the in-plane extents in samples
	Width  int
	Height int

	// BitDepth is the stored sample width in bits. Values other than 8, 16
	// and 32 are read as 16-bit samples.
	BitDepth int

	// Samples holds Width*Height little-endian unsigned integers, row-major
	// with y outer
	Samples []byte
}

// Header holds the subset of acquisition metadata used to size and
// calibrate a volume. A zero value or nil pointer means the field was absent.
type Header struct {
	// Rows is the number of rows in the slice (the y extent)
	Rows int

	// Columns is the number of columns in the slice (the x extent)
	Columns int

	// TemporalFrameCount is the raw string value of the number of time
	// points acquired, e.g. CardiacNumberOfImages
	TemporalFrameCount string

	// InstanceNumber is the raw acquisition instance number, if present
	InstanceNumber string

	RescaleSlope     *float64
	RescaleIntercept *float64
}

// Rescale resolves the optional rescale fields against the defaults.
func (h *Header) Rescale() RescaleParams {
	out := DefaultRescale()
	if h == nil {
		return out
	}
	if h.RescaleSlope != nil {
		out.Slope = *h.RescaleSlope
	}
	if h.RescaleIntercept != nil {
		out.Intercept = *h.RescaleIntercept
	}
	return out
}

// Dimensions is the inferred (x, y, z, t) shape of a directory of slices.
// Zero in any axis means that axis is unknown.
type Dimensions struct {
	X, Y, Z, T int
}

// Valid reports whether every axis is known
func (d Dimensions) Valid() bool {
	return d.X > 0 && d.Y > 0 && d.Z > 0 && d.T > 0
}

// Slices returns the number of 2D slices the shape spans
func (d Dimensions) Slices() int {
	return d.Z * d.T
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%d x %d x %d x %d", d.X, d.Y, d.Z, d.T)
}

// RescaleParams are the linear calibration constants converting stored
// sample values to calibrated units: value*Slope + Intercept.
type RescaleParams struct {
	Slope     float64
	Intercept float64
}

// DefaultRescale returns the identity calibration
func DefaultRescale() RescaleParams {
	return RescaleParams{Slope: 1.0, Intercept: 0.0}
}

// Apply calibrates a single stored value
func (p RescaleParams) Apply(raw float64) float64 {
	return raw*p.Slope + p.Intercept
}
