package reconstruction

import (
	"fmt"

	"dicom4d/internal/models"
)

// SliceStatus describes what happened to one sorted slice position
type SliceStatus int

const (
	// Decoded slices were placed in the volume
	Decoded SliceStatus = iota

	// Missing cells were left at zero: the file failed to decode, did not
	// match the plane size, or did not exist
	Missing

	// Extraneous files sorted past the last (z, t) cell and were ignored
	Extraneous
)

func (s SliceStatus) String() string {
	switch s {
	case Decoded:
		return "decoded"
	case Missing:
		return "missing"
	case Extraneous:
		return "extraneous"
	default:
		return fmt.Sprintf("SliceStatus(%d)", int(s))
	}
}

// SliceResult records the placement of the file at sorted position Index
type SliceResult struct {
	Index  int
	Path   string
	Z, T   int
	Status SliceStatus
	Err    error
}

// Report lists the outcome of every (z, t) cell and every input file of
// one assembly.
type Report struct {
	Dims   models.Dimensions
	Files  int
	Slices []SliceResult
}

func (r *Report) filter(status SliceStatus) []SliceResult {
	var out []SliceResult
	for _, s := range r.Slices {
		if s.Status == status {
			out = append(out, s)
		}
	}
	return out
}

// Missing returns the cells that were never populated
func (r *Report) Missing() []SliceResult {
	return r.filter(Missing)
}

// Extraneous returns files that had no cell to go into
func (r *Report) Extraneous() []SliceResult {
	return r.filter(Extraneous)
}

// Decoded returns the number of cells that were populated
func (r *Report) Decoded() int {
	return len(r.filter(Decoded))
}

// Complete reports whether every (z, t) cell was populated and no file
// was left over
func (r *Report) Complete() bool {
	return r.Decoded() == r.Dims.Slices() && len(r.Extraneous()) == 0
}
