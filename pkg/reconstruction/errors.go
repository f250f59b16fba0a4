package reconstruction

import (
	"errors"
	"fmt"
)

var (
	// ErrDirectoryAccess is returned when the input directory does not exist
	// or cannot be enumerated. It is fatal for the operation in progress.
	ErrDirectoryAccess = errors.New("slice directory not accessible")

	// ErrInference is the parent of every shape inference failure
	ErrInference = errors.New("could not infer volume dimensions")

	// ErrNoHeader means no file in the directory had a readable header
	ErrNoHeader = fmt.Errorf("%w: no readable header", ErrInference)

	// ErrMissingFrameCount means the temporal frame count was absent,
	// unparsable or not positive
	ErrMissingFrameCount = fmt.Errorf("%w: temporal frame count absent or invalid", ErrInference)

	// ErrMissingPlaneSize means the header carried no rows or columns
	ErrMissingPlaneSize = fmt.Errorf("%w: rows or columns absent", ErrInference)

	// ErrTooFewSlices means the directory holds fewer files than time points
	ErrTooFewSlices = fmt.Errorf("%w: fewer files than temporal frames", ErrInference)

	// ErrDecode is the parent of every per-slice failure. These are absorbed
	// by the assembler and reported, never returned from Assemble.
	ErrDecode = errors.New("slice decode failed")

	// ErrSliceShape means a decoded slice does not match the inferred plane
	ErrSliceShape = fmt.Errorf("%w: slice shape does not match volume", ErrDecode)

	// ErrNoSliceFile means no file was available for a (z, t) cell
	ErrNoSliceFile = errors.New("no slice file for cell")
)
