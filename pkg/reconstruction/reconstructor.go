// Package reconstruction assembles a 4D (x, y, z, t) volume from a flat
// directory of 2D slice files.
//
// The pipeline has two steps. InferDimensions reads one header and counts
// files to recover the shape. Assemble then decodes every file in
// acquisition order and places it at (z, t) = (i % Z, i / Z). Per-slice
// failures are absorbed and reported; directory and shape failures are
// fatal.
package reconstruction

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"dicom4d/internal/models"
	"dicom4d/pkg/volume"
)

// HeaderReader reads the acquisition metadata of one slice file. A field
// missing from the file is reported through the zero value, not an error.
type HeaderReader interface {
	ReadHeader(path string) (*models.Header, error)
}

// SliceDecoder decodes the raw samples of one slice file
type SliceDecoder interface {
	DecodeSlice(path string) (*models.Slice, error)
}

// Params holds the assembly parameters
type Params struct {
	// InputDir is the directory containing one slice file per (z, t)
	// position and nothing else
	InputDir string

	// NumCores bounds how many slices are decoded at once. Values below 2
	// decode sequentially.
	NumCores int
}

// DefaultParams returns sequential assembly of dir
func DefaultParams(dir string) *Params {
	return &Params{InputDir: dir, NumCores: 1}
}

// Reconstructor builds a Volume4D from a directory of slices
type Reconstructor struct {
	Params *Params

	Headers HeaderReader
	Decoder SliceDecoder

	// Order decides acquisition order; nil means LexicalOrder
	Order Ordering

	Log logrus.FieldLogger
}

// NewReconstructor creates a reconstructor reading headers and pixels
// through the given collaborators, ordering files lexically.
func NewReconstructor(params *Params, headers HeaderReader, decoder SliceDecoder) *Reconstructor {
	return &Reconstructor{
		Params:  params,
		Headers: headers,
		Decoder: decoder,
		Order:   LexicalOrder{},
		Log:     logrus.StandardLogger(),
	}
}

func (r *Reconstructor) logger() logrus.FieldLogger {
	if r.Log == nil {
		return logrus.StandardLogger()
	}
	return r.Log
}

func (r *Reconstructor) ordering() Ordering {
	if r.Order == nil {
		return LexicalOrder{}
	}
	return r.Order
}

func (r *Reconstructor) workers() int {
	return r.Params.NumCores
}

// InferDimensions infers the shape of Params.InputDir
func (r *Reconstructor) InferDimensions() (models.Dimensions, error) {
	return InferDimensions(r.Params.InputDir, r.Headers, r.logger())
}

// Process infers the shape of the input directory and assembles it
func (r *Reconstructor) Process() (*volume.Volume4D, *Report, error) {
	dims, err := r.InferDimensions()
	if err != nil {
		return nil, nil, err
	}

	return r.Assemble(dims)
}

// DecodeFile decodes a single slice file into a staging volume of shape
// (width, height, 1, 1).
func (r *Reconstructor) DecodeFile(path string) (*volume.Volume4D, error) {
	s, err := r.Decoder.DecodeSlice(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	if s == nil {
		return nil, fmt.Errorf("%w: %s: decoder returned no slice", ErrDecode, path)
	}
	if s.Path == "" {
		s.Path = path
	}

	return DecodeSamples(s)
}

// Assemble populates a volume of shape dims from the files of
// Params.InputDir.
//
// Files are ordered with r.Order and the file at position i is placed at
// z = i % dims.Z, t = i / dims.Z. A file that cannot be decoded, or whose
// plane size differs from dims, leaves its cell at zero and is reported as
// Missing. Files past the last cell are reported as Extraneous. The error
// is non-nil only for invalid dims, directory failures and ordering
// failures, in which case no volume is returned.
func (r *Reconstructor) Assemble(dims models.Dimensions) (*volume.Volume4D, *Report, error) {
	log := r.logger()

	if !dims.Valid() {
		return nil, nil, fmt.Errorf("%w: cannot assemble %s", ErrInference, dims)
	}

	paths, err := ListSlices(r.Params.InputDir)
	if err != nil {
		return nil, nil, err
	}

	ordered, err := r.ordering().Order(paths)
	if err != nil {
		return nil, nil, fmt.Errorf("ordering slices in %s: %w", r.Params.InputDir, err)
	}

	vol := &volume.Volume4D{}
	if err := vol.Resize(dims.X, dims.Y, dims.Z, dims.T); err != nil {
		return nil, nil, err
	}

	results := make([]SliceResult, len(ordered))

	if workers := r.workers(); workers > 1 {
		// Every index maps to its own (z, t) plane, so workers never write
		// the same memory.
		var g errgroup.Group
		g.SetLimit(workers)
		for i := range ordered {
			i := i
			g.Go(func() error {
				results[i] = r.placeSlice(vol, dims, i, ordered[i])
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range ordered {
			results[i] = r.placeSlice(vol, dims, i, ordered[i])
		}
	}

	for i := len(ordered); i < dims.Slices(); i++ {
		results = append(results, SliceResult{
			Index:  i,
			Z:      i % dims.Z,
			T:      i / dims.Z,
			Status: Missing,
			Err:    ErrNoSliceFile,
		})
	}

	report := &Report{Dims: dims, Files: len(ordered), Slices: results}

	fields := logrus.Fields{
		"dir":        r.Params.InputDir,
		"dims":       dims.String(),
		"decoded":    report.Decoded(),
		"missing":    len(report.Missing()),
		"extraneous": len(report.Extraneous()),
	}
	if report.Complete() {
		log.WithFields(fields).Info("assembled volume")
	} else {
		log.WithFields(fields).Warn("assembled incomplete volume")
	}

	return vol, report, nil
}

// placeSlice decodes the file at sorted position i and copies it into its
// (z, t) plane.
func (r *Reconstructor) placeSlice(vol *volume.Volume4D, dims models.Dimensions, i int, path string) SliceResult {
	res := SliceResult{
		Index: i,
		Path:  path,
		Z:     i % dims.Z,
		T:     i / dims.Z,
	}
	log := r.logger().WithFields(logrus.Fields{"path": path, "z": res.Z, "t": res.T})

	if i >= dims.Slices() {
		res.Status = Extraneous
		log.Warn("no cell left for slice file; ignoring")
		return res
	}

	slice, err := r.DecodeFile(path)
	if err == nil && (slice.SizeX() != dims.X || slice.SizeY() != dims.Y) {
		err = fmt.Errorf("%w: %s is %d x %d, volume plane is %d x %d",
			ErrSliceShape, path, slice.SizeX(), slice.SizeY(), dims.X, dims.Y)
	}

	var plane []float32
	if err == nil {
		plane, err = slice.Plane(0, 0)
	}
	if err == nil {
		err = vol.SetPlane(res.Z, res.T, plane)
	}

	if err != nil {
		res.Status = Missing
		res.Err = err
		log.WithError(err).Warn("slice left empty")
		return res
	}

	res.Status = Decoded

	if st, err := slice.PlaneStats(0, 0); err == nil {
		log.WithFields(logrus.Fields{
			"min":  st.Min,
			"max":  st.Max,
			"mean": st.Mean,
		}).Debug("placed slice")
	}

	return res
}
